package meteo

import (
	"math"
	"strings"
	"time"
)

// GetWeatherAtTime returns the forecast time step closest to the
// specified time, or nil when the forecast is empty.
func (f *METJSONForecast) GetWeatherAtTime(targetTime time.Time) *ForecastTimeStep {
	if f == nil || f.Properties == nil || len(f.Properties.Timeseries) == 0 {
		return nil
	}

	var closest *ForecastTimeStep
	minDiff := time.Duration(math.MaxInt64)

	for i := range f.Properties.Timeseries {
		step := &f.Properties.Timeseries[i]
		diff := step.Time.Sub(targetTime)
		if diff < 0 {
			diff = -diff
		}
		if diff < minDiff {
			minDiff = diff
			closest = step
		}
	}

	return closest
}

// GetCurrentWeather returns the forecast time step closest to now.
func (f *METJSONForecast) GetCurrentWeather() *ForecastTimeStep {
	return f.GetWeatherAtTime(time.Now())
}

// HourlySeries extracts one value per hour starting at start, using the
// pick accessor on the closest forecast step. Hours for which the
// accessor yields nothing carry NaN so callers can distinguish gaps.
func (f *METJSONForecast) HourlySeries(start time.Time, hours int, pick func(*ForecastTimeStep) *float64) []float64 {
	out := make([]float64, hours)
	for i := 0; i < hours; i++ {
		out[i] = math.NaN()
		step := f.GetWeatherAtTime(start.Add(time.Duration(i) * time.Hour))
		if step == nil {
			continue
		}
		if v := pick(step); v != nil {
			out[i] = *v
		}
	}
	return out
}

// GetTemperature returns the air temperature if available
func (ts *ForecastTimeStep) GetTemperature() *float64 {
	if ts == nil || ts.Data == nil || ts.Data.Instant == nil || ts.Data.Instant.Details == nil {
		return nil
	}
	return ts.Data.Instant.Details.AirTemperature
}

// GetHumidity returns the relative humidity if available
func (ts *ForecastTimeStep) GetHumidity() *float64 {
	if ts == nil || ts.Data == nil || ts.Data.Instant == nil || ts.Data.Instant.Details == nil {
		return nil
	}
	return ts.Data.Instant.Details.RelativeHumidity
}

// GetCloudCoverage returns the cloud area fraction if available
func (ts *ForecastTimeStep) GetCloudCoverage() *float64 {
	if ts == nil || ts.Data == nil || ts.Data.Instant == nil || ts.Data.Instant.Details == nil {
		return nil
	}
	return ts.Data.Instant.Details.CloudAreaFraction
}

// GetSymbolCode returns the weather symbol code for the next hour if
// available, falling back to the 6 and 12 hour summaries.
func (ts *ForecastTimeStep) GetSymbolCode() *WeatherSymbol {
	if ts == nil || ts.Data == nil {
		return nil
	}

	if ts.Data.Next1Hours != nil && ts.Data.Next1Hours.Summary != nil {
		return &ts.Data.Next1Hours.Summary.SymbolCode
	}
	if ts.Data.Next6Hours != nil && ts.Data.Next6Hours.Summary != nil {
		return &ts.Data.Next6Hours.Summary.SymbolCode
	}
	if ts.Data.Next12Hours != nil && ts.Data.Next12Hours.Summary != nil {
		return &ts.Data.Next12Hours.Summary.SymbolCode
	}

	return nil
}

// HasSnow checks if the weather symbol indicates snowfall
func (ws WeatherSymbol) HasSnow() bool {
	return strings.Contains(string(ws), "snow") || strings.Contains(string(ws), "sleet")
}

// IsDay checks if the weather symbol indicates daytime conditions
func (ws WeatherSymbol) IsDay() bool {
	return strings.HasSuffix(string(ws), "_day")
}

// Float64Ptr is a helper function to get a pointer to a float64 value
func Float64Ptr(f float64) *float64 {
	return &f
}
