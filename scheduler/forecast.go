package scheduler

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ovheul/heatplan/entsoe"
	"github.com/ovheul/heatplan/heatpump"
	"github.com/ovheul/heatplan/meteo"
	"github.com/ovheul/heatplan/planner"
	"github.com/sixdouglas/suncalc"
)

// clearSkyIrradiance is the peak shortwave radiation at sea level used
// by the radiation estimate when the sun is at the zenith.
const clearSkyIrradiance = 1000.0 // W/m2

// buildPlannerInput assembles a complete planner input from the weather
// forecast, the price document, the heating curve and the unit state.
func (s *HeatScheduler) buildPlannerInput(ctx context.Context, start time.Time) (planner.Input, error) {
	config := s.GetConfig()
	h := config.HorizonSteps
	in := config.PlannerInput(start)

	weather, err := s.getOrFetchWeatherForecast()
	if err != nil {
		s.logger.Printf("Warning: weather forecast unavailable: %v", err)
		weather = nil
	}

	// Outdoor temperature and humidity come straight from the weather
	// forecast at hourly native resolution and are resampled onto the
	// planning grid.
	hours := int(math.Ceil(float64(h)*config.StepHours)) + 1
	outdoorRaw := weather.HourlySeries(start, hours, (*meteo.ForecastTimeStep).GetTemperature)
	humidityRaw := weather.HourlySeries(start, hours, (*meteo.ForecastTimeStep).GetHumidity)
	cloudRaw := weather.HourlySeries(start, hours, (*meteo.ForecastTimeStep).GetCloudCoverage)

	if outdoor, ok := s.resampleSeries("outdoor_temp", outdoorRaw, config, h); ok {
		in.OutdoorTemp = outdoor
		in.BaseSupplyTemp = config.Curve.Series(outdoor)
	}
	if humidity, ok := s.resampleSeries("humidity", humidityRaw, config, h); ok {
		in.HumiditySeries = humidity
	}

	// The MET forecast carries no shortwave radiation; estimate it from
	// the solar elevation and cloud cover instead.
	if radiation, ok := s.estimateRadiation(start, cloudRaw, config, h); ok {
		in.Radiation = radiation
	}

	// Prices.
	doc, err := s.getPriceDocument(ctx)
	if err != nil {
		s.logger.Printf("Warning: price document unavailable: %v", err)
	}
	tariff := entsoe.Tariff{
		EnergyTaxPerKWh: config.EnergyTaxPerKWh,
		MarkupPerKWh:    config.MarkupPerKWh,
		VATRate:         config.VATRate,
		FeedInPerKWh:    config.FeedInPerKWh,
	}
	pricesRaw := tariff.HourlyConsumptionPrices(doc, start, hours)
	if prices, ok := s.resampleSeries("price_consumption", pricesRaw, config, h); ok {
		in.PriceConsumption = prices
	}
	if prod := tariff.HourlyProductionPrices(h); prod != nil {
		in.PriceProduction = prod
	}

	// Household baseline load is a configured constant profile.
	in.BaselineLoad = make([]float64, h)
	for t := range in.BaselineLoad {
		in.BaselineLoad[t] = config.BaselineLoadKW
	}

	// Unit state: current offset seeds the plan; the meter PV reading,
	// when configured, replaces the internal PV model for step 0 only.
	if outdoorNow, offset, pvPower, err := s.readUnit(); err != nil {
		s.logger.Printf("Warning: unit state unavailable: %v", err)
	} else {
		in.InitialOffset = clampInt(offset, config.OffsetMin, config.OffsetMax)
		if in.OutdoorTemp != nil {
			// Pin the first step to the measured value.
			in.OutdoorTemp[0] = outdoorNow
			in.BaseSupplyTemp[0] = config.Curve.SupplyTemp(outdoorNow)
		}
		if config.PVSensorFromMeter && pvPower > 0 {
			// Future steps keep the model estimate; the measured value
			// pins the current step.
			pv := make([]float64, h)
			for t := range pv {
				pv[t] = in.PVProductionKW(t)
			}
			pv[0] = pvPower
			in.PVProduction = pv
		}
	}

	s.mu.RLock()
	manual := s.manualOffset
	s.mu.RUnlock()
	in.Overrides.ManualOffset = manual

	return in, nil
}

// resampleSeries cuts the series at its first NaN, resamples onto the planning grid and
// logs any warnings. The boolean reports availability.
func (s *HeatScheduler) resampleSeries(name string, raw []float64, config *Config, horizon int) ([]float64, bool) {
	trimmed := trimUnknown(raw)
	res, err := planner.Resample(planner.RawSeries{Values: trimmed, StepMinutes: 60}, config.StepHours, horizon)
	if err != nil {
		s.logger.Printf("Resampling %s failed: %v", name, err)
		return nil, false
	}
	for _, w := range res.Warnings {
		s.logger.Printf("Resampling %s: %s", name, w)
	}
	if !res.Available {
		return nil, false
	}
	return res.Values, true
}

// trimUnknown cuts the series at the first NaN so the resampler
// forward-fills from known values only.
func trimUnknown(raw []float64) []float64 {
	for i, v := range raw {
		if math.IsNaN(v) {
			return raw[:i]
		}
	}
	return raw
}

// estimateRadiation builds a shortwave radiation series from the solar
// elevation at the configured location, derated by cloud cover.
func (s *HeatScheduler) estimateRadiation(start time.Time, cloudRaw []float64, config *Config, horizon int) ([]float64, bool) {
	hours := len(cloudRaw)
	raw := make([]float64, hours)
	for i := 0; i < hours; i++ {
		at := start.Add(time.Duration(i) * time.Hour)

		pos := suncalc.GetPosition(at, config.Latitude, config.Longitude)
		elevationFactor := math.Sin(pos.Altitude)
		if elevationFactor <= 0 {
			raw[i] = 0
			continue
		}

		cloudFactor := 1.0
		if i < len(cloudRaw) && !math.IsNaN(cloudRaw[i]) {
			cloudFactor = 1.0 - (cloudRaw[i]/100.0)*0.75
		}
		raw[i] = clearSkyIrradiance * elevationFactor * cloudFactor
	}
	return s.resampleSeries("radiation", raw, config, horizon)
}

// getPriceDocument returns the cached day-ahead document, refreshing it
// once the cached copy is more than an hour old.
func (s *HeatScheduler) getPriceDocument(ctx context.Context) (*entsoe.PublicationMarketDocument, error) {
	now := time.Now()

	s.mu.RLock()
	doc := s.priceDocument
	expiry := s.priceDocumentExpiry
	s.mu.RUnlock()

	if doc != nil && now.Before(expiry) {
		return doc, nil
	}

	config := s.GetConfig()
	location, err := time.LoadLocation(config.Location)
	if err != nil {
		return doc, fmt.Errorf("invalid market timezone %q: %w", config.Location, err)
	}

	fresh, err := entsoe.DownloadPublicationMarketDocument(ctx, config.SecurityToken, config.UrlFormat, location)
	if err != nil {
		// Keep serving the stale document; prices rarely change intraday.
		return doc, err
	}

	s.mu.Lock()
	s.priceDocument = fresh
	s.priceDocumentExpiry = now.Add(time.Hour)
	s.mu.Unlock()

	return fresh, nil
}

// getOrFetchWeatherForecast gets the weather forecast from cache or
// fetches a new one.
func (s *HeatScheduler) getOrFetchWeatherForecast() (*meteo.METJSONForecast, error) {
	if forecast, ok := s.weatherCache.Get(); ok {
		return forecast, nil
	}

	config := s.GetConfig()
	client := meteo.NewClient(config.UserAgent)

	forecast, err := client.GetComplete(meteo.QueryParams{
		Location: meteo.Location{
			Latitude:  config.Latitude,
			Longitude: config.Longitude,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch weather forecast: %w", err)
	}

	s.weatherCache.Set(forecast)
	return forecast, nil
}

// readUnit reads outdoor temperature and the active curve offset from
// the heat pump, honoring the test hook. The Modbus path reads no PV
// meter and always reports a PV value of zero; only the test hook can
// supply a non-zero one.
func (s *HeatScheduler) readUnit() (float64, int, float64, error) {
	if s.readUnitFunc != nil {
		return s.readUnitFunc()
	}

	config := s.GetConfig()
	if config.HeatPumpAddress == "" {
		return 0, 0, 0, fmt.Errorf("heat pump address not configured")
	}

	client, err := heatpump.NewTCPClient(config.HeatPumpAddress, byte(config.HeatPumpSlaveID))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to connect to heat pump: %w", err)
	}
	defer client.Close()

	status, err := client.ReadUnitStatus()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to read unit status: %w", err)
	}
	return status.OutdoorTemp, status.CurveOffset, 0, nil
}

// writeOffset writes the heating-curve offset, honoring the test hook.
func (s *HeatScheduler) writeOffset(offset int) error {
	if s.writeOffsetFunc != nil {
		return s.writeOffsetFunc(offset)
	}

	config := s.GetConfig()
	client, err := heatpump.NewTCPClient(config.HeatPumpAddress, byte(config.HeatPumpSlaveID))
	if err != nil {
		return fmt.Errorf("failed to connect to heat pump: %w", err)
	}
	defer client.Close()

	return client.WriteCurveOffset(offset)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
