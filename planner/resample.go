package planner

import (
	"fmt"
	"math"
)

// RawSeries is a forecast sequence tagged with its native step size.
// A StepMinutes of zero means the native step is unknown.
type RawSeries struct {
	Values      []float64
	StepMinutes int
}

// Resampled is the outcome of aligning a raw series onto the planning
// grid. When Available is false the series could not be produced and the
// planner must treat it as missing.
type Resampled struct {
	Values    []float64
	Warnings  []string
	Available bool
}

// Resample aligns a raw forecast onto a grid of horizon steps of
// stepHours each. Coarser sources are linearly interpolated, finer
// sources are averaged over each target interval, and a short tail is
// forward-filled from the last known value.
func Resample(raw RawSeries, stepHours float64, horizon int) (Resampled, error) {
	if horizon < 1 {
		return Resampled{}, fmt.Errorf("horizon must be positive, got: %d", horizon)
	}
	if stepHours <= 0 {
		return Resampled{}, fmt.Errorf("step_hours must be positive, got: %g", stepHours)
	}
	if len(raw.Values) == 0 {
		return Resampled{Warnings: []string{"source series is empty"}}, nil
	}

	targetMin := stepHours * 60.0
	nativeMin := float64(raw.StepMinutes)
	var warnings []string
	if raw.StepMinutes == 0 {
		nativeMin = targetMin
		warnings = append(warnings, "native step unknown, assuming target step")
	} else if raw.StepMinutes < 0 {
		return Resampled{}, fmt.Errorf("native step must be non-negative, got: %d", raw.StepMinutes)
	}

	out := make([]float64, horizon)
	n := len(raw.Values)
	filled := false

	switch {
	case nativeMin == targetMin:
		for j := 0; j < horizon; j++ {
			if j < n {
				out[j] = raw.Values[j]
			} else {
				out[j] = raw.Values[n-1]
				filled = true
			}
		}

	case nativeMin < targetMin:
		// Downsample: arithmetic mean over the covering target interval.
		for j := 0; j < horizon; j++ {
			lo := int(math.Floor(float64(j) * targetMin / nativeMin))
			hi := int(math.Ceil(float64(j+1) * targetMin / nativeMin))
			if lo >= n {
				out[j] = raw.Values[n-1]
				filled = true
				continue
			}
			if hi > n {
				hi = n
			}
			sum := 0.0
			for i := lo; i < hi; i++ {
				sum += raw.Values[i]
			}
			out[j] = sum / float64(hi-lo)
		}

	default:
		// Upsample: linear interpolation between adjacent source
		// samples, edges held constant.
		for j := 0; j < horizon; j++ {
			pos := float64(j) * targetMin / nativeMin
			i0 := int(math.Floor(pos))
			if i0 >= n-1 {
				out[j] = raw.Values[n-1]
				if pos > float64(n-1) {
					filled = true
				}
				continue
			}
			frac := pos - float64(i0)
			out[j] = raw.Values[i0] + frac*(raw.Values[i0+1]-raw.Values[i0])
		}
	}

	if filled {
		warnings = append(warnings, "tail forward-filled from last known value")
	}
	if len(out) != horizon {
		return Resampled{}, fmt.Errorf("resample produced %d values, want %d", len(out), horizon)
	}
	return Resampled{Values: out, Warnings: warnings, Available: true}, nil
}
