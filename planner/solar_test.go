package planner

import (
	"math"
	"testing"
	"time"
)

func TestSolarGain(t *testing.T) {
	in := DefaultInput()
	in.HorizonSteps = 1
	in.StartTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	in.OutdoorTemp = []float64{5}
	in.Radiation = []float64{500}
	in.GlassEastM2 = 2
	in.GlassWestM2 = 2
	in.GlassSouthM2 = 4
	in.GlassUValue = 1.1

	// At hour 12: fE=0.25, fS=1.00, fW=0.40; g(1.1) = 0.50.
	// aperture = 2*0.25 + 2*0.40 + 4*1.00 = 5.3 m2
	// gain = 0.50 * 5.3 * 500 / 1000 = 1.325 kW
	got := in.SolarGainKW(0)
	if math.Abs(got-1.325) > 1e-9 {
		t.Errorf("SolarGainKW = %g, want 1.325", got)
	}
}

func TestSolarGainZeroAtNight(t *testing.T) {
	in := DefaultInput()
	in.HorizonSteps = 1
	in.StartTime = time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC)
	in.OutdoorTemp = []float64{5}
	in.Radiation = []float64{100} // stray sensor value
	in.GlassSouthM2 = 10
	in.GlassUValue = 1.1

	if got := in.SolarGainKW(0); got != 0 {
		t.Errorf("SolarGainKW at 02:00 = %g, want 0", got)
	}
}

func TestOrientationTablesShape(t *testing.T) {
	for h := 0; h < 24; h++ {
		for _, f := range []float64{orientationEast[h], orientationSouth[h], orientationWest[h]} {
			if f < 0 || f > 1 {
				t.Fatalf("orientation factor at hour %d out of [0,1]: %g", h, f)
			}
		}
	}
	// East peaks before south, south before west.
	if argmax(orientationEast[:]) >= argmax(orientationSouth[:]) {
		t.Error("east must peak before south")
	}
	if argmax(orientationSouth[:]) >= argmax(orientationWest[:]) {
		t.Error("south must peak before west")
	}
}

func TestSolarGainCoeffBands(t *testing.T) {
	tests := []struct {
		uValue   float64
		expected float64
	}{
		{0.8, 0.50},
		{1.6, 0.60},
		{2.5, 0.65},
		{5.0, 0.75},
	}
	for _, tt := range tests {
		if got := solarGainCoeff(tt.uValue); got != tt.expected {
			t.Errorf("solarGainCoeff(%g) = %g, want %g", tt.uValue, got, tt.expected)
		}
	}
}

func TestPVFallbackModel(t *testing.T) {
	in := DefaultInput()
	in.HorizonSteps = 1
	in.StartTime = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	in.Radiation = []float64{800}
	in.PVSouthWp = 3000
	in.PVTiltDeg = 35

	// At noon fS = 1.00 and the tilt factor at 35 degrees is 1.0:
	// 800 * 3000 / 1e6 = 2.4 kW
	if got := in.PVProductionKW(0); math.Abs(got-2.4) > 1e-9 {
		t.Errorf("PVProductionKW = %g, want 2.4", got)
	}

	// An external forecast takes precedence over the model.
	in.PVProduction = []float64{1.1}
	if got := in.PVProductionKW(0); got != 1.1 {
		t.Errorf("external PV forecast ignored: got %g, want 1.1", got)
	}
}

func TestTiltEfficiency(t *testing.T) {
	if got := tiltEfficiency(35); got != 1.0 {
		t.Errorf("tiltEfficiency(35) = %g, want 1.0", got)
	}
	if flat := tiltEfficiency(0); flat >= 1.0 || flat < 0.9 {
		t.Errorf("tiltEfficiency(0) = %g, want slightly below 1", flat)
	}
	if steep := tiltEfficiency(90); steep >= tiltEfficiency(45) {
		t.Errorf("steeper deviation must derate more: %g", steep)
	}
}

func argmax(vals []float64) int {
	best := 0
	for i, v := range vals {
		if v > vals[best] {
			best = i
		}
	}
	return best
}
