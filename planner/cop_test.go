package planner

import (
	"math"
	"testing"
)

func TestDefrostMultiplier(t *testing.T) {
	tests := []struct {
		name     string
		temp     float64
		humidity float64
		expected float64
	}{
		{
			name:     "No penalty below the frost band",
			temp:     -15,
			humidity: 100,
			expected: 1.00,
		},
		{
			name:     "No penalty above the frost band",
			temp:     8,
			humidity: 100,
			expected: 1.00,
		},
		{
			name:     "Anchor at 0C and 70% humidity",
			temp:     0,
			humidity: 70,
			expected: 0.80,
		},
		{
			name:     "Anchor at 0C and 100% humidity",
			temp:     0,
			humidity: 100,
			expected: 0.70,
		},
		{
			name:     "Peak penalty at 3C and 100% humidity",
			temp:     3,
			humidity: 100,
			expected: 0.60,
		},
		{
			name:     "Temperature midpoint between -10 and -7 at 70%",
			temp:     -8.5,
			humidity: 70,
			// Linear between 1.00 and 0.92: 0.96
			expected: 0.96,
		},
		{
			name:     "Humidity midpoint at 0C",
			temp:     0,
			humidity: 85,
			// Linear between 0.80 and 0.70: 0.75
			expected: 0.75,
		},
		{
			name:     "Temperature midpoint between 0 and 3 at 70%",
			temp:     1.5,
			humidity: 70,
			// Linear between 0.80 and 0.75: 0.775
			expected: 0.775,
		},
		{
			name:     "Dry air clamps to the 70% column",
			temp:     0,
			humidity: 40,
			expected: 0.80,
		},
		{
			name:     "Saturated air clamps to the 100% column",
			temp:     3,
			humidity: 110,
			expected: 0.60,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := defrostMultiplier(tt.temp, tt.humidity)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("defrostMultiplier(%g, %g) = %g, want %g", tt.temp, tt.humidity, got, tt.expected)
			}
		})
	}
}

func TestCOP(t *testing.T) {
	in := DefaultInput()
	in.HorizonSteps = 1
	in.BaseSupplyTemp = []float64{38}
	in.OutdoorTemp = []float64{5}

	// raw = (3.8 + 0.05*5 - 0.03*(38-35)) * 0.9 = 3.96 * 0.9 = 3.564
	// defrost at 5C, 80% RH = 0.90 + (1/3)*(0.80-0.90) = 0.866667
	// cop = 3.564 * 0.866667 = 3.08880
	got := in.COP(0, 0)
	want := 3.564 * (0.90 + (10.0/30.0)*(0.80-0.90))
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("COP(0, 0) = %g, want %g", got, want)
	}

	// A higher offset raises the supply temperature and must not improve
	// the COP.
	if in.COP(0, 2) >= in.COP(0, 0) {
		t.Errorf("COP must decrease with offset: COP(+2)=%g COP(0)=%g", in.COP(0, 2), in.COP(0, 0))
	}
	if in.COP(0, -2) <= in.COP(0, 0) {
		t.Errorf("COP must increase with negative offset: COP(-2)=%g COP(0)=%g", in.COP(0, -2), in.COP(0, 0))
	}
}

func TestCOPFloor(t *testing.T) {
	in := DefaultInput()
	in.HorizonSteps = 1
	in.BaseSupplyTemp = []float64{50}
	in.OutdoorTemp = []float64{-25}
	in.KFactor = 1.0

	if got := in.COP(0, 0); got != COPFloor {
		t.Errorf("COP must be floored at %g, got %g", COPFloor, got)
	}
}

func TestCOPUsesHumiditySeries(t *testing.T) {
	in := DefaultInput()
	in.HorizonSteps = 2
	in.BaseSupplyTemp = []float64{38, 38}
	in.OutdoorTemp = []float64{0, 0}
	in.HumiditySeries = []float64{70, 100}

	dry := in.COP(0, 0)
	humid := in.COP(1, 0)
	if humid >= dry {
		t.Errorf("higher humidity must lower the COP at 0C: dry=%g humid=%g", dry, humid)
	}
}
