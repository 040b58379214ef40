package planner

import (
	"fmt"
	"math"
	"time"
)

// Status describes the outcome of a planning run.
type Status string

const (
	// StatusOK means the optimizer found a feasible minimum-cost plan.
	StatusOK Status = "OK"
	// StatusDegenerateFlat means no heating is needed over the horizon.
	StatusDegenerateFlat Status = "DEGENERATE_FLAT"
	// StatusInfeasible means no plan satisfies the constraints, or a
	// required forecast was unavailable. The output carries the fallback
	// plan (initial offset broadcast) with zero cost.
	StatusInfeasible Status = "INFEASIBLE"
	// StatusCancelled means the caller cancelled the run. No partial
	// result is produced.
	StatusCancelled Status = "CANCELLED"
)

// COPFloor is the lower bound applied to every computed COP value.
const COPFloor = 0.5

// EnergyLabel is the building envelope energy label.
type EnergyLabel string

const (
	LabelAPlusPlusPlus EnergyLabel = "A+++"
	LabelAPlusPlus     EnergyLabel = "A++"
	LabelAPlus         EnergyLabel = "A+"
	LabelA             EnergyLabel = "A"
	LabelB             EnergyLabel = "B"
	LabelC             EnergyLabel = "C"
	LabelD             EnergyLabel = "D"
	LabelE             EnergyLabel = "E"
	LabelF             EnergyLabel = "F"
	LabelG             EnergyLabel = "G"
)

// VentilationType selects the ventilation heat-loss coefficient.
type VentilationType string

const (
	VentilationNatural           VentilationType = "natural"
	VentilationMechanicalExhaust VentilationType = "mechanical_exhaust"
	VentilationBalanced          VentilationType = "balanced"
	VentilationHeatRecovery      VentilationType = "heat_recovery"
)

// RuntimeOverrides carries operator state that bypasses optimization.
type RuntimeOverrides struct {
	// ManualOffset, when non-nil, forces the whole plan to this offset.
	ManualOffset *int
}

// Input is the immutable record consumed by a single planning run. All
// series must have length HorizonSteps; optional series may be nil.
type Input struct {
	HorizonSteps int
	StepHours    float64

	// StartTime anchors step 0 on the wall clock; the solar orientation
	// tables are indexed by its hour of day. A zero StartTime anchors the
	// horizon at midnight and adds a warning.
	StartTime time.Time

	BaseSupplyTemp   []float64 // degC
	OutdoorTemp      []float64 // degC
	Radiation        []float64 // W/m2, >= 0
	PriceConsumption []float64 // per kWh
	PriceProduction  []float64 // per kWh, optional
	BaselineLoad     []float64 // kW, >= 0
	PVProduction     []float64 // kW, optional; nil enables the internal PV model

	// NetDemandKW, when non-nil, replaces the heat-loss/solar-gain
	// computation with an externally measured net heat demand.
	NetDemandKW []float64

	// Humidity is the relative humidity in percent used by the defrost
	// model. HumiditySeries, when non-nil, takes precedence per step.
	// A zero scalar means "not configured" and defaults to 80.
	Humidity       float64
	HumiditySeries []float64

	// Building envelope.
	AreaM2         float64
	CeilingHeightM float64
	EnergyLabel    EnergyLabel
	Ventilation    VentilationType
	IndoorTemp     float64 // degC, zero defaults to 20

	// Glazing.
	GlassEastM2  float64
	GlassWestM2  float64
	GlassSouthM2 float64
	GlassUValue  float64 // W/(m2 K)

	// PV installation, used by the fallback production model.
	PVEastWp  float64
	PVSouthWp float64
	PVWestWp  float64
	PVTiltDeg float64

	// Supply-water and offset constraints.
	WaterMin      float64
	WaterMax      float64
	OffsetMin     int
	OffsetMax     int
	OffsetStepMax int

	// Heat-pump efficiency model.
	COPBase            float64
	KFactor            float64
	OutdoorAlpha       float64
	CompensationFactor float64

	// Thermal buffer model.
	StorageEta       float64 // (0, 1]
	MaxDebtKWh       float64 // >= 0
	TerminalLambda   float64 // >= 0
	InitialOffset    int
	InitialBufferKWh float64

	Overrides RuntimeOverrides
}

// DefaultInput returns an Input populated with the documented defaults.
// Forecast series and building geometry must still be filled in.
func DefaultInput() Input {
	return Input{
		StepHours:          1.0,
		IndoorTemp:         20.0,
		Humidity:           80.0,
		WaterMin:           25.0,
		WaterMax:           50.0,
		OffsetMin:          -4,
		OffsetMax:          4,
		OffsetStepMax:      1,
		COPBase:            3.8,
		KFactor:            0.03,
		OutdoorAlpha:       0.05,
		CompensationFactor: 0.9,
		StorageEta:         0.5,
		MaxDebtKWh:         5.0,
		TerminalLambda:     0.01,
	}
}

// Validate rejects malformed inputs before they reach the optimizer.
// Unavailable forecasts are not validation errors; they surface as an
// INFEASIBLE status instead.
func (in *Input) Validate() error {
	if in.HorizonSteps < 1 || in.HorizonSteps > 96 {
		return fmt.Errorf("horizon_steps must be in [1, 96], got: %d", in.HorizonSteps)
	}
	if !(in.StepHours > 0 && in.StepHours <= 2) {
		return fmt.Errorf("step_hours must be in (0, 2], got: %g", in.StepHours)
	}
	if in.WaterMin >= in.WaterMax {
		return fmt.Errorf("water_min (%g) must be below water_max (%g)", in.WaterMin, in.WaterMax)
	}
	if in.OffsetMin > in.OffsetMax {
		return fmt.Errorf("offset_min (%d) cannot exceed offset_max (%d)", in.OffsetMin, in.OffsetMax)
	}
	if in.OffsetStepMax < 1 {
		return fmt.Errorf("offset_step_max must be at least 1, got: %d", in.OffsetStepMax)
	}
	if in.InitialOffset < in.OffsetMin || in.InitialOffset > in.OffsetMax {
		return fmt.Errorf("initial_offset %d outside [%d, %d]", in.InitialOffset, in.OffsetMin, in.OffsetMax)
	}
	if in.StorageEta <= 0 || in.StorageEta > 1 {
		return fmt.Errorf("storage_efficiency_eta must be in (0, 1], got: %g", in.StorageEta)
	}
	if in.MaxDebtKWh < 0 {
		return fmt.Errorf("max_buffer_debt_kwh must be non-negative, got: %g", in.MaxDebtKWh)
	}
	if in.TerminalLambda < 0 {
		return fmt.Errorf("terminal_penalty_lambda must be non-negative, got: %g", in.TerminalLambda)
	}
	if in.InitialBufferKWh < -in.MaxDebtKWh {
		return fmt.Errorf("initial_buffer_kwh %g below -max_buffer_debt_kwh %g", in.InitialBufferKWh, in.MaxDebtKWh)
	}
	if in.AreaM2 < 0 || in.CeilingHeightM < 0 {
		return fmt.Errorf("building dimensions must be non-negative")
	}
	if in.GlassEastM2 < 0 || in.GlassWestM2 < 0 || in.GlassSouthM2 < 0 || in.GlassUValue < 0 {
		return fmt.Errorf("glazing parameters must be non-negative")
	}
	if in.PVEastWp < 0 || in.PVSouthWp < 0 || in.PVWestWp < 0 {
		return fmt.Errorf("pv peak watts must be non-negative")
	}
	if in.PVTiltDeg < 0 || in.PVTiltDeg > 90 {
		return fmt.Errorf("pv_tilt_deg must be in [0, 90], got: %g", in.PVTiltDeg)
	}
	if in.EnergyLabel != "" {
		if _, ok := labelUValues[in.EnergyLabel]; !ok {
			return fmt.Errorf("unknown energy label: %q", in.EnergyLabel)
		}
	}
	if in.Ventilation != "" {
		if _, ok := ventilationCoeffs[in.Ventilation]; !ok {
			return fmt.Errorf("unknown ventilation type: %q", in.Ventilation)
		}
	}
	if in.Overrides.ManualOffset != nil {
		o := *in.Overrides.ManualOffset
		if o < in.OffsetMin || o > in.OffsetMax {
			return fmt.Errorf("manual offset %d outside [%d, %d]", o, in.OffsetMin, in.OffsetMax)
		}
	}

	// Present series must match the horizon exactly. Absent required
	// series are handled by the planner as forecast unavailability.
	for _, s := range []struct {
		name   string
		values []float64
	}{
		{"base_supply_temp", in.BaseSupplyTemp},
		{"outdoor_temp", in.OutdoorTemp},
		{"radiation", in.Radiation},
		{"price_consumption", in.PriceConsumption},
		{"price_production", in.PriceProduction},
		{"baseline_load", in.BaselineLoad},
		{"pv_production", in.PVProduction},
		{"net_demand", in.NetDemandKW},
		{"humidity", in.HumiditySeries},
	} {
		if s.values != nil && len(s.values) != in.HorizonSteps {
			return fmt.Errorf("%s has length %d, want %d", s.name, len(s.values), in.HorizonSteps)
		}
	}
	for t, v := range in.Radiation {
		if v < 0 {
			return fmt.Errorf("radiation[%d] is negative: %g", t, v)
		}
	}
	for t, v := range in.BaselineLoad {
		if v < 0 {
			return fmt.Errorf("baseline_load[%d] is negative: %g", t, v)
		}
	}
	return nil
}

// missingSeries lists the required series that are absent or empty.
func (in *Input) missingSeries() []string {
	var missing []string
	if len(in.BaseSupplyTemp) == 0 {
		missing = append(missing, "base_supply_temp")
	}
	if len(in.OutdoorTemp) == 0 {
		missing = append(missing, "outdoor_temp")
	}
	if len(in.Radiation) == 0 && in.NetDemandKW == nil {
		missing = append(missing, "radiation")
	}
	if len(in.PriceConsumption) == 0 {
		missing = append(missing, "price_consumption")
	}
	if len(in.BaselineLoad) == 0 {
		missing = append(missing, "baseline_load")
	}
	return missing
}

// hasNonFinite reports the first series containing a NaN or infinity.
func (in *Input) hasNonFinite() (string, bool) {
	for _, s := range []struct {
		name   string
		values []float64
	}{
		{"base_supply_temp", in.BaseSupplyTemp},
		{"outdoor_temp", in.OutdoorTemp},
		{"radiation", in.Radiation},
		{"price_consumption", in.PriceConsumption},
		{"price_production", in.PriceProduction},
		{"baseline_load", in.BaselineLoad},
		{"pv_production", in.PVProduction},
		{"net_demand", in.NetDemandKW},
		{"humidity", in.HumiditySeries},
	} {
		for _, v := range s.values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return s.name, true
			}
		}
	}
	return "", false
}

// indoor returns the configured indoor reference temperature.
func (in *Input) indoor() float64 {
	if in.IndoorTemp == 0 {
		return 20.0
	}
	return in.IndoorTemp
}

// humidityAt returns the relative humidity for step t.
func (in *Input) humidityAt(t int) float64 {
	if in.HumiditySeries != nil {
		return in.HumiditySeries[t]
	}
	if in.Humidity == 0 {
		return 80.0
	}
	return in.Humidity
}

// hourOfDay returns the local hour of day at the start of step t.
func (in *Input) hourOfDay(t int) int {
	base := 0.0
	if !in.StartTime.IsZero() {
		base = float64(in.StartTime.Hour()) + float64(in.StartTime.Minute())/60.0
	}
	h := int(base+float64(t)*in.StepHours) % 24
	if h < 0 {
		h += 24
	}
	return h
}
