package planner

import (
	"context"
	"math"
	"testing"
)

// TestScenarioPriceShift exercises the canonical pre-heat/coast pattern:
// cheap-expensive-cheap prices with constant demand. The plan dips
// during the expensive block, optionally banking heat beforehand, and
// must beat the flat baseline.
func TestScenarioPriceShift(t *testing.T) {
	in := planTestInput(6)
	in.PriceConsumption = []float64{0.15, 0.15, 0.40, 0.40, 0.15, 0.15}

	out, err := Plan(context.Background(), in)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	checkInvariants(t, in, out)
	checkNoRegret(t, in, out)

	if out.TotalCost >= out.BaselineCost {
		t.Errorf("shifted plan %g must beat flat baseline %g", out.TotalCost, out.BaselineCost)
	}
	if out.Offsets[2] > out.Offsets[0] || out.Offsets[3] > out.Offsets[0] {
		t.Errorf("expensive-block offsets %v must not exceed the cheap-block start", out.Offsets)
	}

	// The sequence is a single valley: non-increasing, then
	// non-decreasing.
	turned := false
	for ts := 1; ts < len(out.Offsets); ts++ {
		if out.Offsets[ts] > out.Offsets[ts-1] {
			turned = true
		} else if out.Offsets[ts] < out.Offsets[ts-1] && turned {
			t.Fatalf("offsets %v are not a single valley", out.Offsets)
		}
	}
}

// TestScenarioFlatPrice checks the flat-price law: with a constant
// consumption price and no feed-in tariff the optimum minimizes the
// pump's electrical energy, so it never pre-heats and runs as low as the
// debt cap allows.
func TestScenarioFlatPrice(t *testing.T) {
	in := planTestInput(6)
	in.PriceConsumption = repeat(0.25, 6)
	in.StorageEta = 0.1
	in.MaxDebtKWh = 20

	out, err := Plan(context.Background(), in)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	checkInvariants(t, in, out)
	checkNoRegret(t, in, out)

	for ts, o := range out.Offsets {
		if o > 0 {
			t.Errorf("offsets[%d] = %+d: banking can never pay off at a flat price", ts, o)
		}
	}
	// With a generous debt cap the plan ramps straight down to the
	// lowest admissible offset and stays there.
	want := []int{-1, -2, -3, -4, -4, -4}
	for ts := range want {
		if out.Offsets[ts] != want[ts] {
			t.Fatalf("offsets = %v, want %v", out.Offsets, want)
		}
	}
	if out.TotalCost >= out.BaselineCost {
		t.Errorf("debt exploitation must beat baseline: %g vs %g", out.TotalCost, out.BaselineCost)
	}
}

// TestScenarioSolarBuffer checks that free solar surplus is banked and
// then drawn down over the heated tail of the horizon.
func TestScenarioSolarBuffer(t *testing.T) {
	in := planTestInput(6)
	in.NetDemandKW = []float64{-2, -2, -2, 3, 4, 5}
	in.PriceConsumption = []float64{0.10, 0.15, 0.20, 0.25, 0.30, 0.35}

	out, err := Plan(context.Background(), in)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	checkInvariants(t, in, out)
	checkNoRegret(t, in, out)

	if !(out.Buffer[0] < out.Buffer[1] && out.Buffer[1] < out.Buffer[2]) {
		t.Errorf("buffer %v must rise over the solar surplus steps", out.Buffer)
	}
	if out.Buffer[5] >= out.Buffer[2] {
		t.Errorf("buffer %v must be drawn down over the heated steps", out.Buffer)
	}
	for ts := 0; ts < 3; ts++ {
		if out.CostPerStep[ts] != 0 {
			t.Errorf("cost[%d] = %g, want 0 while the pump is off", ts, out.CostPerStep[ts])
		}
	}
	if out.TotalCost >= out.BaselineCost {
		t.Errorf("banked solar must beat baseline: %g vs %g", out.TotalCost, out.BaselineCost)
	}
}

// TestScenarioPriceScaling checks cost monotonicity: scaling every
// consumption price scales the total cost by the same factor and leaves
// the chosen plan unchanged.
func TestScenarioPriceScaling(t *testing.T) {
	base := planTestInput(6)
	base.PriceConsumption = []float64{0.15, 0.15, 0.40, 0.40, 0.15, 0.15}

	scaled := base
	scaled.PriceConsumption = make([]float64, 6)
	for i, p := range base.PriceConsumption {
		scaled.PriceConsumption[i] = 2 * p
	}
	// Keep the terminal penalty in the same proportion so the argmin is
	// unchanged.
	scaled.TerminalLambda = 2 * base.TerminalLambda

	outBase, err := Plan(context.Background(), base)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	outScaled, err := Plan(context.Background(), scaled)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}

	for ts := range outBase.Offsets {
		if outBase.Offsets[ts] != outScaled.Offsets[ts] {
			t.Fatalf("scaling prices changed the plan: %v vs %v", outBase.Offsets, outScaled.Offsets)
		}
	}
	if math.Abs(outScaled.TotalCost-2*outBase.TotalCost) > 1e-9 {
		t.Errorf("scaled cost = %g, want %g", outScaled.TotalCost, 2*outBase.TotalCost)
	}
}

// TestScenarioNoDemandIdempotence: with no demand anywhere and an empty
// buffer the plan is all zeros at zero cost.
func TestScenarioNoDemandIdempotence(t *testing.T) {
	in := planTestInput(6)
	in.NetDemandKW = repeat(-0.5, 6)
	in.PriceConsumption = []float64{0.1, 0.9, 0.4, 0.2, 0.8, 0.3}

	out, err := Plan(context.Background(), in)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if out.Status != StatusDegenerateFlat {
		t.Fatalf("status = %s, want DEGENERATE_FLAT", out.Status)
	}
	if out.TotalCost != 0 {
		t.Errorf("total cost = %g, want 0", out.TotalCost)
	}
	for ts, o := range out.Offsets {
		if o != 0 {
			t.Errorf("offsets[%d] = %d, want 0", ts, o)
		}
	}
}

// TestScenarioFeedInTariff: with a large PV surplus and a low feed-in
// price, heating during the export window is cheap and the plan shifts
// load into it.
func TestScenarioFeedInTariff(t *testing.T) {
	in := planTestInput(4)
	in.NetDemandKW = repeat(4, 4)
	in.PriceConsumption = repeat(0.30, 4)
	in.PriceProduction = repeat(0.05, 4)
	in.PVProduction = []float64{6, 6, 0, 0}

	out, err := Plan(context.Background(), in)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	checkInvariants(t, in, out)
	checkNoRegret(t, in, out)

	// Export surplus makes the first two steps cheap: the plan must not
	// heat harder later than it does during the surplus.
	maxEarly := out.Offsets[0]
	if out.Offsets[1] > maxEarly {
		maxEarly = out.Offsets[1]
	}
	for ts := 2; ts < 4; ts++ {
		if out.Offsets[ts] > maxEarly {
			t.Errorf("offsets %v heat harder outside the export window", out.Offsets)
		}
	}
	if out.TotalCost >= out.BaselineCost {
		t.Errorf("export-window shifting must beat baseline: %g vs %g", out.TotalCost, out.BaselineCost)
	}
}
