package planner

import (
	"fmt"
	"math"
)

// extract recomputes the forward trajectory of the chosen offset
// sequence from scratch with the shared transition rules, verifies the
// output invariants and fills in the baseline comparison. It never
// relies on DP internals, so forced and optimized sequences go through
// the same accounting. Any invariant violation degrades the result to
// the INFEASIBLE fallback instead of clamping.
func (in *Input) extract(offsets []int, warnings []string) Output {
	h := in.HorizonSteps

	buffer := make([]float64, h)
	supply := make([]float64, h)
	costPerStep := make([]float64, h)

	b := in.InitialBufferKWh
	total := 0.0
	for t := 0; t < h; t++ {
		o := offsets[t]
		s := in.SupplyTemp(t, o)
		if s < in.WaterMin-feasTol || s > in.WaterMax+feasTol {
			return in.fallback(StatusInfeasible, append(warnings,
				fmt.Sprintf("supply temperature %.1f at step %d outside [%.1f, %.1f]", s, t, in.WaterMin, in.WaterMax)))
		}
		if t > 0 && abs(o-offsets[t-1]) > in.OffsetStepMax {
			return in.fallback(StatusInfeasible, append(warnings,
				fmt.Sprintf("offset change %d at step %d exceeds limit %d", o-offsets[t-1], t, in.OffsetStepMax)))
		}
		tr := in.transition(t, o, b)
		if !tr.feasible {
			return in.fallback(StatusInfeasible, append(warnings,
				fmt.Sprintf("buffer debt cap exceeded at step %d", t)))
		}
		b = tr.buffer
		buffer[t] = b
		supply[t] = s
		costPerStep[t] = tr.cost
		total += tr.cost
	}
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return in.fallback(StatusInfeasible, append(warnings, "non-finite plan cost"))
	}

	baselinePerStep, baselineTotal := in.baseline()
	savings := make([]float64, h)
	for t := 0; t < h; t++ {
		savings[t] = baselinePerStep[t] - costPerStep[t]
	}

	return Output{
		Status:          StatusOK,
		Offsets:         offsets,
		Buffer:          buffer,
		SupplyTemp:      supply,
		CostPerStep:     costPerStep,
		TotalCost:       total,
		TerminalPenalty: in.TerminalLambda * math.Abs(b),
		BaselineCost:    baselineTotal,
		SavingsPerStep:  savings,
		TotalSavings:    baselineTotal - total,
		Warnings:        warnings,
	}
}

// baseline recomputes the horizon with all offsets forced to zero. It is
// a reference trajectory, not a feasibility check: the zero offset is
// applied even where the optimizer would not be allowed to.
func (in *Input) baseline() ([]float64, float64) {
	h := in.HorizonSteps
	perStep := make([]float64, h)
	b := in.InitialBufferKWh
	total := 0.0
	for t := 0; t < h; t++ {
		tr := in.transition(t, 0, b)
		b = tr.buffer
		perStep[t] = tr.cost
		total += tr.cost
	}
	return perStep, total
}

// fallback builds the degraded output used for INFEASIBLE results: the
// initial offset broadcast over the horizon with zero predicted cost.
func (in *Input) fallback(status Status, warnings []string) Output {
	h := in.HorizonSteps
	offsets := make([]int, h)
	buffer := make([]float64, h)
	for t := 0; t < h; t++ {
		offsets[t] = in.InitialOffset
		buffer[t] = in.InitialBufferKWh
	}
	var supply []float64
	if len(in.BaseSupplyTemp) == h {
		supply = make([]float64, h)
		for t := 0; t < h; t++ {
			supply[t] = in.SupplyTemp(t, in.InitialOffset)
		}
	}
	return Output{
		Status:         status,
		Offsets:        offsets,
		Buffer:         buffer,
		SupplyTemp:     supply,
		CostPerStep:    make([]float64, h),
		SavingsPerStep: make([]float64, h),
		Warnings:       warnings,
	}
}

// degenerateFlat builds the trivial plan returned when the horizon needs
// no heating: all-zero offsets, zero cost, buffer unchanged.
func (in *Input) degenerateFlat(warnings []string) Output {
	h := in.HorizonSteps
	offsets := make([]int, h)
	buffer := make([]float64, h)
	supply := make([]float64, h)
	for t := 0; t < h; t++ {
		buffer[t] = in.InitialBufferKWh
		supply[t] = in.SupplyTemp(t, 0)
	}
	return Output{
		Status:         StatusDegenerateFlat,
		Offsets:        offsets,
		Buffer:         buffer,
		SupplyTemp:     supply,
		CostPerStep:    make([]float64, h),
		SavingsPerStep: make([]float64, h),
		Warnings:       append(warnings, "no heat demand over the horizon"),
	}
}
