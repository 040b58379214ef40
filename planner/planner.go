package planner

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
)

// dpEntry is one reachable state in a DP layer: the accumulated cost and
// exact buffer level of the cheapest path ending at a given
// (offset, cumulative-offset-sum) pair, plus back-pointers.
type dpEntry struct {
	cost    float64
	buffer  float64
	prevOff int
	prevCum int
}

// dpLayer holds, per offset, the reachable cumulative-sum bins.
type dpLayer []map[int]dpEntry

// Plan runs the heating-curve offset optimization for the given input.
// A non-nil error is returned only for malformed inputs; every runtime
// condition (missing forecasts, infeasibility, cancellation) is encoded
// in the output status and warnings.
//
// The DP state is the pair (offset, cumulative offset sum); the buffer is
// tracked exactly per entry rather than discretized. The seed represents
// the offset committed before the horizon starts, so every step t in
// [0, H) applies one transition and carries a real cost.
func Plan(ctx context.Context, in Input) (Output, error) {
	if err := in.Validate(); err != nil {
		return Output{}, err
	}

	var warnings []string
	if in.StartTime.IsZero() {
		warnings = append(warnings, "start time not set, anchoring horizon at midnight")
	}
	if missing := in.missingSeries(); len(missing) > 0 {
		return in.fallback(StatusInfeasible, append(warnings,
			"forecast unavailable: "+strings.Join(missing, ", "))), nil
	}
	if name, bad := in.hasNonFinite(); bad {
		return in.fallback(StatusInfeasible, append(warnings,
			"non-finite values in "+name)), nil
	}

	h := in.HorizonSteps

	if in.Overrides.ManualOffset != nil {
		forced := *in.Overrides.ManualOffset
		warnings = append(warnings, fmt.Sprintf("manual offset override %+d active, optimization skipped", forced))
		offsets := make([]int, h)
		for t := range offsets {
			offsets[t] = forced
		}
		return in.extract(offsets, warnings), nil
	}

	// No heating needed anywhere: trivially flat plan.
	heatNeed := 0.0
	for t := 0; t < h; t++ {
		if d := in.NetDemandKWAt(t); d > 0 {
			heatNeed += d * in.StepHours
		}
	}
	if heatNeed <= 0 {
		return in.degenerateFlat(warnings), nil
	}

	admissible, global := in.admissibleOffsets()
	if len(global) == 0 {
		return in.fallback(StatusInfeasible, append(warnings,
			"no offset satisfies the supply-temperature bounds")), nil
	}
	if len(global) == 1 {
		forced := global[0]
		warnings = append(warnings, fmt.Sprintf("offset range collapsed to %+d, optimization trivial", forced))
		offsets := make([]int, h)
		for t := range offsets {
			offsets[t] = forced
		}
		return in.extract(offsets, warnings), nil
	}

	layers, cancelled := in.runDP(ctx, admissible)
	if cancelled {
		return Output{Status: StatusCancelled, Warnings: append(warnings, "planning cancelled")}, nil
	}

	offsets, found := in.selectPath(layers)
	if !found {
		return in.fallback(StatusInfeasible, append(warnings,
			"no plan satisfies the buffer debt constraint")), nil
	}

	out := in.extract(offsets, warnings)
	return out, nil
}

// admissibleOffsets computes the per-step admissible offset sets and the
// global action space: offsets that violate the supply bounds at every
// step are dropped entirely.
func (in *Input) admissibleOffsets() (perStep [][]bool, global []int) {
	h := in.HorizonSteps
	n := in.OffsetMax - in.OffsetMin + 1
	perStep = make([][]bool, h)
	everAdmissible := make([]bool, n)

	for t := 0; t < h; t++ {
		perStep[t] = make([]bool, n)
		for o := in.OffsetMin; o <= in.OffsetMax; o++ {
			s := in.SupplyTemp(t, o)
			if s >= in.WaterMin-feasTol && s <= in.WaterMax+feasTol {
				perStep[t][o-in.OffsetMin] = true
				everAdmissible[o-in.OffsetMin] = true
			}
		}
	}
	for o := in.OffsetMin; o <= in.OffsetMax; o++ {
		if everAdmissible[o-in.OffsetMin] {
			global = append(global, o)
		} else {
			for t := 0; t < h; t++ {
				perStep[t][o-in.OffsetMin] = false
			}
		}
	}
	return perStep, global
}

// runDP fills the forward DP table. layers[t] holds the states reachable
// after choosing the offset for step t. Cancellation is honored between
// iterations over t.
func (in *Input) runDP(ctx context.Context, admissible [][]bool) ([]dpLayer, bool) {
	h := in.HorizonSteps
	n := in.OffsetMax - in.OffsetMin + 1
	layers := make([]dpLayer, h)

	// Virtual seed layer: the offset active before step 0, with the
	// initial buffer and zero accumulated cost.
	seed := make(dpLayer, n)
	seed[in.InitialOffset-in.OffsetMin] = map[int]dpEntry{
		0: {cost: 0, buffer: in.InitialBufferKWh, prevOff: in.InitialOffset, prevCum: 0},
	}

	prev := seed
	for t := 0; t < h; t++ {
		select {
		case <-ctx.Done():
			return nil, true
		default:
		}

		next := make(dpLayer, n)
		for oi := 0; oi < n; oi++ {
			states := prev[oi]
			if len(states) == 0 {
				continue
			}
			prevOff := oi + in.OffsetMin
			for _, cum := range sortedKeys(states) {
				e := states[cum]
				lo, hi := prevOff-in.OffsetStepMax, prevOff+in.OffsetStepMax
				if lo < in.OffsetMin {
					lo = in.OffsetMin
				}
				if hi > in.OffsetMax {
					hi = in.OffsetMax
				}
				for o := lo; o <= hi; o++ {
					if !admissible[t][o-in.OffsetMin] {
						continue
					}
					tr := in.transition(t, o, e.buffer)
					if !tr.feasible {
						continue
					}
					cand := dpEntry{
						cost:    e.cost + tr.cost,
						buffer:  tr.buffer,
						prevOff: prevOff,
						prevCum: cum,
					}
					if math.IsNaN(cand.cost) || math.IsInf(cand.cost, 0) {
						continue
					}
					key := cum + o
					bucket := next[o-in.OffsetMin]
					if bucket == nil {
						bucket = make(map[int]dpEntry)
						next[o-in.OffsetMin] = bucket
					}
					old, exists := bucket[key]
					if !exists || betterEntry(cand, old, o) {
						bucket[key] = cand
					}
				}
			}
		}
		layers[t] = next
		prev = next
	}
	return layers, false
}

// betterEntry decides whether cand replaces old for the same
// (offset, cum) key. Strictly lower cost wins; exact ties prefer the
// smaller offset change, then the smaller predecessor cumulative sum.
func betterEntry(cand, old dpEntry, offset int) bool {
	if cand.cost != old.cost {
		return cand.cost < old.cost
	}
	cd := abs(offset - cand.prevOff)
	od := abs(offset - old.prevOff)
	if cd != od {
		return cd < od
	}
	if cand.prevCum != old.prevCum {
		return cand.prevCum < old.prevCum
	}
	return cand.prevOff < old.prevOff
}

// selectPath picks the minimum of cost + lambda*|buffer| over the final
// layer and reconstructs the offset sequence through the back-pointers.
// Ties prefer the smaller absolute final offset, then the smaller
// cumulative sum.
func (in *Input) selectPath(layers []dpLayer) ([]int, bool) {
	h := in.HorizonSteps
	final := layers[h-1]

	bestScore := math.Inf(1)
	bestOff, bestCum := 0, 0
	found := false

	for oi := range final {
		o := oi + in.OffsetMin
		for _, cum := range sortedKeys(final[oi]) {
			e := final[oi][cum]
			score := e.cost + in.TerminalLambda*math.Abs(e.buffer)
			better := false
			switch {
			case !found:
				better = true
			case score != bestScore:
				better = score < bestScore
			case abs(o) != abs(bestOff):
				better = abs(o) < abs(bestOff)
			case cum != bestCum:
				better = cum < bestCum
			default:
				better = o < bestOff
			}
			if better {
				bestScore, bestOff, bestCum = score, o, cum
				found = true
			}
		}
	}
	if !found || math.IsInf(bestScore, 0) || math.IsNaN(bestScore) {
		return nil, false
	}

	offsets := make([]int, h)
	o, cum := bestOff, bestCum
	for t := h - 1; t >= 0; t-- {
		offsets[t] = o
		e := layers[t][o-in.OffsetMin][cum]
		o, cum = e.prevOff, e.prevCum
	}
	return offsets, true
}

// EstimatedOps returns an upper bound on the inner-loop iterations of a
// run, letting callers bound work by limiting the horizon or offset
// range before invoking Plan.
func (in *Input) EstimatedOps() int {
	n := in.OffsetMax - in.OffsetMin + 1
	actions := 2*in.OffsetStepMax + 1
	return in.HorizonSteps * n * (n*in.HorizonSteps + 1) * actions
}

func sortedKeys(m map[int]dpEntry) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
