package planner

// NetDemandKWAt returns the net heat demand at step t in kW: building
// heat loss minus passive solar gain. Negative values mean the gains
// exceed the losses. An externally supplied demand series, when present,
// takes precedence over the building model.
func (in *Input) NetDemandKWAt(t int) float64 {
	if in.NetDemandKW != nil {
		return in.NetDemandKW[t]
	}
	return in.HeatLossKW(t) - in.SolarGainKW(t)
}

// effectivePrice selects the per-kWh price for step t given the heat
// pump's electrical energy use over the step. When the household balance
// at the meter is exporting, running the pump eats into the feed-in
// surplus, so the production price applies; otherwise the consumption
// price does. Without a production tariff the consumption price is used
// throughout.
func (in *Input) effectivePrice(t int, eHpKWh float64) float64 {
	netBalance := in.BaselineLoad[t] + eHpKWh/in.StepHours - in.PVProductionKW(t)
	if netBalance >= 0 || in.PriceProduction == nil {
		return in.PriceConsumption[t]
	}
	return in.PriceProduction[t]
}

// stepResult is the outcome of applying offset at step t from a given
// buffer level.
type stepResult struct {
	buffer   float64 // buffer after the step, kWh
	deltaB   float64 // buffer change, kWh
	heatKWh  float64 // heat delivered by the pump, kWh
	elecKWh  float64 // electrical energy drawn by the pump, kWh
	cop      float64
	price    float64 // effective per-kWh price
	cost     float64
	feasible bool // false when the debt cap is violated
}

// feasTol absorbs floating-point drift when checking the debt cap.
const feasTol = 1e-9

// transition applies the buffer dynamics of one step.
//
// Convention (energy-integrated form): a positive offset makes the pump
// deliver extra heat which is banked in the building mass, a negative
// offset under-delivers and draws the buffer down, into debt if needed.
// deltaB = offset * demand * eta * dt, delivered heat = demand*dt + deltaB.
// When gains exceed losses (demand < 0) the surplus is banked and the
// pump stays off regardless of the offset.
func (in *Input) transition(t, offset int, buffer float64) stepResult {
	d := in.NetDemandKWAt(t)
	dt := in.StepHours

	if d < 0 {
		deltaB := -d * dt
		return stepResult{
			buffer:   buffer + deltaB,
			deltaB:   deltaB,
			cop:      in.COP(t, offset),
			price:    in.effectivePrice(t, 0),
			feasible: true,
		}
	}

	deltaB := float64(offset) * d * in.StorageEta * dt
	newBuffer := buffer + deltaB
	if newBuffer < -in.MaxDebtKWh-feasTol {
		return stepResult{feasible: false}
	}

	heat := d*dt + deltaB
	if heat < 0 {
		heat = 0
	}
	cop := in.COP(t, offset)
	elec := heat / cop
	price := in.effectivePrice(t, elec)

	return stepResult{
		buffer:   newBuffer,
		deltaB:   deltaB,
		heatKWh:  heat,
		elecKWh:  elec,
		cop:      cop,
		price:    price,
		cost:     elec * price,
		feasible: true,
	}
}
