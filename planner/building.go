package planner

// labelUValues maps the building energy label to an effective envelope
// U-value in W/(m2 K).
var labelUValues = map[EnergyLabel]float64{
	LabelAPlusPlusPlus: 0.18,
	LabelAPlusPlus:     0.25,
	LabelAPlus:         0.35,
	LabelA:             0.45,
	LabelB:             0.60,
	LabelC:             0.80,
	LabelD:             1.00,
	LabelE:             1.40,
	LabelF:             1.80,
	LabelG:             2.50,
}

// ventilationCoeffs maps the ventilation type to a volumetric loss
// coefficient in W/(m3 K). The values correspond to typical air change
// rates for each system at 0.34 Wh/(m3 K) air heat capacity.
var ventilationCoeffs = map[VentilationType]float64{
	VentilationNatural:           0.34,
	VentilationMechanicalExhaust: 0.24,
	VentilationBalanced:          0.17,
	VentilationHeatRecovery:      0.07,
}

// heatTransferCoeff returns the building heat transfer coefficient HTC in
// W/K: envelope transmission plus ventilation losses.
func (in *Input) heatTransferCoeff() float64 {
	u, ok := labelUValues[in.EnergyLabel]
	if !ok {
		u = labelUValues[LabelC]
	}
	cv, ok := ventilationCoeffs[in.Ventilation]
	if !ok {
		cv = ventilationCoeffs[VentilationNatural]
	}
	return u*in.AreaM2 + cv*in.AreaM2*in.CeilingHeightM
}

// HeatLossKW computes the instantaneous building heat loss at step t in
// kW. Loss is clamped at zero when it is warmer outside than inside.
func (in *Input) HeatLossKW(t int) float64 {
	dT := in.indoor() - in.OutdoorTemp[t]
	if dT < 0 {
		dT = 0
	}
	return in.heatTransferCoeff() * dT / 1000.0
}
