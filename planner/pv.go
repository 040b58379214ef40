package planner

// tiltEfficiency derates panel output for deviation from the optimal
// ~35 degree tilt.
func tiltEfficiency(tiltDeg float64) float64 {
	d := tiltDeg - 35.0
	eta := 1.0 - 4.5e-5*d*d
	if eta < 0 {
		eta = 0
	}
	return eta
}

// PVProductionKW returns the expected PV output at step t in kW. When the
// caller supplied an external PV forecast it is used directly; otherwise
// production is estimated from radiation, per-orientation peak watts and
// the tilt factor.
func (in *Input) PVProductionKW(t int) float64 {
	if in.PVProduction != nil {
		return in.PVProduction[t]
	}
	if t >= len(in.Radiation) {
		return 0
	}
	fe, fs, fw := in.orientationFactors(t)
	wp := in.PVEastWp*fe + in.PVSouthWp*fs + in.PVWestWp*fw
	return in.Radiation[t] * wp * tiltEfficiency(in.PVTiltDeg) / 1_000_000.0
}
