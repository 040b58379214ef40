package planner

// Hourly orientation factors for vertical glazing, indexed by hour of
// day. East peaks in the morning, south around solar noon, west in the
// late afternoon. The tables approximate the fraction of incident global
// radiation reaching a facade of that orientation.
var (
	orientationEast = [24]float64{
		0, 0, 0, 0, 0, 0.10, 0.40, 0.70, 0.90, 0.85, 0.65, 0.40,
		0.25, 0.15, 0.10, 0.05, 0, 0, 0, 0, 0, 0, 0, 0,
	}
	orientationSouth = [24]float64{
		0, 0, 0, 0, 0, 0, 0.05, 0.20, 0.40, 0.60, 0.80, 0.95,
		1.00, 0.95, 0.80, 0.60, 0.40, 0.20, 0.05, 0, 0, 0, 0, 0,
	}
	orientationWest = [24]float64{
		0, 0, 0, 0, 0, 0, 0, 0, 0.05, 0.10, 0.15, 0.25,
		0.40, 0.65, 0.85, 0.90, 0.70, 0.40, 0.10, 0, 0, 0, 0, 0,
	}
)

// solarGainCoeff derives the glazing solar heat gain coefficient from the
// glass U-value band. Better insulated glazing carries more coatings and
// admits less solar radiation.
func solarGainCoeff(uValue float64) float64 {
	switch {
	case uValue <= 0:
		return 0.60
	case uValue <= 1.2:
		return 0.50
	case uValue <= 2.0:
		return 0.60
	case uValue <= 2.9:
		return 0.65
	default:
		return 0.75
	}
}

// orientationFactors returns the east, south and west factors for the
// hour of day at the start of step t.
func (in *Input) orientationFactors(t int) (fe, fs, fw float64) {
	h := in.hourOfDay(t)
	return orientationEast[h], orientationSouth[h], orientationWest[h]
}

// SolarGainKW computes the passive solar gain through the oriented
// glazing at step t in kW.
func (in *Input) SolarGainKW(t int) float64 {
	if t >= len(in.Radiation) {
		return 0
	}
	fe, fs, fw := in.orientationFactors(t)
	g := solarGainCoeff(in.GlassUValue)
	aperture := in.GlassEastM2*fe + in.GlassWestM2*fw + in.GlassSouthM2*fs
	return g * aperture * in.Radiation[t] / 1000.0
}
