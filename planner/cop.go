package planner

// Defrost derating anchors. Between -10 and +6 degC an air-source
// evaporator runs periodic defrost cycles; the penalty peaks around
// 0..3 degC where humid air frosts fastest.
var (
	defrostTemps   = []float64{-10, -7, 0, 3, 5, 6}
	defrostAt70RH  = []float64{1.00, 0.92, 0.80, 0.75, 0.90, 1.00}
	defrostAt100RH = []float64{1.00, 0.88, 0.70, 0.60, 0.80, 1.00}
)

// defrostMultiplier computes the COP derating factor for the given
// outdoor temperature and relative humidity by bilinear interpolation
// across the anchor table. Outside [-10, 6] degC there is no penalty;
// humidity is clamped to the [70, 100] band the table covers.
func defrostMultiplier(outdoorTemp, humidity float64) float64 {
	if outdoorTemp <= defrostTemps[0] || outdoorTemp >= defrostTemps[len(defrostTemps)-1] {
		return 1.0
	}
	if humidity < 70 {
		humidity = 70
	}
	if humidity > 100 {
		humidity = 100
	}

	i := 0
	for i < len(defrostTemps)-2 && outdoorTemp > defrostTemps[i+1] {
		i++
	}
	span := defrostTemps[i+1] - defrostTemps[i]
	frac := (outdoorTemp - defrostTemps[i]) / span

	d70 := defrostAt70RH[i] + frac*(defrostAt70RH[i+1]-defrostAt70RH[i])
	d100 := defrostAt100RH[i] + frac*(defrostAt100RH[i+1]-defrostAt100RH[i])

	rhFrac := (humidity - 70) / 30.0
	return d70 + rhFrac*(d100-d70)
}

// SupplyTemp returns the supply-water temperature for offset o at step t.
func (in *Input) SupplyTemp(t, offset int) float64 {
	return in.BaseSupplyTemp[t] + float64(offset)
}

// COP computes the heat-pump coefficient of performance at step t for
// the given offset, including the defrost derating, floored at COPFloor.
func (in *Input) COP(t, offset int) float64 {
	raw := (in.COPBase + in.OutdoorAlpha*in.OutdoorTemp[t] - in.KFactor*(in.SupplyTemp(t, offset)-35.0)) * in.CompensationFactor
	cop := raw * defrostMultiplier(in.OutdoorTemp[t], in.humidityAt(t))
	if cop < COPFloor {
		return COPFloor
	}
	return cop
}
