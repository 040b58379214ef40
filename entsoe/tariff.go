package entsoe

import (
	"math"
	"time"
)

// Tariff transforms raw day-ahead market prices (EUR/MWh) into the
// all-in consumer prices the planner optimizes against (EUR/kWh).
type Tariff struct {
	EnergyTaxPerKWh float64 // added before VAT
	MarkupPerKWh    float64 // supplier markup, added before VAT
	VATRate         float64 // e.g. 0.21
	FeedInPerKWh    float64 // flat feed-in compensation; 0 disables the production series
}

// ConsumptionPrice converts one market price to the consumer price.
func (t Tariff) ConsumptionPrice(marketPerMWh float64) float64 {
	return (marketPerMWh/1000.0 + t.EnergyTaxPerKWh + t.MarkupPerKWh) * (1 + t.VATRate)
}

// HourlyConsumptionPrices extracts the consumer price for each hour of
// the horizon starting at start. Hours not covered by the document carry
// NaN so the resampler can treat them as gaps.
func (t Tariff) HourlyConsumptionPrices(doc *PublicationMarketDocument, start time.Time, hours int) []float64 {
	out := make([]float64, hours)
	for i := 0; i < hours; i++ {
		out[i] = math.NaN()
		if doc == nil {
			continue
		}
		if market, ok := doc.LookupAveragePriceInHourByTime(start.Add(time.Duration(i) * time.Hour)); ok {
			out[i] = t.ConsumptionPrice(market)
		}
	}
	return out
}

// HourlyProductionPrices returns the flat feed-in series, or nil when no
// feed-in compensation is configured.
func (t Tariff) HourlyProductionPrices(hours int) []float64 {
	if t.FeedInPerKWh <= 0 {
		return nil
	}
	out := make([]float64, hours)
	for i := range out {
		out[i] = t.FeedInPerKWh
	}
	return out
}
