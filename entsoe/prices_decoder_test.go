package entsoe

import (
	"math"
	"strings"
	"testing"
	"time"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<Publication_MarketDocument xmlns="urn:iec62325.351:tc57wg16:451-3:publicationdocument:7:3">
	<mRID>abc123</mRID>
	<revisionNumber>1</revisionNumber>
	<type>A44</type>
	<createdDateTime>2026-01-09T12:10:00Z</createdDateTime>
	<period.timeInterval>
		<start>2026-01-09T23:00Z</start>
		<end>2026-01-10T23:00Z</end>
	</period.timeInterval>
	<TimeSeries>
		<mRID>1</mRID>
		<businessType>A62</businessType>
		<currency_Unit.name>EUR</currency_Unit.name>
		<price_Measure_Unit.name>MWH</price_Measure_Unit.name>
		<curveType>A03</curveType>
		<Period>
			<timeInterval>
				<start>2026-01-09T23:00Z</start>
				<end>2026-01-10T23:00Z</end>
			</timeInterval>
			<resolution>PT60M</resolution>
			<Point><position>1</position><price.amount>85.50</price.amount></Point>
			<Point><position>2</position><price.amount>79.10</price.amount></Point>
			<Point><position>4</position><price.amount>120.00</price.amount></Point>
		</Period>
	</TimeSeries>
</Publication_MarketDocument>`

func TestDecodeEnergyPricesXML(t *testing.T) {
	doc, err := DecodeEnergyPricesXML(strings.NewReader(sampleXML))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if doc.MRID != "abc123" || len(doc.TimeSeries) != 1 {
		t.Fatalf("unexpected document: %+v", doc)
	}
	period := doc.TimeSeries[0].Period
	if period.Resolution != time.Hour {
		t.Errorf("resolution = %v, want 1h", period.Resolution)
	}
	if !period.TimeInterval.Start.Equal(time.Date(2026, 1, 9, 23, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected period start: %v", period.TimeInterval.Start)
	}
}

func TestLookupAveragePriceInHourByTime(t *testing.T) {
	doc, err := DecodeEnergyPricesXML(strings.NewReader(sampleXML))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	tests := []struct {
		name     string
		at       time.Time
		expected float64
		found    bool
	}{
		{
			name:     "First hour",
			at:       time.Date(2026, 1, 9, 23, 30, 0, 0, time.UTC),
			expected: 85.50,
			found:    true,
		},
		{
			name:     "Second hour",
			at:       time.Date(2026, 1, 10, 0, 15, 0, 0, time.UTC),
			expected: 79.10,
			found:    true,
		},
		{
			name: "Omitted A03 position repeats the previous price",
			at:   time.Date(2026, 1, 10, 1, 0, 0, 0, time.UTC),
			// Position 3 is absent, so the price of position 2 holds.
			expected: 79.10,
			found:    true,
		},
		{
			name:     "Fourth hour",
			at:       time.Date(2026, 1, 10, 2, 45, 0, 0, time.UTC),
			expected: 120.00,
			found:    true,
		},
		{
			name:  "Before the period",
			at:    time.Date(2026, 1, 9, 10, 0, 0, 0, time.UTC),
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := doc.LookupAveragePriceInHourByTime(tt.at)
			if found != tt.found {
				t.Fatalf("found = %v, want %v", found, tt.found)
			}
			if found && math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("price = %g, want %g", got, tt.expected)
			}
		})
	}
}

func TestParseISO8601Duration(t *testing.T) {
	tests := []struct {
		in       string
		expected time.Duration
		wantErr  bool
	}{
		{"PT15M", 15 * time.Minute, false},
		{"PT30M", 30 * time.Minute, false},
		{"PT60M", time.Hour, false},
		{"PT1H", time.Hour, false},
		{"P1D", 24 * time.Hour, false},
		{"15M", 0, true},
		{"PTXM", 0, true},
	}
	for _, tt := range tests {
		got, err := parseISO8601Duration(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseISO8601Duration(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.expected {
			t.Errorf("parseISO8601Duration(%q) = %v, want %v", tt.in, got, tt.expected)
		}
	}
}

func TestTariff(t *testing.T) {
	tariff := Tariff{
		EnergyTaxPerKWh: 0.10,
		MarkupPerKWh:    0.02,
		VATRate:         0.21,
		FeedInPerKWh:    0.07,
	}

	// 85.50 EUR/MWh -> (0.0855 + 0.10 + 0.02) * 1.21 = 0.248655
	got := tariff.ConsumptionPrice(85.50)
	if math.Abs(got-0.248655) > 1e-12 {
		t.Errorf("ConsumptionPrice = %v, want 0.248655", got)
	}

	doc, err := DecodeEnergyPricesXML(strings.NewReader(sampleXML))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	start := time.Date(2026, 1, 9, 23, 0, 0, 0, time.UTC)
	prices := tariff.HourlyConsumptionPrices(doc, start, 26)
	if math.IsNaN(prices[0]) || math.IsNaN(prices[3]) {
		t.Error("covered hours must carry prices")
	}
	if !math.IsNaN(prices[25]) {
		t.Error("hours past the document must be NaN")
	}

	prod := tariff.HourlyProductionPrices(4)
	if len(prod) != 4 || prod[0] != 0.07 {
		t.Errorf("production prices = %v", prod)
	}
	if noFeedIn := (Tariff{}).HourlyProductionPrices(4); noFeedIn != nil {
		t.Errorf("expected nil production series, got %v", noFeedIn)
	}
}
