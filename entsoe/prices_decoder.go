package entsoe

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// PublicationMarketDocument represents the root element of the ENTSO-E
// day-ahead price XML.
type PublicationMarketDocument struct {
	XMLName            xml.Name     `xml:"Publication_MarketDocument"`
	MRID               string       `xml:"mRID"`
	RevisionNumber     int          `xml:"revisionNumber"`
	Type               string       `xml:"type"`
	CreatedDateTime    string       `xml:"createdDateTime"`
	PeriodTimeInterval TimeInterval `xml:"period.timeInterval"`
	TimeSeries         []TimeSeries `xml:"TimeSeries"`
}

// TimeInterval represents a time interval with start and end
type TimeInterval struct {
	Start time.Time `xml:"start"`
	End   time.Time `xml:"end"`
}

// UnmarshalXML implements custom XML unmarshaling for TimeInterval
func (ti *TimeInterval) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var aux struct {
		Start string `xml:"start"`
		End   string `xml:"end"`
	}

	if err := d.DecodeElement(&aux, &start); err != nil {
		return err
	}

	var err error
	ti.Start, err = parseTimeString(aux.Start)
	if err != nil {
		return fmt.Errorf("error parsing start time: %v", err)
	}

	ti.End, err = parseTimeString(aux.End)
	if err != nil {
		return fmt.Errorf("error parsing end time: %v", err)
	}

	return nil
}

// parseTimeString parses time strings in the formats used by ENTSO-E XML
func parseTimeString(timeStr string) (time.Time, error) {
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04Z",
		"2006-01-02T15:04Z07:00",
	} {
		if t, err := time.Parse(layout, timeStr); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse time string: %s", timeStr)
}

// TimeSeries represents one price series of the document
type TimeSeries struct {
	MRID                 string `xml:"mRID"`
	BusinessType         string `xml:"businessType"`
	CurrencyUnitName     string `xml:"currency_Unit.name"`
	PriceMeasureUnitName string `xml:"price_Measure_Unit.name"`
	CurveType            string `xml:"curveType"`
	Period               Period `xml:"Period"`
}

// Period represents a period with time interval, resolution and points
type Period struct {
	TimeInterval TimeInterval  `xml:"timeInterval"`
	Resolution   time.Duration `xml:"resolution"`
	Points       []Point       `xml:"Point"`
}

// UnmarshalXML implements custom XML unmarshaling for Period
func (p *Period) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var aux struct {
		TimeInterval TimeInterval `xml:"timeInterval"`
		Resolution   string       `xml:"resolution"`
		Points       []Point      `xml:"Point"`
	}

	if err := d.DecodeElement(&aux, &start); err != nil {
		return err
	}

	p.TimeInterval = aux.TimeInterval
	p.Points = aux.Points

	var err error
	p.Resolution, err = parseISO8601Duration(aux.Resolution)
	if err != nil {
		return fmt.Errorf("error parsing resolution: %v", err)
	}

	return nil
}

// parseISO8601Duration parses the duration formats ENTSO-E publishes
// (PT15M, PT30M, PT60M, PT1H, P1D).
func parseISO8601Duration(duration string) (time.Duration, error) {
	s := strings.ToUpper(strings.TrimSpace(duration))
	if !strings.HasPrefix(s, "P") {
		return 0, fmt.Errorf("invalid ISO 8601 duration: %s", duration)
	}
	s = s[1:]

	if strings.HasPrefix(s, "T") {
		s = s[1:]
		var unit time.Duration
		switch {
		case strings.HasSuffix(s, "H"):
			unit = time.Hour
		case strings.HasSuffix(s, "M"):
			unit = time.Minute
		case strings.HasSuffix(s, "S"):
			unit = time.Second
		default:
			return 0, fmt.Errorf("unknown time unit in duration: %s", duration)
		}
		n, err := strconv.Atoi(s[:len(s)-1])
		if err != nil {
			return 0, fmt.Errorf("invalid duration value: %s", duration)
		}
		return time.Duration(n) * unit, nil
	}

	if strings.HasSuffix(s, "D") {
		n, err := strconv.Atoi(s[:len(s)-1])
		if err != nil {
			return 0, fmt.Errorf("invalid duration value: %s", duration)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}

	return 0, fmt.Errorf("unsupported duration: %s", duration)
}

// Point represents a price point with position and amount
type Point struct {
	Position    int     `xml:"position"`
	PriceAmount float64 `xml:"price.amount"`
}

// LookupAveragePriceInHourByTime searches all TimeSeries for the average
// price within the hour containing the given time. Returns the first
// matching average and true, or 0 and false when no series covers the
// hour.
func (pmd *PublicationMarketDocument) LookupAveragePriceInHourByTime(t time.Time) (float64, bool) {
	for _, ts := range pmd.TimeSeries {
		if avg, found := ts.Period.averagePriceInHourByTime(t); found {
			return avg, true
		}
	}
	return 0, false
}

// calculatePosition calculates the 1-based position for a given time.
// Position 1 covers [start, start+resolution). Returns 0 when the time
// falls outside the period.
func (p *Period) calculatePosition(t time.Time) int {
	diff := t.Sub(p.TimeInterval.Start)
	if diff < 0 {
		return 0
	}
	if !t.Before(p.TimeInterval.End) {
		return 0
	}
	return int(diff/p.Resolution) + 1
}

// averagePriceInHourByTime averages all intervals overlapping the hour
// containing t. ENTSO-E omits points whose price repeats the previous
// position (curve type A03), so absent positions take the price of the
// closest preceding point.
func (p *Period) averagePriceInHourByTime(t time.Time) (float64, bool) {
	if p.Resolution <= 0 {
		return 0, false
	}
	hourStart := t.Truncate(time.Hour)
	hourEnd := hourStart.Add(time.Hour)

	var sum float64
	var count int
	for ts := hourStart; ts.Before(hourEnd); ts = ts.Add(p.Resolution) {
		pos := p.calculatePosition(ts)
		if pos == 0 {
			continue
		}
		if price, ok := p.priceAtPosition(pos); ok {
			sum += price
			count++
		}
	}

	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

// priceAtPosition resolves the price of a 1-based position, falling back
// to the closest preceding point per the A03 curve convention.
func (p *Period) priceAtPosition(position int) (float64, bool) {
	var best *Point
	for i := range p.Points {
		pt := &p.Points[i]
		if pt.Position == position {
			return pt.PriceAmount, true
		}
		if pt.Position < position && (best == nil || pt.Position > best.Position) {
			best = pt
		}
	}
	if best != nil {
		return best.PriceAmount, true
	}
	return 0, false
}

// DecodeEnergyPricesXML decodes a day-ahead price document
func DecodeEnergyPricesXML(file io.Reader) (*PublicationMarketDocument, error) {
	var doc PublicationMarketDocument
	if err := xml.NewDecoder(file).Decode(&doc); err != nil {
		return nil, fmt.Errorf("error parsing XML: %v", err)
	}
	return &doc, nil
}
