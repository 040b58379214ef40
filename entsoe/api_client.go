package entsoe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ovheul/heatplan/utils"
)

// APIClient represents an HTTP client for the ENTSO-E API
type APIClient struct {
	httpClient *http.Client
	userAgent  string
}

// NewAPIClient creates a new ENTSO-E API client with default settings
func NewAPIClient() *APIClient {
	return &APIClient{
		httpClient: &http.Client{},
		userAgent:  "entsoe-go-client/1.0",
	}
}

// SetUserAgent sets a custom user agent for the API client
func (c *APIClient) SetUserAgent(userAgent string) {
	c.userAgent = userAgent
}

// DownloadPublicationMarketDocument downloads and decodes a day-ahead
// price document for today and, after the 13:00 publication, merges in
// tomorrow's prices as well.
func DownloadPublicationMarketDocument(ctx context.Context, securityToken, urlFormat string, location *time.Location) (*PublicationMarketDocument, error) {
	now := time.Now().In(location)
	client := NewAPIClient()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	doc, err := client.download(ctx, buildDocumentURL(securityToken, urlFormat, now))
	if err != nil {
		return nil, err
	}

	// Day-ahead prices for tomorrow are published around 13:00 CET.
	if now.Hour() >= 13 {
		tomorrow, err := client.download(ctx, buildDocumentURL(securityToken, urlFormat, now.AddDate(0, 0, 1)))
		if err != nil {
			return nil, err
		}
		doc = mergeDocuments(doc, tomorrow)
	}

	return doc, nil
}

// download fetches and decodes one document
func (c *APIClient) download(ctx context.Context, apiURL string) (*PublicationMarketDocument, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from price API", resp.StatusCode)
	}

	return DecodeEnergyPricesXML(resp.Body)
}

// buildDocumentURL formats the API URL for one market day
func buildDocumentURL(securityToken, urlFormat string, day time.Time) string {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())

	periodStart := utils.GetUTCString(start)
	periodEnd := utils.GetUTCString(start.AddDate(0, 0, 1))

	return fmt.Sprintf(urlFormat, periodStart, periodEnd, securityToken)
}

// mergeDocuments merges two documents by concatenating their TimeSeries
func mergeDocuments(first, second *PublicationMarketDocument) *PublicationMarketDocument {
	if first == nil {
		return second
	}
	if second == nil {
		return first
	}
	merged := *first
	merged.TimeSeries = append(append([]TimeSeries{}, first.TimeSeries...), second.TimeSeries...)
	if second.PeriodTimeInterval.End.After(merged.PeriodTimeInterval.End) {
		merged.PeriodTimeInterval.End = second.PeriodTimeInterval.End
	}
	return &merged
}
