// Package expenses fetches the monthly expense total recorded for a property
// in the external expenses source. The close pipeline treats this source as
// best-effort; the sync substitutes zero when it is unavailable.
package expenses

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/masonempey/KyanHub-sub001/internal/platform/httpx"
)

// Client talks to the expenses REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs an expenses client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// MonthlyTotal returns the property's expense total for the month.
func (c *Client) MonthlyTotal(ctx context.Context, propertyExternalID string, year, month int) (decimal.Decimal, error) {
	u := fmt.Sprintf("%s/v1/properties/%s/expenses?year=%d&month=%d",
		c.baseURL, url.PathEscape(propertyExternalID), year, month)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("expenses request: %v: %w", err, httpx.ErrUpstream)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode == http.StatusNotFound {
		return decimal.Zero, fmt.Errorf("expenses for %s %d-%02d: %w", propertyExternalID, year, month, httpx.ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		return decimal.Zero, fmt.Errorf("expenses returned status %d: %w", resp.StatusCode, httpx.ErrUpstream)
	}

	var out struct {
		Total json.Number `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return decimal.Zero, fmt.Errorf("expenses response decode: %v: %w", err, httpx.ErrUpstream)
	}
	total, err := decimal.NewFromString(out.Total.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("expenses total %q: %v: %w", out.Total, err, httpx.ErrUpstream)
	}
	return total, nil
}
