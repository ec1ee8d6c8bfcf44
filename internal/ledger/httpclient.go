package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/masonempey/KyanHub-sub001/internal/platform/httpx"
)

// HTTPClient talks to the spreadsheet-style ledger REST API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient constructs a ledger API client.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *HTTPClient) valuesURL(documentID, sheet, rng string) string {
	return fmt.Sprintf("%s/documents/%s/sheets/%s/values/%s",
		c.baseURL, url.PathEscape(documentID), url.PathEscape(sheet), url.PathEscape(rng))
}

// ReadRange fetches the cell rows of an A1-style range.
func (c *HTTPClient) ReadRange(ctx context.Context, documentID, sheet, rng string) ([][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.valuesURL(documentID, sheet, rng), nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Values [][]string `json:"values"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.Values, nil
}

// WriteCell sets a single cell value.
func (c *HTTPClient) WriteCell(ctx context.Context, documentID, sheet, addr, value string) error {
	payload, err := json.Marshal(map[string]string{"value": value})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.valuesURL(documentID, sheet, addr), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

// AppendRow appends one row at the first empty row of the range.
func (c *HTTPClient) AppendRow(ctx context.Context, documentID, sheet, rng string, values []string) error {
	payload, err := json.Marshal(map[string][][]string{"values": {values}})
	if err != nil {
		return err
	}
	u := c.valuesURL(documentID, sheet, rng) + ":append"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ledger request: %v: %w", err, httpx.ErrUpstream)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("ledger range not found: %w", httpx.ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("ledger returned status %d: %w", resp.StatusCode, httpx.ErrUpstream)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ledger response decode: %v: %w", err, httpx.ErrUpstream)
	}
	return nil
}
