// Package reservation consumes the upstream reservation platform feed.
package reservation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/masonempey/KyanHub-sub001/internal/platform/httpx"
)

// FeedBooking is one booking as reported by the reservation platform.
type FeedBooking struct {
	Code        string          `json:"code"`
	GuestName   string          `json:"guestName"`
	Platform    string          `json:"platform"`
	CheckIn     time.Time       `json:"checkIn"`
	CheckOut    time.Time       `json:"checkOut"`
	BaseAmount  decimal.Decimal `json:"baseAmount"`
	CleaningFee decimal.Decimal `json:"cleaningFee"`
	Extras      decimal.Decimal `json:"extras"`
}

// TotalAmount returns the all-in price: base plus cleaning fee plus extras.
func (b FeedBooking) TotalAmount() decimal.Decimal {
	return b.BaseAmount.Add(b.CleaningFee).Add(b.Extras)
}

type feedPage struct {
	Bookings   []FeedBooking `json:"bookings"`
	NextCursor string        `json:"nextCursor"`
}

// Client fetches bookings from the reservation platform API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs a feed client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ListBookings returns every booking for the property within [from, to),
// following pagination cursors until the feed is exhausted.
func (c *Client) ListBookings(ctx context.Context, propertyExternalID string, from, to time.Time) ([]FeedBooking, error) {
	var bookings []FeedBooking
	cursor := ""
	for {
		page, err := c.fetchPage(ctx, propertyExternalID, from, to, cursor)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, page.Bookings...)
		if page.NextCursor == "" {
			return bookings, nil
		}
		cursor = page.NextCursor
	}
}

func (c *Client) fetchPage(ctx context.Context, propertyExternalID string, from, to time.Time, cursor string) (feedPage, error) {
	query := url.Values{}
	query.Set("propertyId", propertyExternalID)
	query.Set("from", from.Format("2006-01-02"))
	query.Set("to", to.Format("2006-01-02"))
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	endpoint := fmt.Sprintf("%s/v1/bookings?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return feedPage{}, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return feedPage{}, fmt.Errorf("reservation: fetch bookings: %w: %w", httpx.ErrUpstream, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return feedPage{}, fmt.Errorf("reservation: feed returned status %d: %w", resp.StatusCode, httpx.ErrUpstream)
	}

	var page feedPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return feedPage{}, fmt.Errorf("reservation: decode feed page: %w: %w", httpx.ErrUpstream, err)
	}
	return page, nil
}
