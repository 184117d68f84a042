// Package amfi fetches mutual fund reference data from AMFI and per-scheme NAV
// history from mfapi.in.
package amfi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"wealthlens/internal/calendar"
	"wealthlens/internal/models"
)

const (
	// DefaultNAVAllURL serves the daily NAV file covering every open scheme.
	DefaultNAVAllURL    = "https://www.amfiindia.com/spages/NAVAll.txt"
	// DefaultMFAPIBaseURL serves NAV history per scheme code.
	DefaultMFAPIBaseURL = "https://api.mfapi.in"

	userAgent       = "wealthlens/1.0"
	mfapiDateLayout = "02-01-2006"
)

// ErrNAVNotAvailable is returned when the provider has no NAV on or before the requested date.
var ErrNAVNotAvailable = errors.New("nav not available")

// NAVQuote is a published NAV for one scheme and trading date.
type NAVQuote struct {
	SchemeCode string
	Date       time.Time
	NAV        decimal.Decimal
}

// Client talks to the AMFI and mfapi.in endpoints.
type Client struct {
	httpClient   *http.Client
	navAllURL    string
	mfapiBaseURL string
	now          func() time.Time
}

// NewClient creates a Client. Empty URLs fall back to the public endpoints.
func NewClient(httpClient *http.Client, navAllURL, mfapiBaseURL string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if navAllURL == "" {
		navAllURL = DefaultNAVAllURL
	}
	if mfapiBaseURL == "" {
		mfapiBaseURL = DefaultMFAPIBaseURL
	}
	return &Client{
		httpClient:   httpClient,
		navAllURL:    navAllURL,
		mfapiBaseURL: mfapiBaseURL,
		now:          time.Now,
	}
}

// FetchSchemeMaster downloads and parses the full scheme catalog.
func (c *Client) FetchSchemeMaster(ctx context.Context) ([]models.SchemeMaster, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.navAllURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building scheme master request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scheme master http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scheme master request: unexpected status %d", resp.StatusCode)
	}

	schemes, err := ParseNAVAll(resp.Body, c.now())
	if err != nil {
		return nil, err
	}
	if len(schemes) == 0 {
		return nil, errors.New("scheme master response contained no schemes")
	}
	return schemes, nil
}

type mfapiEntry struct {
	Date string `json:"date"`
	NAV  string `json:"nav"`
}

type mfapiResponse struct {
	Status string       `json:"status"`
	Data   []mfapiEntry `json:"data"`
}

// FetchNAV returns the NAV published for date, or the closest earlier one when
// the scheme did not publish that day.
func (c *Client) FetchNAV(ctx context.Context, schemeCode string, date time.Time) (*NAVQuote, error) {
	url := c.mfapiBaseURL + "/mf/" + schemeCode

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building nav request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nav http request for %s: %w", schemeCode, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nav request for %s: unexpected status %d", schemeCode, resp.StatusCode)
	}

	var body mfapiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding nav response for %s: %w", schemeCode, err)
	}

	target := calendar.DateOnly(date)
	var best *NAVQuote
	for _, row := range body.Data {
		d, err := time.Parse(mfapiDateLayout, row.Date)
		if err != nil || d.After(target) {
			continue
		}
		if best != nil && !d.After(best.Date) {
			continue
		}
		nav, err := decimal.NewFromString(row.NAV)
		if err != nil || !nav.IsPositive() {
			continue
		}
		best = &NAVQuote{SchemeCode: schemeCode, Date: d, NAV: nav}
	}

	if best == nil {
		return nil, fmt.Errorf("scheme %s on %s: %w", schemeCode, calendar.FormatDate(target), ErrNAVNotAvailable)
	}
	return best, nil
}
