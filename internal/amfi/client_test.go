package amfi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mfapiSample = `{
  "meta": {"fund_house": "HDFC Mutual Fund", "scheme_code": 119018},
  "data": [
    {"date": "16-10-2026", "nav": "1130.0000"},
    {"date": "15-10-2026", "nav": "1123.4560"},
    {"date": "13-10-2026", "nav": "1119.1000"},
    {"date": "12-10-2026", "nav": "0.0000"}
  ],
  "status": "SUCCESS"
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.Client(), srv.URL+"/NAVAll.txt", srv.URL)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFetchNAV(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(mfapiSample))
	})

	t.Run("exact_date", func(t *testing.T) {
		q, err := c.FetchNAV(context.Background(), "119018", day(2026, 10, 15))
		require.NoError(t, err)
		assert.Equal(t, "/mf/119018", gotPath)
		assert.Equal(t, "119018", q.SchemeCode)
		assert.Equal(t, day(2026, 10, 15), q.Date)
		assert.Equal(t, "1123.456", q.NAV.String())
	})

	t.Run("falls_back_to_earlier_date", func(t *testing.T) {
		q, err := c.FetchNAV(context.Background(), "119018", day(2026, 10, 14))
		require.NoError(t, err)
		assert.Equal(t, day(2026, 10, 13), q.Date)
	})

	t.Run("ignores_zero_nav", func(t *testing.T) {
		_, err := c.FetchNAV(context.Background(), "119018", day(2026, 10, 12))
		assert.True(t, errors.Is(err, ErrNAVNotAvailable))
	})

	t.Run("nothing_before_target", func(t *testing.T) {
		_, err := c.FetchNAV(context.Background(), "119018", day(2026, 1, 1))
		assert.True(t, errors.Is(err, ErrNAVNotAvailable))
	})
}

func TestFetchNAV_UpstreamErrors(t *testing.T) {
	t.Run("non_200", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		_, err := c.FetchNAV(context.Background(), "1", day(2026, 10, 15))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status 502")
	})

	t.Run("invalid_json", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		})
		_, err := c.FetchNAV(context.Background(), "1", day(2026, 10, 15))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decoding nav response")
	})
}

func TestFetchSchemeMaster(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/NAVAll.txt", r.URL.Path)
		_, _ = w.Write([]byte(navAllSample))
	})
	fixed := day(2026, 10, 16)
	c.now = func() time.Time { return fixed }

	schemes, err := c.FetchSchemeMaster(context.Background())
	require.NoError(t, err)
	assert.Len(t, schemes, 4)
	assert.Equal(t, fixed, schemes[0].LastUpdated)
}

func TestFetchSchemeMaster_EmptyBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Scheme Code;ISIN Div Payout/ ISIN Growth;ISIN Div Reinvestment;Scheme Name;Net Asset Value;Date\n"))
	})

	_, err := c.FetchSchemeMaster(context.Background())
	assert.Error(t, err)
}
