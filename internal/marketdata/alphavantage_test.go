package marketdata

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDaily = `{
  "Meta Data": {"2. Symbol": "IBM"},
  "Time Series (Daily)": {
    "2023-10-03": {"1. open": "140.0", "2. high": "141.5", "3. low": "139.2", "4. close": "141.1", "5. adjusted close": "141.1", "6. volume": "3000"},
    "2023-10-01": {"1. open": "138.0", "2. high": "139.0", "3. low": "137.5", "4. close": "138.7", "5. adjusted close": "138.7", "6. volume": "1000"},
    "2023-10-02": {"1. open": "139.0", "2. high": "140.0", "3. low": "138.1", "4. close": "139.9", "5. adjusted close": "139.9", "6. volume": "2000"},
    "2023-10-04": {"1. open": "oops", "2. high": "1", "3. low": "1", "4. close": "1", "6. volume": "1"}
  }
}`

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *AlphaVantageClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAlphaVantageClient(srv.URL, "test-key", timeout, quietLogger())
}

func requireKind(t *testing.T, err error, kind ErrorKind) *Error {
	t.Helper()
	var upstream *Error
	require.True(t, errors.As(err, &upstream), "expected *marketdata.Error, got %v", err)
	assert.Equal(t, kind, upstream.Kind)
	return upstream
}

func TestAlphaVantageClient_DailyBars(t *testing.T) {
	var gotQuery map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"function":   q.Get("function"),
			"symbol":     q.Get("symbol"),
			"outputsize": q.Get("outputsize"),
			"apikey":     q.Get("apikey"),
		}
		_, _ = io.WriteString(w, sampleDaily)
	}, time.Second)

	bars, err := client.DailyBars(context.Background(), "ibm", OutputFull)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"function":   "TIME_SERIES_DAILY_ADJUSTED",
		"symbol":     "IBM",
		"outputsize": "full",
		"apikey":     "test-key",
	}, gotQuery)

	require.Len(t, bars, 3, "malformed bar must be skipped")
	assert.Equal(t, "2023-10-01", bars[0].Date.Format("2006-01-02"))
	assert.Equal(t, "2023-10-02", bars[1].Date.Format("2006-01-02"))
	assert.Equal(t, "2023-10-03", bars[2].Date.Format("2006-01-02"))
	assert.True(t, decimal.RequireFromString("141.1").Equal(bars[2].Close))
	assert.Equal(t, int64(3000), bars[2].Volume)
	assert.Equal(t, AlphaVantageSource, client.Source())
}

func TestAlphaVantageClient_EmptySeries(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"Meta Data": {}}`)
	}, time.Second)

	bars, err := client.DailyBars(context.Background(), "IBM", OutputCompact)
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestAlphaVantageClient_SkipsOutOfRangeBars(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{
  "Time Series (Daily)": {
    "2023-10-02": {"1. open": "139.0", "2. high": "140.0", "3. low": "138.1", "4. close": "139.9", "6. volume": "2000"},
    "2023-10-03": {"1. open": "0", "2. high": "141.5", "3. low": "139.2", "4. close": "141.1", "6. volume": "3000"},
    "2023-10-04": {"1. open": "140.0", "2. high": "-5", "3. low": "139.2", "4. close": "141.1", "6. volume": "3000"},
    "2023-10-05": {"1. open": "140.0", "2. high": "141.5", "3. low": "139.2", "4. close": "141.1", "6. volume": "-10"},
    "2023-10-06": {"1. open": "140.0", "2. high": "141.5", "3. low": "139.2", "4. close": "141.1", "6. volume": "0"}
  }
}`)
	}, time.Second)

	bars, err := client.DailyBars(context.Background(), "IBM", OutputCompact)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "2023-10-02", bars[0].Date.Format("2006-01-02"))
	assert.Equal(t, "2023-10-06", bars[1].Date.Format("2006-01-02"))
	assert.Zero(t, bars[1].Volume, "zero volume is allowed")
}

func TestAlphaVantageClient_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		kind     ErrorKind
		contains string
	}{
		{
			name:     "invalid symbol",
			status:   http.StatusOK,
			body:     `{"Error Message": "Invalid API call."}`,
			kind:     KindSymbol,
			contains: "Alpha Vantage (symbol: NOPE): Invalid API call.",
		},
		{
			name:     "rate limit note",
			status:   http.StatusOK,
			body:     `{"Note": "Thank you for using Alpha Vantage!"}`,
			kind:     KindRateLimited,
			contains: "API limit likely reached: Thank you",
		},
		{
			name:     "rate limit information",
			status:   http.StatusOK,
			body:     `{"Information": "Our standard API rate limit is 25 requests per day."}`,
			kind:     KindRateLimited,
			contains: "25 requests per day",
		},
		{
			name:     "server error",
			status:   http.StatusBadGateway,
			body:     `bad gateway`,
			kind:     KindUnavailable,
			contains: "unexpected status code 502",
		},
		{
			name:     "garbage body",
			status:   http.StatusOK,
			body:     `<html>`,
			kind:     KindUnavailable,
			contains: "Invalid response from Alpha Vantage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}, time.Second)

			bars, err := client.DailyBars(context.Background(), "nope", OutputCompact)
			assert.Nil(t, bars)
			upstream := requireKind(t, err, tt.kind)
			assert.Contains(t, upstream.Message, tt.contains)
		})
	}
}

func TestAlphaVantageClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, 50*time.Millisecond)
	defer close(release)

	_, err := client.DailyBars(context.Background(), "IBM", OutputCompact)
	upstream := requireKind(t, err, KindTimeout)
	assert.Equal(t, "Request to Alpha Vantage timed out.", upstream.Message)
}

func TestAlphaVantageClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewAlphaVantageClient(url, "secret-key", time.Second, quietLogger())
	_, err := client.DailyBars(context.Background(), "IBM", OutputCompact)
	upstream := requireKind(t, err, KindUnavailable)
	assert.Contains(t, upstream.Message, "Error connecting to Alpha Vantage")
	assert.NotContains(t, upstream.Message, "secret-key")
}

func TestAlphaVantageClient_NotConfigured(t *testing.T) {
	for _, key := range []string{"", placeholderAPIKey} {
		client := NewAlphaVantageClient("http://127.0.0.1:1", key, time.Second, quietLogger())
		_, err := client.DailyBars(context.Background(), "IBM", OutputCompact)
		requireKind(t, err, KindNotConfigured)
	}
}

func TestParseOutputSize(t *testing.T) {
	size, err := ParseOutputSize("")
	require.NoError(t, err)
	assert.Equal(t, OutputCompact, size)

	size, err = ParseOutputSize("full")
	require.NoError(t, err)
	assert.Equal(t, OutputFull, size)

	_, err = ParseOutputSize("huge")
	assert.Error(t, err)
}
