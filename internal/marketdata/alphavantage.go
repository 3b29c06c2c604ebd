package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	// AlphaVantageSource labels rows stored from Alpha Vantage.
	AlphaVantageSource = "AlphaVantage"
	// DefaultAlphaVantageURL is the public query endpoint.
	DefaultAlphaVantageURL = "https://www.alphavantage.co/query"
	// DefaultTimeout bounds a single upstream round trip.
	DefaultTimeout = 15 * time.Second

	placeholderAPIKey = "YOUR_API_KEY_HERE_REPLACE_ME"
	dailySeriesKey    = "Time Series (Daily)"
)

// AlphaVantageClient fetches daily adjusted series from Alpha Vantage.
type AlphaVantageClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *logrus.Logger
}

var _ Provider = (*AlphaVantageClient)(nil)

// NewAlphaVantageClient initializes a client. A missing or placeholder key is
// accepted here and reported as KindNotConfigured on first use.
func NewAlphaVantageClient(baseURL, apiKey string, timeout time.Duration, log *logrus.Logger) *AlphaVantageClient {
	if baseURL == "" {
		baseURL = DefaultAlphaVantageURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if apiKey == placeholderAPIKey {
		apiKey = ""
	}
	if apiKey == "" {
		log.Warn("Alpha Vantage API key is not configured")
	}
	return &AlphaVantageClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Source implements Provider.
func (c *AlphaVantageClient) Source() string {
	return AlphaVantageSource
}

type dailyResponse struct {
	ErrorMessage string                       `json:"Error Message"`
	Note         string                       `json:"Note"`
	Information  string                       `json:"Information"`
	TimeSeries   map[string]map[string]string `json:"Time Series (Daily)"`
}

// DailyBars implements Provider. Entries that fail to parse are skipped.
func (c *AlphaVantageClient) DailyBars(ctx context.Context, symbol string, size OutputSize) ([]Bar, error) {
	symbol = strings.ToUpper(symbol)
	if size == "" {
		size = OutputCompact
	}

	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY_ADJUSTED")
	params.Set("symbol", symbol)
	params.Set("outputsize", string(size))

	payload, err := c.query(ctx, symbol, params)
	if err != nil {
		return nil, err
	}

	if len(payload.TimeSeries) == 0 {
		c.log.WithField("symbol", symbol).Infof("no %q data in Alpha Vantage response", dailySeriesKey)
		return []Bar{}, nil
	}

	bars := make([]Bar, 0, len(payload.TimeSeries))
	for dateStr, fields := range payload.TimeSeries {
		bar, err := parseBar(dateStr, fields)
		if err != nil {
			c.log.WithFields(logrus.Fields{"symbol": symbol, "date": dateStr}).Warnf("skipping bar: %v", err)
			continue
		}
		bars = append(bars, bar)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func (c *AlphaVantageClient) query(ctx context.Context, symbol string, params url.Values) (*dailyResponse, error) {
	if c.apiKey == "" {
		return nil, &Error{Kind: KindNotConfigured, Message: "Alpha Vantage API key is not configured. Cannot fetch data."}
	}
	params.Set("apikey", c.apiKey)
	params.Set("datatype", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &Error{Kind: KindUnavailable, Message: fmt.Sprintf("Error connecting to Alpha Vantage: %v", err), Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.log.WithField("symbol", symbol).Warn("Alpha Vantage request timed out")
			return nil, &Error{Kind: KindTimeout, Message: "Request to Alpha Vantage timed out.", Err: err}
		}
		c.log.WithField("symbol", symbol).Errorf("Alpha Vantage request failed: %v", err)
		return nil, &Error{Kind: KindUnavailable, Message: fmt.Sprintf("Error connecting to Alpha Vantage: %v", redactKey(err, c.apiKey)), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Kind: KindUnavailable, Message: fmt.Sprintf("Error connecting to Alpha Vantage: unexpected status code %d", resp.StatusCode)}
	}

	var payload dailyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		if isTimeout(err) {
			return nil, &Error{Kind: KindTimeout, Message: "Request to Alpha Vantage timed out.", Err: err}
		}
		return nil, &Error{Kind: KindUnavailable, Message: fmt.Sprintf("Invalid response from Alpha Vantage: %v", err), Err: err}
	}

	switch {
	case payload.ErrorMessage != "":
		c.log.WithField("symbol", symbol).Warnf("Alpha Vantage error: %s", payload.ErrorMessage)
		return nil, &Error{Kind: KindSymbol, Message: fmt.Sprintf("Alpha Vantage (symbol: %s): %s", symbol, payload.ErrorMessage)}
	case payload.Note != "":
		c.log.WithField("symbol", symbol).Warnf("Alpha Vantage note: %s", payload.Note)
		return nil, &Error{Kind: KindRateLimited, Message: fmt.Sprintf("Alpha Vantage API limit likely reached: %s", payload.Note)}
	case payload.Information != "" && len(payload.TimeSeries) == 0:
		c.log.WithField("symbol", symbol).Warnf("Alpha Vantage information: %s", payload.Information)
		return nil, &Error{Kind: KindRateLimited, Message: fmt.Sprintf("Alpha Vantage API limit likely reached: %s", payload.Information)}
	}
	return &payload, nil
}

func parseBar(dateStr string, fields map[string]string) (Bar, error) {
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return Bar{}, fmt.Errorf("parse date: %w", err)
	}

	var bar Bar
	bar.Date = date
	prices := []struct {
		key string
		dst *decimal.Decimal
	}{
		{"1. open", &bar.Open},
		{"2. high", &bar.High},
		{"3. low", &bar.Low},
		{"4. close", &bar.Close},
	}
	for _, p := range prices {
		raw, ok := fields[p.key]
		if !ok {
			return Bar{}, fmt.Errorf("missing %q", p.key)
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return Bar{}, fmt.Errorf("parse %q: %w", p.key, err)
		}
		if !v.IsPositive() {
			return Bar{}, fmt.Errorf("%q must be greater than 0, got %s", p.key, raw)
		}
		*p.dst = v
	}

	// The adjusted series reports volume as field 6, the plain series as 5.
	rawVolume, ok := fields["6. volume"]
	if !ok {
		rawVolume, ok = fields["5. volume"]
	}
	if !ok {
		return Bar{}, errors.New(`missing "6. volume"`)
	}
	volume, err := strconv.ParseInt(rawVolume, 10, 64)
	if err != nil {
		return Bar{}, fmt.Errorf("parse volume: %w", err)
	}
	if volume < 0 {
		return Bar{}, fmt.Errorf("volume must not be negative, got %d", volume)
	}
	bar.Volume = volume
	return bar, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// redactKey keeps the API key out of error messages returned to callers.
func redactKey(err error, key string) string {
	msg := err.Error()
	if key == "" {
		return msg
	}
	return strings.ReplaceAll(msg, key, "REDACTED")
}
