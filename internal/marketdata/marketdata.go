// Package marketdata fetches daily price bars from third-party providers.
package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OutputSize selects how much history a provider returns.
type OutputSize string

const (
	// OutputCompact returns roughly the latest 100 bars.
	OutputCompact OutputSize = "compact"
	// OutputFull returns the full available history.
	OutputFull OutputSize = "full"
)

// ParseOutputSize validates an output size name; empty means compact.
func ParseOutputSize(s string) (OutputSize, error) {
	switch OutputSize(s) {
	case "", OutputCompact:
		return OutputCompact, nil
	case OutputFull:
		return OutputFull, nil
	default:
		return "", fmt.Errorf("output_size must be one of 'compact', 'full', got %q", s)
	}
}

// Bar is one daily OHLCV record.
type Bar struct {
	Date   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// Provider returns daily bars for a symbol in ascending date order.
type Provider interface {
	DailyBars(ctx context.Context, symbol string, size OutputSize) ([]Bar, error)
	// Source is the data-source label stored with fetched rows.
	Source() string
}

// ErrorKind classifies upstream failures.
type ErrorKind int

const (
	KindNotConfigured ErrorKind = iota + 1
	KindTimeout
	KindUnavailable
	KindRateLimited
	KindSymbol
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotConfigured:
		return "not_configured"
	case KindTimeout:
		return "timeout"
	case KindUnavailable:
		return "unavailable"
	case KindRateLimited:
		return "rate_limited"
	case KindSymbol:
		return "symbol_error"
	default:
		return "unknown"
	}
}

// Error is a typed upstream failure. Message embeds the provider's own text.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}
