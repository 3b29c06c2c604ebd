// Package metrics exposes the Prometheus collectors of the API.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findash_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "findash_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Domain metrics
	marketDataFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findash_market_data_fetches_total",
			Help: "Market data provider fetches by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	pricesStoredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findash_prices_stored_total",
			Help: "Stock price rows written by source",
		},
		[]string{"source"},
	)

	loginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findash_logins_total",
			Help: "Login attempts by outcome",
		},
		[]string{"outcome"},
	)

	wsConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "findash_websocket_connections",
			Help: "Currently connected WebSocket clients",
		},
	)
)

// Middleware records request count and latency per route pattern.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			if err != nil {
				// Render now so the recorded status is the one the client sees.
				c.Error(err)
			}
			status := c.Response().Status

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			httpRequestsTotal.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the default Prometheus registry.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}

// RecordFetch counts one market data fetch. outcome is "ok" or an error kind.
func RecordFetch(source, outcome string) {
	marketDataFetchesTotal.WithLabelValues(source, outcome).Inc()
}

// AddPricesStored counts persisted price rows.
func AddPricesStored(source string, n int) {
	if n > 0 {
		pricesStoredTotal.WithLabelValues(source).Add(float64(n))
	}
}

// RecordLogin counts one login attempt. outcome is "ok", "invalid" or "inactive".
func RecordLogin(outcome string) {
	loginsTotal.WithLabelValues(outcome).Inc()
}

// WebSocketConnected adjusts the live connection gauge.
func WebSocketConnected(delta int) {
	wsConnections.Add(float64(delta))
}
