package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultCompleted    = "completed"
	ResultEmptyCart    = "empty_cart"
	ResultPersistence  = "persistence_error"
	ResultInsufficient = "insufficient_payment"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pos_http_request_duration_ms",
			Help:    "Duration of HTTP requests in ms",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600},
		},
		[]string{"method", "path"},
	)

	Checkouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_checkouts_total",
			Help: "Checkout attempts by result",
		},
		[]string{"result"},
	)

	SaleLines = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pos_sale_lines_total",
			Help: "Sale lines written to the ledger",
		},
	)

	SoldAmount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pos_sold_amount_total",
			Help: "Sum of completed checkout totals in currency units",
		},
	)

	OutboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_outbox_events_total",
			Help: "Outbox events handled by the publisher, by result",
		},
		[]string{"result"},
	)
)

const unmatchedRoute = "unmatched"

// Middleware records request counts and latencies by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		// raw paths of unrouted requests would give unbounded label values
		path := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		httpRequests.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(r.Method, path).Observe(float64(time.Since(start).Milliseconds()))
	})
}
