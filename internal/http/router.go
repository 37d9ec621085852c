package http

import (
	"net/http"
	"time"

	"github.com/fjod/go_cart/bakery-pos/internal/catalog"
	"github.com/fjod/go_cart/bakery-pos/internal/metrics"
	"github.com/fjod/go_cart/bakery-pos/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Catalog        *catalog.Catalog
	Sessions       *service.Sessions
	Checkout       *service.CheckoutService
	Logger         *zap.Logger
	RequestTimeout time.Duration
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	catalogHandler := NewCatalogHandler(cfg.Catalog)
	cartHandler := NewCartHandler(cfg.Sessions, cfg.Checkout, timeout)
	salesHandler := NewSalesHandler(cfg.Checkout, timeout)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(metrics.Middleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SessionMiddleware)
		r.Use(RequestLogger(logger))

		r.Get("/catalog", catalogHandler.GetCatalog)
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Put("/items", cartHandler.SetQuantity)
			r.Put("/received", cartHandler.SetReceived)
			r.Post("/checkout", cartHandler.Checkout)
			r.Post("/reset", cartHandler.Reset)
		})
		r.Route("/sales", func(r chi.Router) {
			r.Get("/", salesHandler.ListSales)
			r.Get("/export", salesHandler.Export)
		})
	})

	return otelhttp.NewHandler(r, "bakery-pos")
}
