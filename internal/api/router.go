package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"stacksIndexer/internal/metrics"
)

const (
	DefaultPrefix         = "/api"
	defaultRequestTimeout = 30 * time.Second
)

type RouterConfig struct {
	// Prefix mounts the query routes, e.g. "/api". Empty mounts them at the root.
	Prefix string
	// Metrics exposes /metrics when set.
	Metrics bool
}

// NewRouter builds the HTTP surface over q.
func NewRouter(q Querier, cfg RouterConfig, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{q: q, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(defaultRequestTimeout))
	r.Use(instrument)

	r.Get("/", h.banner)
	if cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	routes := func(r chi.Router) {
		r.Get("/health", h.wrap(h.health))
		r.Get("/events", h.wrap(h.listEvents))
		r.Get("/events/{txId}", h.wrap(h.getEvent))
		r.Get("/contracts/{contractId}", h.wrap(h.getContract))
		r.Get("/stats", h.wrap(h.stats))
		r.Get("/stats/event-counts", h.wrap(h.eventCounts))
		r.Get("/stats/contracts", h.wrap(h.topContracts))
	}

	prefix := "/" + strings.Trim(cfg.Prefix, "/")
	if prefix == "/" {
		routes(r)
	} else {
		r.Route(prefix, routes)
	}
	return r
}

// instrument counts requests by method, route pattern and status.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}
