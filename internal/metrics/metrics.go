package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PollCycles counts poll cycles by contract and outcome
	PollCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_poll_cycles_total",
			Help: "Total number of poll cycles",
		},
		[]string{"contract", "status"},
	)

	// PollDuration tracks how long one poll cycle takes
	PollDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "indexer_poll_duration_seconds",
			Help:    "Poll cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"contract"},
	)

	// EventsFetched counts raw events returned by upstream
	EventsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_events_fetched_total",
			Help: "Total number of raw events fetched from upstream",
		},
		[]string{"contract"},
	)

	// EventsStored counts store outcomes (inserted, already_exists)
	EventsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_events_stored_total",
			Help: "Total number of events handed to the event store",
		},
		[]string{"contract", "result"},
	)

	// LastProcessedBlock tracks the in-memory watermark per contract
	LastProcessedBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "indexer_last_processed_block",
			Help: "Last processed block height by contract",
		},
		[]string{"contract"},
	)

	// PageOffset tracks the upstream pagination cursor per contract
	PageOffset = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "indexer_page_offset",
			Help: "Upstream pagination offset by contract",
		},
		[]string{"contract"},
	)

	// UpstreamRequests counts upstream API calls by endpoint and status
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_upstream_requests_total",
			Help: "Total number of upstream API requests",
		},
		[]string{"endpoint", "status"},
	)

	// ErrorsTotal counts errors by component and type
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// HTTPRequests counts query API requests by route and status code
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_http_requests_total",
			Help: "Total number of query API requests",
		},
		[]string{"method", "route", "status"},
	)
)
