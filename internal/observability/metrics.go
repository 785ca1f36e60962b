// Package observability exposes the engine's prometheus metrics. Counters
// only; the core performs no network I/O, scraping is the embedding
// application's concern.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ImportsTotal counts parse invocations by resolved broker and outcome
	// (ok, unknown, fatal, empty).
	ImportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "broker_import",
		Name:      "imports_total",
		Help:      "Parse invocations by broker and outcome.",
	}, []string{"broker", "outcome"})

	// FallbacksTotal counts escalations to the embedded parsers by trigger
	// (no_parser, empty_result, low_confidence).
	FallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "broker_import",
		Name:      "fallbacks_total",
		Help:      "Escalations to the embedded fallback parsers.",
	}, []string{"broker", "reason"})

	// InvalidRowsTotal counts rows dropped at the normalization boundary.
	InvalidRowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "broker_import",
		Name:      "invalid_rows_total",
		Help:      "Rows rejected by the canonical invariant check.",
	})
)
