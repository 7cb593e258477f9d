// Package metrics declares the Prometheus instruments for the pipeline and
// the matching engine. Metrics are package-level promauto instruments; the
// watch mode serves them over HTTP when a metrics address is configured.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DocumentsIngested counts documents accepted at intake, by declared type.
var DocumentsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ledgermatch",
	Subsystem: "pipeline",
	Name:      "documents_ingested_total",
	Help:      "Total documents accepted at intake.",
}, []string{"type"})

// DocumentsProcessed counts documents reaching a final state.
var DocumentsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ledgermatch",
	Subsystem: "pipeline",
	Name:      "documents_processed_total",
	Help:      "Total documents reaching a final pipeline state.",
}, []string{"status"})

// DuplicatesDetected counts fingerprint collisions.
var DuplicatesDetected = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "ledgermatch",
	Subsystem: "pipeline",
	Name:      "duplicates_detected_total",
	Help:      "Total documents rejected as duplicates.",
})

// ProcessingRetries counts transient-failure retries.
var ProcessingRetries = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "ledgermatch",
	Subsystem: "pipeline",
	Name:      "processing_retries_total",
	Help:      "Total processing attempts retried after transient storage failures.",
})

// MatchesCommitted counts committed reconciliation records, by strategy.
var MatchesCommitted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ledgermatch",
	Subsystem: "matcher",
	Name:      "matches_committed_total",
	Help:      "Total reconciliation records committed, by match type.",
}, []string{"strategy"})

// LinesSentToReview counts statement lines routed to the review queue.
var LinesSentToReview = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "ledgermatch",
	Subsystem: "matcher",
	Name:      "lines_sent_to_review_total",
	Help:      "Total statement lines routed to the review queue.",
})

// LinesUnmatched counts lines left unmatched after a full batch pass.
var LinesUnmatched = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "ledgermatch",
	Subsystem: "matcher",
	Name:      "lines_unmatched_total",
	Help:      "Total statement lines left unmatched after a batch run.",
})

// ReviewResolutions counts review queue adjudications, by outcome.
var ReviewResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ledgermatch",
	Subsystem: "review",
	Name:      "resolutions_total",
	Help:      "Total review queue resolutions, by outcome.",
}, []string{"outcome"})

// Handler returns the HTTP handler exposing all registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
