// Package metrics defines and registers the Prometheus metrics for the
// payment ledger. It is the single source of truth for metric names, labels,
// and help strings. Metrics register with the default registry at import time
// via promauto; the /metrics route is wired in the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "payledger"

// LedgerMutationsTotal counts ledger mutations that completed successfully.
// Label:
//   - operation: "create", "update", or "delete"
var LedgerMutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_mutations_total",
		Help:      "Total number of successful payment ledger mutations.",
	},
	[]string{"operation"},
)

// LedgerErrorsTotal counts ledger mutations that failed.
// Label:
//   - reason: short failure description (e.g. "duplicate_item", "client_not_found")
var LedgerErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_errors_total",
		Help:      "Total number of payment ledger mutations that failed.",
	},
	[]string{"reason"},
)

// ReconciliationsTotal counts totalPaid recomputations. Every successful
// ledger mutation contributes exactly one.
var ReconciliationsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconciliations_total",
		Help:      "Total number of client totalPaid reconciliations performed.",
	},
)

// MutationDuration measures how long a ledger mutation takes end-to-end,
// including its reconciliation, from service entry to commit.
// Label:
//   - operation: "create", "update", or "delete"
var MutationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "mutation_duration_seconds",
		Help:      "Duration of ledger mutations including reconciliation.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation"},
)
