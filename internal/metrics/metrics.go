// Package metrics exposes Prometheus instrumentation for index lifecycle,
// query execution, and migration progress.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// QueryDuration records FT.SEARCH round-trip latency by model and terminal.
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "redisom",
			Name:      "query_duration_seconds",
			Help:      "Duration of query execution against the search index.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"model", "terminal"},
	)

	// QueriesTotal counts executed queries by model, terminal, and outcome.
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "redisom",
			Name:      "queries_total",
			Help:      "Total number of queries executed.",
		},
		[]string{"model", "terminal", "outcome"},
	)

	// IndexOperationsTotal counts FT.CREATE/FT.DROPINDEX invocations.
	IndexOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "redisom",
			Name:      "index_operations_total",
			Help:      "Total number of index lifecycle operations.",
		},
		[]string{"model", "op", "outcome"},
	)

	// MigrationBatchesTotal counts data-migration batches processed.
	MigrationBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "redisom",
			Name:      "migration_batches_total",
			Help:      "Total number of data migration batches processed.",
		},
		[]string{"migration_id", "outcome"},
	)

	// MigrationKeysProcessed counts keys seen/ok/skipped/errored by a data migration.
	MigrationKeysProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "redisom",
			Name:      "migration_keys_processed_total",
			Help:      "Total number of keys processed by data migrations, by result.",
		},
		[]string{"migration_id", "result"},
	)
)

// Register registers all redisom collectors with the given registerer.
// Safe to call multiple times against different registerers; panics if the
// same registerer is used twice (mirrors prometheus.MustRegister semantics).
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		QueryDuration,
		QueriesTotal,
		IndexOperationsTotal,
		MigrationBatchesTotal,
		MigrationKeysProcessed,
	)
}
