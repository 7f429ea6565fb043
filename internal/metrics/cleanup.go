package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Engine metrics
var (
	// TargetsTotal counts target invocations per pattern shape
	TargetsTotal *prometheus.CounterVec

	// EntriesDeletedTotal counts entries removed per pattern shape
	EntriesDeletedTotal *prometheus.CounterVec

	// EntriesSimulatedTotal counts entries a dry run reported per pattern shape
	EntriesSimulatedTotal *prometheus.CounterVec

	// EntriesExcludedTotal counts nested candidates spared by an exclusion
	EntriesExcludedTotal prometheus.Counter

	// BytesFreedTotal tracks bytes of regular files removed
	BytesFreedTotal prometheus.Counter

	// DirectoriesVisitedTotal counts nested traversal nodes
	DirectoriesVisitedTotal prometheus.Counter

	// ErrorsTotal counts targets aborted by an error
	ErrorsTotal prometheus.Counter
)

// initCleanupMetrics initializes all engine metrics
func initCleanupMetrics() {
	TargetsTotal = NewCounterVec(
		"tsclean_targets_total",
		"Total number of targets processed, by pattern shape.",
		[]string{"shape"},
	)

	EntriesDeletedTotal = NewCounterVec(
		"tsclean_entries_deleted_total",
		"Total number of files and directories deleted, by pattern shape.",
		[]string{"shape"},
	)

	EntriesSimulatedTotal = NewCounterVec(
		"tsclean_entries_simulated_total",
		"Total number of deletions reported by dry runs, by pattern shape.",
		[]string{"shape"},
	)

	EntriesExcludedTotal = NewCounter(
		"tsclean_entries_excluded_total",
		"Total number of candidates skipped because of an exclusion.",
	)

	BytesFreedTotal = NewBytesCounter(
		"tsclean_bytes_freed_total",
		"Total bytes freed by tsclean.",
	)

	DirectoriesVisitedTotal = NewCounter(
		"tsclean_directories_visited_total",
		"Total number of directories visited by nested patterns.",
	)

	ErrorsTotal = NewCounter(
		"tsclean_errors_total",
		"Total number of targets aborted by an error.",
	)
}

// registerCleanupMetrics registers all engine metrics with Registry
func registerCleanupMetrics() {
	Registry.MustRegister(TargetsTotal)
	Registry.MustRegister(EntriesDeletedTotal)
	Registry.MustRegister(EntriesSimulatedTotal)
	Registry.MustRegister(EntriesExcludedTotal)
	Registry.MustRegister(BytesFreedTotal)
	Registry.MustRegister(DirectoriesVisitedTotal)
	Registry.MustRegister(ErrorsTotal)
}

// RecordTarget counts one target invocation
func RecordTarget(shape string) {
	TargetsTotal.WithLabelValues(shape).Inc()
}

// RecordDeletion counts one performed deletion and the bytes it freed
func RecordDeletion(shape string, bytes int64) {
	EntriesDeletedTotal.WithLabelValues(shape).Inc()
	BytesFreedTotal.Add(float64(bytes))
}

// RecordSimulated counts one dry-run notice
func RecordSimulated(shape string) {
	EntriesSimulatedTotal.WithLabelValues(shape).Inc()
}
