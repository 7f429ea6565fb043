package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run-level metrics
var (
	// RunDuration tracks how long a whole run takes
	RunDuration prometheus.Histogram

	// LastRunTimestamp records Unix timestamp of the last run
	LastRunTimestamp prometheus.Gauge

	// LastRunDryRun is 1 when the last run was a dry run
	LastRunDryRun prometheus.Gauge

	// RootFreeBytes is the free space of the root's filesystem after the last run
	RootFreeBytes prometheus.Gauge

	// RootUsedPercent is the used share of the root's filesystem after the last run
	RootUsedPercent prometheus.Gauge
)

func initRunMetrics() {
	RunDuration = NewDurationHistogram(
		"tsclean_run_duration_seconds",
		"Duration of tsclean runs in seconds.",
	)

	LastRunTimestamp = NewGauge(
		"tsclean_last_run_timestamp",
		"Timestamp of the last run (Unix epoch seconds).",
	)

	LastRunDryRun = NewGauge(
		"tsclean_last_run_dry_run",
		"Whether the last run was a dry run (1) or not (0).",
	)

	RootFreeBytes = NewGauge(
		"tsclean_root_free_bytes",
		"Free bytes on the filesystem holding the cleanup root after the last run.",
	)

	RootUsedPercent = NewGauge(
		"tsclean_root_used_percent",
		"Used percentage of the filesystem holding the cleanup root after the last run.",
	)
}

func registerRunMetrics() {
	Registry.MustRegister(RunDuration)
	Registry.MustRegister(LastRunTimestamp)
	Registry.MustRegister(LastRunDryRun)
	Registry.MustRegister(RootFreeBytes)
	Registry.MustRegister(RootUsedPercent)
}

// RecordRun stamps the last-run gauges and observes the run duration
func RecordRun(start time.Time, dryRun bool) {
	LastRunTimestamp.Set(float64(time.Now().Unix()))
	if dryRun {
		LastRunDryRun.Set(1)
	} else {
		LastRunDryRun.Set(0)
	}
	RunDuration.Observe(time.Since(start).Seconds())
}

// RecordRootUsage sets the filesystem gauges for the cleanup root
func RecordRootUsage(freeBytes int64, usedPercent float64) {
	RootFreeBytes.Set(float64(freeBytes))
	RootUsedPercent.Set(usedPercent)
}
