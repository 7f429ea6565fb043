package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	initOnce sync.Once

	// Registry holds every tsclean metric. It is private to the process so a
	// one-shot run never mixes with other collectors.
	Registry *prometheus.Registry
)

// Init initializes all metrics subsystems and registers them with Registry
// This function is safe to call multiple times (uses sync.Once)
func Init() {
	initOnce.Do(func() {
		Registry = prometheus.NewRegistry()

		initCleanupMetrics()
		initRunMetrics()

		registerCleanupMetrics()
		registerRunMetrics()

		// Present from the first export, even when a run deletes nothing
		LastRunTimestamp.Set(0)
	})
}

// WriteTextfile writes the current values in the node_exporter textfile format.
// The parent directory is created when missing.
func WriteTextfile(path string) error {
	Init()
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics directory %s: %w", dir, err)
		}
	}
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
