package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tsclean/internal/config"
)

const defaultRotationDays = 30

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the diagnostics logger. Verbose runs log to stderr; cfg.File,
// when set, receives a copy and is rotated by age. With neither, diagnostics
// are discarded so stdout carries only the deletion lines. The returned
// closer releases the log file and must be called once logging is done.
func New(cfg config.LoggingCfg, verbose bool) (*log.Logger, io.Closer) {
	return newLogger(cfg, verbose, os.Stderr)
}

func newLogger(cfg config.LoggingCfg, verbose bool, stderr io.Writer) (*log.Logger, io.Closer) {
	var writers []io.Writer
	var closer io.Closer = nopCloser{}
	if verbose {
		writers = append(writers, stderr)
	}

	if cfg.File != "" {
		if f := openLogFile(cfg); f != nil {
			writers = append(writers, f)
			closer = f
		}
	}

	switch len(writers) {
	case 0:
		return log.New(io.Discard, "", 0), closer
	case 1:
		return log.New(writers[0], "", log.LstdFlags|log.Lmicroseconds), closer
	default:
		return log.New(io.MultiWriter(writers...), "", log.LstdFlags|log.Lmicroseconds), closer
	}
}

func openLogFile(cfg config.LoggingCfg) *os.File {
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		log.Printf("failed to ensure log directory for %s: %v", cfg.File, err)
		return nil
	}

	rotateDays := defaultRotationDays
	if cfg.RotationDays > 0 {
		rotateDays = cfg.RotationDays
	}
	rotateLogsIfNeeded(cfg.File, rotateDays, time.Now())

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("failed to open log file %s: %v", cfg.File, err)
		return nil
	}
	return f
}

// rotateLogsIfNeeded rotates the log file once it is older than rotationDays
func rotateLogsIfNeeded(logPath string, rotationDays int, now time.Time) {
	info, err := os.Stat(logPath)
	if err != nil {
		// Log file doesn't exist yet, nothing to rotate
		return
	}

	cutoffTime := now.AddDate(0, 0, -rotationDays)
	if info.ModTime().Before(cutoffTime) {
		rotatedPath := logPath + "." + info.ModTime().Format("20060102-150405")

		if err := os.Rename(logPath, rotatedPath); err != nil {
			log.Printf("failed to rotate log file: %v", err)
			return
		}

		cleanupOldLogs(logPath, cutoffTime)
	}
}

// cleanupOldLogs removes rotated copies last written before cutoff
func cleanupOldLogs(logPath string, cutoff time.Time) {
	logDir := filepath.Dir(logPath)
	prefix := filepath.Base(logPath) + "."

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			fullPath := filepath.Join(logDir, entry.Name())
			if err := os.Remove(fullPath); err != nil {
				log.Printf("failed to remove old log file %s: %v", fullPath, err)
			}
		}
	}
}
