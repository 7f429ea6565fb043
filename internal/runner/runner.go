// Package runner turns one command-line invocation into a sequence of engine
// calls: it orders the targets, guards the root, and records the run.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"tsclean/internal/cleanup"
	"tsclean/internal/config"
	"tsclean/internal/console"
	"tsclean/internal/database"
	"tsclean/internal/disk"
	"tsclean/internal/filelock"
	"tsclean/internal/fsops"
	"tsclean/internal/metrics"
	"tsclean/internal/pattern"
	"tsclean/internal/safety"
)

// Plan is everything a run was asked to do
type Plan struct {
	Root      string
	Targets   []string // positional targets, in command-line order
	Recommend bool
	Installed bool
	Excludes  []string
	DryRun    bool
	Config    *config.Config
}

// Deps are the collaborators a run writes to
type Deps struct {
	Logger  *log.Logger
	Out     io.Writer // deletion lines; os.Stdout when nil
	NoColor bool
	Deleter fsops.Deleter // os.RemoveAll when nil
}

// Summary describes a finished run
type Summary struct {
	RunID    string
	Root     string
	Targets  []string
	Result   cleanup.Result
	Duration time.Duration
}

// Targets returns recommended defaults, installed defaults and the positional
// targets, in that order, keeping only the first occurrence of each.
func Targets(plan Plan, cfg *config.Config) []string {
	var all []string
	if plan.Recommend {
		all = append(all, cfg.Recommended...)
	}
	if plan.Installed {
		all = append(all, cfg.Installed...)
	}
	all = append(all, plan.Targets...)

	seen := make(map[string]struct{}, len(all))
	out := make([]string, 0, len(all))
	for _, t := range all {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Run executes every target of plan against its root. The first failing target
// stops the run unless the config asks to continue, in which case all failures
// are joined.
func Run(ctx context.Context, plan Plan, deps Deps) (Summary, error) {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	cfg := plan.Config
	if cfg == nil {
		cfg = config.Default()
	}
	out := deps.Out
	if out == nil {
		out = os.Stdout
	}

	root, err := safety.NormalizePath(plan.Root)
	if err != nil {
		return Summary{}, fmt.Errorf("root %q: %w", plan.Root, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return Summary{}, fmt.Errorf("root: %w", err)
	}
	if !info.IsDir() {
		return Summary{}, fmt.Errorf("root %s is not a directory", root)
	}

	summary := Summary{
		RunID:   uuid.NewString(),
		Root:    root,
		Targets: Targets(plan, cfg),
	}
	if len(summary.Targets) == 0 {
		return summary, nil
	}

	select {
	case <-ctx.Done():
		return summary, ctx.Err()
	default:
	}

	if cfg.Lock == nil || *cfg.Lock {
		lock, err := filelock.Acquire(root)
		if err != nil {
			return summary, err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				logger.Printf("[ERROR] failed to release lock %s: %v", lock.Path(), err)
			}
		}()
	}

	var db *database.DeletionDB
	if cfg.History.DatabasePath != "" {
		db, err = database.NewDeletionDB(cfg.History.DatabasePath)
		if err != nil {
			return summary, fmt.Errorf("open history: %w", err)
		}
		defer db.Close()
	}

	start := time.Now()

	printer := console.NewPrinter(out, deps.NoColor)
	cleaner := cleanup.NewCleaner(logger, printer)
	if deps.Deleter != nil {
		cleaner.SetDeleter(deps.Deleter)
	}
	confine := cfg.ConfineToRoot == nil || *cfg.ConfineToRoot
	cleaner.SetValidator(safety.NewValidator(root, confine, cfg.ProtectedPaths))
	if db != nil {
		cleaner.SetRecorder(db)
	}

	opts := cleanup.Options{
		Root:       root,
		Excludes:   append(append([]string(nil), plan.Excludes...), cfg.Excludes...),
		DryRun:     plan.DryRun,
		SkipHidden: cfg.SkipHidden == nil || *cfg.SkipHidden,
		RunID:      summary.RunID,
	}
	if plan.DryRun {
		opts.Simulated = make(map[string]struct{})
	}

	logger.Printf("[INFO] run started run_id=%s root=%s targets=%d dry_run=%t", summary.RunID, root, len(summary.Targets), plan.DryRun)
	printer.Start(root)

	var errs []error
	for _, raw := range summary.Targets {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		p := pattern.Classify(raw)
		res, err := cleaner.Execute(ctx, p, opts)
		summary.Result.Add(res)
		if err != nil {
			errs = append(errs, fmt.Errorf("target %q: %w", raw, err))
			if !cfg.ContinueOnError {
				break
			}
		}
	}

	summary.Duration = time.Since(start)
	metrics.RecordRun(start, plan.DryRun)
	if usage, err := disk.GetUsage(root); err == nil {
		metrics.RecordRootUsage(usage.FreeBytes, usage.UsedPercent)
	} else {
		logger.Printf("[ERROR] failed to read disk usage for %s: %v", root, err)
	}
	if cfg.Metrics.TextfilePath != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			logger.Printf("[ERROR] %v", err)
		}
	}

	if db != nil && cfg.History.RetentionDays > 0 {
		pruned, err := db.DeleteOldRecords(cfg.History.RetentionDays)
		if err != nil {
			logger.Printf("[ERROR] failed to prune history: %v", err)
		} else if pruned > 0 {
			logger.Printf("[INFO] pruned %d history records older than %d days", pruned, cfg.History.RetentionDays)
		}
	}

	r := summary.Result
	logger.Printf("[INFO] run complete run_id=%s deleted=%d simulated=%d excluded=%d visited=%d freed=%d bytes duration=%.3fs",
		summary.RunID, r.Deleted, r.Simulated, r.Excluded, r.Visited, r.BytesFreed, summary.Duration.Seconds())

	return summary, errors.Join(errs...)
}
