package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tsclean/internal/config"
	"tsclean/internal/database"
)

var errNoDatabase = errors.New("no history database: pass --db or set history.database_path in " + config.FileName)

type queryOptions struct {
	dbPath  string
	recent  int
	action  string
	path    string
	pattern string
	runID   string
	largest int
	stats   bool
	days    int
	prune   int
	vacuum  bool
	jsonOut bool
}

// NewQueryCommand creates the command behind the tsclean-query binary
func NewQueryCommand() *cobra.Command {
	opts := &queryOptions{}

	cmd := &cobra.Command{
		Use:   "tsclean-query",
		Short: "Inspect the tsclean deletion history",
		Long: `Query the SQLite history written by tsclean --history-db.

Examples:
  tsclean-query --recent 10            # 10 most recent events
  tsclean-query --stats --days 7       # statistics for the last week
  tsclean-query --action DRY_RUN       # what dry runs reported
  tsclean-query --path '%/node_modules' # deletions by path (SQL LIKE)
  tsclean-query --pattern '**/bin'     # deletions caused by one target
  tsclean-query --run <run-id>         # every event of one run
  tsclean-query --largest 10           # 10 largest deletions
  tsclean-query --prune 90             # drop records older than 90 days`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cmd, opts)
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	f := cmd.Flags()
	f.StringVar(&opts.dbPath, "db", "", "History database (default: history.database_path from "+config.FileName+")")
	f.IntVar(&opts.recent, "recent", 0, "Show N most recent events")
	f.StringVar(&opts.action, "action", "", "Filter by action (DELETE, DRY_RUN, EXCLUDE, SKIP, ERROR)")
	f.StringVar(&opts.path, "path", "", "Filter by path pattern (SQL LIKE syntax)")
	f.StringVar(&opts.pattern, "pattern", "", "Filter by target pattern as typed")
	f.StringVar(&opts.runID, "run", "", "Show every event of one run")
	f.IntVar(&opts.largest, "largest", 0, "Show N largest deletions")
	f.BoolVar(&opts.stats, "stats", false, "Show statistics")
	f.IntVar(&opts.days, "days", 30, "Number of days for statistics")
	f.IntVar(&opts.prune, "prune", 0, "Delete records older than this many days")
	f.BoolVar(&opts.vacuum, "vacuum", false, "Compact the database after pruning")
	f.BoolVar(&opts.jsonOut, "json", false, "Output in JSON format")

	return cmd
}

func runQuery(cmd *cobra.Command, opts *queryOptions) error {
	out := cmd.OutOrStdout()

	dbPath, err := resolveDBPath(opts.dbPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("open history %s: %w", dbPath, err)
	}

	db, err := database.NewDeletionDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	var records []database.DeletionRecord
	var title string

	switch {
	case opts.prune > 0:
		removed, err := db.DeleteOldRecords(opts.prune)
		if err != nil {
			return fmt.Errorf("prune: %w", err)
		}
		if opts.vacuum {
			if err := db.Vacuum(); err != nil {
				return fmt.Errorf("vacuum: %w", err)
			}
		}
		fmt.Fprintf(out, "Removed %d records older than %d days\n", removed, opts.prune)
		return nil
	case opts.stats:
		stats, err := db.GetDeletionStats(opts.days)
		if err != nil {
			return fmt.Errorf("get statistics: %w", err)
		}
		if opts.jsonOut {
			return writeJSON(out, stats)
		}
		printStats(out, stats, opts.days)
		return nil
	case opts.recent > 0:
		records, err = db.GetRecentDeletions(opts.recent)
	case opts.runID != "":
		title = "Events of run: " + opts.runID
		records, err = db.GetDeletionsByRun(opts.runID)
	case opts.pattern != "":
		title = "Deletions caused by target: " + opts.pattern
		records, err = db.GetDeletionsByPattern(opts.pattern)
	case opts.action != "":
		title = "Records with action: " + opts.action
		records, err = db.GetDeletionsByAction(opts.action)
	case opts.path != "":
		title = "Deletions matching path pattern: " + opts.path
		records, err = db.GetDeletionsByPath(opts.path)
	case opts.largest > 0:
		title = fmt.Sprintf("Largest %d deletions:", opts.largest)
		records, err = db.GetLargestDeletions(opts.largest)
	default:
		if err := cmd.Help(); err != nil {
			return err
		}
		return &UsageError{Err: errors.New("no query given")}
	}
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}

	if opts.jsonOut {
		return writeJSON(out, records)
	}
	if title != "" {
		fmt.Fprintf(out, "%s\n\n", title)
	}
	printRecords(out, records)
	return nil
}

func resolveDBPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	cfg, err := config.LoadOptional(wd)
	if err != nil {
		return "", &UsageError{Err: err}
	}
	if cfg.History.DatabasePath == "" {
		return "", &UsageError{Err: errNoDatabase}
	}
	return cfg.History.DatabasePath, nil
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printStats(out io.Writer, stats *database.DeletionStats, days int) {
	fmt.Fprintf(out, "Deletion Statistics (Last %d days)\n", days)
	fmt.Fprintf(out, "Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Fprintf(out, "Runs:             %d\n", stats.Runs)
	fmt.Fprintf(out, "Total Deletions:  %d\n", stats.TotalDeletions)
	fmt.Fprintf(out, "Total Dry Runs:   %d\n", stats.TotalDryRuns)
	fmt.Fprintf(out, "Total Excluded:   %d\n", stats.TotalExcluded)
	fmt.Fprintf(out, "Total Errors:     %d\n", stats.TotalErrors)
	fmt.Fprintf(out, "Space Freed:      %s\n\n", formatBytes(stats.TotalSpaceFreed))

	printCounts(out, "By Shape:", stats.ByShape)
	printCounts(out, "By Action:", stats.ByAction)
}

func printCounts(out io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintln(out, title)
	for _, k := range keys {
		fmt.Fprintf(out, "  %-20s %d\n", k, counts[k])
	}
	fmt.Fprintln(out)
}

func printRecords(out io.Writer, records []database.DeletionRecord) {
	if len(records) == 0 {
		fmt.Fprintln(out, "No records found")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTimestamp\tAction\tTarget\tSize\tPath")
	_, _ = fmt.Fprintln(w, "--\t---------\t------\t------\t----\t----")

	for _, r := range records {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Timestamp.Format("2006-01-02 15:04:05"), r.Action, r.Pattern, formatBytes(r.Size), r.Path)
	}
	_ = w.Flush()
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
