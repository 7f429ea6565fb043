package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tsclean/internal/config"
	"tsclean/internal/exitcodes"
	"tsclean/internal/logging"
	"tsclean/internal/runner"
	"tsclean/internal/safety"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// UsageError marks a failure caused by the command line or the config file
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

// ExitCode maps an error returned by the root command to the process exit code
func ExitCode(err error) int {
	var usage *UsageError
	switch {
	case err == nil:
		return exitcodes.Success
	case errors.As(err, &usage):
		return exitcodes.InvalidConfig
	case safety.IsViolation(err):
		return exitcodes.SafetyViolation
	default:
		return exitcodes.RuntimeError
	}
}

type rootOptions struct {
	excludes         []string
	dryRun           bool
	installed        bool
	recommend        bool
	root             string
	configPath       string
	includeHidden    bool
	continueOnError  bool
	historyDB        string
	metricsFile      string
	noColor          bool
	verbose          bool
	allowOutsideRoot bool
}

// NewRootCommand creates and returns the root cobra command for tsclean
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "tsclean [flags] [targets...]",
		Short: "Clean build output and installed dependencies from a workspace",
		Long: `tsclean cleans up a TypeScript workspace without duplicating clean scripts
across every package. It has built-in defaults for files and directories produced
by each build, and it can remove the node_modules folders of a yarn workspace.
Additional files or directories can be given on the command line.

Recommended defaults (--recommend):
   *.tsbuildinfo  lib  dist  yarn-error.log  bin

Targets:
tsclean supports a nested directory syntax to clean a file or directory in every
directory below a starting point. For example, to clean up node_modules in a yarn
workspace:
   tsclean "${workspaceName}/**/node_modules"
Files can be matched by extension, for instance log files:
   tsclean "*.log"
A wildcard can also be used after a nested directory:
   tsclean "${workspaceName}/**/*.log"

Use --dry-run to list what would be deleted without deleting anything.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, args, opts)
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	f := cmd.Flags()
	f.StringArrayVarP(&opts.excludes, "exclude", "e", nil, "Skip nested matches whose path ends with this suffix (repeatable)")
	f.BoolVar(&opts.dryRun, "dry-run", false, "Report what would be deleted without deleting anything")
	f.BoolVarP(&opts.installed, "installed", "i", false, "Clean installed dependencies (node_modules)")
	f.BoolVarP(&opts.recommend, "recommend", "r", false, "Clean the recommended build outputs")
	f.StringVar(&opts.root, "root", "", "Directory to clean (default: current directory)")
	f.StringVar(&opts.configPath, "config", "", "Config file (default: <root>/"+config.FileName+" when present)")
	f.BoolVar(&opts.includeHidden, "include-hidden", false, "Descend into hidden directories for nested targets")
	f.BoolVar(&opts.continueOnError, "continue-on-error", false, "Keep going after a target fails")
	f.StringVar(&opts.historyDB, "history-db", "", "Record every deletion in this SQLite database")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the run")
	f.BoolVar(&opts.noColor, "no-color", false, "Disable coloured output")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Log diagnostics to stderr")
	f.BoolVar(&opts.allowOutsideRoot, "allow-outside-root", false, "Allow absolute targets outside the root")

	return cmd
}

func runRoot(cmd *cobra.Command, args []string, opts *rootOptions) error {
	if len(args) == 0 && !opts.installed && !opts.recommend {
		return cmd.Help()
	}

	root := opts.root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		root = wd
	}

	cfg, err := loadConfig(root, opts.configPath)
	if err != nil {
		return &UsageError{Err: err}
	}
	applyFlags(cfg, cmd, opts)

	logger, logCloser := logging.New(cfg.Logging, opts.verbose)
	defer func() {
		if err := logCloser.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "failed to close log file: %v\n", err)
		}
	}()

	plan := runner.Plan{
		Root:      root,
		Targets:   args,
		Recommend: opts.recommend,
		Installed: opts.installed,
		Excludes:  opts.excludes,
		DryRun:    opts.dryRun,
		Config:    cfg,
	}
	deps := runner.Deps{
		Logger:  logger,
		Out:     cmd.OutOrStdout(),
		NoColor: opts.noColor,
	}

	_, err = runner.Run(cmd.Context(), plan, deps)
	return err
}

func loadConfig(root, path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadOptional(root)
}

// applyFlags lets explicit flags win over the config file
func applyFlags(cfg *config.Config, cmd *cobra.Command, opts *rootOptions) {
	f := cmd.Flags()
	if f.Changed("include-hidden") {
		skip := !opts.includeHidden
		cfg.SkipHidden = &skip
	}
	if f.Changed("continue-on-error") {
		cfg.ContinueOnError = opts.continueOnError
	}
	if f.Changed("allow-outside-root") {
		confine := !opts.allowOutsideRoot
		cfg.ConfineToRoot = &confine
	}
	if opts.historyDB != "" {
		cfg.History.DatabasePath = opts.historyDB
	}
	if opts.metricsFile != "" {
		cfg.Metrics.TextfilePath = opts.metricsFile
	}
}
