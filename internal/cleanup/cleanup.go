package cleanup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"tsclean/internal/database"
	"tsclean/internal/fsops"
	"tsclean/internal/metrics"
	"tsclean/internal/pattern"
	"tsclean/internal/safety"
)

// CleanupLogger interface for structured logging in cleanup
type CleanupLogger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// cleanupStdLogger wraps standard log.Logger to implement CleanupLogger interface
type cleanupStdLogger struct {
	*log.Logger
}

func (l *cleanupStdLogger) Info(msg string, args ...interface{}) {
	l.logWithLevel("INFO", msg, args...)
}

func (l *cleanupStdLogger) Error(msg string, args ...interface{}) {
	l.logWithLevel("ERROR", msg, args...)
}

func (l *cleanupStdLogger) logWithLevel(level, msg string, args ...interface{}) {
	// Format key-value pairs
	var parts []interface{}
	parts = append(parts, fmt.Sprintf("[%s]", level), msg)
	parts = append(parts, args...)
	l.Logger.Println(parts...)
}

// Reporter receives one notice per deletion attempt
type Reporter interface {
	Deleted(path string)
	DryRun(path string)
}

type nopReporter struct{}

func (nopReporter) Deleted(string) {}
func (nopReporter) DryRun(string)  {}

// Recorder persists deletion attempts. database.DeletionDB satisfies it.
type Recorder interface {
	RecordDeletion(entry database.Entry) error
}

// Options carry everything one target invocation depends on besides the pattern
type Options struct {
	Root       string
	Excludes   []string
	DryRun     bool
	SkipHidden bool
	RunID      string

	// Simulated collects the paths a dry run reported. Sharing one map across
	// the targets of a run keeps later targets from reporting what an earlier
	// one already removes. Nil means a fresh set per call.
	Simulated map[string]struct{}
}

// Result summarises what one or more invocations did
type Result struct {
	Deleted    int
	Simulated  int
	Excluded   int
	Visited    int
	BytesFreed int64
}

// Add accumulates other into r
func (r *Result) Add(other Result) {
	r.Deleted += other.Deleted
	r.Simulated += other.Simulated
	r.Excluded += other.Excluded
	r.Visited += other.Visited
	r.BytesFreed += other.BytesFreed
}

// Cleaner matches classified targets under a root and deletes what they select
type Cleaner struct {
	logger    CleanupLogger
	reporter  Reporter
	deleter   fsops.Deleter
	validator *safety.Validator
	recorder  Recorder
}

// NewCleaner creates a Cleaner that deletes through the real filesystem.
// A nil reporter discards console notices.
func NewCleaner(logger *log.Logger, reporter Reporter) *Cleaner {
	cleanupLogger := &cleanupStdLogger{Logger: logger}
	if logger == nil {
		cleanupLogger.Logger = log.Default()
	}
	if reporter == nil {
		reporter = nopReporter{}
	}
	metrics.Init()
	return &Cleaner{
		logger:   cleanupLogger,
		reporter: reporter,
		deleter:  fsops.OSDeleter{},
	}
}

// SetDeleter replaces the deletion primitive
func (c *Cleaner) SetDeleter(d fsops.Deleter) {
	c.deleter = d
}

// SetValidator replaces the safety validator. Without one, Execute confines
// deletions to Options.Root.
func (c *Cleaner) SetValidator(v *safety.Validator) {
	c.validator = v
}

// SetRecorder enables deletion history
func (c *Cleaner) SetRecorder(r Recorder) {
	c.recorder = r
}

// Execute runs one classified target against opts.Root. Missing paths are not
// errors; the first filesystem or safety failure aborts the target.
func (c *Cleaner) Execute(ctx context.Context, p pattern.Pattern, opts Options) (Result, error) {
	root, err := safety.NormalizePath(opts.Root)
	if err != nil {
		return Result{}, fmt.Errorf("root %q: %w", opts.Root, err)
	}

	validator := c.validator
	if validator == nil {
		validator = safety.NewValidator(root, true, nil)
	}

	removed := opts.Simulated
	if removed == nil {
		removed = make(map[string]struct{})
	}

	w := &walk{
		Cleaner:   c,
		ctx:       ctx,
		opts:      opts,
		root:      root,
		excludes:  normalizeExcludes(opts.Excludes),
		validator: validator,
		pattern:   p,
		removed:   removed,
	}

	metrics.RecordTarget(p.Kind.String())

	switch p.Kind {
	case pattern.Nested:
		err = w.nested(p)
	case pattern.ExtensionWildcard:
		err = w.wildcard(root, p)
	default:
		err = w.remove(resolve(root, p.Path))
	}

	if err != nil {
		metrics.ErrorsTotal.Inc()
	}
	return w.result, err
}

// normalizeExcludes drops empty entries: every path ends with "".
func normalizeExcludes(excludes []string) []string {
	out := make([]string, 0, len(excludes))
	for _, e := range excludes {
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

// resolve joins p onto base unless p is already absolute
func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

// walk holds the state of a single Execute call
type walk struct {
	*Cleaner
	ctx       context.Context
	opts      Options
	root      string
	excludes  []string
	validator *safety.Validator
	pattern   pattern.Pattern
	result    Result

	// paths reported by a dry run; neither descended into nor reported
	// again, so the dry run lists exactly what a real run deletes
	removed map[string]struct{}
}

// wildcard deletes direct non-directory entries of base/p.Dir ending with p.Suffix
func (w *walk) wildcard(base string, p pattern.Pattern) error {
	files, err := listFiles(resolve(base, p.Dir))
	if err != nil {
		return err
	}
	for _, f := range files {
		if !p.Matches(filepath.Base(f)) {
			continue
		}
		if err := w.remove(f); err != nil {
			return err
		}
	}
	return nil
}

// nested visits every directory strictly below the start directory, depth
// first and pre-order, deleting the target's candidates in each one.
func (w *walk) nested(p pattern.Pattern) error {
	start := filepath.Join(w.root, p.StartDir)
	info, err := os.Lstat(start)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", start, err)
	}
	if !info.IsDir() {
		return nil
	}

	children, err := w.childDirs(start)
	if err != nil {
		return err
	}
	stack := pushReversed(nil, children)

	for len(stack) > 0 {
		if err := w.ctx.Err(); err != nil {
			return err
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		w.result.Visited++
		metrics.DirectoriesVisitedTotal.Inc()

		candidates, err := candidatesIn(dir, *p.Target)
		if err != nil {
			return err
		}
		for _, cand := range candidates {
			if w.excluded(cand) {
				w.result.Excluded++
				metrics.EntriesExcludedTotal.Inc()
				w.logger.Info("Excluded", "path", cand)
				w.record("EXCLUDE", cand, "", 0, "")
				continue
			}
			if err := w.remove(cand); err != nil {
				return err
			}
		}

		// snapshot after this level's deletions, before descending
		children, err := w.childDirs(dir)
		if err != nil {
			return err
		}
		stack = pushReversed(stack, children)
	}
	return nil
}

// pushReversed appends dirs so the first listed one is popped first
func pushReversed(stack, dirs []string) []string {
	for i := len(dirs) - 1; i >= 0; i-- {
		stack = append(stack, dirs[i])
	}
	return stack
}

// excluded reports whether path ends with any exclusion string
func (w *walk) excluded(path string) bool {
	for _, ex := range w.excludes {
		if strings.HasSuffix(path, ex) {
			return true
		}
	}
	return false
}

// candidatesIn lists the existing entries target selects inside dir
func candidatesIn(dir string, target pattern.Pattern) ([]string, error) {
	if target.Kind == pattern.ExtensionWildcard {
		files, err := listFiles(filepath.Join(dir, target.Dir))
		if err != nil {
			return nil, err
		}
		matched := files[:0]
		for _, f := range files {
			if target.Matches(filepath.Base(f)) {
				matched = append(matched, f)
			}
		}
		return matched, nil
	}

	cand := filepath.Join(dir, target.Path)
	if _, err := os.Lstat(cand); err != nil {
		if isMissing(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", cand, err)
	}
	return []string{cand}, nil
}

// childDirs lists the traversal nodes directly below dir. Symlinks are not
// followed, which keeps the walk a tree walk.
func (w *walk) childDirs(dir string) ([]string, error) {
	entries, err := readDir(dir)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if w.opts.SkipHidden && strings.HasPrefix(e.Name(), ".") {
			continue
		}
		full := filepath.Join(dir, e.Name())
		if _, gone := w.removed[full]; gone {
			continue
		}
		dirs = append(dirs, full)
	}
	return dirs, nil
}

// listFiles returns the direct non-directory entries of dir
func listFiles(dir string) ([]string, error) {
	entries, err := readDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// readDir treats a missing directory, or a path that is not one, as empty
func readDir(dir string) ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if isMissing(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	return entries, nil
}

func isMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

// remove is the shared deletion primitive: forced, recursive, and a no-op
// when path is already gone.
func (w *walk) remove(path string) error {
	if w.opts.DryRun && w.simulated(path) {
		return nil
	}

	info, err := os.Lstat(path)
	if err != nil {
		if isMissing(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}

	objectType := objectTypeOf(info)

	if err := w.validator.ValidateDeleteTarget(path); err != nil {
		w.logger.Error("Refusing to delete", "path", path, "error", err)
		w.record("SKIP", path, objectType, 0, err.Error())
		return fmt.Errorf("delete %s: %w", path, err)
	}

	size := entrySize(path, info)

	if w.opts.DryRun {
		w.reporter.DryRun(path)
		w.removed[path] = struct{}{}
		w.result.Simulated++
		metrics.RecordSimulated(w.pattern.Kind.String())
		w.record("DRY_RUN", path, objectType, size, "")
		return nil
	}

	if err := w.deleter.RemoveAll(path); err != nil {
		w.logger.Error("Failed to delete", "path", path, "error", err)
		w.record("ERROR", path, objectType, size, err.Error())
		return fmt.Errorf("delete %s: %w", path, err)
	}

	w.reporter.Deleted(path)
	w.result.Deleted++
	w.result.BytesFreed += size
	metrics.RecordDeletion(w.pattern.Kind.String(), size)
	w.record("DELETE", path, objectType, size, "")
	return nil
}

// simulated reports whether a dry run already removed path or one of its parents
func (w *walk) simulated(path string) bool {
	for p := path; ; {
		if _, ok := w.removed[p]; ok {
			return true
		}
		parent := filepath.Dir(p)
		if parent == p {
			return false
		}
		p = parent
	}
}

// record writes to the history database when one is configured.
// Failures are logged and never fail the cleanup.
func (w *walk) record(action, path, objectType string, size int64, errMsg string) {
	if w.recorder == nil {
		return
	}
	entry := database.Entry{
		RunID:        w.opts.RunID,
		Action:       action,
		Path:         path,
		ObjectType:   objectType,
		Size:         size,
		Pattern:      w.pattern.Raw,
		Shape:        w.pattern.Kind.String(),
		Root:         w.root,
		ErrorMessage: errMsg,
	}
	if err := w.recorder.RecordDeletion(entry); err != nil {
		w.logger.Error("Failed to record to database", "path", path, "error", err)
	}
}

func objectTypeOf(info fs.FileInfo) string {
	switch {
	case info.IsDir():
		return "directory"
	case info.Mode()&fs.ModeSymlink != 0:
		return "symlink"
	default:
		return "file"
	}
}

// entrySize sums regular file sizes below a directory; unreadable parts count as zero
func entrySize(path string, info fs.FileInfo) int64 {
	if !info.IsDir() {
		return info.Size()
	}
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if fi, err := d.Info(); err == nil {
				total += fi.Size()
			}
		}
		return nil
	})
	return total
}
