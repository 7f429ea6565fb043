package integration

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tsclean/internal/cleanup"
	"tsclean/internal/metrics"
	"tsclean/internal/pattern"
	"tsclean/internal/runner"
	"tsclean/internal/safety"
)

func init() {
	// Initialize metrics once for all integration tests
	metrics.Init()
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func mustExist(t *testing.T, path string) {
	t.Helper()
	_, err := os.Lstat(path)
	assert.NoError(t, err, "expected %s to exist", path)
}

func mustBeGone(t *testing.T, path string) {
	t.Helper()
	_, err := os.Lstat(path)
	assert.True(t, os.IsNotExist(err), "expected %s to be deleted, got err=%v", path, err)
}

// TestCleanupSafetyIntegration verifies the safety contract against a real
// workspace that contains symlinks leading out of the root
func TestCleanupSafetyIntegration(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "workspace")
	outside := filepath.Join(base, "outside")

	mustWrite(t, filepath.Join(root, "pkg", "a", "debug.log"), "junk")
	mustWrite(t, filepath.Join(root, "pkg", "a", "node_modules", "dep", "index.js"), "junk")
	mustWrite(t, filepath.Join(root, "pkg", "b", "node_modules", "x.js"), "junk")
	mustWrite(t, filepath.Join(outside, "keep.log"), "MUST KEEP")
	mustWrite(t, filepath.Join(outside, "node_modules", "keep.js"), "MUST KEEP")

	// A directory symlink inside the tree pointing outside of it
	linkDir := filepath.Join(root, "pkg", "linked")
	require.NoError(t, os.Symlink(outside, linkDir))

	cleaner := cleanup.NewCleaner(log.New(io.Discard, "", 0), nil)
	ctx := context.Background()

	t.Run("DryRun_NoFilesystemChanges", func(t *testing.T) {
		for _, raw := range []string{"**/*.log", "**/node_modules"} {
			res, err := cleaner.Execute(ctx, pattern.Classify(raw), cleanup.Options{Root: root, DryRun: true, SkipHidden: true})
			require.NoError(t, err, "dry run of %s", raw)
			assert.Zero(t, res.Deleted, "dry run of %s deleted entries", raw)
		}
		mustExist(t, filepath.Join(root, "pkg", "a", "debug.log"))
		mustExist(t, filepath.Join(root, "pkg", "a", "node_modules"))
	})

	t.Run("NestedWalkDoesNotFollowSymlinks", func(t *testing.T) {
		for _, raw := range []string{"**/*.log", "**/node_modules"} {
			_, err := cleaner.Execute(ctx, pattern.Classify(raw), cleanup.Options{Root: root, SkipHidden: true})
			require.NoError(t, err, "run of %s", raw)
		}
		mustBeGone(t, filepath.Join(root, "pkg", "a", "debug.log"))
		mustBeGone(t, filepath.Join(root, "pkg", "a", "node_modules"))
		mustBeGone(t, filepath.Join(root, "pkg", "b", "node_modules"))
		mustExist(t, filepath.Join(outside, "keep.log"))
		mustExist(t, filepath.Join(outside, "node_modules", "keep.js"))
	})

	t.Run("SymlinkParentEscapeBlocked", func(t *testing.T) {
		_, err := cleaner.Execute(ctx, pattern.Classify("pkg/linked/keep.log"), cleanup.Options{Root: root})
		require.ErrorIs(t, err, safety.ErrSymlinkEscape)
		mustExist(t, filepath.Join(outside, "keep.log"))
	})

	t.Run("LiteralSymlinkRemovesLinkOnly", func(t *testing.T) {
		_, err := cleaner.Execute(ctx, pattern.Classify("pkg/linked"), cleanup.Options{Root: root})
		require.NoError(t, err)
		mustBeGone(t, linkDir)
		mustExist(t, filepath.Join(outside, "keep.log"))
	})

	t.Run("RootAndOutsideRefused", func(t *testing.T) {
		_, err := cleaner.Execute(ctx, pattern.Classify("."), cleanup.Options{Root: root})
		assert.ErrorIs(t, err, safety.ErrRootTarget)
		_, err = cleaner.Execute(ctx, pattern.Classify("../outside"), cleanup.Options{Root: root})
		assert.ErrorIs(t, err, safety.ErrOutsideAllowed)
		mustExist(t, outside)
	})
}

// TestCleanupMetrics verifies engine counters move with a real run
func TestCleanupMetrics(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "a", "bin", "tool"), "12345")
	mustWrite(t, filepath.Join(root, "b", "bin", "tool"), "12345")

	deletedBefore := testutil.ToFloat64(metrics.EntriesDeletedTotal.WithLabelValues("nested"))
	bytesBefore := testutil.ToFloat64(metrics.BytesFreedTotal)
	visitedBefore := testutil.ToFloat64(metrics.DirectoriesVisitedTotal)

	plan := runner.Plan{Root: root, Targets: []string{"**/bin"}}
	deps := runner.Deps{Logger: log.New(io.Discard, "", 0), Out: io.Discard}
	summary, err := runner.Run(context.Background(), plan, deps)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Result.Deleted)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.EntriesDeletedTotal.WithLabelValues("nested"))-deletedBefore)
	assert.Equal(t, 10.0, testutil.ToFloat64(metrics.BytesFreedTotal)-bytesBefore)
	// a and b are visited; their bin directories are deleted before the descent
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.DirectoriesVisitedTotal)-visitedBefore)
	assert.NotZero(t, testutil.ToFloat64(metrics.LastRunTimestamp))
}
