package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tsclean/internal/exitcodes"
	"tsclean/internal/safety"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommandHelp(t *testing.T) {
	output, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, output, "tsclean")
	assert.Contains(t, output, "/**/node_modules")
	assert.Contains(t, output, "--dry-run")
}

func TestNoTargetsPrintsHelp(t *testing.T) {
	root := t.TempDir()
	output, err := execute(t, "--root", root)
	require.NoError(t, err)
	assert.Equal(t, exitcodes.Success, ExitCode(err))
	assert.Contains(t, output, "nested directory syntax")
	assert.NotContains(t, output, "Starts to clean")
}

func TestDryRunLeavesTree(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pkg", "dist"), 0o755))

	output, err := execute(t, "--root", root, "--dry-run", "**/dist")
	require.NoError(t, err)
	assert.Contains(t, output, "Starts to clean directories and files from")
	assert.Contains(t, output, "[Dry Run] "+filepath.Join(root, "pkg", "dist")+" will been deleted without '--dry-run'")
	assert.DirExists(t, filepath.Join(root, "pkg", "dist"))
}

func TestRecommendAndExclude(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"dist", "lib", "a/node_modules", "keep/node_modules"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
	}

	output, err := execute(t, "--root", root, "-r", "-i", "-e", "keep/node_modules")
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(root, "dist"))
	assert.NoDirExists(t, filepath.Join(root, "lib"))
	assert.NoDirExists(t, filepath.Join(root, "a", "node_modules"))
	assert.DirExists(t, filepath.Join(root, "keep", "node_modules"))
	assert.Equal(t, 3, strings.Count(output, "[Delete]"))
}

func TestConfigFileIsApplied(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "out"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dist"), 0o755))
	cfg := "recommended:\n  - out\nhistory:\n  database_path: state/history.db\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ".tsclean.yaml"), []byte(cfg), 0o644))

	_, err := execute(t, "--root", root, "-r")
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(root, "out"))
	assert.DirExists(t, filepath.Join(root, "dist"))
	assert.FileExists(t, filepath.Join(root, "state", "history.db"))
}

func TestExitCodes(t *testing.T) {
	root := t.TempDir()

	t.Run("invalid config", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("unknown_key: 1\n"), 0o644))
		_, err := execute(t, "--root", root, "--config", bad, "dist")
		require.Error(t, err)
		assert.Equal(t, exitcodes.InvalidConfig, ExitCode(err))
	})

	t.Run("unknown flag", func(t *testing.T) {
		_, err := execute(t, "--nope")
		require.Error(t, err)
		assert.Equal(t, exitcodes.InvalidConfig, ExitCode(err))
	})

	t.Run("safety violation", func(t *testing.T) {
		_, err := execute(t, "--root", root, ".")
		require.Error(t, err)
		assert.Equal(t, exitcodes.SafetyViolation, ExitCode(err))
		assert.True(t, errors.Is(err, safety.ErrRootTarget))
	})

	t.Run("runtime", func(t *testing.T) {
		assert.Equal(t, exitcodes.RuntimeError, ExitCode(errors.New("disk on fire")))
		assert.Equal(t, exitcodes.Success, ExitCode(nil))
	})
}
