package safety

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestProtectedPathBlocking verifies protected paths are blocked exactly, not by subtree
func TestProtectedPathBlocking(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"root slash", "/", true},
		{"etc", "/etc", true},
		{"etc trailing slash", "/etc/", true},
		{"bin", "/bin", true},
		{"usr", "/usr", true},
		{"usr local", "/usr/local", true},
		{"boot", "/boot", true},
		{"lib64", "/lib64", true},
		{"tmp", "/tmp", true},
		{"workspace under usr local", "/usr/local/src/app/dist", false},
		{"tmp file", "/tmp/file.txt", false},
		{"home user project", "/home/user/project/node_modules", false},
	}

	protected := defaultProtected(nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsProtectedPath(tt.path, protected))
		})
	}
}

func TestExtraProtectedPaths(t *testing.T) {
	protected := defaultProtected([]string{"/srv/keep"})
	assert.True(t, IsProtectedPath("/srv/keep", protected), "extra protected path should be blocked")
	assert.False(t, IsProtectedPath("/srv/keep/tmp", protected), "child of extra protected path should not be blocked")
}

// TestWithinRoot verifies paths are restricted to the cleanup root
func TestWithinRoot(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"inside", "/ws/app/dist", true},
		{"root exact", "/ws/app", true},
		{"sibling", "/ws/other/dist", false},
		{"prefix lookalike", "/ws/application", false},
		{"parent", "/ws", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsWithinRoot(tt.path, "/ws/app"))
		})
	}
}

// TestPathNormalization verifies paths are normalized correctly
func TestPathNormalization(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		expectError bool
	}{
		{"absolute path", "/tmp/file.txt", false},
		{"relative path", "file.txt", false},
		{"path with dots", "/tmp/./file.txt", false},
		{"empty path", "", true},
		{"whitespace only", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NormalizePath(tt.path)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, filepath.IsAbs(result), "expected absolute path, got %s", result)
		})
	}
}

// TestSymlinkEscapeDetection verifies a symlinked parent leaving the root is caught
func TestSymlinkEscapeDetection(t *testing.T) {
	tmpDir := t.TempDir()
	root := filepath.Join(tmpDir, "ws")
	outside := filepath.Join(tmpDir, "outside")
	for _, d := range []string{filepath.Join(root, "pkg"), outside} {
		require.NoError(t, os.MkdirAll(d, 0755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(outside, "keep.txt"), []byte("keep"), 0644))
	link := filepath.Join(root, "link")
	require.NoError(t, os.Symlink(outside, link))

	escaped, err := DetectSymlinkEscape(filepath.Join(link, "keep.txt"), root)
	require.NoError(t, err)
	assert.True(t, escaped, "path below an escaping symlink should be flagged")

	// the link itself lives in the root; removing it only removes the link
	escaped, err = DetectSymlinkEscape(link, root)
	require.NoError(t, err)
	assert.False(t, escaped, "symlink entry inside root should not be flagged")
}

// TestValidateDeleteTarget is the integration test for the full safety contract
func TestValidateDeleteTarget(t *testing.T) {
	tmpDir := t.TempDir()
	root := filepath.Join(tmpDir, "ws")
	outside := filepath.Join(tmpDir, "outside")
	for _, d := range []string{filepath.Join(root, "dist"), outside} {
		require.NoError(t, os.MkdirAll(d, 0755))
	}
	outsideFile := filepath.Join(outside, "keep_me.txt")
	require.NoError(t, os.WriteFile(outsideFile, []byte("keep"), 0644))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))

	validator := NewValidator(root, true, nil)

	tests := []struct {
		name        string
		path        string
		expectError error
	}{
		{"inside root", filepath.Join(root, "dist"), nil},
		{"missing inside root", filepath.Join(root, "lib"), nil},
		{"root itself", root, ErrRootTarget},
		{"outside root", outsideFile, ErrOutsideAllowed},
		{"dotdot out of root", filepath.Join(root, "..", "outside"), ErrOutsideAllowed},
		{"protected /etc", "/etc", ErrProtectedPath},
		{"protected root", "/", ErrProtectedPath},
		{"through escaping symlink", filepath.Join(root, "escape", "keep_me.txt"), ErrSymlinkEscape},
		{"empty path", "", ErrInvalidPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateDeleteTarget(tt.path)
			if tt.expectError == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.expectError)
		})
	}
}

func TestUnconfinedValidatorAllowsOutside(t *testing.T) {
	tmpDir := t.TempDir()
	validator := NewValidator(filepath.Join(tmpDir, "ws"), false, nil)

	assert.NoError(t, validator.ValidateDeleteTarget(filepath.Join(tmpDir, "elsewhere", "dist")))
	assert.ErrorIs(t, validator.ValidateDeleteTarget("/etc"), ErrProtectedPath, "protected paths stay blocked when unconfined")
}

// TestHasPathPrefix verifies the path prefix checking logic
func TestHasPathPrefix(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		prefix   string
		expected bool
	}{
		{"exact match", "/tmp/allowed", "/tmp/allowed", true},
		{"subdirectory", "/tmp/allowed/sub", "/tmp/allowed", true},
		{"not a prefix", "/tmp/other", "/tmp/allowed", false},
		{"partial match", "/tmp/allowedother", "/tmp/allowed", false},
		{"root prefix", "/tmp", "/", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, hasPathPrefix(tt.path, tt.prefix))
		})
	}
}

func TestIsViolation(t *testing.T) {
	for _, err := range []error{ErrInvalidPath, ErrRootTarget, ErrProtectedPath, ErrOutsideAllowed, ErrSymlinkEscape} {
		wrapped := fmt.Errorf("target %q: %w", "x", fmt.Errorf("delete /x: %w", err))
		assert.True(t, IsViolation(wrapped), "expected %v to be a violation", wrapped)
	}
	assert.False(t, IsViolation(errors.New("permission denied")))
	assert.False(t, IsViolation(nil))
}
