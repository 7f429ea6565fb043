package safety

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidPath    = errors.New("invalid path")
	ErrRootTarget     = errors.New("refusing to delete the cleanup root")
	ErrProtectedPath  = errors.New("protected path")
	ErrOutsideAllowed = errors.New("outside cleanup root")
	ErrSymlinkEscape  = errors.New("symlink escape detected")
)

// Validator enforces the safety contract for every delete the engine issues
type Validator struct {
	Root           string
	ConfineToRoot  bool
	ProtectedPaths []string
}

// NewValidator creates a validator for root. When confine is set, nothing
// outside root may be deleted.
func NewValidator(root string, confine bool, extraProtected []string) *Validator {
	normalized, err := NormalizePath(root)
	if err != nil {
		normalized = filepath.Clean(root)
	}
	return &Validator{
		Root:           normalized,
		ConfineToRoot:  confine,
		ProtectedPaths: defaultProtected(extraProtected),
	}
}

// ValidateDeleteTarget is the single-source-of-truth for delete authorization
// Returns typed error on safety violation
func (v *Validator) ValidateDeleteTarget(path string) error {
	// 1. Normalize path to absolute, cleaned form
	p, err := NormalizePath(path)
	if err != nil {
		return err
	}

	// 2. Never the root itself
	if p == v.Root {
		return ErrRootTarget
	}

	// 3. Block protected paths (system-critical)
	if IsProtectedPath(p, v.ProtectedPaths) {
		return ErrProtectedPath
	}

	// 4. Ensure within the cleanup root
	if v.ConfineToRoot && !hasPathPrefix(p, v.Root) {
		return ErrOutsideAllowed
	}

	// 5. Detect a parent directory that resolves outside the root
	if !v.ConfineToRoot {
		return nil
	}
	escaped, err := DetectSymlinkEscape(p, v.Root)
	if err != nil {
		// Nothing left to delete; the forced remove is a no-op anyway
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if escaped {
		return ErrSymlinkEscape
	}

	return nil
}

// NormalizePath converts path to absolute, cleaned form
func NormalizePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrInvalidPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", ErrInvalidPath
	}
	return filepath.Clean(abs), nil
}

// IsWithinRoot checks if path is root or below it
func IsWithinRoot(path, root string) bool {
	return hasPathPrefix(path, root)
}

// DetectSymlinkEscape resolves the parent directory of cleanAbs and reports
// whether it lands outside root. The entry itself is not followed: removing a
// symlink removes the link, not its target.
func DetectSymlinkEscape(cleanAbs string, root string) (bool, error) {
	resolvedParent, err := filepath.EvalSymlinks(filepath.Dir(cleanAbs))
	if err != nil {
		return false, err
	}
	resolvedRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return false, err
	}
	return !hasPathPrefix(resolvedParent, resolvedRoot), nil
}

// IsProtectedPath reports whether path is exactly one of the protected
// locations. Children of a protected directory are not protected, so a
// workspace under /usr/local/src stays cleanable.
func IsProtectedPath(path string, protected []string) bool {
	p := filepath.Clean(path)

	// Hard block: "/" exact
	if p == string(os.PathSeparator) {
		return true
	}

	for _, prot := range protected {
		if prot == "" {
			continue
		}
		if p == filepath.Clean(prot) {
			return true
		}
	}
	return false
}

// hasPathPrefix checks if path has the given prefix
func hasPathPrefix(path, prefix string) bool {
	path = filepath.Clean(path)
	prefix = filepath.Clean(prefix)

	if prefix == string(os.PathSeparator) {
		return filepath.IsAbs(path)
	}
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+string(os.PathSeparator))
}

// defaultProtected returns the base set of protected paths plus any extras
func defaultProtected(extra []string) []string {
	base := []string{
		"/",
		"/etc",
		"/bin",
		"/usr",
		"/usr/local",
		"/boot",
		"/lib",
		"/lib64",
		"/sbin",
		"/var",
		"/home",
		"/tmp",
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		base = append(base, home)
	}
	return append(base, extra...)
}

// IsViolation reports whether err was produced by a refused delete
func IsViolation(err error) bool {
	for _, sentinel := range []error{ErrInvalidPath, ErrRootTarget, ErrProtectedPath, ErrOutsideAllowed, ErrSymlinkEscape} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
