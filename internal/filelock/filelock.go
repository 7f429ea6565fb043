// Package filelock keeps two tsclean runs from working on the same root at once.
package filelock

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the lock for a root
var ErrLocked = errors.New("another tsclean run holds the lock for this root")

// Lock is a held, non-blocking advisory lock
type Lock struct {
	fl *flock.Flock
}

// PathFor returns the lock file used for root. It lives in the OS temp
// directory so a run never writes into the tree it is cleaning.
func PathFor(root string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(root)))
	return filepath.Join(os.TempDir(), "tsclean-"+hex.EncodeToString(sum[:8])+".lock")
}

// Acquire takes the lock for root without waiting
func Acquire(root string) (*Lock, error) {
	return AcquireAt(PathFor(root))
}

// AcquireAt takes the lock stored at path without waiting
func AcquireAt(path string) (*Lock, error) {
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (%s)", ErrLocked, path)
	}
	return &Lock{fl: fl}, nil
}

// Path returns the lock file path
func (l *Lock) Path() string {
	return l.fl.Path()
}

// Release unlocks. The lock file itself is left in place.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}
