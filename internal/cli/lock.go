package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrLocked indicates another skillctl process holds the project lock.
var ErrLocked = errors.New("another skillctl run holds the lock")

// acquireLock creates the lock file exclusively and returns its release func.
// The file holds the owner's pid to help with stale locks.
func acquireLock(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s (remove it if no other run is active)", ErrLocked, path)
		}
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}
	_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}

	return func() {
		_ = os.Remove(path)
	}, nil
}
