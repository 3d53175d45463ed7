package dedupe

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked reports that another run holds the lock.
var ErrLocked = errors.New("another run holds the lock")

// RunLock is an exclusive advisory file lock held for the duration of a run.
type RunLock struct {
	lock *flock.Flock
}

func NewRunLock(path string) (*RunLock, error) {
	if path == "" {
		return nil, fmt.Errorf("lock path is required")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create lock dir: %w", err)
		}
	}
	return &RunLock{lock: flock.New(path)}, nil
}

// TryLock acquires the lock without waiting. It returns ErrLocked when the
// lock is held elsewhere.
func (l *RunLock) TryLock() error {
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", l.lock.Path(), err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", l.lock.Path(), ErrLocked)
	}
	return nil
}

func (l *RunLock) Unlock() error {
	return l.lock.Unlock()
}
