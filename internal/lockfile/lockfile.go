// Package lockfile guards the app state directory with an advisory file
// lock so two instances never share the sqlite history database or the
// audit log. The lock lives and dies with the process; a stale file left
// by a crash is reacquired without ceremony.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// lockName is the lock file kept inside the state directory.
const lockName = "little-helper.lock"

// ErrLocked reports that another running instance holds the lock.
var ErrLocked = errors.New("state directory is locked by another instance")

// Lock is a held advisory lock. Release it when the process is done with
// the state directory.
type Lock struct {
	path string
	f    *os.File
}

// AcquireStateDir creates the state directory if needed and takes the
// instance lock inside it.
func AcquireStateDir(dir string) (*Lock, error) {
	if dir == "" {
		return nil, errors.New("missing state directory")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state directory %s: %w", dir, err)
	}
	return Acquire(filepath.Join(dir, lockName))
}

// Acquire opens path and takes a non-blocking exclusive lock on it.
// ErrLocked comes back when another process already holds it.
func Acquire(path string) (*Lock, error) {
	if path == "" {
		return nil, errors.New("missing lock path")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return nil, err
	}

	// The content is for humans poking at a stuck lock; correctness
	// rests on the lock itself.
	_ = f.Truncate(0)
	_, _ = f.Seek(0, 0)
	_, _ = fmt.Fprintf(f, "pid %d\nstarted %s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	_ = f.Sync()

	return &Lock{path: path, f: f}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Release drops the lock. Safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	unlockErr := unlockFile(l.f)
	closeErr := l.f.Close()
	l.f = nil
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}
