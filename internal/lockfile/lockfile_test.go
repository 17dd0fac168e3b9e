package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAcquireStateDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "state")
	l, err := AcquireStateDir(dir)
	if err != nil {
		t.Fatalf("AcquireStateDir: %v", err)
	}
	defer l.Release()

	if got, want := l.Path(), filepath.Join(dir, lockName); got != want {
		t.Fatalf("Path() = %q, want %q", got, want)
	}
	data, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatalf("read lock file: %v", err)
	}
	if !strings.HasPrefix(string(data), "pid ") {
		t.Fatalf("lock file content = %q, want pid line first", data)
	}
}

func TestAcquireConflict(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.lock")
	first, err := Acquire(path)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	defer first.Release()

	if _, err := Acquire(path); !errors.Is(err, ErrLocked) {
		t.Fatalf("second Acquire err = %v, want ErrLocked", err)
	}
}

func TestReleaseAllowsReacquire(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.lock")
	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}

	again, err := Acquire(path)
	if err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	defer again.Release()
}

func TestAcquireEmptyPath(t *testing.T) {
	t.Parallel()

	if _, err := Acquire(""); err == nil {
		t.Fatal("Acquire(\"\") succeeded, want error")
	}
	if _, err := AcquireStateDir(""); err == nil {
		t.Fatal("AcquireStateDir(\"\") succeeded, want error")
	}
}
