package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Iron-Ham/quorum/internal/errors"
)

func TestAcquireLockExcludesSecondHolder(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	lock, err := fs.AcquireLock("sess-1", nil)
	if err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}
	defer lock.Release()

	if lock.PID != os.Getpid() {
		t.Errorf("lock.PID = %d, want %d", lock.PID, os.Getpid())
	}

	_, err = fs.AcquireLock("sess-1", nil)
	if !errors.Is(err, errors.ErrSessionLocked) {
		t.Errorf("second AcquireLock() error = %v, want ErrSessionLocked", err)
	}

	// A different session is unaffected
	other, err := fs.AcquireLock("sess-2", nil)
	if err != nil {
		t.Fatalf("AcquireLock(sess-2) error = %v", err)
	}
	_ = other.Release()
}

func TestReleaseAllowsReacquire(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	lock, err := fs.AcquireLock("sess-1", nil)
	if err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	// Double release is a no-op
	if err := lock.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}

	again, err := fs.AcquireLock("sess-1", nil)
	if err != nil {
		t.Fatalf("re-AcquireLock() error = %v", err)
	}
	_ = again.Release()
}

func TestAcquireLockCleansStaleLock(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	// Plant a lock file from a process that cannot be alive.
	dir := fs.SessionDir("sess-1")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	stale := Lock{SessionID: "sess-1", PID: -1, Hostname: "ghost", StartedAt: time.Now().Add(-time.Hour)}
	data, _ := json.Marshal(stale)
	if err := os.WriteFile(filepath.Join(dir, lockFileName), data, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	lock, err := fs.AcquireLock("sess-1", nil)
	if err != nil {
		t.Fatalf("AcquireLock() over stale lock error = %v", err)
	}
	defer lock.Release()

	if lock.PID != os.Getpid() {
		t.Errorf("lock.PID = %d, want current process", lock.PID)
	}
}

func TestReleaseLeavesForeignLock(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	lock, err := fs.AcquireLock("sess-1", nil)
	if err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}

	// Simulate takeover: rewrite the lock file with a different PID.
	foreign := Lock{SessionID: "sess-1", PID: os.Getpid() + 1, Hostname: "other"}
	data, _ := json.Marshal(foreign)
	if err := os.WriteFile(lock.lockFile, data, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(lock.lockFile); err != nil {
		t.Errorf("foreign lock file was removed: %v", err)
	}
}
