package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Iron-Ham/quorum/internal/errors"
	"github.com/Iron-Ham/quorum/internal/logging"
)

// lockFileName is the name of the lock file within a session directory.
const lockFileName = "session.lock"

// Lock is an acquired exclusive hold on one session directory. It keeps
// a second quorum process from mutating the same session mid-run.
type Lock struct {
	SessionID string    `json:"session_id"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`

	// Internal fields (not serialized)
	lockFile string
	logger   *logging.Logger
}

// AcquireLock attempts to take an exclusive lock on the session's
// directory. It returns ErrSessionLocked when another live process holds
// the lock; a lock left behind by a dead process is cleaned up and
// re-acquired. The logger may be nil.
func (fs *FileStore) AcquireLock(id string, logger *logging.Logger) (*Lock, error) {
	dir := fs.SessionDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	lockPath := filepath.Join(dir, lockFileName)

	// Check for existing lock
	if existing, err := readLock(lockPath); err == nil {
		if isProcessAlive(existing.PID) {
			if logger != nil {
				logger.Warn("session locked",
					"session_id", id,
					"holder_pid", existing.PID,
					"holder_host", existing.Hostname,
				)
			}
			return nil, fmt.Errorf("%w: PID %d on %s", errors.ErrSessionLocked, existing.PID, existing.Hostname)
		}
		// Stale lock from a dead process
		if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lock: %w", err)
		}
		if logger != nil {
			logger.Warn("stale lock cleaned", "session_id", id, "old_pid", existing.PID)
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	lock := &Lock{
		SessionID: id,
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartedAt: time.Now(),
		lockFile:  lockPath,
		logger:    logger,
	}

	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lock: %w", err)
	}

	// O_EXCL fails if the file already exists, closing the window between
	// the staleness check and creation.
	f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			if existing, readErr := readLock(lockPath); readErr == nil {
				return nil, fmt.Errorf("%w: PID %d on %s", errors.ErrSessionLocked, existing.PID, existing.Hostname)
			}
			return nil, errors.ErrSessionLocked
		}
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		os.Remove(lockPath)
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}

	if logger != nil {
		logger.Info("session lock acquired", "session_id", id, "pid", lock.PID)
	}
	return lock, nil
}

// Release removes the lock file. Safe to call multiple times; a lock
// file taken over by another process is left alone.
func (l *Lock) Release() error {
	if l == nil || l.lockFile == "" {
		return nil
	}

	existing, err := readLock(l.lockFile)
	if err != nil {
		// Lock file already gone
		return nil
	}
	if existing.PID != l.PID {
		// Not our lock anymore
		return nil
	}

	if err := os.Remove(l.lockFile); err != nil {
		return err
	}
	if l.logger != nil {
		l.logger.Info("session lock released", "session_id", l.SessionID)
	}
	return nil
}

func readLock(lockPath string) (*Lock, error) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return nil, err
	}
	var lock Lock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("failed to parse lock file: %w", err)
	}
	lock.lockFile = lockPath
	return &lock, nil
}

// isProcessAlive reports whether a PID refers to a running process.
// Signal 0 performs the existence check without delivering anything.
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return err == syscall.EPERM
}
