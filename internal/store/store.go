// Package store persists debate sessions to the local filesystem as
// JSON, one directory per session, with atomic writes so a crash never
// leaves a half-written session behind.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/Iron-Ham/quorum/internal/debate"
	"github.com/Iron-Ham/quorum/internal/errors"
)

const sessionFileName = "session.json"

// FileStore persists sessions under baseDir/<session-id>/session.json.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStore creates a FileStore rooted at baseDir, creating the
// directory if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// BaseDir returns the store's root directory.
func (fs *FileStore) BaseDir() string { return fs.baseDir }

// SessionDir returns the directory holding one session's files.
func (fs *FileStore) SessionDir(id string) string {
	return filepath.Join(fs.baseDir, id)
}

// Save writes the full session atomically.
func (fs *FileStore) Save(ctx context.Context, s *debate.Session) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.NewSessionError("failed to encode session", err).WithSessionID(s.ID)
	}

	dir := fs.SessionDir(s.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewSessionError("failed to create session directory", err).WithSessionID(s.ID)
	}
	if err := atomicWriteFile(filepath.Join(dir, sessionFileName), data, 0o644); err != nil {
		return errors.NewSessionError("failed to write session", err).WithSessionID(s.ID)
	}
	return nil
}

// Load reads a session by ID.
func (fs *FileStore) Load(ctx context.Context, id string) (*debate.Session, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.load(id)
}

func (fs *FileStore) load(id string) (*debate.Session, error) {
	data, err := os.ReadFile(filepath.Join(fs.SessionDir(id), sessionFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewSessionError("no such session", errors.ErrSessionNotFound).WithSessionID(id)
		}
		return nil, errors.NewSessionError("failed to read session", err).WithSessionID(id)
	}

	var s debate.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.NewSessionError("failed to decode session", errors.ErrSessionCorrupted).WithSessionID(id)
	}
	return &s, nil
}

// Delete removes a session directory and everything in it.
func (fs *FileStore) Delete(ctx context.Context, id string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir := fs.SessionDir(id)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return errors.NewSessionError("no such session", errors.ErrSessionNotFound).WithSessionID(id)
	}
	if err := os.RemoveAll(dir); err != nil {
		return errors.NewSessionError("failed to delete session", err).WithSessionID(id)
	}
	return nil
}

// Summary is a lightweight listing entry for one stored session.
type Summary struct {
	ID      string               `json:"id"`
	Name    string               `json:"name,omitempty"`
	Topic   string               `json:"topic"`
	Status  debate.SessionStatus `json:"status"`
	Rounds  int                  `json:"rounds"`
	Updated time.Time            `json:"updated"`
}

// List returns summaries of every stored session, most recently updated
// first. Unreadable entries are skipped rather than failing the listing.
func (fs *FileStore) List(ctx context.Context) ([]Summary, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	entries, err := os.ReadDir(fs.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list store directory: %w", err)
	}

	var summaries []Summary
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		s, err := fs.load(e.Name())
		if err != nil {
			continue
		}
		summaries = append(summaries, Summary{
			ID:      s.ID,
			Name:    s.Name,
			Topic:   s.Topic,
			Status:  s.Status,
			Rounds:  len(s.Rounds),
			Updated: s.Updated,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Updated.After(summaries[j].Updated)
	})
	return summaries, nil
}

// TruncateRounds prepares a stored session for resumption from round k:
// rounds k and later are discarded, aggregates are recomputed, and the
// truncated session is saved and returned. Refused while the session is
// mid-run; truncation is a pre-run operation only.
func (fs *FileStore) TruncateRounds(ctx context.Context, id string, k int) (*debate.Session, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	s, err := fs.load(id)
	if err != nil {
		return nil, err
	}
	if s.Status == debate.StatusInProgress {
		return nil, errors.NewSessionError("cannot truncate rounds mid-run", errors.ErrSessionRunning).WithSessionID(id)
	}
	if k < 0 || k > len(s.Rounds) {
		return nil, errors.NewSessionError(
			fmt.Sprintf("truncation point %d out of range [0,%d]", k, len(s.Rounds)), nil).WithSessionID(id)
	}

	s.Rounds = s.Rounds[:k]
	s.CurrentRound = k
	s.TotalTokens = 0
	for _, r := range s.Rounds {
		s.TotalTokens += r.TokenCount
	}
	s.Status = debate.StatusInitialized
	s.Updated = time.Now()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, errors.NewSessionError("failed to encode session", err).WithSessionID(id)
	}
	if err := atomicWriteFile(filepath.Join(fs.SessionDir(id), sessionFileName), data, 0o644); err != nil {
		return nil, errors.NewSessionError("failed to write session", err).WithSessionID(id)
	}
	return s, nil
}

// atomicWriteFile writes data to a temp file in the target directory and
// renames it into place.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
