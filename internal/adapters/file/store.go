package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/Vijaya2621/Chatbot-using-API/pkg/domain"
)

const (
	sessionsDir = "sessions"
	vectorsDir  = "vectors"
	indexFile   = "index.json"
	tmpPrefix   = "tmp-"
)

// Store implements ports.SessionStore using the local filesystem.
// Records live in <BasePath>/sessions/<id>.json and document indexes in
// <BasePath>/vectors/<id>/index.json.
type Store struct {
	BasePath string

	now func() time.Time
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".chatbot".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = ".chatbot"
	}
	return &Store{BasePath: basePath, now: time.Now}
}

func (s *Store) recordPath(sessionID string) string {
	return filepath.Join(s.BasePath, sessionsDir, sessionID+".json")
}

func (s *Store) vectorDir(sessionID string) string {
	return filepath.Join(s.BasePath, vectorsDir, sessionID)
}

// Save persists the session record, and its document index, atomically.
// The index is written first, and only when it differs from the stored one.
func (s *Store) Save(ctx context.Context, sessionID string, session *domain.Session) error {
	if err := domain.ValidateSessionID(sessionID); err != nil {
		return domain.NewStorageError(domain.StorageWrite, sessionID, err)
	}
	if session == nil {
		return domain.NewStorageError(domain.StorageWrite, sessionID, errors.New("nil session"))
	}

	if err := s.saveIndex(sessionID, session.DocumentIndex); err != nil {
		return domain.NewStorageError(domain.StorageWrite, sessionID, err)
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return domain.NewStorageError(domain.StorageWrite, sessionID, fmt.Errorf("failed to marshal session: %w", err))
	}
	if err := writeAtomic(s.recordPath(sessionID), data); err != nil {
		return domain.NewStorageError(domain.StorageWrite, sessionID, err)
	}
	return nil
}

func (s *Store) saveIndex(sessionID string, index *domain.DocumentIndex) error {
	dir := s.vectorDir(sessionID)
	if index == nil {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove document index: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal document index: %w", err)
	}
	path := filepath.Join(dir, indexFile)
	// Appends leave the index as it is; only a changed index is rewritten.
	if current, err := os.ReadFile(path); err == nil && bytes.Equal(current, data) {
		return nil
	}
	return writeAtomic(path, data)
}

// writeAtomic writes data to a temporary file next to destPath, syncs it via fsync,
// and renames it over the destination.
func writeAtomic(destPath string, data []byte) error {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure directory: %w", err)
	}

	// Same directory, so the rename stays on one filesystem.
	base := strings.TrimSuffix(filepath.Base(destPath), filepath.Ext(destPath))
	tmpFile, err := os.CreateTemp(dir, tmpPrefix+base+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op after a successful rename
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Cannot rename an open file on Windows.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		// Windows refuses to rename over an existing file.
		if _, statErr := os.Stat(destPath); statErr == nil && runtime.GOOS == "windows" {
			if err := os.Remove(destPath); err != nil {
				return fmt.Errorf("failed to remove existing file for overwrite: %w", err)
			}
			if err := os.Rename(tmpPath, destPath); err != nil {
				return fmt.Errorf("failed to rename temp file: %w", err)
			}
			return nil
		}
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Load retrieves the session record and its document index.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	if err := domain.ValidateSessionID(sessionID); err != nil {
		return nil, domain.NewStorageError(domain.StorageRead, sessionID, err)
	}

	data, err := os.ReadFile(s.recordPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, domain.NewStorageError(domain.StorageRead, sessionID, fmt.Errorf("failed to read session file: %w", err))
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, domain.NewStorageError(domain.StorageRead, sessionID, fmt.Errorf("failed to unmarshal session: %w", err))
	}
	if session.ChatHistory == nil {
		session.ChatHistory = []domain.Message{}
	}

	index, err := s.loadIndex(sessionID)
	if err != nil {
		return nil, domain.NewStorageError(domain.StorageRead, sessionID, err)
	}
	session.DocumentIndex = index
	return &session, nil
}

func (s *Store) loadIndex(sessionID string) (*domain.DocumentIndex, error) {
	data, err := os.ReadFile(filepath.Join(s.vectorDir(sessionID), indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read document index: %w", err)
	}
	var index domain.DocumentIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document index: %w", err)
	}
	return &index, nil
}

// Delete removes the session file and its document index directory.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := domain.ValidateSessionID(sessionID); err != nil {
		return domain.NewStorageError(domain.StorageWrite, sessionID, err)
	}

	err := os.Remove(s.recordPath(sessionID))
	if err != nil && !os.IsNotExist(err) {
		return domain.NewStorageError(domain.StorageWrite, sessionID, fmt.Errorf("failed to delete session file: %w", err))
	}
	if err := os.RemoveAll(s.vectorDir(sessionID)); err != nil {
		return domain.NewStorageError(domain.StorageWrite, sessionID, fmt.Errorf("failed to delete document index: %w", err))
	}
	return nil
}

// List returns all stored session IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.BasePath, sessionsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, domain.NewStorageError(domain.StorageRead, "", fmt.Errorf("failed to list sessions: %w", err))
	}

	sessions := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, tmpPrefix) {
			continue
		}
		sessions = append(sessions, strings.TrimSuffix(name, ".json"))
	}
	return sessions, nil
}

// Sweep removes sessions idle for maxAge or longer, plus document index
// directories that no longer have a record and were last touched before the cutoff.
func (s *Store) Sweep(ctx context.Context, maxAge time.Duration) ([]string, error) {
	cutoff := s.now().Add(-maxAge)

	ids, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var (
		removed []string
		errs    []error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		session, err := s.Load(ctx, id)
		if err != nil {
			if !errors.Is(err, domain.ErrSessionNotFound) {
				errs = append(errs, err)
			}
			continue
		}
		if session.LastActivity.After(cutoff) {
			continue
		}
		if err := s.Delete(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, id)
	}

	errs = append(errs, s.sweepOrphanIndexes(cutoff)...)
	return removed, errors.Join(errs...)
}

func (s *Store) sweepOrphanIndexes(cutoff time.Time) []error {
	entries, err := os.ReadDir(filepath.Join(s.BasePath, vectorsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return []error{domain.NewStorageError(domain.StorageRead, "", fmt.Errorf("failed to list document indexes: %w", err))}
	}

	var errs []error
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id := entry.Name()
		if _, err := os.Stat(s.recordPath(id)); err == nil {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(s.vectorDir(id)); err != nil {
			errs = append(errs, domain.NewStorageError(domain.StorageWrite, id, err))
		}
	}
	return errs
}
