package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Ext is the artifact file extension; Count and PurgeOlderThan only consider
// entries carrying it.
const Ext = ".png"

// Store persists capture artifacts on the local filesystem. Artifact names
// are unique per capture, so concurrent writes never collide and the methods
// need no locking.
type Store struct {
	dir string
	now func() time.Time // injectable for deterministic tests
}

// New creates a Store rooted at dir. The directory is created lazily on the
// first write.
func New(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Dir returns the storage directory path.
func (s *Store) Dir() string { return s.dir }

// FileName derives the on-disk name for one display capture.
// Pattern: screen_<ordinal>_<epochMs>.png, unique per (tick, display).
func FileName(ordinal int, at time.Time) string {
	return fmt.Sprintf("screen_%d_%d%s", ordinal, at.UnixMilli(), Ext)
}

// EnsureDir creates the storage directory if it is missing. Idempotent.
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("store: create dir %s: %w", s.dir, err)
	}
	return nil
}

// Write persists one artifact's encoded bytes and returns its full path.
func (s *Store) Write(name string, data []byte) (string, error) {
	if err := s.EnsureDir(); err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("store: write %s: %w", name, err)
	}
	return path, nil
}

// Delete removes an artifact. A missing file is not an error.
func (s *Store) Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: delete %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Count returns the number of stored artifacts. A read failure counts as
// zero; the value only feeds status reporting.
func (s *Store) Count() int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), Ext) {
			n++
		}
	}
	return n
}

// PurgeOlderThan deletes artifacts whose modification time is older than
// maxAge and returns how many were removed. Maintenance only, never called
// on the capture/upload path.
func (s *Store) PurgeOlderThan(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("store: read dir: %w", err)
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
