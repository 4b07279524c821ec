package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"rrtimeline/internal/models"
	"rrtimeline/internal/stream"
)

// ProcessStore holds the current list of process entries and publishes a
// full copy of it after every change. When a path is set the list is
// persisted to disk as JSON.
//
// Subscribers must not modify the store from inside their callback.
type ProcessStore struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	path    string
	entries []models.ProcessEntry
	changes *stream.Subject[[]models.ProcessEntry]
}

// NewProcessStore creates a store and loads existing entries if present. An
// empty path keeps the store in memory only.
func NewProcessStore(path string) (*ProcessStore, error) {
	s := &ProcessStore{path: path}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure data directory: %w", err)
		}
		if err := s.load(); err != nil {
			return nil, err
		}
	}
	s.changes = stream.NewBehaviorSubject(models.CloneEntries(s.entries))
	return s, nil
}

// Changes is the snapshot stream. New subscribers immediately receive the
// current entries.
func (s *ProcessStore) Changes() *stream.Subject[[]models.ProcessEntry] {
	return s.changes
}

// Snapshot returns a deep copy of the current entries.
func (s *ProcessStore) Snapshot() []models.ProcessEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CloneEntries(s.entries)
}

// Replace overwrites every entry.
func (s *ProcessStore) Replace(entries []models.ProcessEntry) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.entries = models.CloneEntries(entries)
	return s.commitLocked()
}

// Upsert replaces the entry with the same process name, or appends it.
func (s *ProcessStore) Upsert(entry models.ProcessEntry) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	entry = entry.Clone()
	replaced := false
	for i := range s.entries {
		if s.entries[i].Process == entry.Process {
			s.entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		s.entries = append(s.entries, entry)
	}
	return s.commitLocked()
}

// Remove deletes the entry for process. It reports whether one existed.
func (s *ProcessStore) Remove(process string) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	idx := -1
	for i := range s.entries {
		if s.entries[i].Process == process {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false, nil
	}
	s.entries = append(s.entries[:idx:idx], s.entries[idx+1:]...)
	return true, s.commitLocked()
}

// commitLocked persists, releases s.mu and publishes the new snapshot while
// writeMu is still held, so snapshots are delivered in write order.
func (s *ProcessStore) commitLocked() error {
	err := s.persistLocked()
	snapshot := models.CloneEntries(s.entries)
	s.mu.Unlock()

	s.changes.Next(snapshot)
	return err
}

func (s *ProcessStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.entries = nil
			return nil
		}
		return fmt.Errorf("read processes: %w", err)
	}
	if len(data) == 0 {
		s.entries = nil
		return nil
	}

	var entries []models.ProcessEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse processes: %w", err)
	}
	s.entries = entries
	return nil
}

func (s *ProcessStore) persistLocked() error {
	if s.path == "" {
		return nil
	}
	bytes, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode processes: %w", err)
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, time.Now().UnixNano())
	if err := os.WriteFile(tmpPath, bytes, 0o644); err != nil {
		return fmt.Errorf("write temp processes: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace processes file: %w", err)
	}
	return nil
}
