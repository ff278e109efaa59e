package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Persister stores the minimal session record between process runs.
type Persister interface {
	// Load returns the stored record. ok is false when none exists.
	Load() (rec Session, ok bool, err error)
	Save(rec Session) error
	Clear() error
}

// FilePersister keeps the record as a JSON file readable only by the owner.
type FilePersister struct {
	Path string
}

func (p FilePersister) Load() (Session, bool, error) {
	data, err := os.ReadFile(p.Path)
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("session: read %s: %w", p.Path, err)
	}
	var rec Session
	if err := json.Unmarshal(data, &rec); err != nil {
		return Session{}, false, fmt.Errorf("session: decode %s: %w", p.Path, err)
	}
	return rec, true, nil
}

// Save writes the record atomically (temp file + rename).
func (p FilePersister) Save(rec Session) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o700); err != nil {
		return fmt.Errorf("session: mkdir: %w", err)
	}
	tmp := p.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("session: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, p.Path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("session: rename: %w", err)
	}
	return nil
}

func (p FilePersister) Clear() error {
	if err := os.Remove(p.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("session: remove %s: %w", p.Path, err)
	}
	return nil
}

// MemoryPersister keeps the record in memory. Useful in tests and for
// clients that must not touch disk.
type MemoryPersister struct {
	mu  sync.Mutex
	rec *Session
}

func (m *MemoryPersister) Load() (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec == nil {
		return Session{}, false, nil
	}
	return *m.rec, true, nil
}

func (m *MemoryPersister) Save(rec Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = &rec
	return nil
}

func (m *MemoryPersister) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = nil
	return nil
}
