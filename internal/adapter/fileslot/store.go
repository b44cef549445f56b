// Package fileslot implements the kvslot port as a single JSON file mapping
// slot keys to their values. Writes go to a temp file that is renamed over
// the original, so a crash never leaves a half-written file.
package fileslot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists slots in one file.
type Store struct {
	mu   sync.Mutex
	path string
}

// New creates a Store backed by path. The file is created on first Put.
func New(path string) *Store {
	return &Store{path: path}
}

// Get returns the slot value.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots, err := s.read()
	if err != nil {
		return nil, false, err
	}
	v, ok := slots[key]
	if !ok {
		return nil, false, nil
	}
	return []byte(v), true, nil
}

// Put replaces the slot value.
func (s *Store) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots, err := s.read()
	if err != nil {
		return err
	}
	slots[key] = string(value)
	return s.write(slots)
}

// Delete removes the slot.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := slots[key]; !ok {
		return nil
	}
	delete(slots, key)
	return s.write(slots)
}

func (s *Store) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	slots := make(map[string]string)
	if len(data) == 0 {
		return slots, nil
	}
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return slots, nil
}

func (s *Store) write(slots map[string]string) error {
	data, err := json.MarshalIndent(slots, "", "  ")
	if err != nil {
		return fmt.Errorf("encode slots: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".slots-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // best-effort cleanup; fails harmlessly after rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
