// Package credentials persists the content-store access credential and
// repository identifier across restarts.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

type record struct {
	Repository string `json:"repository"`
	Token      string `json:"token"`
}

// Store is a file-backed credential store. Writes are atomic
// (temp file + fsync + rename) so a crash mid-save never leaves a
// half-written credential behind.
type Store struct {
	path string

	mu  sync.RWMutex
	rec record
}

// Open loads credentials from path, treating a missing file as empty.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("credentials: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &s.rec); err != nil {
		return nil, fmt.Errorf("credentials: parse %s: %w", path, err)
	}
	return s, nil
}

// Repository returns the saved repository identifier (owner/name), or "".
func (s *Store) Repository() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.Repository
}

// Token returns the saved access token, or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.Token
}

// Configured reports whether both repository and token are present.
func (s *Store) Configured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.Repository != "" && s.rec.Token != ""
}

// Set replaces saved values and persists them. Empty arguments keep the
// current value, so the settings flow can update either field alone.
func (s *Store) Set(repository, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if repository != "" {
		s.rec.Repository = repository
	}
	if token != "" {
		s.rec.Token = token
	}
	return s.persist()
}

// Clear removes both values and persists the empty record.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = record{}
	return s.persist()
}

// persist writes the record atomically. Callers must hold mu.
func (s *Store) persist() error {
	data, err := json.MarshalIndent(s.rec, "", "  ")
	if err != nil {
		return fmt.Errorf("credentials: encode: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("credentials: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".atelier-cred-*")
	if err != nil {
		return fmt.Errorf("credentials: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err := tmp.Chmod(0o600); err != nil {
		return fmt.Errorf("credentials: chmod temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("credentials: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("credentials: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("credentials: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("credentials: rename: %w", err)
	}
	success = true
	return nil
}
