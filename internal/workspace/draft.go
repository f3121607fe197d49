package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joycelee/atelier/internal/apperr"
)

// DraftFile persists an unpublished working copy across restarts. A leftover
// draft found at startup is staged over the store content so edits survive a
// crash; a successful publish clears it.
type DraftFile struct {
	path string
}

// NewDraftFile creates a handle; the file itself may not exist yet.
func NewDraftFile(path string) *DraftFile {
	return &DraftFile{path: path}
}

// Save writes the serialized working copy atomically.
func (d *DraftFile) Save(data []byte) error {
	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("draft: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".atelier-draft-*")
	if err != nil {
		return fmt.Errorf("draft: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("draft: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("draft: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("draft: close temp: %w", err)
	}
	if err := os.Rename(tmpName, d.path); err != nil {
		return fmt.Errorf("draft: rename: %w", err)
	}
	success = true
	return nil
}

// Load returns the saved draft, or apperr.ErrNotFound when none exists.
func (d *DraftFile) Load() ([]byte, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("draft: read: %w", err)
	}
	return data, nil
}

// Clear removes the draft; a missing file is fine.
func (d *DraftFile) Clear() error {
	if err := os.Remove(d.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("draft: remove: %w", err)
	}
	return nil
}
