package credentials

import (
	"os"
	"path/filepath"
	"testing"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "credentials.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestOpenMissingFileIsEmpty(t *testing.T) {
	s := tempStore(t)
	if s.Configured() {
		t.Error("fresh store should not be configured")
	}
	if s.Token() != "" || s.Repository() != "" {
		t.Error("fresh store should be empty")
	}
}

func TestSetPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	s, _ := Open(path)
	if err := s.Set("joyce/portfolio", "ghp_secret"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Repository() != "joyce/portfolio" || reopened.Token() != "ghp_secret" {
		t.Errorf("reopened = %q / %q", reopened.Repository(), reopened.Token())
	}
	if !reopened.Configured() {
		t.Error("store with both values should be configured")
	}
}

func TestSetEmptyKeepsExisting(t *testing.T) {
	s := tempStore(t)
	_ = s.Set("joyce/portfolio", "tok1")
	if err := s.Set("", "tok2"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if s.Repository() != "joyce/portfolio" {
		t.Errorf("repository = %q, want unchanged", s.Repository())
	}
	if s.Token() != "tok2" {
		t.Errorf("token = %q, want tok2", s.Token())
	}
}

func TestClear(t *testing.T) {
	s := tempStore(t)
	_ = s.Set("r", "t")
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if s.Configured() {
		t.Error("cleared store should not be configured")
	}
}

func TestNoLeftoverTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(filepath.Join(dir, "credentials.json"))
	_ = s.Set("r", "t")
	matches, _ := filepath.Glob(filepath.Join(dir, ".atelier-cred-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestFilePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.json")
	s, _ := Open(path)
	_ = s.Set("r", "secret")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("perm = %o, want 600", info.Mode().Perm())
	}
}
