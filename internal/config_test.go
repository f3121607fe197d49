package internal

import (
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
}

func TestHTTPConfig_PortRange(t *testing.T) {
	cfg := HTTPConfig{Port: 0}
	if err := cfg.Validate(); err == nil {
		t.Fatal("port 0 should fail validation")
	}
	cfg.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatal("port above 65535 should fail validation")
	}
	cfg.Port = 8080
	if err := cfg.Validate(); err != nil {
		t.Fatalf("port 8080 should pass: %v", err)
	}
	if cfg.Address() != ":8080" {
		t.Errorf("address = %q", cfg.Address())
	}
}

func TestContentConfig_FilePathRequired(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Content.FilePath = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty file path should fail validation")
	}
}

func TestEditorConfig_HashFallback(t *testing.T) {
	cfg := EditorConfig{}
	if cfg.Hash() != DefaultSecretHash {
		t.Errorf("hash = %d, want default %d", cfg.Hash(), DefaultSecretHash)
	}
	cfg.SecretHash = 42
	if cfg.Hash() != 42 {
		t.Errorf("hash = %d, want 42", cfg.Hash())
	}
}

func TestSQLiteConfig_EmptyPathAllowed(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SQLite.Path = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty sqlite path disables the journal and should pass: %v", err)
	}
}

func TestWebConfig_Required(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Web.Templates = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty templates dir should fail validation")
	}
}
