package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DefaultSecretHash is the Fold hash of the default edit secret. Override it
// in config for any real deployment.
const DefaultSecretHash = 1420961128

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig `yaml:"app"`
	Content     ContentConfig     `yaml:"content"`
	Editor      EditorConfig      `yaml:"editor"`
	Credentials CredentialsConfig `yaml:"credentials"`
	SQLite      SQLiteConfig      `yaml:"sqlite"`
	Web         WebConfig         `yaml:"web"`
	Draft       DraftConfig       `yaml:"draft"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Content.Validate(); err != nil {
		return err
	}
	if err := c.Credentials.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	return c.Web.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// ContentConfig names the published document in the content repository.
type ContentConfig struct {
	// FilePath is the document path inside the repository.
	FilePath string `yaml:"file_path"`
	// APIBaseURL overrides the content store endpoint; empty uses the
	// public API.
	APIBaseURL string `yaml:"api_base_url"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.FilePath, validation.Required),
	)
}

// EditorConfig holds the edit-session gate configuration.
type EditorConfig struct {
	// SecretHash is the Fold hash of the accepted edit secret. Zero falls
	// back to the default hash.
	SecretHash int32 `yaml:"secret_hash"`
}

// Hash returns the configured hash, or the default when unset.
func (c *EditorConfig) Hash() int32 {
	if c.SecretHash == 0 {
		return DefaultSecretHash
	}
	return c.SecretHash
}

// CredentialsConfig holds the local credential file location.
type CredentialsConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the credentials configuration.
func (c *CredentialsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds the sync journal database configuration. An empty path
// disables the journal.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return nil
}

// WebConfig holds the template and static asset directories.
type WebConfig struct {
	Templates string `yaml:"templates"`
	Static    string `yaml:"static"`
}

// Validate validates the web configuration.
func (c *WebConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Templates, validation.Required),
		validation.Field(&c.Static, validation.Required),
	)
}

// DraftConfig holds the crash-recovery draft file location. An empty path
// disables drafts.
type DraftConfig struct {
	Path string `yaml:"path"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Content: ContentConfig{
			FilePath: "data/projects.json",
		},
		Editor: EditorConfig{},
		Credentials: CredentialsConfig{
			Path: "./credentials.json",
		},
		SQLite: SQLiteConfig{
			Path: "./atelier.db",
		},
		Web: WebConfig{
			Templates: "./web/templates",
			Static:    "./web/static",
		},
		Draft: DraftConfig{
			Path: "./draft.json",
		},
	}
}
