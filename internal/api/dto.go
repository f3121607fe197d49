package api

import (
	"time"

	"github.com/joycelee/atelier/internal/models"
	"github.com/joycelee/atelier/internal/workspace"
)

// UnlockRequest carries the edit-session secret.
type UnlockRequest struct {
	Secret string `json:"secret"`
}

// ExitRequest resolves an edit-session exit. Action is empty for a plain
// exit attempt, or one of "discard", "publish", "cancel".
type ExitRequest struct {
	Action string `json:"action"`
}

// StatusResponse reports the editor state for status displays and the
// navigation guard.
type StatusResponse struct {
	Dirty  bool   `json:"dirty"`
	Busy   bool   `json:"busy"`
	Status string `json:"status"`
}

// SiteRequest is the request body for updating the site strings.
type SiteRequest = models.Site

// ProjectCardRequest updates card-level project fields.
type ProjectCardRequest = workspace.ProjectCard

// MoveRequest swaps a project with an adjacent one.
type MoveRequest struct {
	Index     int `json:"index"`
	Direction int `json:"direction"`
}

// TextRequest carries a single rich-text value (descriptions).
type TextRequest struct {
	Text string `json:"text"`
}

// RelatedRequest replaces a project's related slugs.
type RelatedRequest struct {
	Slugs []string `json:"slugs"`
}

// SettingsRequest persists the content-store credential.
type SettingsRequest struct {
	Repository string `json:"repository"`
	Token      string `json:"token"`
}

// PublishRequest carries the commit message.
type PublishRequest struct {
	Message string `json:"message"`
}

// RevertRequest names the version to stage.
type RevertRequest struct {
	SHA string `json:"sha"`
}

// VersionItem is one offered revert choice.
type VersionItem struct {
	SHA     string    `json:"sha"`
	Message string    `json:"message"`
	Date    time.Time `json:"date"`
}

// HistoryResponse wraps the offered versions.
type HistoryResponse struct {
	Versions []VersionItem `json:"versions"`
}
