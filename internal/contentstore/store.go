// Package contentstore accesses the versioned remote store that holds the
// published portfolio document.
package contentstore

import (
	"context"
	"time"
)

// File is the stored document at some version: its content and the version
// token (blob SHA) the store's write call requires for optimistic concurrency.
type File struct {
	SHA     string
	Content []byte
}

// Commit describes a successful write.
type Commit struct {
	SHA     string
	Message string
}

// Version is one entry in the file's history, newest first.
type Version struct {
	SHA     string
	Message string
	Date    time.Time
}

// CredentialSource supplies the repository identifier and access token at
// call time, so settings changes take effect without rebuilding the client.
type CredentialSource interface {
	Repository() string
	Token() string
}

// Store is the interface for the versioned content file.
type Store interface {
	// Read returns the current file, or apperr.ErrNotFound when no file
	// exists yet (a valid zero-state, not a failure).
	Read(ctx context.Context) (*File, error)
	// ReadAt returns the file as of a specific version identifier.
	ReadAt(ctx context.Context, ref string) (*File, error)
	// Write commits new content. sha is the current version token, or empty
	// to create the file; a stale token yields apperr.ErrConflict.
	Write(ctx context.Context, message string, content []byte, sha string) (*Commit, error)
	// History lists versions touching the file, newest first, at most limit.
	History(ctx context.Context, limit int) ([]Version, error)
}
