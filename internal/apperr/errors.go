package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrBusy           = errors.New("sync in progress")
	ErrLocked         = errors.New("editor locked")
	ErrBadSecret      = errors.New("incorrect secret")
	ErrUnsavedChanges = errors.New("unsaved changes")
	ErrNoCredential   = errors.New("credential not configured")
)
