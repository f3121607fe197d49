// Package session gates editing behind a lightweight per-client secret check.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/joycelee/atelier/internal/apperr"
)

// State is the edit-session state for one client.
type State int

const (
	// Locked means the client has not presented the secret yet.
	Locked State = iota
	// Unlocked means the secret was accepted but edit mode is off.
	Unlocked
	// Active means edit affordances are attached.
	Active
)

// Manager tracks edit-session state per client ID. State lives in memory
// only: it survives page reloads (the ID rides on a session cookie) but not
// a process restart, which matches the intended scope of the gate.
type Manager struct {
	secretHash int32

	mu     sync.Mutex
	states map[string]State
}

// NewManager creates a manager that accepts any secret whose Fold hash
// equals secretHash.
func NewManager(secretHash int32) *Manager {
	return &Manager{secretHash: secretHash, states: make(map[string]State)}
}

// NewID returns a fresh random session identifier.
func NewID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// StateOf reports the state for a client ID. Unknown IDs are Locked.
func (m *Manager) StateOf(id string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[id]
}

// Unlock verifies the secret and moves the client to Unlocked. A wrong
// secret leaves the state untouched.
func (m *Manager) Unlock(id, secret string) error {
	if Fold(secret) != m.secretHash {
		return apperr.ErrBadSecret
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.states[id] == Locked {
		m.states[id] = Unlocked
	}
	return nil
}

// Enter moves an unlocked client into Active. It is idempotent: entering
// while already active is fine, since clients re-enter after every
// structural re-render.
func (m *Manager) Enter(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.states[id] {
	case Locked:
		return apperr.ErrLocked
	default:
		m.states[id] = Active
		return nil
	}
}

// Exit returns the client to Unlocked. Callers are responsible for resolving
// unsaved changes before exiting; see the API layer.
func (m *Manager) Exit(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.states[id] == Active {
		m.states[id] = Unlocked
	}
}
