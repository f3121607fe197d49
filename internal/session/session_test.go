package session

import (
	"errors"
	"testing"

	"github.com/joycelee/atelier/internal/apperr"
)

func TestFoldKnownValues(t *testing.T) {
	// Values match the 31-multiplier hash the site ships to browsers.
	cases := []struct {
		in   string
		want int32
	}{
		{"", 0},
		{"abc", 96354},
		{"test", 3556498},
	}
	for _, c := range cases {
		if got := Fold(c.in); got != c.want {
			t.Errorf("Fold(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestUnlockWrongSecretLeavesLocked(t *testing.T) {
	m := NewManager(Fold("opensesame"))
	id := NewID()
	err := m.Unlock(id, "wrong")
	if !errors.Is(err, apperr.ErrBadSecret) {
		t.Fatalf("err = %v, want ErrBadSecret", err)
	}
	if m.StateOf(id) != Locked {
		t.Error("wrong secret must not change state")
	}
}

func TestUnlockThenEnter(t *testing.T) {
	m := NewManager(Fold("opensesame"))
	id := NewID()
	if err := m.Unlock(id, "opensesame"); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if m.StateOf(id) != Unlocked {
		t.Errorf("state = %v, want Unlocked", m.StateOf(id))
	}
	if err := m.Enter(id); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if m.StateOf(id) != Active {
		t.Errorf("state = %v, want Active", m.StateOf(id))
	}
}

func TestEnterWhileLocked(t *testing.T) {
	m := NewManager(Fold("s"))
	if err := m.Enter(NewID()); !errors.Is(err, apperr.ErrLocked) {
		t.Errorf("err = %v, want ErrLocked", err)
	}
}

func TestEnterIsIdempotent(t *testing.T) {
	m := NewManager(Fold("s"))
	id := NewID()
	_ = m.Unlock(id, "s")
	for i := 0; i < 3; i++ {
		if err := m.Enter(id); err != nil {
			t.Fatalf("Enter #%d: %v", i, err)
		}
	}
	if m.StateOf(id) != Active {
		t.Error("repeated Enter should stay Active")
	}
}

func TestExitReturnsToUnlocked(t *testing.T) {
	m := NewManager(Fold("s"))
	id := NewID()
	_ = m.Unlock(id, "s")
	_ = m.Enter(id)
	m.Exit(id)
	if m.StateOf(id) != Unlocked {
		t.Errorf("state = %v, want Unlocked after exit", m.StateOf(id))
	}
	// Exit while not active is a no-op.
	m.Exit(id)
	if m.StateOf(id) != Unlocked {
		t.Error("exit should be a no-op when not active")
	}
}
