package session

import (
	"testing"
	"time"
)

func TestManagerSetGetReset(t *testing.T) {
	m := NewManager()
	userA := int64(1)
	userB := int64(2)

	if got := m.Get(userA); got.Active() {
		t.Fatalf("new user must be idle, got %v", got.State)
	}

	m.Set(userA, Session{State: AwaitingPillDose, PillName: "Aspirin"})
	m.Set(userB, Session{State: AwaitingNote})

	a := m.Get(userA)
	if a.State != AwaitingPillDose || a.PillName != "Aspirin" {
		t.Fatalf("unexpected A: %+v", a)
	}
	if a.UpdatedAt.IsZero() {
		t.Fatalf("UpdatedAt not stamped")
	}
	if m.Get(userB).State != AwaitingNote {
		t.Fatalf("unexpected B: %+v", m.Get(userB))
	}

	m.Reset(userA)
	if m.Get(userA).Active() {
		t.Fatalf("reset did not clear user A")
	}
	if m.Get(userB).State != AwaitingNote {
		t.Fatalf("reset should not affect other users")
	}
}

func TestManagerSetIdleDeletes(t *testing.T) {
	m := NewManager()
	m.Set(1, Session{State: AwaitingNote})
	m.Set(1, Session{State: Idle})
	if m.Len() != 0 {
		t.Fatalf("idle session should not be kept, len=%d", m.Len())
	}
}

func TestManagerSweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager()
	m.now = func() time.Time { return now }

	m.Set(1, Session{State: AwaitingNote})
	now = now.Add(20 * time.Minute)
	m.Set(2, Session{State: AwaitingPillName})
	now = now.Add(15 * time.Minute)

	if n := m.Sweep(30 * time.Minute); n != 1 {
		t.Fatalf("want 1 swept, got %d", n)
	}
	if m.Get(1).Active() {
		t.Fatalf("stale session survived")
	}
	if m.Get(2).State != AwaitingPillName {
		t.Fatalf("fresh session swept")
	}
}

func TestStateString(t *testing.T) {
	if AwaitingPillDose.String() != "awaiting_pill_dose" || State(42).String() != "unknown" {
		t.Fatalf("unexpected names")
	}
}
