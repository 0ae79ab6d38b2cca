package records

import "time"

// DoseEvent is a single recorded intake of a medication.
type DoseEvent struct {
	UserID   int64
	PillName string
	Dose     string
	TakenAt  time.Time
}

// HealthNote is a free-text observation about the user's condition.
type HealthNote struct {
	UserID    int64
	Note      string
	CreatedAt time.Time
}

// UserRecordSet holds everything stored for one user.
// Both slices are expected in ascending timestamp order.
type UserRecordSet struct {
	Pills []DoseEvent
	Notes []HealthNote
}

func (s UserRecordSet) Empty() bool {
	return len(s.Pills) == 0 && len(s.Notes) == 0
}

// Kind names a record type in logs and metrics.
type Kind string

const (
	KindPill Kind = "pill"
	KindNote Kind = "note"
)
