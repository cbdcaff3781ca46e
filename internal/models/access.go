package models

import (
	"time"

	"github.com/google/uuid"
)

// UnknownName is recorded for every outcome that did not match an enrolled person.
const UnknownName = "Unknown"

// AccessLogEntry is one identification outcome. Entries are append-only.
type AccessLogEntry struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	PersonID   *uuid.UUID `json:"person_id,omitempty" db:"person_id"`
	Name       string     `json:"name" db:"name"` // name as resolved at match time
	Recognized bool       `json:"recognized" db:"recognized"`
	Distance   *float64   `json:"distance,omitempty" db:"distance"` // nil when there was no candidate
	Timestamp  time.Time  `json:"timestamp" db:"timestamp"`
}

// AccessLogQuery filters a listing of the access log. Results are newest first.
type AccessLogQuery struct {
	Recognized *bool
	PersonID   *uuid.UUID
	From, To   *time.Time // inclusive bounds on Timestamp
	Limit      int
	Offset     int
}
