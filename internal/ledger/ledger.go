// Package ledger keeps the attendance log: one row per (name, date, time, status),
// at most one Present row per identity per day.
package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

var (
	// ErrAlreadyMarked is returned when an identity already has a Present record
	// for the day. It is a normal outcome, not a failure.
	ErrAlreadyMarked = errors.New("attendance already marked for today")

	// ErrPersistenceCorrupt reports a persisted ledger that cannot be parsed.
	// Loads recover from it by resetting to an empty ledger.
	ErrPersistenceCorrupt = errors.New("attendance ledger is corrupt")
)

// Status is the attendance status of a record.
type Status string

const (
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
)

// ParseStatus parses a status filter value, case-insensitively.
func ParseStatus(s string) (Status, bool) {
	switch {
	case strings.EqualFold(s, string(StatusPresent)):
		return StatusPresent, true
	case strings.EqualFold(s, string(StatusAbsent)):
		return StatusAbsent, true
	}
	return "", false
}

// Record is one ledger row.
type Record struct {
	Name   string `json:"name"`
	Date   string `json:"date"` // YYYY-MM-DD
	Time   string `json:"time"` // HH:MM:SS
	Status Status `json:"status"`
}

// NewPresentRecord stamps a Present record for name at the given instant.
func NewPresentRecord(name string, at time.Time) Record {
	return Record{
		Name:   name,
		Date:   at.Format(constants.DateLayout),
		Time:   at.Format(constants.TimeLayout),
		Status: StatusPresent,
	}
}

// Stats are aggregates over the whole ledger.
type Stats struct {
	Total            int `json:"total"`
	UniqueIdentities int `json:"unique_identities"`
	PresentCount     int `json:"present_count"`
	AbsentCount      int `json:"absent_count"`
}

// Store is the attendance ledger contract shared by the CSV and PostgreSQL backends.
type Store interface {
	// Load returns every record in insertion order.
	Load(ctx context.Context) ([]Record, error)
	// HasPresentToday reports whether name has a Present record on day's date.
	HasPresentToday(ctx context.Context, name string, day time.Time) (bool, error)
	// MarkPresent appends a Present record unless one exists for the same
	// identity and date, in which case the existing record and ErrAlreadyMarked
	// are returned.
	MarkPresent(ctx context.Context, name string, at time.Time) (Record, error)
	// DeleteIdentityRecords removes every record of name and returns the count.
	DeleteIdentityRecords(ctx context.Context, name string) (int, error)
	// Filter returns the records matching f in ledger order.
	Filter(ctx context.Context, f Filter) ([]Record, error)
	// Stats aggregates the whole ledger.
	Stats(ctx context.Context) (Stats, error)
}
