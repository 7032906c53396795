package workflow

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/identity"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// ErrNoIdentityFound is reported when no registered identity verifies against a capture.
var ErrNoIdentityFound = errors.New("no registered identity matches the face")

// AttendanceState is the outcome of one capture event.
type AttendanceState string

const (
	StateSkipped            AttendanceState = "skipped"
	StateNoIdentityFound    AttendanceState = "no_identity_found"
	StateAlreadyMarkedToday AttendanceState = "already_marked_today"
	StateMarked             AttendanceState = "marked"
	StateAttendanceFailed   AttendanceState = "failed"
)

// AttendanceResult reports how a capture was handled.
type AttendanceResult struct {
	State    AttendanceState
	Name     string        // matched identity
	Distance float64       // verify distance of the match
	Record   ledger.Record // new record when Marked, existing one when AlreadyMarkedToday
	Err      error
}

// Message is an operator-facing summary of the result.
func (r AttendanceResult) Message() string {
	switch r.State {
	case StateSkipped:
		return "capture already processed"
	case StateNoIdentityFound:
		return "face not recognized"
	case StateAlreadyMarkedToday:
		return fmt.Sprintf("%s is already marked present today (%s)", r.Name, r.Record.Time)
	case StateMarked:
		return fmt.Sprintf("attendance marked for %s at %s", r.Name, r.Record.Time)
	default:
		return fmt.Sprintf("attendance failed: %v", r.Err)
	}
}

// Attendance runs the capture -> identify -> mark workflow.
type Attendance struct {
	identities *identity.Store
	ledger     ledger.Store
	loc        *time.Location
}

// NewAttendance creates the workflow. Records are stamped in loc, or the
// local zone when loc is nil.
func NewAttendance(identities *identity.Store, store ledger.Store, loc *time.Location) *Attendance {
	if loc == nil {
		loc = time.Local
	}
	return &Attendance{identities: identities, ledger: store, loc: loc}
}

// Attempt processes a capture for the operator session. A capture whose bytes
// equal the last processed one is skipped without touching the ledger.
// Failed attempts are not remembered, so the same capture can be retried.
func (a *Attendance) Attempt(ctx context.Context, session *Session, image []byte, now time.Time) AttendanceResult {
	sum := sha256.Sum256(image)

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.isLastCapture(sum) {
		return AttendanceResult{State: StateSkipped}
	}

	res := a.identify(ctx, image, now.In(a.loc))
	if res.State != StateAttendanceFailed {
		session.rememberCapture(sum)
	}
	return res
}

func (a *Attendance) identify(ctx context.Context, image []byte, now time.Time) AttendanceResult {
	match, found, err := a.identities.FindByFace(ctx, image)
	if err != nil {
		return AttendanceResult{State: StateAttendanceFailed, Err: fmt.Errorf("identify face: %w", err)}
	}
	if !found {
		return AttendanceResult{State: StateNoIdentityFound, Err: ErrNoIdentityFound}
	}

	name := match.Identity.Name
	rec, err := a.ledger.MarkPresent(ctx, name, now)
	switch {
	case errors.Is(err, ledger.ErrAlreadyMarked):
		return AttendanceResult{State: StateAlreadyMarkedToday, Name: name, Distance: match.Distance, Record: rec}
	case err != nil:
		return AttendanceResult{State: StateAttendanceFailed, Name: name, Err: fmt.Errorf("mark attendance: %w", err)}
	}

	log.Printf("Marked %s present on %s at %s", strings.NewReplacer("\n", "", "\r", "").Replace(name), rec.Date, rec.Time)
	return AttendanceResult{State: StateMarked, Name: name, Distance: match.Distance, Record: rec}
}
