package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/identity"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// ErrNoPendingDeletion is returned when a confirmation token is unknown,
// already used, canceled or expired.
var ErrNoPendingDeletion = errors.New("no pending deletion for this token")

// PendingDeletion is a deletion request awaiting confirmation.
type PendingDeletion struct {
	Token     string    `json:"token"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DeletionResult reports a committed deletion.
type DeletionResult struct {
	Name          string `json:"name"`
	RecordsPurged int    `json:"records_purged"`
}

// Deletion removes an identity and its ledger records in two phases.
type Deletion struct {
	identities *identity.Store
	ledger     ledger.Store
	now        func() time.Time
}

// NewDeletion creates the deletion workflow.
func NewDeletion(identities *identity.Store, store ledger.Store) *Deletion {
	return &Deletion{identities: identities, ledger: store, now: time.Now}
}

// Request checks that name exists and records a pending confirmation in the session.
func (d *Deletion) Request(session *Session, name string) (PendingDeletion, error) {
	id, err := d.identities.Get(name)
	if err != nil {
		return PendingDeletion{}, err
	}
	p := PendingDeletion{
		Token:     uuid.NewString(),
		Name:      id.Name,
		ExpiresAt: d.now().Add(PendingDeletionTTL),
	}
	session.addPending(p)
	return p, nil
}

// Cancel drops a pending deletion.
func (d *Deletion) Cancel(session *Session, token string) error {
	if _, ok := session.takePending(token, d.now()); !ok {
		return ErrNoPendingDeletion
	}
	return nil
}

// Confirm commits a pending deletion. The reference image is staged out of
// the store first, then the ledger records are purged. If the purge fails the
// image is restored and the identity stays registered.
func (d *Deletion) Confirm(ctx context.Context, session *Session, token string) (DeletionResult, error) {
	p, ok := session.takePending(token, d.now())
	if !ok {
		return DeletionResult{}, ErrNoPendingDeletion
	}

	removal, err := d.identities.Remove(p.Name)
	if err != nil {
		return DeletionResult{}, fmt.Errorf("remove identity: %w", err)
	}

	purged, err := d.ledger.DeleteIdentityRecords(ctx, removal.Identity.Name)
	if err != nil {
		purgeErr := fmt.Errorf("purge attendance records of %s: %w", removal.Identity.Name, err)
		if rbErr := removal.Rollback(); rbErr != nil {
			return DeletionResult{}, errors.Join(purgeErr, fmt.Errorf("rollback: %w", rbErr))
		}
		return DeletionResult{}, purgeErr
	}

	if err := removal.Commit(); err != nil {
		// The identity is already gone from the store; only the staged file remains.
		log.Printf("Warning: %v", err)
	}
	return DeletionResult{Name: removal.Identity.Name, RecordsPurged: purged}, nil
}
