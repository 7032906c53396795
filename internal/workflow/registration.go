package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/identity"
)

// RegistrationState is the terminal state of a registration attempt.
type RegistrationState string

const (
	StateRegistered            RegistrationState = "registered"
	StateRejectedDuplicateName RegistrationState = "rejected_duplicate_name"
	StateRejectedDuplicateFace RegistrationState = "rejected_duplicate_face"
	StateRejectedNoFace        RegistrationState = "rejected_no_face"
	StateRegistrationFailed    RegistrationState = "failed"
)

// RegistrationResult reports how a registration attempt ended.
type RegistrationResult struct {
	State    RegistrationState
	Identity identity.Identity // set when Registered
	Matched  string            // existing identity, set when RejectedDuplicateFace
	Err      error             // cause for every state except Registered
}

// Message is an operator-facing summary of the result.
func (r RegistrationResult) Message() string {
	switch r.State {
	case StateRegistered:
		return fmt.Sprintf("%s registered successfully", r.Identity.Name)
	case StateRejectedDuplicateName:
		return "an identity with this name already exists"
	case StateRejectedDuplicateFace:
		return fmt.Sprintf("this face is already registered as %s", r.Matched)
	case StateRejectedNoFace:
		return "no face detected in the image"
	default:
		return fmt.Sprintf("registration failed: %v", r.Err)
	}
}

// Registrar runs the registration workflow.
type Registrar struct {
	identities *identity.Store
}

// NewRegistrar creates a registrar over the identity store.
func NewRegistrar(identities *identity.Store) *Registrar {
	return &Registrar{identities: identities}
}

// Register validates and stores a new identity. Rejections leave the store unchanged.
func (r *Registrar) Register(ctx context.Context, name string, image []byte) RegistrationResult {
	id, err := r.identities.Register(ctx, name, image)
	if err == nil {
		return RegistrationResult{State: StateRegistered, Identity: id}
	}

	var dup *identity.DuplicateFaceError
	switch {
	case errors.As(err, &dup):
		return RegistrationResult{State: StateRejectedDuplicateFace, Matched: dup.Name, Err: err}
	case errors.Is(err, identity.ErrDuplicateName):
		return RegistrationResult{State: StateRejectedDuplicateName, Err: err}
	case errors.Is(err, identity.ErrNoFaceDetected):
		return RegistrationResult{State: StateRejectedNoFace, Err: err}
	default:
		return RegistrationResult{State: StateRegistrationFailed, Err: err}
	}
}
