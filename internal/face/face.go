// Package face defines the detection and verification collaborators used by the
// identity store and workflows, plus the concrete backends that implement them:
//   - embedding.go: remote face embedding server (detection + verification)
//   - pigo.go: pure-Go cascade detector
//   - gocv.go: OpenCV Haar cascade detector (build tag gocv)
//   - image.go / annotate.go: decoding, downscaling and bounding box drawing
package face

import (
	"context"
	"errors"
)

// ErrCollaborator marks failures of a detection or verification backend:
// transport errors, unusable responses, images the model cannot process.
var ErrCollaborator = errors.New("face collaborator failure")

// BoundingBox is a detected face region in pixel coordinates.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Verification is the outcome of comparing two face images.
type Verification struct {
	Verified bool    `json:"verified"`
	Distance float64 `json:"distance"`
}

// Detector locates faces in an encoded image. An image without faces yields
// an empty slice and no error.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]BoundingBox, error)
}

// Verifier decides whether two encoded images show the same person.
type Verifier interface {
	Verify(ctx context.Context, a, b []byte) (Verification, error)
}

// DetectorFunc adapts a plain function to the Detector interface.
type DetectorFunc func(ctx context.Context, image []byte) ([]BoundingBox, error)

func (f DetectorFunc) Detect(ctx context.Context, image []byte) ([]BoundingBox, error) {
	return f(ctx, image)
}

// VerifierFunc adapts a plain function to the Verifier interface.
type VerifierFunc func(ctx context.Context, a, b []byte) (Verification, error)

func (f VerifierFunc) Verify(ctx context.Context, a, b []byte) (Verification, error) {
	return f(ctx, a, b)
}

// collaboratorError wraps err so that errors.Is(err, ErrCollaborator) holds
// while keeping the original cause reachable.
func collaboratorError(op string, err error) error {
	return &CollaboratorError{Op: op, Err: err}
}

// CollaboratorError is returned by every backend in this package.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *CollaboratorError) Unwrap() []error {
	return []error{ErrCollaborator, e.Err}
}
