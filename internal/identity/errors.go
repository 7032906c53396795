package identity

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateName    = errors.New("an identity with this name is already registered")
	ErrDuplicateFace    = errors.New("this face is already registered")
	ErrNoFaceDetected   = errors.New("no face detected in image")
	ErrNotFound         = errors.New("identity not found")
	ErrInvalidName      = errors.New("invalid identity name")
	ErrUnsupportedImage = errors.New("unsupported image format")
)

// DuplicateFaceError names the registered identity whose face matched.
type DuplicateFaceError struct {
	Name     string
	Distance float64
}

func (e *DuplicateFaceError) Error() string {
	return fmt.Sprintf("face already registered as %q", e.Name)
}

func (e *DuplicateFaceError) Is(target error) bool {
	return target == ErrDuplicateFace
}
