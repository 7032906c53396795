package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/face"
	"github.com/kozaktomas/face-attendance/internal/identity"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
	"github.com/kozaktomas/face-attendance/internal/workflow"
)

const (
	errNoSession     = "no operator session"
	errInvalidUpload = "failed to parse multipart form"
	errMissingImage  = "image is required"
)

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, identity.ErrInvalidName),
		errors.Is(err, identity.ErrUnsupportedImage):
		return http.StatusBadRequest
	case errors.Is(err, identity.ErrNotFound),
		errors.Is(err, workflow.ErrNoPendingDeletion):
		return http.StatusNotFound
	case errors.Is(err, identity.ErrDuplicateName),
		errors.Is(err, identity.ErrDuplicateFace),
		errors.Is(err, ledger.ErrAlreadyMarked):
		return http.StatusConflict
	case errors.Is(err, identity.ErrNoFaceDetected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, face.ErrCollaborator):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondErr sends err with the status it maps to.
func respondErr(w http.ResponseWriter, err error) {
	respondError(w, errorStatus(err), err.Error())
}

// readImage reads the multipart file field "image".
func readImage(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		return nil, errors.New(errInvalidUpload)
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, errors.New(errMissingImage)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, constants.MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > constants.MaxUploadSize {
		return nil, fmt.Errorf("image exceeds %d bytes", constants.MaxUploadSize)
	}
	if len(data) == 0 {
		return nil, errors.New(errMissingImage)
	}
	return data, nil
}

// operatorSession returns the workflow state of the caller, or responds 401.
func operatorSession(w http.ResponseWriter, r *http.Request) *workflow.Session {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil || session.Workflow == nil {
		respondError(w, http.StatusUnauthorized, errNoSession)
		return nil
	}
	return session.Workflow
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
