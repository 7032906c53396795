package handlers

import (
	"log"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/face"
	"github.com/kozaktomas/face-attendance/internal/identity"
	"github.com/kozaktomas/face-attendance/internal/workflow"
)

// IdentitiesHandler handles registration, listing and deletion of identities.
type IdentitiesHandler struct {
	identities *identity.Store
	registrar  *workflow.Registrar
	deletion   *workflow.Deletion
}

// NewIdentitiesHandler creates a new identities handler.
func NewIdentitiesHandler(identities *identity.Store, registrar *workflow.Registrar, deletion *workflow.Deletion) *IdentitiesHandler {
	return &IdentitiesHandler{
		identities: identities,
		registrar:  registrar,
		deletion:   deletion,
	}
}

// IdentityResponse is one registered identity.
type IdentityResponse struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

func identityResponse(id identity.Identity) IdentityResponse {
	return IdentityResponse{
		Name:     id.Name,
		ImageURL: "/api/v1/identities/" + url.PathEscape(id.Name) + "/image",
	}
}

// RegistrationResponse reports a registration attempt.
type RegistrationResponse struct {
	State    workflow.RegistrationState `json:"state"`
	Message  string                     `json:"message"`
	Identity *IdentityResponse          `json:"identity,omitempty"`
	Matched  string                     `json:"matched,omitempty"`
	Error    string                     `json:"error,omitempty"`
}

// List returns all identities sorted by name.
func (h *IdentitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	ids, err := h.identities.List()
	if err != nil {
		respondErr(w, err)
		return
	}
	out := make([]IdentityResponse, 0, len(ids))
	for _, id := range ids {
		out = append(out, identityResponse(id))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"identities": out,
		"count":      len(out),
	})
}

// Register handles multipart registration with fields "name" and "image".
func (h *IdentitiesHandler) Register(w http.ResponseWriter, r *http.Request) {
	image, err := readImage(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	name := r.FormValue("name")

	res := h.registrar.Register(r.Context(), name, image)
	resp := RegistrationResponse{State: res.State, Message: res.Message(), Matched: res.Matched}
	if res.State == workflow.StateRegistered {
		idResp := identityResponse(res.Identity)
		resp.Identity = &idResp
		respondJSON(w, http.StatusCreated, resp)
		return
	}

	resp.Error = res.Err.Error()
	if res.State == workflow.StateRegistrationFailed {
		log.Printf("Registration of %s failed: %v", sanitizeForLog(name), res.Err)
	}
	respondJSON(w, errorStatus(res.Err), resp)
}

// Image serves the reference image of an identity.
func (h *IdentitiesHandler) Image(w http.ResponseWriter, r *http.Request) {
	id, err := h.identities.Get(chi.URLParam(r, "name"))
	if err != nil {
		respondErr(w, err)
		return
	}
	data, err := h.identities.Image(id)
	if err != nil {
		respondErr(w, err)
		return
	}
	w.Header().Set("Content-Type", face.DetectMIMEType(data))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// RequestDeletion starts a two-phase deletion and returns the confirmation token.
func (h *IdentitiesHandler) RequestDeletion(w http.ResponseWriter, r *http.Request) {
	session := operatorSession(w, r)
	if session == nil {
		return
	}
	pending, err := h.deletion.Request(session, chi.URLParam(r, "name"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, pending)
}

// ConfirmDeletion commits a pending deletion.
func (h *IdentitiesHandler) ConfirmDeletion(w http.ResponseWriter, r *http.Request) {
	session := operatorSession(w, r)
	if session == nil {
		return
	}
	res, err := h.deletion.Confirm(r.Context(), session, chi.URLParam(r, "token"))
	if err != nil {
		log.Printf("Deletion failed: %v", err)
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// CancelDeletion drops a pending deletion.
func (h *IdentitiesHandler) CancelDeletion(w http.ResponseWriter, r *http.Request) {
	session := operatorSession(w, r)
	if session == nil {
		return
	}
	if err := h.deletion.Cancel(session, chi.URLParam(r, "token")); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
