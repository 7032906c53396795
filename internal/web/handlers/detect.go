package handlers

import (
	"net/http"
	"strconv"

	"github.com/kozaktomas/face-attendance/internal/face"
	"github.com/kozaktomas/face-attendance/internal/identity"
)

// DetectHandler runs face detection on an uploaded image.
type DetectHandler struct {
	detector face.Detector
}

// NewDetectHandler creates a new detect handler.
func NewDetectHandler(detector face.Detector) *DetectHandler {
	return &DetectHandler{detector: detector}
}

// DetectResponse lists detected faces in pixel coordinates.
type DetectResponse struct {
	FacesCount int                `json:"faces_count"`
	Faces      []face.BoundingBox `json:"faces"`
}

// Detect returns the face boxes of the multipart "image". With
// ?annotate=true the image is returned as PNG with the boxes drawn.
func (h *DetectHandler) Detect(w http.ResponseWriter, r *http.Request) {
	image, err := readImage(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if face.Extension(face.DetectMIMEType(image)) == "" {
		respondErr(w, identity.ErrUnsupportedImage)
		return
	}

	boxes, err := h.detector.Detect(r.Context(), image)
	if err != nil {
		respondErr(w, err)
		return
	}
	if boxes == nil {
		boxes = []face.BoundingBox{}
	}

	if annotate, _ := strconv.ParseBool(r.URL.Query().Get("annotate")); annotate {
		png, err := face.Annotate(image, boxes)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("X-Faces-Count", strconv.Itoa(len(boxes)))
		w.WriteHeader(http.StatusOK)
		w.Write(png)
		return
	}

	respondJSON(w, http.StatusOK, DetectResponse{FacesCount: len(boxes), Faces: boxes})
}
