package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/workflow"
)

// AttendanceHandler handles capture submissions.
type AttendanceHandler struct {
	attendance *workflow.Attendance
	now        func() time.Time
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(attendance *workflow.Attendance) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, now: time.Now}
}

// AttendanceResponse reports how a capture was handled.
type AttendanceResponse struct {
	State    workflow.AttendanceState `json:"state"`
	Message  string                   `json:"message"`
	Name     string                   `json:"name,omitempty"`
	Distance float64                  `json:"distance,omitempty"`
	Record   *ledger.Record           `json:"record,omitempty"`
}

// Attempt identifies the face in the multipart "image" and marks attendance.
// Every outcome except a failure is a 200 response carrying its state.
func (h *AttendanceHandler) Attempt(w http.ResponseWriter, r *http.Request) {
	session := operatorSession(w, r)
	if session == nil {
		return
	}
	image, err := readImage(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := h.attendance.Attempt(r.Context(), session, image, h.now())
	if res.State == workflow.StateAttendanceFailed {
		log.Printf("Attendance attempt failed: %v", res.Err)
		respondErr(w, res.Err)
		return
	}

	resp := AttendanceResponse{
		State:    res.State,
		Message:  res.Message(),
		Name:     res.Name,
		Distance: res.Distance,
	}
	if res.State == workflow.StateMarked || res.State == workflow.StateAlreadyMarkedToday {
		rec := res.Record
		resp.Record = &rec
	}
	respondJSON(w, http.StatusOK, resp)
}
