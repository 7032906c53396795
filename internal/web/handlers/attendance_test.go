package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/workflow"
)

func TestAttendanceHandler_Attempt(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Alice", "alice#1")
	env.attendance.now = func() time.Time { return time.Date(2024, 1, 1, 9, 5, 0, 0, time.UTC) }

	tests := []struct {
		name       string
		image      []byte
		wantStatus int
		wantState  workflow.AttendanceState
	}{
		{"marked", testImage("alice#2"), http.StatusOK, workflow.StateMarked},
		{"same capture skipped", testImage("alice#2"), http.StatusOK, workflow.StateSkipped},
		{"already marked", testImage("alice#3"), http.StatusOK, workflow.StateAlreadyMarkedToday},
		{"unknown face", testImage("stranger#1"), http.StatusOK, workflow.StateNoIdentityFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			req := multipartRequest(t, http.MethodPost, "/api/v1/attendance", nil, tc.image)
			env.attendance.Attempt(recorder, env.withSession(req))

			assertStatusCode(t, recorder, tc.wantStatus)
			var resp AttendanceResponse
			parseJSONResponse(t, recorder, &resp)
			if resp.State != tc.wantState {
				t.Errorf("expected state %s, got %s (%s)", tc.wantState, resp.State, resp.Message)
			}
			if tc.wantState == workflow.StateMarked {
				if resp.Record == nil || resp.Record.Date != "2024-01-01" || resp.Record.Time != "09:05:00" {
					t.Errorf("unexpected record %+v", resp.Record)
				}
			}
		})
	}

	records, _ := env.ledger.Load(t.Context())
	if len(records) != 1 {
		t.Errorf("expected exactly one record, got %d", len(records))
	}
}

func TestAttendanceHandler_MissingImage(t *testing.T) {
	env := newTestEnv(t)
	recorder := httptest.NewRecorder()

	env.attendance.Attempt(recorder, env.withSession(multipartRequest(t, http.MethodPost, "/api/v1/attendance", nil, nil)))

	assertStatusCode(t, recorder, http.StatusBadRequest)
}
