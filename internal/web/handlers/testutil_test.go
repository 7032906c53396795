package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/face"
	"github.com/kozaktomas/face-attendance/internal/identity"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
	"github.com/kozaktomas/face-attendance/internal/workflow"
)

var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// testImage builds fake PNG bytes; "<person>#<n>" identifies the person shown.
func testImage(label string) []byte {
	return append(append([]byte{}, pngMagic...), label...)
}

func personOf(img []byte) string {
	if len(img) < len(pngMagic) {
		return ""
	}
	person, _, _ := strings.Cut(string(img[len(pngMagic):]), "#")
	return person
}

var testDetector = face.DetectorFunc(func(ctx context.Context, img []byte) ([]face.BoundingBox, error) {
	switch personOf(img) {
	case "empty":
		return nil, nil
	case "down":
		return nil, &face.CollaboratorError{Op: "detect", Err: context.DeadlineExceeded}
	}
	return []face.BoundingBox{{X: 1, Y: 1, Width: 4, Height: 4}}, nil
})

var testVerifier = face.VerifierFunc(func(ctx context.Context, a, b []byte) (face.Verification, error) {
	if personOf(a) == personOf(b) {
		return face.Verification{Verified: true, Distance: 0.25}, nil
	}
	return face.Verification{Distance: 0.9}, nil
})

type testEnv struct {
	identities *identity.Store
	ledger     *ledger.CSVStore
	ids        *IdentitiesHandler
	attendance *AttendanceHandler
	records    *RecordsHandler
	detect     *DetectHandler
	session    *middleware.Session
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	ids := identity.NewStore(filepath.Join(dir, "faces"), testDetector, testVerifier)
	store := ledger.NewCSVStore(filepath.Join(dir, "attendance.csv"))
	return &testEnv{
		identities: ids,
		ledger:     store,
		ids:        NewIdentitiesHandler(ids, workflow.NewRegistrar(ids), workflow.NewDeletion(ids, store)),
		attendance: NewAttendanceHandler(workflow.NewAttendance(ids, store, time.UTC)),
		records:    NewRecordsHandler(store, time.UTC),
		detect:     NewDetectHandler(testDetector),
		session:    &middleware.Session{ID: "test-session", Workflow: workflow.NewSession()},
	}
}

func (e *testEnv) register(t *testing.T, name, label string) {
	t.Helper()
	if _, err := e.identities.Register(context.Background(), name, testImage(label)); err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
}

// withSession attaches the env's operator session to the request.
func (e *testEnv) withSession(r *http.Request) *http.Request {
	return r.WithContext(middleware.SetSessionInContext(r.Context(), e.session))
}

// multipartRequest builds a multipart form request with an optional image field.
func multipartRequest(t *testing.T, method, path string, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if image != nil {
		part, err := mw.CreateFormFile("image", "capture.png")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		part.Write(image)
	}
	mw.Close()

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
