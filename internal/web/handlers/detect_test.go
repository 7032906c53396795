package handlers

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
)

func solidPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestDetectHandler_JSON(t *testing.T) {
	env := newTestEnv(t)
	recorder := httptest.NewRecorder()

	env.detect.Detect(recorder, multipartRequest(t, http.MethodPost, "/api/v1/detect", nil, testImage("alice#1")))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp DetectResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.FacesCount != 1 || len(resp.Faces) != 1 || resp.Faces[0].Width != 4 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestDetectHandler_NoFace(t *testing.T) {
	env := newTestEnv(t)
	recorder := httptest.NewRecorder()

	env.detect.Detect(recorder, multipartRequest(t, http.MethodPost, "/api/v1/detect", nil, testImage("empty")))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp DetectResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.FacesCount != 0 || resp.Faces == nil {
		t.Errorf("expected empty face list, got %+v", resp)
	}
}

func TestDetectHandler_Annotate(t *testing.T) {
	env := newTestEnv(t)
	recorder := httptest.NewRecorder()

	env.detect.Detect(recorder, multipartRequest(t, http.MethodPost, "/api/v1/detect?annotate=true", nil, solidPNG(t, 16, 16)))

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "image/png")
	if recorder.Header().Get("X-Faces-Count") != "1" {
		t.Errorf("expected X-Faces-Count 1, got %q", recorder.Header().Get("X-Faces-Count"))
	}
	if _, err := png.Decode(recorder.Body); err != nil {
		t.Errorf("expected a PNG body: %v", err)
	}
}

func TestDetectHandler_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name       string
		image      []byte
		wantStatus int
	}{
		{"missing image", nil, http.StatusBadRequest},
		{"not an image", []byte("definitely not an image"), http.StatusBadRequest},
		{"detector down", testImage("down"), http.StatusBadGateway},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			env.detect.Detect(recorder, multipartRequest(t, http.MethodPost, "/api/v1/detect", nil, tc.image))
			assertStatusCode(t, recorder, tc.wantStatus)
		})
	}
}
