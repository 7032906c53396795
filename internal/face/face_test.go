package face

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
)

func createTestImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"length mismatch", []float32{1, 0}, []float32{1}, 2},
		{"empty", nil, nil, 2},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CosineDistance(tc.a, tc.b)
			if math.Abs(got-tc.expected) > 1e-9 {
				t.Errorf("CosineDistance(%v, %v) = %f; want %f", tc.a, tc.b, got, tc.expected)
			}
		})
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"gif", []byte("GIF89a\x00\x00"), "image/gif"},
		{"bmp", []byte("BM\x00\x00\x00\x00\x00\x00"), "image/bmp"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), "image/webp"},
		{"too short", []byte{0xFF, 0xD8}, "application/octet-stream"},
		{"unknown", []byte("hello world"), "application/octet-stream"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectMIMEType(tc.data); got != tc.expected {
				t.Errorf("DetectMIMEType() = %s; want %s", got, tc.expected)
			}
		})
	}
}

func TestExtension(t *testing.T) {
	if Extension("image/jpeg") != ".jpg" {
		t.Error("expected .jpg for image/jpeg")
	}
	if Extension("application/octet-stream") != "" {
		t.Error("expected empty extension for unknown type")
	}
	if !IsImageExtension(".JPEG") || IsImageExtension(".txt") {
		t.Error("unexpected IsImageExtension result")
	}
}

func TestDownscale(t *testing.T) {
	img := createTestImage(400, 200, color.White)

	small, scale := Downscale(img, 100)
	if small.Bounds().Dx() != 100 || small.Bounds().Dy() != 50 {
		t.Errorf("expected 100x50, got %dx%d", small.Bounds().Dx(), small.Bounds().Dy())
	}
	if scale != 4 {
		t.Errorf("expected scale 4, got %f", scale)
	}

	same, scale := Downscale(img, 1000)
	if same != img || scale != 1 {
		t.Error("expected image within bounds to be returned unchanged")
	}
}

func TestDetectionToBox(t *testing.T) {
	box := detectionToBox(100, 80, 40, 2)
	want := BoundingBox{X: 120, Y: 160, Width: 80, Height: 80}
	if box != want {
		t.Errorf("detectionToBox = %+v; want %+v", box, want)
	}
}

func TestAnnotate(t *testing.T) {
	data := encodePNG(t, createTestImage(50, 50, color.White))

	out, err := Annotate(data, []BoundingBox{{X: 10, Y: 10, Width: 20, Height: 20}})
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("annotated output is not a PNG: %v", err)
	}

	r, g, b, _ := img.At(10, 10).RGBA()
	if r != 0 || g != 0xFFFF || b != 0 {
		t.Errorf("expected green corner pixel, got r=%d g=%d b=%d", r, g, b)
	}
	r, g, b, _ = img.At(20, 20).RGBA()
	if r != 0xFFFF || g != 0xFFFF || b != 0xFFFF {
		t.Errorf("expected interior to stay white, got r=%d g=%d b=%d", r, g, b)
	}
}

func TestAnnotate_ClipsBoxes(t *testing.T) {
	data := encodePNG(t, createTestImage(20, 20, color.White))

	if _, err := Annotate(data, []BoundingBox{{X: -5, Y: -5, Width: 100, Height: 100}}); err != nil {
		t.Fatalf("Annotate failed for out-of-bounds box: %v", err)
	}
}

func TestAnnotate_InvalidImage(t *testing.T) {
	if _, err := Annotate([]byte("not an image"), nil); err == nil {
		t.Error("expected error for invalid image")
	}
}

func TestCollaboratorError(t *testing.T) {
	cause := errors.New("boom")
	err := collaboratorError("detect faces", cause)

	if !errors.Is(err, ErrCollaborator) {
		t.Error("expected errors.Is(err, ErrCollaborator)")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable")
	}
	if err.Error() != "detect faces: boom" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
