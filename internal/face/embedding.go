package face

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

const (
	defaultEmbeddingURL = "http://localhost:8000"

	// embeddingCacheSize bounds the number of memoized face embeddings
	embeddingCacheSize = 1024
)

// errNoFace is returned when an image sent for verification contains no face.
var errNoFace = errors.New("no face found in image")

// EmbeddingClient detects faces and verifies identities using the face embedding server.
type EmbeddingClient struct {
	baseURL   string
	threshold float64
	client    *http.Client

	mu    sync.Mutex
	cache map[string][]float32 // sha256 of image bytes -> best face embedding
}

// NewEmbeddingClient creates a new embedding client. threshold is the maximum
// cosine distance at which two faces verify as the same person.
func NewEmbeddingClient(baseURL string, threshold float64) *EmbeddingClient {
	if baseURL == "" {
		baseURL = defaultEmbeddingURL
	}
	if threshold <= 0 {
		threshold = constants.DefaultVerifyThreshold
	}
	return &EmbeddingClient{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		threshold: threshold,
		client:    &http.Client{Timeout: 60 * time.Second},
		cache:     make(map[string][]float32),
	}
}

// FaceDetection represents a single detected face
type FaceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// FaceResponse represents the response from the face embedding endpoint
type FaceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []FaceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// postMultipartImage constructs a multipart form with the image data and posts it to the given endpoint.
// The part carries an explicit Content-Type header based on magic byte detection.
func (c *EmbeddingClient) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", DetectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// ComputeFaceEmbeddings detects faces and computes their embeddings
func (c *EmbeddingClient) ComputeFaceEmbeddings(ctx context.Context, imageData []byte) (*FaceResponse, error) {
	body, err := c.postMultipartImage(ctx, "/embed/face", imageData)
	if err != nil {
		return nil, err
	}

	var faceResp FaceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &faceResp, nil
}

// Detect implements Detector using the face endpoint's bounding boxes.
func (c *EmbeddingClient) Detect(ctx context.Context, image []byte) ([]BoundingBox, error) {
	resp, err := c.ComputeFaceEmbeddings(ctx, image)
	if err != nil {
		return nil, collaboratorError("detect faces", err)
	}

	boxes := make([]BoundingBox, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		if len(f.BBox) != 4 {
			continue
		}
		boxes = append(boxes, cornerToBox(f.BBox))
	}
	return boxes, nil
}

// Verify implements Verifier: both images are embedded (best face each) and
// compared by cosine distance against the configured threshold.
func (c *EmbeddingClient) Verify(ctx context.Context, a, b []byte) (Verification, error) {
	embA, err := c.faceEmbedding(ctx, a)
	if err != nil {
		return Verification{}, collaboratorError("verify faces", err)
	}
	embB, err := c.faceEmbedding(ctx, b)
	if err != nil {
		return Verification{}, collaboratorError("verify faces", err)
	}

	dist := CosineDistance(embA, embB)
	return Verification{Verified: dist <= c.threshold, Distance: dist}, nil
}

// Threshold returns the verification distance threshold.
func (c *EmbeddingClient) Threshold() float64 {
	return c.threshold
}

// faceEmbedding returns the embedding of the highest scoring face, memoized by content hash.
func (c *EmbeddingClient) faceEmbedding(ctx context.Context, image []byte) ([]float32, error) {
	sum := sha256.Sum256(image)
	key := hex.EncodeToString(sum[:])

	c.mu.Lock()
	emb, ok := c.cache[key]
	c.mu.Unlock()
	if ok {
		return emb, nil
	}

	resp, err := c.ComputeFaceEmbeddings(ctx, image)
	if err != nil {
		return nil, err
	}

	var best *FaceDetection
	for i := range resp.Faces {
		f := &resp.Faces[i]
		if len(f.Embedding) == 0 {
			continue
		}
		if best == nil || f.DetScore > best.DetScore {
			best = f
		}
	}
	if best == nil {
		return nil, errNoFace
	}

	c.mu.Lock()
	if len(c.cache) >= embeddingCacheSize {
		clear(c.cache)
	}
	c.cache[key] = best.Embedding
	c.mu.Unlock()

	return best.Embedding, nil
}

// cornerToBox converts [x1, y1, x2, y2] pixel corners to a BoundingBox.
func cornerToBox(bbox []float64) BoundingBox {
	return BoundingBox{
		X:      int(bbox[0]),
		Y:      int(bbox[1]),
		Width:  int(bbox[2] - bbox[0]),
		Height: int(bbox[3] - bbox[1]),
	}
}
