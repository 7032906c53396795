//go:build gocv

package face

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/config"
	"gocv.io/x/gocv"
)

// GocvDetector runs an OpenCV Haar cascade classifier.
type GocvDetector struct {
	mu           sync.Mutex // CascadeClassifier is not safe for concurrent use
	classifier   gocv.CascadeClassifier
	scaleFactor  float64
	minNeighbors int
	minSize      int
}

// NewGocvDetector loads the Haar cascade XML at cfg.HaarCascadeFile.
func NewGocvDetector(cfg config.DetectorConfig) (*GocvDetector, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cfg.HaarCascadeFile) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load face cascade classifier: %s", cfg.HaarCascadeFile)
	}
	return &GocvDetector{
		classifier:   classifier,
		scaleFactor:  cfg.HaarScaleFactor,
		minNeighbors: cfg.HaarMinNeighbors,
		minSize:      cfg.MinSize,
	}, nil
}

// Detect implements Detector.
func (d *GocvDetector) Detect(ctx context.Context, data []byte) ([]BoundingBox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, collaboratorError("detect faces", err)
	}
	defer img.Close()
	if img.Empty() {
		return nil, collaboratorError("detect faces", fmt.Errorf("failed to decode image"))
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	d.mu.Lock()
	rects := d.classifier.DetectMultiScaleWithParams(gray, d.scaleFactor, d.minNeighbors, 0,
		image.Pt(d.minSize, d.minSize), image.Pt(0, 0))
	d.mu.Unlock()

	boxes := make([]BoundingBox, 0, len(rects))
	for _, r := range rects {
		boxes = append(boxes, BoundingBox{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()})
	}
	return boxes, nil
}

// Close releases the classifier.
func (d *GocvDetector) Close() error {
	return d.classifier.Close()
}
