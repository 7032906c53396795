package face

import (
	"context"
	"fmt"
	"os"

	pigo "github.com/esimov/pigo/core"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
)

// PigoDetector is a pure-Go cascade face detector.
type PigoDetector struct {
	classifier *pigo.Pigo
	params     config.DetectorConfig
}

// NewPigoDetector loads the facefinder cascade at cfg.CascadeFile.
func NewPigoDetector(cfg config.DetectorConfig) (*PigoDetector, error) {
	cascade, err := os.ReadFile(cfg.CascadeFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read cascade file: %w", err)
	}

	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack cascade: %w", err)
	}

	return &PigoDetector{classifier: classifier, params: cfg}, nil
}

// Detect implements Detector.
func (d *PigoDetector) Detect(ctx context.Context, image []byte) ([]BoundingBox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := DecodeImage(image)
	if err != nil {
		return nil, collaboratorError("detect faces", err)
	}
	img, scale := Downscale(img, constants.MaxImageSize)

	src := pigo.ImgToNRGBA(img)
	pixels := pigo.RgbToGrayscale(src)
	cols, rows := src.Bounds().Max.X, src.Bounds().Max.Y

	cParams := pigo.CascadeParams{
		MinSize:     d.params.MinSize,
		MaxSize:     d.params.MaxSize,
		ShiftFactor: d.params.ShiftFactor,
		ScaleFactor: d.params.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := d.classifier.RunCascade(cParams, 0.0)
	dets = d.classifier.ClusterDetections(dets, d.params.IoUThreshold)

	boxes := make([]BoundingBox, 0, len(dets))
	for _, det := range dets {
		if det.Q < d.params.MinQuality {
			continue
		}
		boxes = append(boxes, detectionToBox(det.Row, det.Col, det.Scale, scale))
	}
	return boxes, nil
}

// detectionToBox converts a pigo center/scale detection back to original image pixels.
func detectionToBox(row, col, size int, scale float64) BoundingBox {
	return BoundingBox{
		X:      int(float64(col-size/2) * scale),
		Y:      int(float64(row-size/2) * scale),
		Width:  int(float64(size) * scale),
		Height: int(float64(size) * scale),
	}
}
