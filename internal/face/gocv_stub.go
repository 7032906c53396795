//go:build !gocv

package face

import (
	"context"
	"errors"

	"github.com/kozaktomas/face-attendance/internal/config"
)

var errNoOpenCV = errors.New("OpenCV detector not available: rebuild with -tags gocv")

// GocvDetector is unavailable without the gocv build tag.
type GocvDetector struct{}

// NewGocvDetector reports that OpenCV support was not compiled in.
func NewGocvDetector(config.DetectorConfig) (*GocvDetector, error) {
	return nil, errNoOpenCV
}

func (d *GocvDetector) Detect(context.Context, []byte) ([]BoundingBox, error) {
	return nil, collaboratorError("detect faces", errNoOpenCV)
}

func (d *GocvDetector) Close() error { return nil }
