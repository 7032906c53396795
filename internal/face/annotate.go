package face

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"
)

// boxColor is the rectangle color drawn around detected faces.
var boxColor = color.RGBA{0, 255, 0, 255}

const boxThickness = 2

// Annotate draws a rectangle around every box and returns the result as PNG.
func Annotate(data []byte, boxes []BoundingBox) ([]byte, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Src)

	for _, box := range boxes {
		drawRect(dst, box)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode annotated image: %w", err)
	}
	return buf.Bytes(), nil
}

// drawRect draws the outline of box, clipped to the image bounds.
func drawRect(img *image.RGBA, box BoundingBox) {
	x1, y1 := box.X, box.Y
	x2, y2 := box.X+box.Width-1, box.Y+box.Height-1
	for t := range boxThickness {
		for x := x1; x <= x2; x++ {
			setClipped(img, x, y1+t)
			setClipped(img, x, y2-t)
		}
		for y := y1; y <= y2; y++ {
			setClipped(img, x1+t, y)
			setClipped(img, x2-t, y)
		}
	}
}

func setClipped(img *image.RGBA, x, y int) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetRGBA(x, y, boxColor)
	}
}
