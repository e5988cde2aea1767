package render

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"
)

// MissingAssetError means the field background image could not be found.
// The application cannot start without it.
type MissingAssetError struct {
	Path string
	Err  error
}

func (e *MissingAssetError) Error() string {
	return fmt.Sprintf("%sが見つかりません。アプリと同じフォルダに配置してください。", e.Path)
}

func (e *MissingAssetError) Unwrap() error {
	return e.Err
}

// LoadField reads a JPEG or PNG field image and scales it to size x size
func LoadField(path string, size int) (image.Image, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &MissingAssetError{Path: path, Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open field image: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode field image %s: %w", path, err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst, nil
}

// Renderer draws markers on top of the field image. The base image is never modified.
type Renderer struct {
	base       image.Image
	markerSize float64
}

// NewRenderer creates a renderer for a loaded field image
func NewRenderer(base image.Image, markerSize int) *Renderer {
	return &Renderer{base: base, markerSize: float64(markerSize)}
}

// Bounds returns the field image size
func (r *Renderer) Bounds() image.Rectangle {
	return r.base.Bounds()
}

// Draw returns a copy of the field with markers painted in order
func (r *Renderer) Draw(markers []Marker) image.Image {
	dc := gg.NewContextForImage(r.base)
	half := r.markerSize / 2

	for _, m := range markers {
		x, y := float64(m.X), float64(m.Y)
		dc.SetColor(RGBA(m.Color))

		switch m.Shape {
		case ShapeRectangle:
			dc.DrawRectangle(x-half, y-half, r.markerSize, r.markerSize)
		case ShapeTriangle:
			dc.MoveTo(x, y-half)
			dc.LineTo(x-half, y+half)
			dc.LineTo(x+half, y+half)
			dc.ClosePath()
		default:
			dc.DrawEllipse(x, y, half, half)
		}
		dc.Fill()
	}
	return dc.Image()
}

// WritePNG draws markers and encodes the result as PNG
func (r *Renderer) WritePNG(w io.Writer, markers []Marker) error {
	return png.Encode(w, r.Draw(markers))
}
