package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"time"

	xdraw "golang.org/x/image/draw"
)

// Target resolution ceiling. Captures larger than this are downscaled to fit,
// preserving aspect ratio; smaller captures are kept at native size.
const (
	MaxWidth  = 1920
	MaxHeight = 1080
)

// Display describes one attached display at enumeration time.
type Display struct {
	// Index is the 1-based ordinal in platform enumeration order.
	Index int

	// ID is the opaque platform identifier for the display. Backends that
	// cannot surface a native identifier synthesize a stable one.
	ID string

	// Name is the human-readable display name ("Screen 1", ...).
	Name string

	// Bounds is the display's rectangle in virtual-desktop pixels.
	Bounds image.Rectangle
}

// Source enumerates displays and captures their content. Implementations
// must report displays in a stable platform order so screen ordinals stay
// consistent across ticks.
type Source interface {
	Displays(ctx context.Context) ([]Display, error)
	Capture(ctx context.Context, d Display) (image.Image, error)
}

// Artifact is one captured display image persisted to disk. The encoded
// bytes live at FilePath; the uploader reads them back per delivery attempt.
type Artifact struct {
	DisplayIndex int
	DisplayID    string
	DisplayName  string
	CapturedAt   time.Time
	Width        int
	Height       int
	FilePath     string
}

// Fit returns img downscaled to fit within maxW×maxH, preserving aspect
// ratio. Images already within the ceiling are returned unchanged.
func Fit(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxW && h <= maxH {
		return img
	}

	scale := float64(maxW) / float64(w)
	if s := float64(maxH) / float64(h); s < scale {
		scale = s
	}
	nw := int(float64(w)*scale + 0.5)
	nh := int(float64(h)*scale + 0.5)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// EncodePNG encodes img to lossless PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
