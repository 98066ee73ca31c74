package capture

import (
	"context"
	"fmt"
	"image"
	"strconv"

	"github.com/kbinani/screenshot"
)

// ScreenSource captures real displays through the platform screenshot API.
// The zero value is ready to use.
type ScreenSource struct{}

// Displays enumerates active displays in platform order. A headless machine
// yields an empty slice, not an error.
func (ScreenSource) Displays(ctx context.Context) ([]Display, error) {
	n := screenshot.NumActiveDisplays()
	displays := make([]Display, 0, n)
	for i := 0; i < n; i++ {
		displays = append(displays, Display{
			Index:  i + 1,
			ID:     strconv.Itoa(i),
			Name:   fmt.Sprintf("Screen %d", i+1),
			Bounds: screenshot.GetDisplayBounds(i),
		})
	}
	return displays, nil
}

// Capture grabs the full content of one display at native resolution.
func (ScreenSource) Capture(ctx context.Context, d Display) (image.Image, error) {
	img, err := screenshot.CaptureRect(d.Bounds)
	if err != nil {
		return nil, fmt.Errorf("capture display %d: %w", d.Index, err)
	}
	return img, nil
}
