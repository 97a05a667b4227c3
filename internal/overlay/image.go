package overlay

import (
	"fmt"

	"github.com/ironsheep/watermark-tools-mcp/internal/imaging"
)

// ImageOptions controls AddImage.
type ImageOptions struct {
	X, Y int
	// Opacity in (0, 1]; zero means DefaultOpacity.
	Opacity float64
	// Scale resizes the mark before drawing; zero means 1.
	Scale float64
}

// AddImage draws mark over g at (X, Y), resized by Scale and blended with
// Opacity on top of the mark's own alpha.
func AddImage(g, mark *imaging.PixelGrid, opts ImageOptions) (*imaging.PixelGrid, error) {
	if mark == nil {
		return nil, fmt.Errorf("%w: missing watermark image", imaging.ErrInvalidImage)
	}
	opacity, err := normalizeOpacity(opts.Opacity)
	if err != nil {
		return nil, err
	}
	if opts.Scale != 0 && opts.Scale != 1 {
		mark, err = imaging.Scale(mark, opts.Scale, imaging.Bilinear)
		if err != nil {
			return nil, err
		}
	}
	return imaging.Overlay(g, mark, opts.X, opts.Y, opacity), nil
}
