package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Composite blends over onto base through a per-pixel weight plane and
// returns the result as a new grid.
//
// weights is row-major with one byte per pixel: 255 takes the over pixel, 0
// keeps the base pixel, values in between mix all four channels linearly.
// Where weight is 255, or where over equals base, the output is bit-exact.
func Composite(base, over *PixelGrid, weights []uint8) (*PixelGrid, error) {
	if base.Width() != over.Width() || base.Height() != over.Height() {
		return nil, fmt.Errorf("%w: base %dx%d, overlay %dx%d", ErrDimensionMismatch,
			base.Width(), base.Height(), over.Width(), over.Height())
	}
	if len(weights) != base.Width()*base.Height() {
		return nil, fmt.Errorf("%w: %d weights for %dx%d image", ErrDimensionMismatch,
			len(weights), base.Width(), base.Height())
	}

	out := base.Clone()
	bp, op, dst := base.img.Pix, over.img.Pix, out.img.Pix
	for i, w := range weights {
		switch w {
		case 0:
			continue
		case 255:
			copy(dst[i*4:i*4+4], op[i*4:i*4+4])
			continue
		}
		a, b := int(w), 255-int(w)
		for c := 0; c < 4; c++ {
			dst[i*4+c] = uint8((int(op[i*4+c])*a + int(bp[i*4+c])*b + 127) / 255)
		}
	}
	if !out.hasAlpha {
		out.forceOpaque()
	}
	return out, nil
}

// Overlay draws top over base with its top-left corner at (x, y), scaled by
// opacity (0..1) on top of top's own alpha. The result has base's size and
// layout; parts of top outside base are dropped.
func Overlay(base, top *PixelGrid, x, y int, opacity float64) *PixelGrid {
	return wrap(imaging.Overlay(base.img, top.img, image.Pt(x, y), opacity), base.hasAlpha)
}
