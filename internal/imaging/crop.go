package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// ResampleFilter selects the interpolation used when a grid is resized.
type ResampleFilter int

const (
	// NearestNeighbor copies the closest source pixel; edges stay hard.
	NearestNeighbor ResampleFilter = iota
	// Bilinear interpolates between the four closest source pixels.
	Bilinear
)

func (f ResampleFilter) filter() imaging.ResampleFilter {
	if f == Bilinear {
		return imaging.Linear
	}
	return imaging.NearestNeighbor
}

// Crop returns a copy of the pixels of g inside r.
//
// The rectangle is clamped to the grid first; a rectangle that has zero area
// after clamping fails with ErrOutOfBounds.
func Crop(g *PixelGrid, r Rectangle) (*PixelGrid, error) {
	c, err := ClampRect(g, r)
	if err != nil {
		return nil, err
	}
	return wrap(imaging.Crop(g.img, c.Bounds()), g.hasAlpha), nil
}

// Paste overwrites the pixels of dst inside r with src.
//
// When src does not match r's size it is resized with filter first. The
// rectangle must lie inside dst after clamping; if clamping shrank it, src is
// fitted to the clamped size.
func Paste(dst *PixelGrid, r Rectangle, src *PixelGrid, filter ResampleFilter) error {
	c, err := ClampRect(dst, r)
	if err != nil {
		return err
	}
	if src.Width() != c.Width || src.Height() != c.Height {
		resized, err := Resize(src, c.Width, c.Height, filter)
		if err != nil {
			return fmt.Errorf("%w: cannot fit %dx%d source into %s: %v",
				ErrDimensionMismatch, src.Width(), src.Height(), c, err)
		}
		src = resized
	}
	if src.Width() != c.Width || src.Height() != c.Height {
		return fmt.Errorf("%w: source %dx%d, target %s",
			ErrDimensionMismatch, src.Width(), src.Height(), c)
	}

	rowBytes := c.Width * 4
	for y := 0; y < c.Height; y++ {
		d := dst.img.PixOffset(c.X, c.Y+y)
		s := src.img.PixOffset(0, y)
		copy(dst.img.Pix[d:d+rowBytes], src.img.Pix[s:s+rowBytes])
	}
	if !dst.hasAlpha && src.hasAlpha {
		dst.forceOpaque()
	}
	return nil
}

// Resize returns a new width x height grid resampled from g.
//
// Both target sides must be positive; imaging's "0 keeps aspect ratio"
// convention is deliberately not exposed here.
func Resize(g *PixelGrid, width, height int, filter ResampleFilter) (*PixelGrid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if width == g.Width() && height == g.Height() {
		return g.Clone(), nil
	}
	return wrap(imaging.Resize(g.img, width, height, filter.filter()), g.hasAlpha), nil
}

// Scale resizes g by a positive factor, keeping at least one pixel per side.
func Scale(g *PixelGrid, factor float64, filter ResampleFilter) (*PixelGrid, error) {
	if factor <= 0 {
		return nil, fmt.Errorf("%w: scale %.3f", ErrInvalidDimensions, factor)
	}
	w := int(float64(g.Width()) * factor)
	h := int(float64(g.Height()) * factor)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return Resize(g, w, h, filter)
}

// Rotate turns g counter-clockwise by angle degrees. The canvas grows to fit
// the rotated image when expand is true and keeps the size of g otherwise;
// uncovered pixels are transparent (or black for opaque grids).
func Rotate(g *PixelGrid, angle float64, expand bool) *PixelGrid {
	rotated := imaging.Rotate(g.img, angle, image.Transparent)
	if !expand {
		canvas := imaging.New(g.Width(), g.Height(), color.Transparent)
		rotated = imaging.PasteCenter(canvas, imaging.CropCenter(rotated, g.Width(), g.Height()))
	}
	return wrap(rotated, g.hasAlpha)
}

// RotatedSize returns the bounding box of a width x height image turned by
// angle degrees, the canvas Rotate produces when expand is true.
func RotatedSize(width, height int, angle float64) (int, int) {
	rad := angle * math.Pi / 180
	sin, cos := math.Abs(math.Sin(rad)), math.Abs(math.Cos(rad))
	w := float64(width)*cos + float64(height)*sin
	h := float64(width)*sin + float64(height)*cos
	return int(math.Ceil(w - 1e-6)), int(math.Ceil(h - 1e-6))
}
