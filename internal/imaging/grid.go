package imaging

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// PixelGrid is a decoded image held as 8-bit non-premultiplied RGBA.
//
// The backing image always has its origin at (0,0). HasAlpha records whether
// the source carried an alpha channel; grids without one are kept fully opaque
// and ToImage drops the synthesized alpha again so encoders write RGB.
//
// A grid is owned by the tool invocation that created it and is not safe for
// concurrent mutation.
type PixelGrid struct {
	img      *image.NRGBA
	hasAlpha bool
}

// NewPixelGrid allocates a width x height grid filled with transparent black,
// or opaque black when hasAlpha is false.
func NewPixelGrid(width, height int, hasAlpha bool) (*PixelGrid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidImage, width, height)
	}
	fill := color.NRGBA{A: 0}
	if !hasAlpha {
		fill.A = 255
	}
	return &PixelGrid{img: imaging.New(width, height, fill), hasAlpha: hasAlpha}, nil
}

// FromImage copies img into a new grid.
func FromImage(img image.Image) (*PixelGrid, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidImage)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidImage, b.Dx(), b.Dy())
	}
	g := &PixelGrid{img: imaging.Clone(img), hasAlpha: hasAlphaChannel(img)}
	if !g.hasAlpha {
		g.forceOpaque()
	}
	return g, nil
}

// wrap adopts an NRGBA produced by one of the filter libraries. The layout flag
// is inherited from the grid the pixels were derived from.
func wrap(img *image.NRGBA, hasAlpha bool) *PixelGrid {
	if img.Rect.Min != (image.Point{}) || img.Stride != 4*img.Rect.Dx() {
		img = imaging.Clone(img)
	}
	g := &PixelGrid{img: img, hasAlpha: hasAlpha}
	if !hasAlpha {
		g.forceOpaque()
	}
	return g
}

// Wrap adopts any image produced by a filter as a grid with the given layout.
func Wrap(img image.Image, hasAlpha bool) *PixelGrid {
	if n, ok := img.(*image.NRGBA); ok {
		return wrap(n, hasAlpha)
	}
	return wrap(imaging.Clone(img), hasAlpha)
}

// hasAlphaChannel mirrors the color-model checks used for image metadata.
func hasAlphaChannel(img image.Image) bool {
	switch t := img.(type) {
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64:
		return true
	case *image.Paletted:
		for _, c := range t.Palette {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}

// Width returns the grid width in pixels.
func (g *PixelGrid) Width() int { return g.img.Rect.Dx() }

// Height returns the grid height in pixels.
func (g *PixelGrid) Height() int { return g.img.Rect.Dy() }

// HasAlpha reports whether the source image carried an alpha channel.
func (g *PixelGrid) HasAlpha() bool { return g.hasAlpha }

// Bounds returns the full grid rectangle.
func (g *PixelGrid) Bounds() Rectangle { return Rect(0, 0, g.Width(), g.Height()) }

// NRGBA exposes the backing image. Filters read from it directly; callers
// must not retain it past the grid's lifetime.
func (g *PixelGrid) NRGBA() *image.NRGBA { return g.img }

// At returns the pixel at (x, y).
func (g *PixelGrid) At(x, y int) color.NRGBA { return g.img.NRGBAAt(x, y) }

// Set writes the pixel at (x, y).
func (g *PixelGrid) Set(x, y int, c color.NRGBA) {
	if !g.hasAlpha {
		c.A = 255
	}
	g.img.SetNRGBA(x, y, c)
}

// Clone returns a deep copy of g.
func (g *PixelGrid) Clone() *PixelGrid {
	return &PixelGrid{img: imaging.Clone(g.img), hasAlpha: g.hasAlpha}
}

// Equal reports whether two grids have identical size, layout and pixels.
func (g *PixelGrid) Equal(o *PixelGrid) bool {
	if g.Width() != o.Width() || g.Height() != o.Height() || g.hasAlpha != o.hasAlpha {
		return false
	}
	for i := range g.img.Pix {
		if g.img.Pix[i] != o.img.Pix[i] {
			return false
		}
	}
	return true
}

// ToImage returns the grid as an image ready for encoding.
func (g *PixelGrid) ToImage() image.Image {
	if g.hasAlpha {
		return g.img
	}
	out := imaging.Clone(g.img)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 255
	}
	return out
}

func (g *PixelGrid) forceOpaque() {
	for i := 3; i < len(g.img.Pix); i += 4 {
		g.img.Pix[i] = 255
	}
}
