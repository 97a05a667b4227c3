package imaging

import (
	"fmt"
	"image"
)

// Rectangle is an axis-aligned region given by its top-left corner and size.
//
// Callers give x, y, width and height as four non-negative integers.
type Rectangle struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect builds a Rectangle.
func Rect(x, y, width, height int) Rectangle {
	return Rectangle{X: x, Y: y, Width: width, Height: height}
}

// Bounds converts r to an image.Rectangle (exclusive max corner).
func (r Rectangle) Bounds() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Empty reports whether r covers no pixels.
func (r Rectangle) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// CenterX returns the horizontal center of r.
func (r Rectangle) CenterX() float64 {
	return float64(r.X) + float64(r.Width)/2
}

// Contains reports whether the pixel (x, y) lies inside r.
func (r Rectangle) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

func (r Rectangle) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// Clamp intersects r with a width x height image.
//
// Negative origins are pulled to zero and the far edges are cut at the image
// border. The result may be empty; use ClampRect to get a validated rectangle.
func (r Rectangle) Clamp(width, height int) Rectangle {
	b := r.Bounds().Intersect(image.Rect(0, 0, width, height))
	return Rectangle{X: b.Min.X, Y: b.Min.Y, Width: b.Dx(), Height: b.Dy()}
}

// ClampRect clamps r to the grid and rejects the result if it has zero area.
func ClampRect(g *PixelGrid, r Rectangle) (Rectangle, error) {
	if r.Empty() {
		return Rectangle{}, fmt.Errorf("%w: %s has zero area", ErrOutOfBounds, r)
	}
	c := r.Clamp(g.Width(), g.Height())
	if c.Empty() {
		return Rectangle{}, fmt.Errorf("%w: %s outside %dx%d image", ErrOutOfBounds, r, g.Width(), g.Height())
	}
	return c, nil
}
