package imaging

import (
	"github.com/anthonynsimon/bild/blur"
)

// GaussianBlur returns a copy of g smoothed with a Gaussian of the given
// radius. A non-positive radius returns an unmodified copy.
//
// bild truncates the convolution sums, so fully opaque input would come back
// with alpha 254 in places; opacity is restored in that case.
func GaussianBlur(g *PixelGrid, radius float64) *PixelGrid {
	if radius <= 0 {
		return g.Clone()
	}
	out := Wrap(blur.Gaussian(g.img, radius), g.hasAlpha)
	if g.img.Opaque() {
		out.forceOpaque()
	}
	return out
}

// GaussianPlane blurs a single 8-bit plane, used to feather blend masks.
func GaussianPlane(plane []uint8, width, height int, radius float64) []uint8 {
	out := make([]uint8, len(plane))
	if radius <= 0 {
		copy(out, plane)
		return out
	}
	blurred := blur.Gaussian(GrayImage(plane, width, height), radius)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			out[y*width+x] = blurred.Pix[blurred.PixOffset(x+blurred.Rect.Min.X, y+blurred.Rect.Min.Y)]
		}
	}
	return out
}
