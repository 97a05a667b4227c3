package repair

import (
	"fmt"

	"github.com/ironsheep/watermark-tools-mcp/internal/imaging"
)

// RepairMasked treats the whole image with a median pass and composites it
// back through mask, softened by a Gaussian of radius p.Feather.
//
// It is the repair for diffuse contamination such as tiled watermarks, where
// no single rectangle describes the damage. mask is row-major, one byte per
// pixel, 255 for contaminated pixels. The median window is p.Strength rounded
// up to odd. Pixels whose softened weight is 0 are returned unchanged.
func RepairMasked(g *imaging.PixelGrid, mask []uint8, p Params) (*imaging.PixelGrid, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil grid", imaging.ErrInvalidImage)
	}
	if len(mask) != g.Width()*g.Height() {
		return nil, fmt.Errorf("%w: mask has %d cells for %dx%d image",
			imaging.ErrDimensionMismatch, len(mask), g.Width(), g.Height())
	}
	p = p.normalized()

	treated := imaging.MedianFilter(g, imaging.OddWindow(p.Strength))
	weights := imaging.GaussianPlane(mask, g.Width(), g.Height(), float64(p.Feather))
	return imaging.Composite(g, treated, weights)
}
