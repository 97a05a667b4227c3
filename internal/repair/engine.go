package repair

import (
	"fmt"

	"github.com/ironsheep/watermark-tools-mcp/internal/imaging"
)

// Repair returns a copy of g with the pixels inside r replaced using method m.
//
// r is clamped to the image first; a rectangle with zero area after clamping
// fails with imaging.ErrOutOfBounds. Outside r the result is identical to g.
// With p.Feather > 0 the replacement is blended in through a softened mask,
// so only pixels within Feather of r's border differ from a hard-edged repair.
func Repair(g *imaging.PixelGrid, r imaging.Rectangle, m Method, p Params) (*imaging.PixelGrid, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil grid", imaging.ErrInvalidImage)
	}
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, string(m))
	}
	rect, err := imaging.ClampRect(g, r)
	if err != nil {
		return nil, err
	}
	p = p.normalized()

	patch, err := synthesize(g, rect, m, p)
	if err != nil {
		return nil, fmt.Errorf("%s repair of %s: %w", m, rect, err)
	}

	edited := g.Clone()
	if err := imaging.Paste(edited, rect, patch, imaging.NearestNeighbor); err != nil {
		return nil, err
	}
	if p.Feather == 0 {
		return edited, nil
	}
	return imaging.Composite(g, edited, FeatherMask(g.Width(), g.Height(), rect, p.Feather))
}

// synthesize produces the replacement pixels for rect, sized exactly like it.
func synthesize(g *imaging.PixelGrid, rect imaging.Rectangle, m Method, p Params) (*imaging.PixelGrid, error) {
	switch m {
	case CloneLeft, CloneTop:
		src, ok := cloneSource(g, rect, m)
		if !ok {
			// The rectangle spans the whole axis: nothing to copy from.
			return synthesize(g, rect, Median, p)
		}
		patch, err := imaging.Crop(g, src)
		if err != nil {
			return nil, err
		}
		return imaging.Resize(patch, rect.Width, rect.Height, imaging.NearestNeighbor)
	}

	patch, err := imaging.Crop(g, rect)
	if err != nil {
		return nil, err
	}
	switch m {
	case Blur:
		return imaging.GaussianBlur(patch, float64(p.Strength)), nil
	case Pixelate:
		return pixelate(patch, p.Strength)
	default:
		return imaging.MedianFilter(patch, imaging.OddWindow(p.Strength)), nil
	}
}

// pixelate shrinks src to one sample per block x block cell with
// nearest-neighbor sampling, then expands each sample back over its cell.
// Cells are anchored at the top-left corner; leftover columns and rows join
// the last cell, so every aligned block is a single color.
func pixelate(src *imaging.PixelGrid, block int) (*imaging.PixelGrid, error) {
	w, h := src.Width(), src.Height()
	sw, sh := max(1, w/block), max(1, h/block)

	small, err := imaging.Resize(src, sw, sh, imaging.NearestNeighbor)
	if err != nil {
		return nil, err
	}
	out, err := imaging.NewPixelGrid(w, h, src.HasAlpha())
	if err != nil {
		return nil, err
	}
	for y := 0; y < h; y++ {
		sy := min(y/block, sh-1)
		for x := 0; x < w; x++ {
			out.Set(x, y, small.At(min(x/block, sw-1), sy))
		}
	}
	return out, nil
}

// cloneSource picks the area a clone repair copies from: the same-sized
// rectangle immediately left of (CloneLeft) or above (CloneTop) the target,
// clamped to the image. When the target touches that edge the area on the
// opposite side is used instead. ok is false when neither side has pixels.
func cloneSource(g *imaging.PixelGrid, rect imaging.Rectangle, m Method) (imaging.Rectangle, bool) {
	w, h := g.Width(), g.Height()

	var near, far imaging.Rectangle
	if m == CloneLeft {
		near = imaging.Rect(rect.X-rect.Width, rect.Y, rect.Width, rect.Height)
		far = imaging.Rect(rect.X+rect.Width, rect.Y, rect.Width, rect.Height)
	} else {
		near = imaging.Rect(rect.X, rect.Y-rect.Height, rect.Width, rect.Height)
		far = imaging.Rect(rect.X, rect.Y+rect.Height, rect.Width, rect.Height)
	}

	if src := near.Clamp(w, h); !src.Empty() {
		return src, true
	}
	if src := far.Clamp(w, h); !src.Empty() {
		return src, true
	}
	return imaging.Rectangle{}, false
}
