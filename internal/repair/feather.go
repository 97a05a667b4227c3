package repair

import (
	"github.com/ironsheep/watermark-tools-mcp/internal/imaging"
)

// FeatherMask builds the blend weights for a feathered repair of r in a
// width x height image.
//
// The mask starts at 255 inside r and 0 outside, and is blurred with a
// Gaussian of radius feather. Weights are then pinned: 0 outside r, 255 for
// pixels at least feather pixels inside r's border. The soft band therefore
// lies entirely within r.
func FeatherMask(width, height int, r imaging.Rectangle, feather int) []uint8 {
	weights := make([]uint8, width*height)
	if feather <= 0 {
		for y := r.Y; y < r.Y+r.Height; y++ {
			for x := r.X; x < r.X+r.Width; x++ {
				weights[y*width+x] = 255
			}
		}
		return weights
	}

	// Blur a window around r only; beyond feather+2 pixels the hard mask is
	// zero and contributes nothing.
	pad := feather + 2
	win := imaging.Rect(r.X-pad, r.Y-pad, r.Width+2*pad, r.Height+2*pad).Clamp(width, height)
	hard := make([]uint8, win.Width*win.Height)
	for y := r.Y; y < r.Y+r.Height; y++ {
		for x := r.X; x < r.X+r.Width; x++ {
			hard[(y-win.Y)*win.Width+(x-win.X)] = 255
		}
	}
	soft := imaging.GaussianPlane(hard, win.Width, win.Height, float64(feather))

	for y := r.Y; y < r.Y+r.Height; y++ {
		for x := r.X; x < r.X+r.Width; x++ {
			d := min(x-r.X, r.X+r.Width-1-x, y-r.Y, r.Y+r.Height-1-y)
			if d >= feather {
				weights[y*width+x] = 255
				continue
			}
			weights[y*width+x] = soft[(y-win.Y)*win.Width+(x-win.X)]
		}
	}
	return weights
}
