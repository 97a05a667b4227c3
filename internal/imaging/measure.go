package imaging

import (
	"fmt"
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// DiffResult summarizes how an edited grid differs from its source.
type DiffResult struct {
	ChangedPixels  int     `json:"changed_pixels"`
	ChangedOutside int     `json:"changed_outside"`
	TotalPixels    int     `json:"total_pixels"`
	MeanColorDiff  float64 `json:"mean_color_diff"`
}

// Difference compares before and after pixel by pixel. ChangedOutside counts
// changed pixels that lie outside r; MeanColorDiff is the average per-channel
// RGB difference over the pixels inside r.
func Difference(before, after *PixelGrid, r Rectangle) (*DiffResult, error) {
	if before.Width() != after.Width() || before.Height() != after.Height() {
		return nil, fmt.Errorf("%w: %dx%d vs %dx%d", ErrDimensionMismatch,
			before.Width(), before.Height(), after.Width(), after.Height())
	}

	res := &DiffResult{TotalPixels: before.Width() * before.Height()}
	var inside int
	var sum float64
	for y := 0; y < before.Height(); y++ {
		for x := 0; x < before.Width(); x++ {
			a, b := before.At(x, y), after.At(x, y)
			in := r.Contains(x, y)
			if in {
				inside++
				sum += float64(absDiff(a.R, b.R)+absDiff(a.G, b.G)+absDiff(a.B, b.B)) / 3.0
			}
			if a == b {
				continue
			}
			res.ChangedPixels++
			if !in {
				res.ChangedOutside++
			}
		}
	}
	if inside > 0 {
		res.MeanColorDiff = math.Round(sum/float64(inside)*100) / 100
	}
	return res, nil
}

// SeamDeltaE measures how visible the border of r is in g: the mean CIE76
// color distance (Lab, scaled to the usual 0-100 range) between each pixel on
// r's edge and its neighbour just outside r. Edges lying on the image border
// contribute nothing. Returns 0 when no pair can be formed.
func SeamDeltaE(g *PixelGrid, r Rectangle) float64 {
	var sum float64
	var n int
	pair := func(ix, iy, ox, oy int) {
		if ox < 0 || oy < 0 || ox >= g.Width() || oy >= g.Height() {
			return
		}
		sum += labDistance(g.At(ix, iy), g.At(ox, oy))
		n++
	}

	for x := r.X; x < r.X+r.Width; x++ {
		pair(x, r.Y, x, r.Y-1)
		pair(x, r.Y+r.Height-1, x, r.Y+r.Height)
	}
	for y := r.Y; y < r.Y+r.Height; y++ {
		pair(r.X, y, r.X-1, y)
		pair(r.X+r.Width-1, y, r.X+r.Width, y)
	}
	if n == 0 {
		return 0
	}
	return math.Round(sum/float64(n)*100) / 100
}

func labDistance(a, b color.NRGBA) float64 {
	ca := colorful.Color{R: float64(a.R) / 255, G: float64(a.G) / 255, B: float64(a.B) / 255}
	cb := colorful.Color{R: float64(b.R) / 255, G: float64(b.G) / 255, B: float64(b.B) / 255}
	return ca.DistanceLab(cb) * 100
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
