package detection

import (
	"math"

	"github.com/anthonynsimon/bild/effect"

	"github.com/ironsheep/watermark-tools-mcp/internal/imaging"
)

// percentile returns the p-th percentile (0..100) of plane, interpolating
// linearly between the two closest ranks.
func percentile(plane []uint8, p float64) float64 {
	if len(plane) == 0 {
		return 0
	}
	var hist [256]int
	for _, v := range plane {
		hist[v]++
	}

	pos := p / 100 * float64(len(plane)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	vlo := float64(rankValue(&hist, lo))
	if hi == lo {
		return vlo
	}
	vhi := float64(rankValue(&hist, hi))
	return vlo + (vhi-vlo)*(pos-float64(lo))
}

// rankValue returns the value at 0-based rank k of the sorted histogram.
func rankValue(hist *[256]int, k int) uint8 {
	seen := 0
	for v := 0; v < 256; v++ {
		seen += hist[v]
		if seen > k {
			return uint8(v)
		}
	}
	return 255
}

// threshold marks the cells of plane strictly greater than limit.
func threshold(plane []uint8, limit float64) []uint8 {
	out := make([]uint8, len(plane))
	for i, v := range plane {
		if float64(v) > limit {
			out[i] = 255
		}
	}
	return out
}

// residuals splits brightness minus background into its positive and
// negative parts, each clipped at zero.
func residuals(brightness, background []uint8) (pos, neg []uint8) {
	pos = make([]uint8, len(brightness))
	neg = make([]uint8, len(brightness))
	for i := range brightness {
		b, bg := brightness[i], background[i]
		if b > bg {
			pos[i] = b - bg
		} else {
			neg[i] = bg - b
		}
	}
	return pos, neg
}

// union ORs masks of equal length into the first one.
func union(dst []uint8, masks ...[]uint8) []uint8 {
	for _, m := range masks {
		for i, v := range m {
			if v != 0 {
				dst[i] = 255
			}
		}
	}
	return dst
}

// dilate grows mask with passes of a 3x3 max filter.
func dilate(mask []uint8, width, height, passes int) []uint8 {
	out := mask
	for i := 0; i < passes; i++ {
		grown := effect.Dilate(imaging.GrayImage(out, width, height), 1)
		next := make([]uint8, len(out))
		for y := 0; y < height; y++ {
			row := grown.Pix[y*grown.Stride:]
			for x := 0; x < width; x++ {
				next[y*width+x] = row[x*4]
			}
		}
		out = next
	}
	return out
}

// coverage is the fraction of set cells.
func coverage(mask []uint8) float64 {
	if len(mask) == 0 {
		return 0
	}
	set := 0
	for _, v := range mask {
		if v != 0 {
			set++
		}
	}
	return float64(set) / float64(len(mask))
}

// boundingRect returns the smallest rectangle enclosing every set cell, and
// false when the mask is empty.
func boundingRect(mask []uint8, width, height int) (imaging.Rectangle, bool) {
	minX, minY, maxX, maxY := width, height, -1, -1
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if mask[y*width+x] == 0 {
				continue
			}
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}
	if maxX < 0 {
		return imaging.Rectangle{}, false
	}
	return imaging.Rect(minX, minY, maxX-minX+1, maxY-minY+1), true
}
