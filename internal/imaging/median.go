package imaging

// OddWindow rounds a window size up to the next odd value, minimum 1.
func OddWindow(n int) int {
	if n < 1 {
		return 1
	}
	if n%2 == 0 {
		return n + 1
	}
	return n
}

// MedianPlane applies a window x window median filter to a single 8-bit plane.
//
// The filter keeps a 256-bin histogram per row and slides it one column at a
// time, so each output pixel costs O(window) histogram updates plus a bounded
// bin scan instead of sorting window² samples. Border pixels replicate the
// nearest edge sample. window is rounded up to odd.
func MedianPlane(src []uint8, width, height, window int) []uint8 {
	dst := make([]uint8, len(src))
	window = OddWindow(window)
	if window == 1 {
		copy(dst, src)
		return dst
	}
	r := window / 2
	half := (window*window - 1) / 2

	var hist [256]int
	for y := 0; y < height; y++ {
		hist = [256]int{}
		for dy := -r; dy <= r; dy++ {
			row := clamp(y+dy, 0, height-1) * width
			for dx := -r; dx <= r; dx++ {
				hist[src[row+clamp(dx, 0, width-1)]]++
			}
		}
		dst[y*width] = histMedian(&hist, half)

		for x := 1; x < width; x++ {
			out := clamp(x-r-1, 0, width-1)
			in := clamp(x+r, 0, width-1)
			for dy := -r; dy <= r; dy++ {
				row := clamp(y+dy, 0, height-1) * width
				hist[src[row+out]]--
				hist[src[row+in]]++
			}
			dst[y*width+x] = histMedian(&hist, half)
		}
	}
	return dst
}

// histMedian returns the value at rank half (0-based) of the histogram.
func histMedian(hist *[256]int, half int) uint8 {
	seen := 0
	for v := 0; v < 256; v++ {
		seen += hist[v]
		if seen > half {
			return uint8(v)
		}
	}
	return 255
}

// MedianFilter applies a per-channel median filter of the given window to g
// and returns a new grid. Alpha is filtered too when the grid has it.
func MedianFilter(g *PixelGrid, window int) *PixelGrid {
	out := g.Clone()
	w, h := g.Width(), g.Height()
	channels := 3
	if g.hasAlpha {
		channels = 4
	}
	for c := 0; c < channels; c++ {
		plane := extractPlane(g.img.Pix, c, w*h)
		filtered := MedianPlane(plane, w, h, window)
		for i, v := range filtered {
			out.img.Pix[i*4+c] = v
		}
	}
	return out
}

func extractPlane(pix []uint8, channel, n int) []uint8 {
	plane := make([]uint8, n)
	for i := range plane {
		plane[i] = pix[i*4+channel]
	}
	return plane
}
