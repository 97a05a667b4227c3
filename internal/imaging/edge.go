package imaging

import (
	"math"
)

// EdgeStrength returns the Sobel gradient magnitude of a luminance plane as a
// row-major 8-bit plane of the same size.
//
// Horizontal and vertical 3x3 derivative kernels are combined as
// sqrt(Gx² + Gy²), scaled by 1/4 so a full black-to-white step maps to 255,
// and clamped. Border pixels replicate their edge neighbours, so a uniform
// image has zero edge strength everywhere and both sides of a step respond.
func EdgeStrength(plane []uint8, width, height int) []uint8 {
	sobelX := [3][3]int{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]int{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	out := make([]uint8, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var gx, gy int
			for ky := -1; ky <= 1; ky++ {
				py := clamp(y+ky, 0, height-1)
				for kx := -1; kx <= 1; kx++ {
					px := clamp(x+kx, 0, width-1)
					v := int(plane[py*width+px])
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			mag := math.Sqrt(float64(gx*gx+gy*gy)) / 4
			if mag > 255 {
				mag = 255
			}
			out[y*width+x] = uint8(mag + 0.5)
		}
	}
	return out
}

// clamp constrains an integer value to the range [min, max].
// Used for boundary handling in convolution and sliding filters.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
