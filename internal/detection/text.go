package detection

import (
	"fmt"
	"math"
	"sort"

	"github.com/ironsheep/watermark-tools-mcp/internal/imaging"
)

// edgeThreshold is the gradient magnitude above which a pixel counts as a
// stroke edge when looking for text. A black-on-white step of 30 gray levels
// reaches it.
const edgeThreshold = 30

// TextRegion is a rectangle likely to hold rendered text.
type TextRegion struct {
	Rect       imaging.Rectangle `json:"rect"`
	Confidence float64           `json:"confidence"`
}

// TextRegionsResult contains detected text regions
type TextRegionsResult struct {
	Regions []TextRegion `json:"regions"`
	Count   int          `json:"count"`
}

// DetectTextRegions finds regions likely to contain text, such as a caption
// or copyright line stamped over a photo.
//
// It slides windows of typical caption sizes over the edge map and keeps
// windows whose edge density is moderate and whose edges run mostly
// horizontally. Overlapping hits are merged. It needs no OCR engine, so it
// is the fallback when Tesseract is unavailable.
func DetectTextRegions(g *imaging.PixelGrid, minConfidence float64) (*TextRegionsResult, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil grid", imaging.ErrInvalidImage)
	}
	width, height := g.Width(), g.Height()
	edges := edgeMap(g)

	windowSizes := []struct{ w, h int }{
		{100, 30}, // small text
		{150, 40},
		{200, 50},
		{80, 25}, // very small text
	}

	candidates := make([]TextRegion, 0)
	for _, ws := range windowSizes {
		stepX := ws.w / 2
		stepY := ws.h / 2

		for y := 0; y <= height-ws.h; y += stepY {
			for x := 0; x <= width-ws.w; x += stepX {
				edgeCount := 0
				for wy := 0; wy < ws.h; wy++ {
					row := (y + wy) * width
					for wx := 0; wx < ws.w; wx++ {
						if edges[row+x+wx] {
							edgeCount++
						}
					}
				}

				density := float64(edgeCount) / float64(ws.w*ws.h)

				// Text is neither sparse nor solid texture.
				if density < 0.05 || density > 0.4 {
					continue
				}
				horizontal := horizontalScore(edges, width, x, y, ws.w, ws.h)
				confidence := horizontal * (1.0 - math.Abs(density-0.2)/0.2)
				if confidence >= minConfidence {
					candidates = append(candidates, TextRegion{
						Rect:       imaging.Rect(x, y, ws.w, ws.h),
						Confidence: math.Round(confidence*1000) / 1000,
					})
				}
			}
		}
	}

	merged := mergeOverlapping(candidates)
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Confidence > merged[j].Confidence
	})

	return &TextRegionsResult{
		Regions: merged,
		Count:   len(merged),
	}, nil
}

// edgeMap thresholds the Sobel magnitude of the grid's brightness.
func edgeMap(g *imaging.PixelGrid) []bool {
	strength := imaging.EdgeStrength(imaging.Brightness(g), g.Width(), g.Height())
	edges := make([]bool, len(strength))
	for i, v := range strength {
		edges[i] = v > edgeThreshold
	}
	return edges
}

// horizontalScore is the share of horizontal edge runs among all runs in the
// window.
func horizontalScore(edges []bool, stride, x, y, w, h int) float64 {
	horizontalRuns := 0
	verticalRuns := 0

	for row := y; row < y+h; row++ {
		inRun := false
		for col := x; col < x+w; col++ {
			if edges[row*stride+col] {
				if !inRun {
					horizontalRuns++
					inRun = true
				}
			} else {
				inRun = false
			}
		}
	}

	for col := x; col < x+w; col++ {
		inRun := false
		for row := y; row < y+h; row++ {
			if edges[row*stride+col] {
				if !inRun {
					verticalRuns++
					inRun = true
				}
			} else {
				inRun = false
			}
		}
	}

	if horizontalRuns+verticalRuns == 0 {
		return 0
	}
	return float64(horizontalRuns) / float64(horizontalRuns+verticalRuns)
}

// mergeOverlapping folds each region into the first earlier region it
// overlaps, growing that region to the union.
func mergeOverlapping(regions []TextRegion) []TextRegion {
	merged := make([]TextRegion, 0, len(regions))

	for _, r := range regions {
		found := false
		for i := range merged {
			if overlaps(r.Rect, merged[i].Rect) {
				merged[i].Rect = unionRect(r.Rect, merged[i].Rect)
				merged[i].Confidence = math.Max(r.Confidence, merged[i].Confidence)
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, r)
		}
	}
	return merged
}

func overlaps(a, b imaging.Rectangle) bool {
	return a.X < b.X+b.Width && a.X+a.Width > b.X && a.Y < b.Y+b.Height && a.Y+a.Height > b.Y
}

func unionRect(a, b imaging.Rectangle) imaging.Rectangle {
	x1, y1 := min(a.X, b.X), min(a.Y, b.Y)
	x2, y2 := max(a.X+a.Width, b.X+b.Width), max(a.Y+a.Height, b.Y+b.Height)
	return imaging.Rect(x1, y1, x2-x1, y2-y1)
}
