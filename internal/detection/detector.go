package detection

import (
	"fmt"
	"math"

	"github.com/ironsheep/watermark-tools-mcp/internal/imaging"
	"github.com/ironsheep/watermark-tools-mcp/internal/repair"
)

// Report describes the contamination found in an image and the repair the
// detector recommends for it.
type Report struct {
	// Rect is the bounding rectangle of the mask, or the fallback rectangle.
	Rect imaging.Rectangle `json:"rect"`

	// Method is the recommended strategy for localized contamination. For a
	// diffuse report it is Median, applied to the whole image.
	Method repair.Method `json:"method"`

	// Params are the recommended strength and feather.
	Params repair.Params `json:"params"`

	// Coverage is the fraction of pixels set in the dilated mask.
	Coverage float64 `json:"coverage"`

	// Diffuse is true when coverage exceeds the diffuse threshold.
	Diffuse bool `json:"diffuse"`

	// Fallback is true when the mask was empty and Rect is the default
	// bottom-right corner.
	Fallback bool `json:"fallback"`

	// Mask is the dilated contamination mask, row-major, 0 or 255.
	Mask []uint8 `json:"-"`
}

// Detect runs the detector with DefaultConfig.
func Detect(g *imaging.PixelGrid) (*Report, error) {
	return DetectWithConfig(g, DefaultConfig())
}

// DetectWithConfig estimates which pixels of g are contaminated and picks a
// repair for them.
//
// Brightness is compared against a median-filtered background; pixels whose
// positive or negative residual exceeds its percentile, or whose gradient
// exceeds the edge percentile, are marked. The mask is dilated, its coverage
// decides between a diffuse and a localized repair, and its bounding
// rectangle's position picks the localized strategy.
func DetectWithConfig(g *imaging.PixelGrid, cfg Config) (*Report, error) {
	if g == nil || g.Width() <= 0 || g.Height() <= 0 {
		return nil, fmt.Errorf("%w: nothing to analyze", imaging.ErrInvalidImage)
	}
	w, h := g.Width(), g.Height()

	brightness := imaging.Brightness(g)
	background := imaging.MedianPlane(brightness, w, h, backgroundWindow(w, h, cfg))
	pos, neg := residuals(brightness, background)
	edges := imaging.EdgeStrength(brightness, w, h)

	mask := union(
		threshold(pos, percentile(pos, cfg.ResidualPercentile)),
		threshold(neg, percentile(neg, cfg.ResidualPercentile)),
		threshold(edges, percentile(edges, cfg.EdgePercentile)),
	)
	mask = dilate(mask, w, h, cfg.DilatePasses)

	report := &Report{
		Coverage: coverage(mask),
		Mask:     mask,
	}

	rect, ok := boundingRect(mask, w, h)
	if !ok {
		rect = fallbackRect(w, h, cfg)
		report.Fallback = true
	}
	report.Rect = rect
	report.Params = repair.Params{
		Strength: clamp((rect.Width+rect.Height)/cfg.StrengthScale, cfg.MinStrength, cfg.MaxStrength),
		Feather:  cfg.Feather,
	}

	switch {
	case report.Coverage > cfg.DiffuseCoverage:
		report.Diffuse = true
		report.Method = repair.Median
	case nearEdge(rect, w, h, cfg.EdgeMargin):
		if rect.CenterX() > float64(w)/2 {
			report.Method = repair.CloneLeft
		} else {
			report.Method = repair.CloneTop
		}
	default:
		report.Method = repair.Median
	}
	return report, nil
}

// backgroundWindow is 2*round(min(W,H)/scale)+1, at least the configured
// minimum.
func backgroundWindow(w, h int, cfg Config) int {
	n := 2*int(math.Round(float64(min(w, h))/cfg.BackgroundScale)) + 1
	return max(n, cfg.BackgroundMinWindow)
}

// fallbackRect is the bottom-right corner block, FallbackFraction of each
// side and at least one pixel.
func fallbackRect(w, h int, cfg Config) imaging.Rectangle {
	fw := max(1, int(float64(w)*cfg.FallbackFraction))
	fh := max(1, int(float64(h)*cfg.FallbackFraction))
	return imaging.Rect(w-fw, h-fh, fw, fh)
}

// nearEdge reports whether r comes within margin (a fraction of the side)
// of any image border.
func nearEdge(r imaging.Rectangle, w, h int, margin float64) bool {
	mx, my := margin*float64(w), margin*float64(h)
	return float64(r.X) <= mx ||
		float64(r.Y) <= my ||
		float64(r.X+r.Width) >= float64(w)-mx ||
		float64(r.Y+r.Height) >= float64(h)-my
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
