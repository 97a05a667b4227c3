package detection

// Config holds the tuning constants of the contamination detector.
//
// The values were tuned empirically against real watermarked images. Changing
// them changes which strategy gets recommended, so DefaultConfig should be
// used unless a caller has measured something better.
type Config struct {
	// BackgroundMinWindow is the smallest median window used to estimate the
	// background. The window otherwise scales with the short image side.
	BackgroundMinWindow int

	// BackgroundScale divides the short image side to size the background
	// window: 2*round(min(W,H)/BackgroundScale)+1.
	BackgroundScale float64

	// ResidualPercentile is the percentile of each residual that a pixel must
	// exceed to count as contaminated.
	ResidualPercentile float64

	// EdgePercentile is the percentile of the gradient magnitude that a pixel
	// must exceed to count as an edge.
	EdgePercentile float64

	// DilatePasses is how many 3x3 max filters grow the raw mask.
	DilatePasses int

	// DiffuseCoverage is the mask coverage above which the contamination is
	// treated as diffuse and repaired over the whole image.
	DiffuseCoverage float64

	// EdgeMargin is the fraction of each image side within which a bounding
	// rectangle counts as touching the border.
	EdgeMargin float64

	// FallbackFraction sizes the bottom-right rectangle used when the mask is
	// empty.
	FallbackFraction float64

	// StrengthScale, MinStrength and MaxStrength derive the repair strength
	// as clamp((w+h)/StrengthScale, MinStrength, MaxStrength).
	StrengthScale int
	MinStrength   int
	MaxStrength   int

	// Feather is the blend radius recommended with every detection.
	Feather int
}

// DefaultConfig returns the standard detector constants.
func DefaultConfig() Config {
	return Config{
		BackgroundMinWindow: 5,
		BackgroundScale:     100,
		ResidualPercentile:  92,
		EdgePercentile:      85,
		DilatePasses:        2,
		DiffuseCoverage:     0.30,
		EdgeMargin:          0.10,
		FallbackFraction:    0.30,
		StrengthScale:       40,
		MinStrength:         5,
		MaxStrength:         25,
		Feather:             6,
	}
}
