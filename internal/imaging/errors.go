package imaging

import "errors"

// Validation failures reported by the grid primitives. Callers match them with
// errors.Is; the returned errors are wrapped with the offending values.
var (
	// ErrInvalidImage is returned for an image with zero or negative dimensions.
	ErrInvalidImage = errors.New("invalid image")

	// ErrOutOfBounds is returned when a rectangle has zero area after it has
	// been clamped to the image bounds.
	ErrOutOfBounds = errors.New("rectangle out of bounds")

	// ErrDimensionMismatch is returned when a paste source cannot be brought
	// to the size of its destination rectangle.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrInvalidDimensions is returned for a resize target with a zero side.
	ErrInvalidDimensions = errors.New("invalid dimensions")
)
