// Package imaging provides the pixel-level primitives behind the watermark
// tools: the PixelGrid type, rectangle clamping, crop/paste/resize, the median,
// Gaussian and Sobel filters, plus decoding, encoding and path-keyed caching.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - A Rectangle is (x, y, width, height); its right and bottom edges are
//     exclusive
//
// # Pixel Storage
//
// A PixelGrid always stores 8-bit non-premultiplied RGBA with its origin at
// (0,0). Grids decoded from images without an alpha channel are kept fully
// opaque, and the synthesized alpha is dropped again by ToImage.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. PixelGrids are not: each
// tool invocation works on its own copy.
//
// # Error Handling
//
// Validation failures wrap one of the sentinel errors (ErrInvalidImage,
// ErrOutOfBounds, ErrDimensionMismatch, ErrInvalidDimensions) so callers can
// test for them with errors.Is.
//
// # Performance Considerations
//
// MedianPlane uses a sliding 256-bin histogram, so its cost grows linearly
// with the window rather than with its square. Large images are still
// dominated by the median and Sobel passes.
package imaging
