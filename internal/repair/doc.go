// Package repair replaces the pixels of a rectangular image region.
//
// Five interchangeable strategies are available:
//
//   - Blur: Gaussian smoothing with radius = strength
//   - Pixelate: block mosaic with block size = strength
//   - Median: per-channel median with an odd window derived from strength
//   - CloneLeft / CloneTop: copy the same-sized area immediately left of or
//     above the target, stretching it when the image edge cuts it short
//
// Each strategy only writes inside the target rectangle. With Feather > 0 the
// edit is blended in through a Gaussian-softened mask so the rectangle leaves
// no hard seam; the blend band lies inside the rectangle, within Feather
// pixels of its border.
//
// Repair never mutates its input and holds no package state.
package repair
