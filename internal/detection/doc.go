// Package detection finds the part of an image covered by a watermark and
// recommends how to repair it.
//
// # Contamination Detector
//
// Detect builds a binary mask of pixels that stand out from their
// surroundings and summarizes it:
//
//  1. Brightness: BT.601 luminance of every pixel
//  2. Background: a median filter with a window that grows with the image
//  3. Residuals: brighter-than-background and darker-than-background
//     differences, each thresholded above its own 92nd percentile
//  4. Edges: Sobel magnitude thresholded above its 85th percentile
//  5. Mask: the union of the three, dilated twice with a 3x3 max filter
//
// The report carries the mask's bounding rectangle and coverage. When more
// than 30% of the image is set the contamination is diffuse and the whole
// image is treated through the mask. Otherwise a rectangle hugging an image
// edge is cloned over from its inner side, and anything else is median
// filtered.
//
// All thresholds are strict, so a perfectly flat image sets no pixels. An
// empty mask falls back to the bottom-right 30% corner, the most common spot
// for a logo or signature.
//
// # Text Regions
//
// DetectTextRegions looks for caption-sized windows of moderate, mostly
// horizontal edge density. It needs no OCR engine and is used when
// Tesseract is unavailable.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Rectangles are x, y, width, height
package detection
