// Package ocr locates text watermarks with the Tesseract OCR engine.
//
// Tesseract (via gosseract/v2) returns word boxes; the package groups words
// that sit on the same text line into candidate rectangles the agent can pass
// to watermark_remove.
//
// # Prerequisites
//
// Tesseract and its language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// # Languages
//
// The default language is English ("eng"); any installed Tesseract language
// code can be passed instead, e.g. "deu" or "chi_sim".
//
// When Tesseract is missing, callers fall back to the edge-density heuristic
// in the detection package, which finds text-like areas without reading them.
package ocr
