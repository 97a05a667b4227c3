package ocr

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/watermark-tools-mcp/internal/imaging"
)

// Word is one recognized word and where it sits in the image.
type Word struct {
	Text string `json:"text"`

	// Confidence is Tesseract's recognition confidence (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	Rect imaging.Rectangle `json:"rect"`
}

// Result contains the text found in an image.
type Result struct {
	// FullText is all recognized text with the engine's spacing and newlines.
	FullText string `json:"full_text"`

	// Words are the individual words. May be empty when the engine could not
	// produce boxes; FullText is still set in that case.
	Words []Word `json:"words"`
}

// Engine recognizes words in a PNG-encoded image.
type Engine interface {
	Recognize(pngData []byte, language string) (*Result, error)
}

// Tesseract is the gosseract-backed Engine. The zero value is ready to use.
type Tesseract struct{}

// Recognize runs Tesseract on pngData with word-level boxes.
func (Tesseract) Recognize(pngData []byte, language string) (*Result, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(pngData); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return &Result{FullText: text, Words: []Word{}}, nil
	}

	words := make([]Word, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		words = append(words, Word{
			Text:       box.Word,
			Confidence: box.Confidence / 100.0,
			Rect:       imaging.Rect(box.Box.Min.X, box.Box.Min.Y, box.Box.Dx(), box.Box.Dy()),
		})
	}
	return &Result{FullText: text, Words: words}, nil
}

// RecognizeGrid encodes g as PNG and runs engine on it. When region is not
// empty only that part of the image is read, and word boxes are shifted back
// to full-image coordinates.
func RecognizeGrid(engine Engine, g *imaging.PixelGrid, region imaging.Rectangle, language string) (*Result, error) {
	src := g
	if !region.Empty() {
		cropped, err := imaging.Crop(g, region)
		if err != nil {
			return nil, err
		}
		src = cropped
		region, _ = imaging.ClampRect(g, region)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, src.ToImage()); err != nil {
		return nil, fmt.Errorf("failed to encode image for OCR: %w", err)
	}

	result, err := engine.Recognize(buf.Bytes(), language)
	if err != nil {
		return nil, err
	}
	for i := range result.Words {
		result.Words[i].Rect.X += region.X
		result.Words[i].Rect.Y += region.Y
	}
	return result, nil
}
