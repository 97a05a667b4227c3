package overlay

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/watermark-tools-mcp/internal/imaging"
)

// DefaultOpacity is the opacity of a watermark when the caller gives none.
const DefaultOpacity = 0.3

// glyphHeight is the cell height of basicfont.Face7x13.
const glyphHeight = 13

// TextOptions controls AddText.
type TextOptions struct {
	Text string
	// X and Y place the top-left corner of the text box.
	X, Y int
	// Opacity in (0, 1]; zero means DefaultOpacity.
	Opacity float64
	// FontSize is the approximate glyph height in pixels. The built-in
	// 7x13 face is scaled by whole multiples, so sizes round to multiples
	// of 13.
	FontSize int
	// Color is a hex color; empty means white.
	Color string
}

// AddText renders opts.Text over g and returns the result.
func AddText(g *imaging.PixelGrid, opts TextOptions) (*imaging.PixelGrid, error) {
	if opts.Text == "" {
		return nil, fmt.Errorf("text must not be empty")
	}
	opacity, err := normalizeOpacity(opts.Opacity)
	if err != nil {
		return nil, err
	}
	fg := "#FFFFFF"
	if opts.Color != "" {
		fg = opts.Color
	}
	col, err := ParseHexColor(fg)
	if err != nil {
		return nil, err
	}

	layer, err := renderText(opts.Text, col)
	if err != nil {
		return nil, err
	}
	if scale := textScale(opts.FontSize); scale > 1 {
		layer, err = imaging.Scale(layer, float64(scale), imaging.NearestNeighbor)
		if err != nil {
			return nil, err
		}
	}
	return imaging.Overlay(g, layer, opts.X, opts.Y, opacity), nil
}

// TextSize returns the size of the layer AddText draws for text at
// fontSize. It is computed in floating point so callers can reject huge
// sizes before any pixels are allocated.
func TextSize(text string, fontSize int) (width, height float64) {
	scale := float64(textScale(fontSize))
	return float64(font.MeasureString(basicfont.Face7x13, text).Ceil()) * scale, glyphHeight * scale
}

func textScale(fontSize int) int {
	scale := int(math.Round(float64(fontSize) / glyphHeight))
	if scale < 1 {
		return 1
	}
	return scale
}

// renderText draws text in col on a transparent layer just large enough
// to hold it.
func renderText(text string, col color.Color) (*imaging.PixelGrid, error) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()

	layer, err := imaging.NewPixelGrid(width, glyphHeight, true)
	if err != nil {
		return nil, err
	}
	d := &font.Drawer{
		Dst:  layer.NRGBA(),
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(text)
	return layer, nil
}

func normalizeOpacity(o float64) (float64, error) {
	if o == 0 {
		return DefaultOpacity, nil
	}
	if o < 0 || o > 1 {
		return 0, fmt.Errorf("opacity %.2f outside (0, 1]", o)
	}
	return o, nil
}
