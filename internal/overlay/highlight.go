package overlay

import (
	"fmt"
	"image/color"

	"github.com/ironsheep/watermark-tools-mcp/internal/imaging"
)

// HighlightOptions controls Highlight.
type HighlightOptions struct {
	// Color of the outline; empty means "#FF0000".
	Color string
	// Thickness of the outline in pixels; zero means 2.
	Thickness int
	// Label prints the rectangle's size above its top-left corner.
	Label bool
}

// Highlight draws the outline of r over a copy of g. The outline is drawn
// just outside r where there is room, so the pixels inside r stay visible.
func Highlight(g *imaging.PixelGrid, r imaging.Rectangle, opts HighlightOptions) (*imaging.PixelGrid, error) {
	rect, err := imaging.ClampRect(g, r)
	if err != nil {
		return nil, err
	}
	hex := opts.Color
	if hex == "" {
		hex = "#FF0000"
	}
	col, err := ParseHexColor(hex)
	if err != nil {
		return nil, err
	}
	thickness := opts.Thickness
	if thickness <= 0 {
		thickness = 2
	}

	out := g.Clone()
	outer := imaging.Rect(rect.X-thickness, rect.Y-thickness, rect.Width+2*thickness, rect.Height+2*thickness)
	for y := outer.Y; y < outer.Y+outer.Height; y++ {
		for x := outer.X; x < outer.X+outer.Width; x++ {
			if rect.Contains(x, y) || x < 0 || y < 0 || x >= g.Width() || y >= g.Height() {
				continue
			}
			out.Set(x, y, col)
		}
	}

	if opts.Label {
		label := fmt.Sprintf("%dx%d", rect.Width, rect.Height)
		ly := rect.Y - thickness - labelHeight - 1
		if ly < 0 {
			ly = rect.Y + rect.Height + thickness + 1
		}
		drawLabel(out, rect.X, ly, label, color.NRGBA{255, 255, 255, 255}, col)
	}
	return out, nil
}

const (
	charWidth   = 4
	labelHeight = 7
)

// glyphs is a 3x5 pixel font for digits and the separators used in labels.
var glyphs = map[rune][]string{
	'0': {"111", "101", "101", "101", "111"},
	'1': {"010", "110", "010", "010", "111"},
	'2': {"111", "001", "111", "100", "111"},
	'3': {"111", "001", "111", "001", "111"},
	'4': {"101", "101", "111", "001", "001"},
	'5': {"111", "100", "111", "001", "111"},
	'6': {"111", "100", "111", "101", "111"},
	'7': {"111", "001", "001", "001", "001"},
	'8': {"111", "101", "111", "101", "111"},
	'9': {"111", "101", "111", "001", "111"},
	',': {"000", "000", "000", "010", "010"},
	'x': {"000", "101", "010", "101", "000"},
}

// drawLabel prints text with the tiny glyph font on a filled background box.
func drawLabel(g *imaging.PixelGrid, x, y int, text string, fg, bg color.NRGBA) {
	set := func(px, py int, c color.NRGBA) {
		if px >= 0 && px < g.Width() && py >= 0 && py < g.Height() {
			g.Set(px, py, c)
		}
	}

	labelWidth := len(text) * charWidth
	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			set(x+dx, y+dy, bg)
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					set(cx+col, y+row, fg)
				}
			}
		}
		cx += charWidth
	}
}
