package ocr

import (
	"sort"
	"strings"

	"github.com/ironsheep/watermark-tools-mcp/internal/imaging"
)

// Candidate is a text line that may be a watermark.
type Candidate struct {
	Text       string            `json:"text"`
	Confidence float64           `json:"confidence"`
	Rect       imaging.Rectangle `json:"rect"`
}

// Candidates groups words into text lines and returns one padded rectangle
// per line, clamped to a width x height image.
//
// Two words share a line when their vertical centers are within half the
// taller word's height and the horizontal gap between them is at most twice
// that height. Words below minConfidence are ignored. Lines are returned
// left-to-right, top-to-bottom; confidence is the mean over their words.
func Candidates(words []Word, minConfidence float64, pad, width, height int) []Candidate {
	kept := make([]Word, 0, len(words))
	for _, w := range words {
		if w.Confidence >= minConfidence && !w.Rect.Empty() {
			kept = append(kept, w)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Rect.Y != kept[j].Rect.Y {
			return kept[i].Rect.Y < kept[j].Rect.Y
		}
		return kept[i].Rect.X < kept[j].Rect.X
	})

	type line struct {
		words []Word
		rect  imaging.Rectangle
	}
	var lines []*line
	for _, w := range kept {
		var target *line
		for _, l := range lines {
			if sameLine(l.rect, w.Rect) {
				target = l
				break
			}
		}
		if target == nil {
			lines = append(lines, &line{words: []Word{w}, rect: w.Rect})
			continue
		}
		target.words = append(target.words, w)
		target.rect = union(target.rect, w.Rect)
	}

	out := make([]Candidate, 0, len(lines))
	for _, l := range lines {
		sort.Slice(l.words, func(i, j int) bool { return l.words[i].Rect.X < l.words[j].Rect.X })
		texts := make([]string, len(l.words))
		var conf float64
		for i, w := range l.words {
			texts[i] = w.Text
			conf += w.Confidence
		}
		r := imaging.Rect(l.rect.X-pad, l.rect.Y-pad, l.rect.Width+2*pad, l.rect.Height+2*pad).Clamp(width, height)
		if r.Empty() {
			continue
		}
		out = append(out, Candidate{
			Text:       strings.Join(texts, " "),
			Confidence: conf / float64(len(l.words)),
			Rect:       r,
		})
	}
	return out
}

func sameLine(l, w imaging.Rectangle) bool {
	h := max(l.Height, w.Height)
	lc := 2*l.Y + l.Height
	wc := 2*w.Y + w.Height
	if abs(lc-wc) > h {
		return false
	}
	gap := max(w.X-(l.X+l.Width), l.X-(w.X+w.Width))
	return gap <= 2*h
}

func union(a, b imaging.Rectangle) imaging.Rectangle {
	x1, y1 := min(a.X, b.X), min(a.Y, b.Y)
	x2, y2 := max(a.X+a.Width, b.X+b.Width), max(a.Y+a.Height, b.Y+b.Height)
	return imaging.Rect(x1, y1, x2-x1, y2-y1)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
