package imaging

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

// createInMemoryImage creates a solid-color RGBA image.
func createInMemoryImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createPatternGrid creates a grid whose pixel (x, y) encodes its own
// coordinates, so copies and offsets are easy to verify.
func createPatternGrid(t *testing.T, width, height int) *PixelGrid {
	t.Helper()
	g, err := NewPixelGrid(width, height, false)
	if err != nil {
		t.Fatalf("NewPixelGrid failed: %v", err)
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g.Set(x, y, color.NRGBA{uint8(x), uint8(y), uint8(x ^ y), 255})
		}
	}
	return g
}

func TestNewPixelGrid(t *testing.T) {
	g, err := NewPixelGrid(30, 20, false)
	if err != nil {
		t.Fatalf("NewPixelGrid failed: %v", err)
	}
	if g.Width() != 30 || g.Height() != 20 {
		t.Errorf("dimensions: got %dx%d, want 30x20", g.Width(), g.Height())
	}
	if g.HasAlpha() {
		t.Error("HasAlpha: got true, want false")
	}
	if got := g.At(5, 5); got.A != 255 {
		t.Errorf("opaque grid should start opaque, got alpha %d", got.A)
	}
}

func TestNewPixelGrid_InvalidDimensions(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
	}{
		{"zero width", 0, 10},
		{"zero height", 10, 0},
		{"negative", -1, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPixelGrid(tt.width, tt.height, true)
			if !errors.Is(err, ErrInvalidImage) {
				t.Errorf("got %v, want ErrInvalidImage", err)
			}
		})
	}
}

func TestFromImage(t *testing.T) {
	img := createInMemoryImage(12, 8, color.RGBA{200, 100, 50, 255})

	g, err := FromImage(img)
	if err != nil {
		t.Fatalf("FromImage failed: %v", err)
	}
	if g.Width() != 12 || g.Height() != 8 {
		t.Errorf("dimensions: got %dx%d, want 12x8", g.Width(), g.Height())
	}
	if !g.HasAlpha() {
		t.Error("RGBA source should keep its alpha channel")
	}
	if got := g.At(3, 3); got != (color.NRGBA{200, 100, 50, 255}) {
		t.Errorf("pixel: got %v", got)
	}
}

func TestFromImage_OffsetBounds(t *testing.T) {
	src := createInMemoryImage(20, 20, color.RGBA{1, 2, 3, 255}).(*image.RGBA)
	sub := src.SubImage(image.Rect(5, 5, 15, 10))

	g, err := FromImage(sub)
	if err != nil {
		t.Fatalf("FromImage failed: %v", err)
	}
	if g.Width() != 10 || g.Height() != 5 {
		t.Errorf("dimensions: got %dx%d, want 10x5", g.Width(), g.Height())
	}
	if g.NRGBA().Rect.Min != (image.Point{}) {
		t.Errorf("grid origin should be (0,0), got %v", g.NRGBA().Rect.Min)
	}
}

func TestFromImage_NoAlpha(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	g, err := FromImage(img)
	if err != nil {
		t.Fatalf("FromImage failed: %v", err)
	}
	if g.HasAlpha() {
		t.Error("gray source should not report an alpha channel")
	}
}

func TestFromImage_Empty(t *testing.T) {
	_, err := FromImage(image.NewRGBA(image.Rect(0, 0, 0, 10)))
	if !errors.Is(err, ErrInvalidImage) {
		t.Errorf("got %v, want ErrInvalidImage", err)
	}
}

func TestPixelGrid_SetKeepsOpaque(t *testing.T) {
	g, _ := NewPixelGrid(2, 2, false)
	g.Set(0, 0, color.NRGBA{10, 10, 10, 0})
	if got := g.At(0, 0).A; got != 255 {
		t.Errorf("alpha on opaque grid: got %d, want 255", got)
	}
}

func TestPixelGrid_CloneIsDeep(t *testing.T) {
	g := createPatternGrid(t, 10, 10)
	c := g.Clone()
	c.Set(1, 1, color.NRGBA{255, 255, 255, 255})

	if g.At(1, 1) == c.At(1, 1) {
		t.Error("Clone shares pixel storage with the original")
	}
	if !g.Equal(createPatternGrid(t, 10, 10)) {
		t.Error("original changed after mutating clone")
	}
}

func TestPixelGrid_ToImage(t *testing.T) {
	g, _ := NewPixelGrid(3, 3, false)
	g.NRGBA().Pix[3] = 0 // bypass Set

	out := g.ToImage()
	_, _, _, a := out.At(0, 0).RGBA()
	if a != 0xffff {
		t.Errorf("ToImage on opaque grid should drop alpha, got %d", a)
	}
}

func TestRectangle_Clamp(t *testing.T) {
	tests := []struct {
		name string
		in   Rectangle
		want Rectangle
	}{
		{"inside", Rect(10, 10, 20, 20), Rect(10, 10, 20, 20)},
		{"overflow right", Rect(90, 10, 20, 20), Rect(90, 10, 10, 20)},
		{"negative origin", Rect(-5, -5, 20, 20), Rect(0, 0, 15, 15)},
		{"fully outside", Rect(150, 150, 10, 10), Rect(0, 0, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Clamp(100, 100); got != tt.want {
				t.Errorf("Clamp: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClampRect_ZeroArea(t *testing.T) {
	g, _ := NewPixelGrid(100, 100, false)

	tests := []struct {
		name string
		r    Rectangle
	}{
		{"zero width", Rect(10, 10, 0, 10)},
		{"zero height", Rect(10, 10, 10, 0)},
		{"outside", Rect(120, 10, 10, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ClampRect(g, tt.r); !errors.Is(err, ErrOutOfBounds) {
				t.Errorf("got %v, want ErrOutOfBounds", err)
			}
		})
	}
}
