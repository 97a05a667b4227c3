package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
)

// DefaultJPEGQuality matches the quality the tool layer has always used when
// no explicit value is given.
const DefaultJPEGQuality = 80

// EncodedImage is an image ready to hand back to an MCP client.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	Format      string `json:"format"`

	// Data holds the raw encoded bytes for persistence; it is not serialized.
	Data []byte `json:"-"`
}

// ParseFormat maps a user-facing format name ("png", "JPEG", "jpg", "gif")
// to an imaging.Format.
func ParseFormat(name string) (imaging.Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "", "png":
		return imaging.PNG, nil
	case "jpg", "jpeg":
		return imaging.JPEG, nil
	case "gif":
		return imaging.GIF, nil
	default:
		return 0, fmt.Errorf("unsupported output format: %s (use png, jpeg or gif)", name)
	}
}

// Encode serializes g in the named format. quality applies to JPEG only and
// falls back to DefaultJPEGQuality when out of the 1-100 range.
func Encode(g *PixelGrid, format string, quality int) (*EncodedImage, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, g.ToImage(), f, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	name := strings.ToLower(f.String())
	return &EncodedImage{
		Width:       g.Width(),
		Height:      g.Height(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/" + name,
		Format:      name,
		Data:        buf.Bytes(),
	}, nil
}
