package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/ironsheep/watermark-tools-mcp/internal/imaging"
)

// errInvalidArguments marks failures caused by the caller's arguments. They
// are reported as JSON-RPC -32602 instead of -32000.
var errInvalidArguments = errors.New("invalid arguments")

// errImageTooLarge is returned for images above the configured pixel limit.
var errImageTooLarge = errors.New("image too large")

func invalidArgs(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errInvalidArguments, fmt.Sprintf(format, args...))
}

// imageSource names where an input image comes from. Exactly one field is
// set.
type imageSource struct {
	Path        string `json:"path"`
	ImageBase64 string `json:"image_base64"`
	ArtifactID  string `json:"artifact_id"`
}

func (src imageSource) validate() error {
	n := 0
	for _, v := range []string{src.Path, src.ImageBase64, src.ArtifactID} {
		if v != "" {
			n++
		}
	}
	if n != 1 {
		return invalidArgs("exactly one of path, image_base64 or artifact_id is required")
	}
	return nil
}

// rectArgs are the optional x/y/width/height arguments shared by several
// tools.
type rectArgs struct {
	X      *int `json:"x"`
	Y      *int `json:"y"`
	Width  *int `json:"width"`
	Height *int `json:"height"`
}

// rect returns nil when no coordinate was given. x and y default to 0 once
// width and height are present.
func (r rectArgs) rect() (*imaging.Rectangle, error) {
	if r.X == nil && r.Y == nil && r.Width == nil && r.Height == nil {
		return nil, nil
	}
	if r.Width == nil || r.Height == nil {
		return nil, invalidArgs("width and height are required when a rectangle is given")
	}
	rect := imaging.Rect(deref(r.X, 0), deref(r.Y, 0), *r.Width, *r.Height)
	if rect.X < 0 || rect.Y < 0 || rect.Width < 0 || rect.Height < 0 {
		return nil, invalidArgs("rectangle %s has negative values", rect)
	}
	return &rect, nil
}

func deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

// loadImage resolves src to a private PixelGrid the caller may modify.
func (s *Server) loadImage(ctx context.Context, src imageSource) (*imaging.PixelGrid, error) {
	if err := src.validate(); err != nil {
		return nil, err
	}
	if src.Path != "" {
		if err := s.checkFile(src.Path); err != nil {
			return nil, err
		}
		g, err := s.cache.LoadGrid(src.Path)
		if err != nil {
			return nil, err
		}
		s.debugf("loaded %s (%d images cached)", src.Path, s.cache.Len())
		return g, nil
	}
	g, _, _, err := s.decodeSource(ctx, src)
	return g, err
}

// imageInfo returns metadata for src without keeping a grid around.
func (s *Server) imageInfo(ctx context.Context, src imageSource) (*imaging.ImageInfo, error) {
	if err := src.validate(); err != nil {
		return nil, err
	}
	if src.Path != "" {
		if err := s.checkFile(src.Path); err != nil {
			return nil, err
		}
		return imaging.LoadImageInfo(s.cache, src.Path)
	}
	g, format, size, err := s.decodeSource(ctx, src)
	if err != nil {
		return nil, err
	}
	return &imaging.ImageInfo{
		Width:         g.Width(),
		Height:        g.Height(),
		Format:        format,
		ColorDepth:    "8-bit",
		HasAlpha:      g.HasAlpha(),
		FileSizeBytes: size,
	}, nil
}

// decodeSource decodes a base64 payload or a stored artifact.
func (s *Server) decodeSource(ctx context.Context, src imageSource) (*imaging.PixelGrid, string, int64, error) {
	var data []byte
	switch {
	case src.ArtifactID != "":
		b, _, err := s.store.Open(ctx, src.ArtifactID)
		if err != nil {
			return nil, "", 0, err
		}
		data = b
	default:
		b, err := imaging.Base64Bytes(src.ImageBase64)
		if err != nil {
			return nil, "", 0, invalidArgs("image_base64: %v", err)
		}
		data = b
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", 0, fmt.Errorf("%w: %v", imaging.ErrInvalidImage, err)
	}
	if err := s.checkPixels(cfg.Width, cfg.Height); err != nil {
		return nil, "", 0, err
	}
	g, format, err := imaging.DecodeBytes(data)
	if err != nil {
		return nil, "", 0, err
	}
	return g, format, int64(len(data)), nil
}

// checkFile reads only the header of path to enforce the pixel limit before
// the full decode.
func (s *Server) checkFile(path string) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}
	return s.checkPixels(cfg.Width, cfg.Height)
}

func (s *Server) checkPixels(width, height int) error {
	if float64(width)*float64(height) > float64(s.maxPixels) {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", errImageTooLarge, width, height, s.maxPixels)
	}
	return nil
}

// checkOutput applies the pixel limit to an image a tool is about to
// generate. Sizes come from the arguments, so failures are argument errors.
func (s *Server) checkOutput(width, height float64) error {
	if width*height > float64(s.maxPixels) {
		return fmt.Errorf("%w: %w: output %.0fx%.0f exceeds %d pixels",
			errInvalidArguments, errImageTooLarge, width, height, s.maxPixels)
	}
	return nil
}

// ImageResult is returned by every tool that produces an image.
type ImageResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	MimeType    string `json:"mime_type"`
	ImageBase64 string `json:"image_base64"`
	ArtifactID  string `json:"artifact_id"`
	// Path is set when the store keeps artifacts on disk.
	Path string `json:"path,omitempty"`
}

// emit encodes g, hands the bytes to the store and builds the tool result.
// An empty format means PNG.
func (s *Server) emit(ctx context.Context, g *imaging.PixelGrid, format string, quality int) (*ImageResult, error) {
	enc, err := imaging.Encode(g, format, quality)
	if err != nil {
		return nil, invalidArgs("%v", err)
	}
	artifact, err := s.store.Save(ctx, enc.Data, enc.MimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}
	return &ImageResult{
		Width:       enc.Width,
		Height:      enc.Height,
		MimeType:    enc.MimeType,
		ImageBase64: enc.ImageBase64,
		ArtifactID:  artifact.ID,
		Path:        artifact.Path,
	}, nil
}
