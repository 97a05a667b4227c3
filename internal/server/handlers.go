package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ironsheep/watermark-tools-mcp/internal/detection"
	"github.com/ironsheep/watermark-tools-mcp/internal/imaging"
	"github.com/ironsheep/watermark-tools-mcp/internal/metrics"
	"github.com/ironsheep/watermark-tools-mcp/internal/ocr"
	"github.com/ironsheep/watermark-tools-mcp/internal/overlay"
	"github.com/ironsheep/watermark-tools-mcp/internal/pipeline"
	"github.com/ironsheep/watermark-tools-mcp/internal/repair"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "watermark_remove").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Argument errors return -32602; any other tool failure returns -32000 with
// the error text as data.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if s.metrics != nil {
		s.metrics.ObserveTool(params.Name, time.Since(start), err)
	}
	if err != nil {
		s.debugf("%s failed: %v", params.Name, err)
		if errors.Is(err, errInvalidArguments) {
			return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
		}
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Resolves the input image from a path, base64 payload or artifact
//  4. Calls the appropriate imaging/detection/repair/overlay function
//  5. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic image operations
	case "image_load":
		return s.handleImageLoad(ctx, args)
	case "image_crop":
		return s.handleImageCrop(ctx, args)
	case "image_sample_color":
		return s.handleImageSampleColor(ctx, args)

	// Watermark detection and repair
	case "watermark_detect":
		return s.handleWatermarkDetect(ctx, args)
	case "watermark_remove":
		return s.handleWatermarkRemove(ctx, args)
	case "watermark_locate_text":
		return s.handleWatermarkLocateText(ctx, args)
	case "watermark_preview":
		return s.handleWatermarkPreview(ctx, args)

	// Adding watermarks
	case "watermark_add_text":
		return s.handleWatermarkAddText(ctx, args)
	case "watermark_add_image":
		return s.handleWatermarkAddImage(ctx, args)

	// Format utilities
	case "image_resize":
		return s.handleImageResize(ctx, args)
	case "image_rotate":
		return s.handleImageRotate(ctx, args)
	case "image_convert":
		return s.handleImageConvert(ctx, args)

	default:
		return nil, invalidArgs("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments, reporting failures as bad params.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return invalidArgs("%v", err)
	}
	return nil
}

// === Basic Image Handlers ===

type imageLoadArgs struct {
	imageSource
}

func (s *Server) handleImageLoad(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return s.imageInfo(ctx, a.imageSource)
}

type imageCropArgs struct {
	imageSource
	rectArgs
	Scale  float64 `json:"scale"`
	Format string  `json:"format"`
}

func (s *Server) handleImageCrop(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageCropArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	rect, err := a.rect()
	if err != nil {
		return nil, err
	}
	if rect == nil {
		return nil, invalidArgs("width and height are required")
	}
	g, err := s.loadImage(ctx, a.imageSource)
	if err != nil {
		return nil, err
	}

	out, err := imaging.Crop(g, *rect)
	if err != nil {
		return nil, err
	}
	if a.Scale > 0 && a.Scale != 1 {
		out, err = imaging.Scale(out, a.Scale, imaging.Bilinear)
		if err != nil {
			return nil, err
		}
	}
	return s.emit(ctx, out, a.Format, 0)
}

type imageSampleColorArgs struct {
	imageSource
	X int `json:"x"`
	Y int `json:"y"`
}

func (s *Server) handleImageSampleColor(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageSampleColorArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	g, err := s.loadImage(ctx, a.imageSource)
	if err != nil {
		return nil, err
	}
	return imaging.SampleColor(g.NRGBA(), a.X, a.Y)
}

// === Watermark Detection and Repair Handlers ===

type watermarkDetectArgs struct {
	imageSource
}

// DetectResult is the detector report plus the image size it refers to.
type DetectResult struct {
	*detection.Report
	ImageWidth  int `json:"image_width"`
	ImageHeight int `json:"image_height"`
}

func (s *Server) handleWatermarkDetect(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a watermarkDetectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	g, err := s.loadImage(ctx, a.imageSource)
	if err != nil {
		return nil, err
	}
	report, err := detection.Detect(g)
	if err != nil {
		return nil, err
	}
	return &DetectResult{Report: report, ImageWidth: g.Width(), ImageHeight: g.Height()}, nil
}

type watermarkRemoveArgs struct {
	imageSource
	rectArgs
	Method   string `json:"method"`
	Strength *int   `json:"strength"`
	Feather  *int   `json:"feather"`
	Format   string `json:"format"`
	Quality  int    `json:"quality"`
}

// RemoveResult is the repaired image and a description of what was done.
type RemoveResult struct {
	*ImageResult
	Rect   imaging.Rectangle `json:"rect"`
	Method repair.Method     `json:"method"`
	Params repair.Params     `json:"params"`
	// Mode is explicit, localized, diffuse or fallback.
	Mode      string            `json:"mode"`
	Detection *detection.Report `json:"detection,omitempty"`

	ChangedPixels  int     `json:"changed_pixels"`
	ChangedOutside int     `json:"changed_outside"`
	SeamDeltaE     float64 `json:"seam_delta_e"`
}

func (s *Server) handleWatermarkRemove(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a watermarkRemoveArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	var req pipeline.Request
	rect, err := a.rect()
	if err != nil {
		return nil, err
	}
	req.Rect = rect
	if a.Method != "" {
		m, err := repair.ParseMethod(a.Method)
		if err != nil {
			return nil, invalidArgs("%v", err)
		}
		req.Method = m
	}
	if a.Strength != nil || a.Feather != nil {
		p := repair.DefaultParams()
		p.Strength = deref(a.Strength, p.Strength)
		p.Feather = deref(a.Feather, p.Feather)
		req.Params = &p
	}

	g, err := s.loadImage(ctx, a.imageSource)
	if err != nil {
		return nil, err
	}
	res, err := pipeline.Run(g, req)
	if err != nil {
		if errors.Is(err, pipeline.ErrIncompleteRequest) {
			return nil, invalidArgs("%v", err)
		}
		return nil, err
	}

	diff, err := imaging.Difference(g, res.Image, res.Rect)
	if err != nil {
		return nil, err
	}
	img, err := s.emit(ctx, res.Image, a.Format, a.Quality)
	if err != nil {
		return nil, err
	}

	mode, coverage := repairMode(res)
	if s.metrics != nil {
		s.metrics.ObserveRepair(res.Method.String(), mode, coverage, diff.ChangedPixels)
	}
	log.Printf("[%s] watermark_remove %s %s mode=%s changed=%d", img.ArtifactID, res.Method, res.Rect, mode, diff.ChangedPixels)

	return &RemoveResult{
		ImageResult:    img,
		Rect:           res.Rect,
		Method:         res.Method,
		Params:         res.Params,
		Mode:           mode,
		Detection:      res.Detection,
		ChangedPixels:  diff.ChangedPixels,
		ChangedOutside: diff.ChangedOutside,
		SeamDeltaE:     imaging.SeamDeltaE(res.Image, res.Rect),
	}, nil
}

// repairMode names the branch the pipeline took. Coverage is -1 when the
// detector did not run.
func repairMode(res *pipeline.Result) (string, float64) {
	switch {
	case res.Detection == nil:
		return metrics.ModeExplicit, -1
	case res.Detection.Diffuse:
		return metrics.ModeDiffuse, res.Detection.Coverage
	case res.Detection.Fallback:
		return metrics.ModeFallback, res.Detection.Coverage
	default:
		return metrics.ModeLocalized, res.Detection.Coverage
	}
}

type watermarkLocateTextArgs struct {
	imageSource
	rectArgs
	Language      string   `json:"language"`
	MinConfidence *float64 `json:"min_confidence"`
	Padding       *int     `json:"padding"`
}

// LocateTextResult lists text lines that may be watermarks.
type LocateTextResult struct {
	// Engine is "tesseract", or "heuristic" when OCR was unavailable.
	Engine     string          `json:"engine"`
	Text       string          `json:"text,omitempty"`
	Candidates []ocr.Candidate `json:"candidates"`
	Count      int             `json:"count"`
	OCRError   string          `json:"ocr_error,omitempty"`
}

func (s *Server) handleWatermarkLocateText(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a watermarkLocateTextArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	region, err := a.rect()
	if err != nil {
		return nil, err
	}
	minConfidence := deref(a.MinConfidence, 0.5)
	padding := deref(a.Padding, 4)
	language := a.Language
	if language == "" {
		language = s.ocrLanguage
	}

	g, err := s.loadImage(ctx, a.imageSource)
	if err != nil {
		return nil, err
	}
	var area imaging.Rectangle
	if region != nil {
		area = *region
	}

	result, err := ocr.RecognizeGrid(s.ocr, g, area, language)
	if err == nil {
		candidates := ocr.Candidates(result.Words, minConfidence, padding, g.Width(), g.Height())
		return &LocateTextResult{
			Engine:     "tesseract",
			Text:       strings.TrimSpace(result.FullText),
			Candidates: candidates,
			Count:      len(candidates),
		}, nil
	}
	if errors.Is(err, imaging.ErrOutOfBounds) {
		return nil, err
	}

	log.Printf("OCR unavailable, using edge heuristic: %v", err)
	candidates, herr := heuristicCandidates(g, area, minConfidence, padding)
	if herr != nil {
		return nil, herr
	}
	return &LocateTextResult{
		Engine:     "heuristic",
		Candidates: candidates,
		Count:      len(candidates),
		OCRError:   err.Error(),
	}, nil
}

// heuristicCandidates runs the edge-density text detector over area (the
// whole image when empty) and converts its regions to OCR candidates.
func heuristicCandidates(g *imaging.PixelGrid, area imaging.Rectangle, minConfidence float64, pad int) ([]ocr.Candidate, error) {
	src := g
	if !area.Empty() {
		cropped, err := imaging.Crop(g, area)
		if err != nil {
			return nil, err
		}
		src = cropped
		area, _ = imaging.ClampRect(g, area)
	}
	found, err := detection.DetectTextRegions(src, minConfidence)
	if err != nil {
		return nil, err
	}

	candidates := make([]ocr.Candidate, 0, len(found.Regions))
	for _, region := range found.Regions {
		r := imaging.Rect(region.Rect.X+area.X-pad, region.Rect.Y+area.Y-pad,
			region.Rect.Width+2*pad, region.Rect.Height+2*pad)
		candidates = append(candidates, ocr.Candidate{
			Confidence: region.Confidence,
			Rect:       r.Clamp(g.Width(), g.Height()),
		})
	}
	return candidates, nil
}

type watermarkPreviewArgs struct {
	imageSource
	rectArgs
	Color     string `json:"color"`
	Thickness int    `json:"thickness"`
	Label     *bool  `json:"label"`
}

// PreviewResult is the annotated image and the rectangle drawn on it.
type PreviewResult struct {
	*ImageResult
	Rect imaging.Rectangle `json:"rect"`
	// Detected is true when the rectangle came from the detector.
	Detected bool `json:"detected"`
}

func (s *Server) handleWatermarkPreview(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a watermarkPreviewArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	rect, err := a.rect()
	if err != nil {
		return nil, err
	}
	g, err := s.loadImage(ctx, a.imageSource)
	if err != nil {
		return nil, err
	}

	detected := rect == nil
	if detected {
		report, err := detection.Detect(g)
		if err != nil {
			return nil, err
		}
		rect = &report.Rect
	}

	out, err := overlay.Highlight(g, *rect, overlay.HighlightOptions{
		Color:     a.Color,
		Thickness: a.Thickness,
		Label:     deref(a.Label, true),
	})
	if err != nil {
		return nil, err
	}
	img, err := s.emit(ctx, out, "png", 0)
	if err != nil {
		return nil, err
	}
	return &PreviewResult{ImageResult: img, Rect: *rect, Detected: detected}, nil
}

// === Watermark Overlay Handlers ===

type watermarkAddTextArgs struct {
	imageSource
	Text     string  `json:"text"`
	X        *int    `json:"x"`
	Y        *int    `json:"y"`
	Opacity  float64 `json:"opacity"`
	FontSize int     `json:"font_size"`
	Color    string  `json:"color"`
	Format   string  `json:"format"`
	Quality  int     `json:"quality"`
}

func (s *Server) handleWatermarkAddText(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a watermarkAddTextArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Text == "" {
		return nil, invalidArgs("text is required")
	}
	if err := s.checkOutput(overlay.TextSize(a.Text, a.FontSize)); err != nil {
		return nil, err
	}
	g, err := s.loadImage(ctx, a.imageSource)
	if err != nil {
		return nil, err
	}
	out, err := overlay.AddText(g, overlay.TextOptions{
		Text:     a.Text,
		X:        deref(a.X, 10),
		Y:        deref(a.Y, 10),
		Opacity:  a.Opacity,
		FontSize: a.FontSize,
		Color:    a.Color,
	})
	if err != nil {
		return nil, invalidArgs("%v", err)
	}
	return s.emit(ctx, out, a.Format, a.Quality)
}

type watermarkAddImageArgs struct {
	imageSource
	Watermark imageSource `json:"watermark"`
	X         *int        `json:"x"`
	Y         *int        `json:"y"`
	Opacity   float64     `json:"opacity"`
	Scale     float64     `json:"scale"`
	Format    string      `json:"format"`
	Quality   int         `json:"quality"`
}

func (s *Server) handleWatermarkAddImage(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a watermarkAddImageArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	g, err := s.loadImage(ctx, a.imageSource)
	if err != nil {
		return nil, err
	}
	mark, err := s.loadImage(ctx, a.Watermark)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}
	if a.Scale > 0 {
		if err := s.checkOutput(float64(mark.Width())*a.Scale, float64(mark.Height())*a.Scale); err != nil {
			return nil, err
		}
	}
	out, err := overlay.AddImage(g, mark, overlay.ImageOptions{
		X:       deref(a.X, 10),
		Y:       deref(a.Y, 10),
		Opacity: a.Opacity,
		Scale:   a.Scale,
	})
	if err != nil {
		return nil, invalidArgs("%v", err)
	}
	return s.emit(ctx, out, a.Format, a.Quality)
}

// === Format Utility Handlers ===

type imageResizeArgs struct {
	imageSource
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Filter string `json:"filter"`
	Format string `json:"format"`
}

func (s *Server) handleImageResize(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageResizeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	filter := imaging.Bilinear
	switch strings.ToLower(a.Filter) {
	case "", "bilinear", "linear":
	case "nearest", "nearest_neighbor":
		filter = imaging.NearestNeighbor
	default:
		return nil, invalidArgs("unknown filter: %s (use nearest or bilinear)", a.Filter)
	}
	if err := s.checkOutput(float64(a.Width), float64(a.Height)); err != nil {
		return nil, err
	}
	g, err := s.loadImage(ctx, a.imageSource)
	if err != nil {
		return nil, err
	}
	out, err := imaging.Resize(g, a.Width, a.Height, filter)
	if err != nil {
		return nil, invalidArgs("%v", err)
	}
	return s.emit(ctx, out, a.Format, 0)
}

type imageRotateArgs struct {
	imageSource
	Angle  float64 `json:"angle"`
	Expand *bool   `json:"expand"`
	Format string  `json:"format"`
}

func (s *Server) handleImageRotate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageRotateArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	g, err := s.loadImage(ctx, a.imageSource)
	if err != nil {
		return nil, err
	}
	expand := deref(a.Expand, true)
	if expand {
		w, h := imaging.RotatedSize(g.Width(), g.Height(), a.Angle)
		if err := s.checkOutput(float64(w), float64(h)); err != nil {
			return nil, err
		}
	}
	return s.emit(ctx, imaging.Rotate(g, a.Angle, expand), a.Format, 0)
}

type imageConvertArgs struct {
	imageSource
	Format  string `json:"format"`
	Quality int    `json:"quality"`
}

func (s *Server) handleImageConvert(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageConvertArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Format == "" {
		return nil, invalidArgs("format is required")
	}
	if _, err := imaging.ParseFormat(a.Format); err != nil {
		return nil, invalidArgs("%v", err)
	}
	g, err := s.loadImage(ctx, a.imageSource)
	if err != nil {
		return nil, err
	}
	return s.emit(ctx, g, a.Format, a.Quality)
}
