package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ironsheep/watermark-tools-mcp/internal/imaging"
	"github.com/ironsheep/watermark-tools-mcp/internal/metrics"
	"github.com/ironsheep/watermark-tools-mcp/internal/ocr"
)

var (
	white = color.RGBA{255, 255, 255, 255}
	black = color.RGBA{0, 0, 0, 255}
	red   = color.RGBA{255, 0, 0, 255}
)

type fakeEngine struct {
	result *ocr.Result
	err    error
}

func (f *fakeEngine) Recognize(pngData []byte, language string) (*ocr.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	words := make([]ocr.Word, len(f.result.Words))
	copy(words, f.result.Words)
	return &ocr.Result{FullText: f.result.FullText, Words: words}, nil
}

// createTestImage builds a solid image with an optional filled square.
func createTestImage(width, height int, bg color.Color, square image.Rectangle, fg color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	if !square.Empty() {
		draw.Draw(img, square, image.NewUniform(fg), image.Point{}, draw.Src)
	}
	return img
}

// createTestImageFile writes img as PNG to a temp dir and returns its path.
func createTestImageFile(t *testing.T, img image.Image) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "handler-test.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func encodeBase64(t *testing.T, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// callTool runs one tools/call and decodes the text content into a map.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) (map[string]interface{}, *MCPError) {
	t.Helper()

	params, _ := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  params,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		return nil, resp.Error
	}

	result := resp.Result.(map[string]interface{})
	content := result["content"].([]map[string]interface{})
	if len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("unexpected content: %v", content)
	}
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), &out); err != nil {
		t.Fatalf("tool result is not JSON: %v", err)
	}
	return out, nil
}

func mustCall(t *testing.T, s *Server, name string, args map[string]interface{}) map[string]interface{} {
	t.Helper()
	out, mcpErr := callTool(t, s, name, args)
	if mcpErr != nil {
		t.Fatalf("%s failed: %d %s %v", name, mcpErr.Code, mcpErr.Message, mcpErr.Data)
	}
	return out
}

func wantCode(t *testing.T, s *Server, name string, args map[string]interface{}, code int) {
	t.Helper()
	_, mcpErr := callTool(t, s, name, args)
	if mcpErr == nil {
		t.Fatalf("%s: expected error code %d, got success", name, code)
	}
	if mcpErr.Code != code {
		t.Fatalf("%s: got code %d (%v), want %d", name, mcpErr.Code, mcpErr.Data, code)
	}
}

// decodeOutput decodes the image_base64 field of a tool result.
func decodeOutput(t *testing.T, out map[string]interface{}) *imaging.PixelGrid {
	t.Helper()
	g, _, err := imaging.DecodeBase64(out["image_base64"].(string))
	if err != nil {
		t.Fatalf("output image: %v", err)
	}
	return g
}

func newTestServer(opts ...Option) *Server {
	return New(append([]Option{WithOCR(&fakeEngine{err: errors.New("no tesseract")})}, opts...)...)
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := newTestServer()
	path := createTestImageFile(t, createTestImage(100, 80, red, image.Rectangle{}, nil))

	out := mustCall(t, s, "image_load", map[string]interface{}{"path": path})
	if out["width"] != float64(100) || out["height"] != float64(80) {
		t.Errorf("size: got %vx%v, want 100x80", out["width"], out["height"])
	}
	if out["format"] != "png" {
		t.Errorf("format: got %v, want png", out["format"])
	}
}

func TestHandleToolsCall_ImageLoad_Base64(t *testing.T) {
	s := newTestServer()
	payload := "data:image/png;base64," + encodeBase64(t, createTestImage(30, 20, red, image.Rectangle{}, nil))

	out := mustCall(t, s, "image_load", map[string]interface{}{"image_base64": payload})
	if out["width"] != float64(30) || out["height"] != float64(20) {
		t.Errorf("size: got %vx%v, want 30x20", out["width"], out["height"])
	}
	if out["file_size_bytes"].(float64) <= 0 {
		t.Errorf("file_size_bytes: got %v", out["file_size_bytes"])
	}
}

func TestHandleToolsCall_SourceErrors(t *testing.T) {
	s := newTestServer()
	path := createTestImageFile(t, createTestImage(10, 10, red, image.Rectangle{}, nil))

	wantCode(t, s, "image_load", map[string]interface{}{}, -32602)
	wantCode(t, s, "image_load", map[string]interface{}{"path": path, "image_base64": "abc"}, -32602)
	wantCode(t, s, "image_load", map[string]interface{}{"image_base64": "!!!"}, -32602)
	wantCode(t, s, "image_load", map[string]interface{}{"path": "/nonexistent/image.png"}, -32000)
	wantCode(t, s, "image_load", map[string]interface{}{"artifact_id": "7d9f1c1e-0000-4000-8000-000000000000"}, -32000)
}

func TestHandleToolsCall_MaxPixels(t *testing.T) {
	s := newTestServer(WithMaxPixels(1000))
	path := createTestImageFile(t, createTestImage(100, 80, red, image.Rectangle{}, nil))

	_, mcpErr := callTool(t, s, "image_crop", map[string]interface{}{"path": path, "width": 10, "height": 10})
	if mcpErr == nil || mcpErr.Code != -32000 {
		t.Fatalf("expected -32000, got %+v", mcpErr)
	}
	if s.cache.Len() != 0 {
		t.Error("oversized image should not be cached")
	}
}

func TestHandleToolsCall_InvalidTool(t *testing.T) {
	wantCode(t, newTestServer(), "nonexistent_tool", map[string]interface{}{}, -32602)
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer()
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Fatalf("expected -32602, got %+v", resp.Error)
	}

	params := json.RawMessage(`{"name":"image_crop","arguments":{"path":"/x.png","width":"wide"}}`)
	resp = s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 2, Method: "tools/call", Params: params})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Fatalf("expected -32602 for mistyped argument, got %+v", resp.Error)
	}
}

func TestHandleToolsCall_SampleColor(t *testing.T) {
	s := newTestServer()
	path := createTestImageFile(t, createTestImage(20, 20, white, image.Rect(5, 5, 10, 10), red))

	out := mustCall(t, s, "image_sample_color", map[string]interface{}{"path": path, "x": 6, "y": 6})
	if out["hex"] != "#FF0000" {
		t.Errorf("hex: got %v, want #FF0000", out["hex"])
	}
	wantCode(t, s, "image_sample_color", map[string]interface{}{"path": path, "x": 50, "y": 6}, -32000)
}

func TestHandleToolsCall_Crop(t *testing.T) {
	s := newTestServer()
	path := createTestImageFile(t, createTestImage(100, 100, white, image.Rect(10, 10, 20, 20), red))

	out := mustCall(t, s, "image_crop", map[string]interface{}{
		"path": path, "x": 10, "y": 10, "width": 10, "height": 10, "scale": 2.0,
	})
	if out["width"] != float64(20) || out["height"] != float64(20) {
		t.Errorf("size: got %vx%v, want 20x20", out["width"], out["height"])
	}
	if out["mime_type"] != "image/png" {
		t.Errorf("mime_type: got %v", out["mime_type"])
	}
	if got := decodeOutput(t, out).At(10, 10); got.R != 255 || got.G != 0 {
		t.Errorf("cropped pixel: got %v, want red", got)
	}

	// The artifact can be used as the input of a later call.
	id := out["artifact_id"].(string)
	info := mustCall(t, s, "image_load", map[string]interface{}{"artifact_id": id})
	if info["width"] != float64(20) {
		t.Errorf("artifact width: got %v, want 20", info["width"])
	}

	wantCode(t, s, "image_crop", map[string]interface{}{"path": path, "x": 10}, -32602)
	wantCode(t, s, "image_crop", map[string]interface{}{"path": path, "x": 200, "y": 0, "width": 5, "height": 5}, -32000)
}

func TestHandleToolsCall_WatermarkDetect(t *testing.T) {
	s := newTestServer()
	path := createTestImageFile(t, createTestImage(100, 100, white, image.Rect(70, 70, 90, 90), black))

	out := mustCall(t, s, "watermark_detect", map[string]interface{}{"path": path})
	rect := out["rect"].(map[string]interface{})
	if rect["x"] != float64(67) || rect["y"] != float64(67) || rect["width"] != float64(26) || rect["height"] != float64(26) {
		t.Errorf("rect: got %v, want 67,67 26x26", rect)
	}
	if out["method"] != "clone_left" {
		t.Errorf("method: got %v, want clone_left", out["method"])
	}
	if out["diffuse"] != false || out["fallback"] != false {
		t.Errorf("diffuse/fallback: got %v/%v", out["diffuse"], out["fallback"])
	}
	if out["image_width"] != float64(100) {
		t.Errorf("image_width: got %v", out["image_width"])
	}
}

func TestHandleToolsCall_WatermarkRemove_Detected(t *testing.T) {
	m := metrics.New()
	s := newTestServer(WithMetrics(m))
	path := createTestImageFile(t, createTestImage(100, 100, white, image.Rect(70, 70, 90, 90), black))

	out := mustCall(t, s, "watermark_remove", map[string]interface{}{"path": path})
	if out["mode"] != "localized" {
		t.Errorf("mode: got %v, want localized", out["mode"])
	}
	if out["method"] != "clone_left" {
		t.Errorf("method: got %v, want clone_left", out["method"])
	}
	if out["detection"] == nil {
		t.Error("detection report missing")
	}
	if out["changed_pixels"].(float64) == 0 {
		t.Error("changed_pixels should be positive")
	}
	if out["changed_outside"] != float64(0) {
		t.Errorf("changed_outside: got %v, want 0", out["changed_outside"])
	}

	g := decodeOutput(t, out)
	if c := g.At(80, 80); c.R != 255 || c.G != 255 || c.B != 255 {
		t.Errorf("center of mark: got %v, want white", c)
	}

	exists, err := s.store.Exists(context.Background(), out["artifact_id"].(string))
	if err != nil || !exists {
		t.Errorf("artifact not stored: %v %v", exists, err)
	}

	if n, err := testutil.GatherAndCount(m.Registry(), "watermark_mcp_repairs_total"); err != nil || n != 1 {
		t.Errorf("repairs_total series: got %d (%v), want 1", n, err)
	}
}

func TestHandleToolsCall_WatermarkRemove_Explicit(t *testing.T) {
	s := newTestServer()
	gray := color.RGBA{128, 128, 128, 255}
	payload := encodeBase64(t, createTestImage(100, 100, gray, image.Rectangle{}, nil))

	out := mustCall(t, s, "watermark_remove", map[string]interface{}{
		"image_base64": payload,
		"x":            10, "y": 10, "width": 30, "height": 30,
		"method":   "Blur",
		"strength": 5,
	})
	if out["mode"] != "explicit" {
		t.Errorf("mode: got %v, want explicit", out["mode"])
	}
	if out["method"] != "blur" {
		t.Errorf("method: got %v, want blur", out["method"])
	}
	if out["detection"] != nil {
		t.Errorf("explicit repair should not report detection: %v", out["detection"])
	}
	params := out["params"].(map[string]interface{})
	if params["strength"] != float64(5) || params["feather"] != float64(0) {
		t.Errorf("params: got %v", params)
	}
	if out["changed_outside"] != float64(0) {
		t.Errorf("changed_outside: got %v", out["changed_outside"])
	}
}

func TestHandleToolsCall_WatermarkRemove_Errors(t *testing.T) {
	s := newTestServer()
	path := createTestImageFile(t, createTestImage(50, 50, white, image.Rectangle{}, nil))

	// Rectangle without a method.
	wantCode(t, s, "watermark_remove", map[string]interface{}{"path": path, "x": 1, "y": 1, "width": 5, "height": 5}, -32602)
	// Method without a rectangle.
	wantCode(t, s, "watermark_remove", map[string]interface{}{"path": path, "method": "blur"}, -32602)
	wantCode(t, s, "watermark_remove", map[string]interface{}{"path": path, "x": 1, "y": 1, "width": 5, "height": 5, "method": "smudge"}, -32602)
	wantCode(t, s, "watermark_remove", map[string]interface{}{"path": path, "x": 1, "y": 1, "width": -5, "height": 5, "method": "blur"}, -32602)
	// Zero width is out of bounds.
	wantCode(t, s, "watermark_remove", map[string]interface{}{"path": path, "x": 1, "y": 1, "width": 0, "height": 5, "method": "blur"}, -32000)
}

func TestHandleToolsCall_WatermarkLocateText_OCR(t *testing.T) {
	engine := &fakeEngine{result: &ocr.Result{
		FullText: "(c) example\n",
		Words: []ocr.Word{
			{Text: "(c)", Confidence: 0.9, Rect: imaging.Rect(60, 80, 20, 10)},
			{Text: "example", Confidence: 0.8, Rect: imaging.Rect(84, 80, 50, 10)},
			{Text: "noise", Confidence: 0.1, Rect: imaging.Rect(5, 5, 10, 10)},
		},
	}}
	s := New(WithOCR(engine))
	path := createTestImageFile(t, createTestImage(200, 100, white, image.Rectangle{}, nil))

	out := mustCall(t, s, "watermark_locate_text", map[string]interface{}{"path": path, "padding": 2})
	if out["engine"] != "tesseract" {
		t.Errorf("engine: got %v", out["engine"])
	}
	if out["text"] != "(c) example" {
		t.Errorf("text: got %q", out["text"])
	}
	candidates := out["candidates"].([]interface{})
	if len(candidates) != 1 {
		t.Fatalf("candidates: got %d, want 1", len(candidates))
	}
	c := candidates[0].(map[string]interface{})
	if c["text"] != "(c) example" {
		t.Errorf("candidate text: got %v", c["text"])
	}
	rect := c["rect"].(map[string]interface{})
	if rect["x"] != float64(58) || rect["y"] != float64(78) || rect["width"] != float64(78) || rect["height"] != float64(14) {
		t.Errorf("candidate rect: got %v", rect)
	}
}

func TestHandleToolsCall_WatermarkLocateText_Fallback(t *testing.T) {
	s := newTestServer()
	path := createTestImageFile(t, createTestImage(200, 100, white, image.Rectangle{}, nil))

	out := mustCall(t, s, "watermark_locate_text", map[string]interface{}{"path": path})
	if out["engine"] != "heuristic" {
		t.Errorf("engine: got %v, want heuristic", out["engine"])
	}
	if out["ocr_error"] != "no tesseract" {
		t.Errorf("ocr_error: got %v", out["ocr_error"])
	}
	if out["count"] != float64(0) {
		t.Errorf("blank image should have no candidates, got %v", out["count"])
	}
}

func TestHandleToolsCall_WatermarkPreview(t *testing.T) {
	s := newTestServer()
	path := createTestImageFile(t, createTestImage(100, 100, white, image.Rect(70, 70, 90, 90), black))

	out := mustCall(t, s, "watermark_preview", map[string]interface{}{
		"path": path, "x": 20, "y": 20, "width": 30, "height": 30, "label": false,
	})
	if out["detected"] != false {
		t.Errorf("detected: got %v, want false", out["detected"])
	}
	g := decodeOutput(t, out)
	if g.Width() != 100 || g.Height() != 100 {
		t.Errorf("size: got %dx%d", g.Width(), g.Height())
	}
	if c := g.At(19, 30); c.R != 255 || c.G != 0 {
		t.Errorf("outline pixel: got %v, want red", c)
	}
	if c := g.At(30, 30); c.G != 255 {
		t.Errorf("inside pixel should be untouched, got %v", c)
	}

	out = mustCall(t, s, "watermark_preview", map[string]interface{}{"path": path})
	if out["detected"] != true {
		t.Errorf("detected: got %v, want true", out["detected"])
	}
}

func TestHandleToolsCall_WatermarkAddText(t *testing.T) {
	s := newTestServer()
	path := createTestImageFile(t, createTestImage(120, 60, black, image.Rectangle{}, nil))

	out := mustCall(t, s, "watermark_add_text", map[string]interface{}{
		"path": path, "text": "SAMPLE", "opacity": 1.0,
	})
	g := decodeOutput(t, out)
	bright := 0
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			if g.At(x, y).R > 128 {
				bright++
			}
		}
	}
	if bright == 0 {
		t.Error("no text pixels drawn")
	}

	wantCode(t, s, "watermark_add_text", map[string]interface{}{"path": path}, -32602)
	wantCode(t, s, "watermark_add_text", map[string]interface{}{"path": path, "text": "x", "opacity": 2.0}, -32602)
}

func TestHandleToolsCall_GeneratedSizeLimit(t *testing.T) {
	s := newTestServer(WithMaxPixels(10_000))
	path := createTestImageFile(t, createTestImage(100, 100, black, image.Rectangle{}, nil))
	logo := encodeBase64(t, createTestImage(10, 10, white, image.Rectangle{}, nil))

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
	}{
		{"huge font", "watermark_add_text", map[string]interface{}{
			"path": path, "text": "W", "font_size": 13 * 10_000_000,
		}},
		{"huge scale", "watermark_add_image", map[string]interface{}{
			"path": path, "watermark": map[string]interface{}{"image_base64": logo}, "scale": 1e8,
		}},
		{"expanded rotation", "image_rotate", map[string]interface{}{
			"path": path, "angle": 45,
		}},
		{"resize target", "image_resize", map[string]interface{}{
			"path": path, "width": 200, "height": 200,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, mcpErr := callTool(t, s, tt.tool, tt.args)
			if mcpErr == nil || mcpErr.Code != -32602 {
				t.Fatalf("expected -32602, got %+v", mcpErr)
			}
			if !strings.Contains(mcpErr.Data.(string), "image too large") {
				t.Errorf("error data: got %v", mcpErr.Data)
			}
		})
	}

	out := mustCall(t, s, "image_rotate", map[string]interface{}{"path": path, "angle": 45, "expand": false})
	if out["width"] != float64(100) || out["height"] != float64(100) {
		t.Errorf("unexpanded rotate: got %vx%v, want 100x100", out["width"], out["height"])
	}
	mustCall(t, s, "watermark_add_text", map[string]interface{}{"path": path, "text": "W", "font_size": 26})
}

func TestHandleToolsCall_WatermarkAddImage(t *testing.T) {
	s := newTestServer()
	path := createTestImageFile(t, createTestImage(60, 60, black, image.Rectangle{}, nil))
	logo := encodeBase64(t, createTestImage(10, 10, white, image.Rectangle{}, nil))

	out := mustCall(t, s, "watermark_add_image", map[string]interface{}{
		"path":      path,
		"watermark": map[string]interface{}{"image_base64": logo},
		"x":         0, "y": 0, "opacity": 1.0, "scale": 2.0,
	})
	g := decodeOutput(t, out)
	if c := g.At(15, 15); c.R != 255 {
		t.Errorf("inside scaled logo: got %v, want white", c)
	}
	if c := g.At(25, 25); c.R != 0 {
		t.Errorf("outside logo: got %v, want black", c)
	}

	wantCode(t, s, "watermark_add_image", map[string]interface{}{"path": path}, -32602)
}

func TestHandleToolsCall_FormatUtilities(t *testing.T) {
	s := newTestServer()
	path := createTestImageFile(t, createTestImage(100, 80, red, image.Rectangle{}, nil))

	out := mustCall(t, s, "image_resize", map[string]interface{}{"path": path, "width": 50, "height": 40, "filter": "nearest"})
	if out["width"] != float64(50) || out["height"] != float64(40) {
		t.Errorf("resize: got %vx%v", out["width"], out["height"])
	}
	wantCode(t, s, "image_resize", map[string]interface{}{"path": path, "width": 50, "height": 40, "filter": "lanczos9"}, -32602)
	wantCode(t, s, "image_resize", map[string]interface{}{"path": path, "width": 0, "height": 40}, -32602)

	out = mustCall(t, s, "image_rotate", map[string]interface{}{"path": path, "angle": 90})
	if out["width"] != float64(80) || out["height"] != float64(100) {
		t.Errorf("rotate: got %vx%v, want 80x100", out["width"], out["height"])
	}

	out = mustCall(t, s, "image_convert", map[string]interface{}{"path": path, "format": "jpeg", "quality": 50})
	if out["mime_type"] != "image/jpeg" {
		t.Errorf("convert mime_type: got %v", out["mime_type"])
	}
	wantCode(t, s, "image_convert", map[string]interface{}{"path": path}, -32602)
	wantCode(t, s, "image_convert", map[string]interface{}{"path": path, "format": "webp"}, -32602)
}

func TestExecuteTool_AllTools(t *testing.T) {
	s := newTestServer()
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			// Missing arguments must fail as bad input, never as an unknown tool.
			_, err := s.executeTool(context.Background(), tool.Name, json.RawMessage(`{}`))
			if err == nil {
				t.Fatal("expected an error without arguments")
			}
			if err.Error() == "invalid arguments: unknown tool: "+tool.Name {
				t.Fatalf("tool %s is not dispatched", tool.Name)
			}
		})
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := newTestServer()
	_, err := s.executeTool(context.Background(), "image_load", json.RawMessage(`{invalid`))
	if !errors.Is(err, errInvalidArguments) {
		t.Fatalf("expected invalid arguments, got %v", err)
	}
}
