package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ironsheep/watermark-tools-mcp/internal/config"
	"github.com/ironsheep/watermark-tools-mcp/internal/imaging"
	"github.com/ironsheep/watermark-tools-mcp/internal/store"
)

// newTestApp returns an App that ignores the real environment and .env.
func newTestApp(stdin string) (*App, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	app := New().WithIO(strings.NewReader(stdin), &stdout, &stderr)
	app.loadConfig = func() (*config.Config, error) {
		return config.FromEnv(func(string) string { return "" })
	}
	return app, &stdout
}

// writeMarkedImage writes a white 100x100 PNG with a black square at
// (70,70)-(90,90).
func writeMarkedImage(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(70, 70, 90, 90), image.NewUniform(color.Black), image.Point{}, draw.Src)

	path := filepath.Join(t.TempDir(), "marked.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func TestApp_Version(t *testing.T) {
	app, stdout := newTestApp("")
	if err := app.ExecuteWithArgs(context.Background(), []string{"version"}); err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "watermark-mcp dev") {
		t.Errorf("version output: got %s", stdout.String())
	}
}

func TestApp_Help(t *testing.T) {
	app, stdout := newTestApp("")
	if err := app.ExecuteWithArgs(context.Background(), []string{"--help"}); err != nil {
		t.Fatalf("help command failed: %v", err)
	}
	for _, cmd := range []string{"serve", "detect", "remove", "version"} {
		if !strings.Contains(stdout.String(), cmd) {
			t.Errorf("help output missing %q", cmd)
		}
	}
}

func TestApp_Detect(t *testing.T) {
	path := writeMarkedImage(t)
	app, stdout := newTestApp("")
	if err := app.ExecuteWithArgs(context.Background(), []string{"detect", path}); err != nil {
		t.Fatalf("detect failed: %v", err)
	}

	var report struct {
		Rect   imaging.Rectangle `json:"rect"`
		Method string            `json:"method"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		t.Fatalf("detect output is not JSON: %v\n%s", err, stdout.String())
	}
	if report.Rect != imaging.Rect(67, 67, 26, 26) {
		t.Errorf("rect: got %s", report.Rect)
	}
	if report.Method != "clone_left" {
		t.Errorf("method: got %s", report.Method)
	}
}

func TestApp_Detect_MaxPixels(t *testing.T) {
	path := writeMarkedImage(t)
	app, _ := newTestApp("")
	err := app.ExecuteWithArgs(context.Background(), []string{"detect", "--max-pixels", "100", path})
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("expected size error, got %v", err)
	}
}

func TestApp_Remove_Detected(t *testing.T) {
	path := writeMarkedImage(t)
	out := filepath.Join(t.TempDir(), "clean.png")

	app, stdout := newTestApp("")
	if err := app.ExecuteWithArgs(context.Background(), []string{"remove", path, "-o", out}); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "clone_left") {
		t.Errorf("summary: got %s", stdout.String())
	}

	g, err := imaging.NewImageCache().LoadGrid(out)
	if err != nil {
		t.Fatalf("output not readable: %v", err)
	}
	if c := g.At(80, 80); c.R != 255 || c.G != 255 || c.B != 255 {
		t.Errorf("center of mark: got %v, want white", c)
	}
}

func TestApp_Remove_Explicit(t *testing.T) {
	path := writeMarkedImage(t)
	out := filepath.Join(t.TempDir(), "clean.jpg")

	app, stdout := newTestApp("")
	args := []string{"remove", path, "-o", out, "--x", "65", "--y", "65", "--width", "30", "--height", "30", "--method", "median", "--strength", "31"}
	if err := app.ExecuteWithArgs(context.Background(), args); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "median") || !strings.Contains(stdout.String(), "explicit") {
		t.Errorf("summary: got %s", stdout.String())
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output missing: %v", err)
	}
}

func TestApp_Remove_Errors(t *testing.T) {
	path := writeMarkedImage(t)
	out := filepath.Join(t.TempDir(), "clean.png")

	tests := []struct {
		name string
		args []string
	}{
		{"missing output", []string{"remove", path}},
		{"rect without size", []string{"remove", path, "-o", out, "--x", "5"}},
		{"rect without method", []string{"remove", path, "-o", out, "--width", "5", "--height", "5"}},
		{"unknown method", []string{"remove", path, "-o", out, "--width", "5", "--height", "5", "--method", "smudge"}},
		{"unsupported format", []string{"remove", path, "-o", filepath.Join(t.TempDir(), "x.webp")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := newTestApp("")
			if err := app.ExecuteWithArgs(context.Background(), tt.args); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestApp_Serve(t *testing.T) {
	app, stdout := newTestApp(`{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n")
	if err := app.ExecuteWithArgs(context.Background(), []string{"serve"}); err != nil {
		t.Fatalf("serve failed: %v", err)
	}
	if !strings.Contains(stdout.String(), `"id":1`) {
		t.Errorf("no ping response: %s", stdout.String())
	}
}

func TestApp_Serve_BadOutputDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	app, _ := newTestApp("")
	err := app.ExecuteWithArgs(context.Background(), []string{"serve", "--output-dir", filepath.Join(file, "sub")})
	if err == nil {
		t.Fatal("expected an error for an unusable output directory")
	}
}

func TestApp_Serve_MetricsAddrInUse(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer taken.Close()

	// stdin stays open, so only a failed listener can end serve.
	stdin, w := io.Pipe()
	defer w.Close()
	var stdout, stderr bytes.Buffer
	app := New().WithIO(stdin, &stdout, &stderr)
	app.loadConfig = func() (*config.Config, error) {
		return config.FromEnv(func(string) string { return "" })
	}

	done := make(chan error, 1)
	go func() {
		done <- app.ExecuteWithArgs(context.Background(), []string{"serve", "--metrics-addr", taken.Addr().String()})
	}()
	select {
	case err := <-done:
		if err == nil || !strings.Contains(err.Error(), "metrics listener") {
			t.Errorf("expected a metrics listener error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve kept waiting on stdin after the metrics listener failed")
	}
}

func TestNewStore(t *testing.T) {
	st, err := newStore(&config.Config{StoreLimit: 4})
	if err != nil {
		t.Fatalf("memory store: %v", err)
	}
	if _, ok := st.(*store.MemoryStore); !ok {
		t.Errorf("expected a memory store, got %T", st)
	}

	dir := t.TempDir()
	st, err = newStore(&config.Config{OutputDir: dir})
	if err != nil {
		t.Fatalf("filesystem store: %v", err)
	}
	if fs, ok := st.(*store.FilesystemStore); !ok || fs.Dir() != dir {
		t.Errorf("expected a filesystem store in %s, got %T", dir, st)
	}
}

func TestApp_RootServes(t *testing.T) {
	app, stdout := newTestApp(`{"jsonrpc":"2.0","id":"root","method":"ping"}` + "\n")
	if err := app.ExecuteWithArgs(context.Background(), []string{}); err != nil {
		t.Fatalf("root command failed: %v", err)
	}
	if !strings.Contains(stdout.String(), `"id":"root"`) {
		t.Errorf("no ping response: %s", stdout.String())
	}
}

func TestMethodList(t *testing.T) {
	if got, want := methodList(), "blur, pixelate, median, clone_left, clone_top"; got != want {
		t.Errorf("methodList: got %q, want %q", got, want)
	}
}
