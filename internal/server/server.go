package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ironsheep/watermark-tools-mcp/internal/imaging"
	"github.com/ironsheep/watermark-tools-mcp/internal/metrics"
	"github.com/ironsheep/watermark-tools-mcp/internal/ocr"
	"github.com/ironsheep/watermark-tools-mcp/internal/store"
)

// Version is reported in the initialize handshake.
var Version = "0.1.0"

const (
	defaultMaxPixels   = 40_000_000
	defaultOCRLanguage = "eng"
	defaultStoreLimit  = 64

	// maxLineBytes bounds one JSON-RPC line; base64 images make lines long.
	maxLineBytes = 64 << 20
)

// Server handles MCP protocol communication
type Server struct {
	cache   *imaging.ImageCache
	store   store.Store
	ocr     ocr.Engine
	metrics *metrics.Metrics

	maxPixels   int
	ocrLanguage string
	debug       bool

	in  io.Reader
	out io.Writer
}

// Option configures a Server.
type Option func(*Server)

// WithStore sets where output images are kept.
func WithStore(st store.Store) Option {
	return func(s *Server) { s.store = st }
}

// WithOCR replaces the Tesseract engine.
func WithOCR(e ocr.Engine) Option {
	return func(s *Server) { s.ocr = e }
}

// WithMetrics records tool and repair statistics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithMaxPixels rejects images larger than n pixels.
func WithMaxPixels(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxPixels = n
		}
	}
}

// WithOCRLanguage sets the default Tesseract language.
func WithOCRLanguage(lang string) Option {
	return func(s *Server) {
		if lang != "" {
			s.ocrLanguage = lang
		}
	}
}

// WithDebug enables per-call debug logging.
func WithDebug(debug bool) Option {
	return func(s *Server) { s.debug = debug }
}

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(s *Server) {
		s.in = in
		s.out = out
	}
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MCPNotification represents an outgoing notification (no ID)
type MCPNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// New creates a new MCP server instance. Without options artifacts are kept
// in memory and OCR uses Tesseract.
func New(opts ...Option) *Server {
	s := &Server{
		cache:       imaging.NewImageCache(),
		store:       store.NewMemoryStore(defaultStoreLimit),
		ocr:         ocr.Tesseract{},
		maxPixels:   defaultMaxPixels,
		ocrLanguage: defaultOCRLanguage,
		in:          os.Stdin,
		out:         os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run reads requests line by line and writes responses until the input ends
// or ctx is canceled. Requests are handled one at a time.
func (s *Server) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxLineBytes)

	encoder := json.NewEncoder(s.out)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			log.Printf("Failed to parse request: %v", err)
			continue
		}

		resp := s.handleRequest(ctx, &req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				log.Printf("Failed to encode response: %v", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "watermark-tools-mcp",
				"version": Version,
			},
		},
	}
}

func (s *Server) debugf(format string, args ...interface{}) {
	if s.debug {
		log.Printf("DEBUG "+format, args...)
	}
}
