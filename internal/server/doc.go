// Package server implements the MCP (Model Context Protocol) server for the
// watermark tools.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic image operations:
//   - image_load: Dimensions, format and size
//   - image_crop: Extract a rectangle
//   - image_sample_color: Color at a pixel
//
// Watermark detection and repair:
//   - watermark_detect: Locate contamination without editing
//   - watermark_remove: Repair an explicit or detected region
//   - watermark_locate_text: OCR text lines as candidate rectangles
//   - watermark_preview: Outline a rectangle for review
//
// Adding watermarks:
//   - watermark_add_text: Semi-transparent text
//   - watermark_add_image: Semi-transparent logo
//
// Format utilities:
//   - image_resize, image_rotate, image_convert
//
// # Images
//
// Every tool takes its input image as one of path, image_base64 or
// artifact_id. Images read from a path are cached by path for the lifetime
// of the process. Images above the configured pixel limit are rejected
// before they are fully decoded.
//
// Tools that produce an image encode it, save it in the configured
// store.Store and return its artifact_id together with the base64 data, so
// later calls can chain on the result without resending it.
//
// # Error Handling
//
// Tool errors are returned as JSON-RPC error responses:
//   - -32602: bad or missing arguments, unknown tool
//   - -32000: tool execution failure, with the Go error string as data
//   - -32601: unknown JSON-RPC method
//
// # Usage
//
//	srv := server.New(server.WithStore(st), server.WithMetrics(m))
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
