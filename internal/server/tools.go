package server

import "github.com/ironsheep/watermark-tools-mcp/internal/repair"

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// prop builds a JSON schema property.
func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        typ,
		"description": description,
	}
}

// methodNames lists the repair methods by wire name.
func methodNames() []string {
	methods := repair.Methods()
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = string(m)
	}
	return names
}

// objectSchema builds an object schema whose properties start with the
// image source arguments every tool accepts.
func objectSchema(props map[string]interface{}, required ...string) map[string]interface{} {
	all := map[string]interface{}{
		"path":         prop("string", "Absolute path to the image file"),
		"image_base64": prop("string", "Base64 image data, optionally as a data: URL. Use instead of path"),
		"artifact_id":  prop("string", "ID of an image returned by an earlier call. Use instead of path"),
	}
	for k, v := range props {
		all[k] = v
	}
	schema := map[string]interface{}{
		"type":       "object",
		"properties": all,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func rectProperties(what string) map[string]interface{} {
	return map[string]interface{}{
		"x":      prop("integer", "Left edge of the "+what+" (0-based)"),
		"y":      prop("integer", "Top edge of the "+what+" (0-based)"),
		"width":  prop("integer", "Width of the "+what+" in pixels"),
		"height": prop("integer", "Height of the "+what+" in pixels"),
	}
}

func merge(maps ...map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

var (
	formatProp  = prop("string", "Output format: png (default), jpeg or gif")
	qualityProp = prop("integer", "JPEG quality 1-100. Default 80")
)

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic image operations
		{
			Name:        "image_load",
			Description: "Load an image and return its dimensions, format, alpha flag and size in bytes.",
			InputSchema: objectSchema(nil),
		},
		{
			Name:        "image_crop",
			Description: "Crop a rectangular region from an image and return it as a base64 image. Use this to zoom into a suspected watermark before removing it.",
			InputSchema: objectSchema(merge(rectProperties("crop"), map[string]interface{}{
				"scale": map[string]interface{}{
					"type":        "number",
					"description": "Optional scale factor (e.g., 2.0 to double size). Default 1.0",
					"default":     1.0,
				},
				"format": formatProp,
			}), "width", "height"),
		},
		{
			Name:        "image_sample_color",
			Description: "Get the exact color at a pixel as hex, RGB, RGBA and HSL.",
			InputSchema: objectSchema(map[string]interface{}{
				"x": prop("integer", "X coordinate (0-based from left)"),
				"y": prop("integer", "Y coordinate (0-based from top)"),
			}, "x", "y"),
		},

		// Watermark detection and repair
		{
			Name: "watermark_detect",
			Description: "Find the region most likely covered by a watermark without editing the image. " +
				"Returns the bounding rectangle, mask coverage, whether the contamination is diffuse, " +
				"and the repair method and parameters watermark_remove would use.",
			InputSchema: objectSchema(nil),
		},
		{
			Name: "watermark_remove",
			Description: "Remove a watermark. Give x/y/width/height and method together to repair a known region, " +
				"or give neither to let the detector choose. Returns the repaired image, what was applied, " +
				"changed_pixels and seam_delta_e (mean color difference across the repaired border; lower blends better).",
			InputSchema: objectSchema(merge(rectProperties("region to repair"), map[string]interface{}{
				"method": map[string]interface{}{
					"type":        "string",
					"description": "Repair strategy. Required together with the rectangle",
					"enum":        methodNames(),
				},
				"strength": prop("integer", "Blur radius, pixel block size or median window. Default 6. Ignored when the detector chooses"),
				"feather":  prop("integer", "Width of the soft blend at the region border; 0 gives hard edges. Default 0"),
				"format":   formatProp,
				"quality":  qualityProp,
			})),
		},
		{
			Name: "watermark_locate_text",
			Description: "Find text lines (captions, copyright notices, site names) that may be watermarks. " +
				"Uses Tesseract OCR, falling back to an edge heuristic when OCR is unavailable. " +
				"Each candidate rectangle can be passed to watermark_remove.",
			InputSchema: objectSchema(merge(rectProperties("region to search"), map[string]interface{}{
				"language":       prop("string", "Tesseract language code. Default from server configuration (eng)"),
				"min_confidence": prop("number", "Minimum confidence 0.0-1.0. Default 0.5"),
				"padding":        prop("integer", "Pixels added around each candidate. Default 4"),
			})),
		},
		{
			Name: "watermark_preview",
			Description: "Draw a rectangle outline over the image so the region can be checked before removal. " +
				"Without a rectangle the detector's choice is drawn.",
			InputSchema: objectSchema(merge(rectProperties("rectangle"), map[string]interface{}{
				"color":     prop("string", "Outline color as hex. Default #FF0000"),
				"thickness": prop("integer", "Outline thickness in pixels. Default 2"),
				"label":     prop("boolean", "Print the rectangle size next to it. Default true"),
			})),
		},

		// Adding watermarks
		{
			Name:        "watermark_add_text",
			Description: "Overlay semi-transparent text on the image.",
			InputSchema: objectSchema(map[string]interface{}{
				"text":      prop("string", "Text to draw"),
				"x":         prop("integer", "Left edge of the text. Default 10"),
				"y":         prop("integer", "Top edge of the text. Default 10"),
				"opacity":   prop("number", "Opacity 0.0-1.0. Default 0.3"),
				"font_size": prop("integer", "Approximate text height in pixels. Default 13"),
				"color":     prop("string", "Text color as hex. Default #FFFFFF"),
				"format":    formatProp,
				"quality":   qualityProp,
			}, "text"),
		},
		{
			Name:        "watermark_add_image",
			Description: "Overlay another image (such as a logo) with opacity and scale.",
			InputSchema: objectSchema(map[string]interface{}{
				"watermark": map[string]interface{}{
					"type":        "object",
					"description": "The image to overlay, given by path, image_base64 or artifact_id",
					"properties": map[string]interface{}{
						"path":         prop("string", "Absolute path to the watermark image"),
						"image_base64": prop("string", "Base64 watermark image data"),
						"artifact_id":  prop("string", "ID of an earlier output image"),
					},
				},
				"x":       prop("integer", "Left edge of the watermark. Default 10"),
				"y":       prop("integer", "Top edge of the watermark. Default 10"),
				"opacity": prop("number", "Opacity 0.0-1.0. Default 0.3"),
				"scale":   prop("number", "Resize factor for the watermark. Default 1.0"),
				"format":  formatProp,
				"quality": qualityProp,
			}, "watermark"),
		},

		// Format utilities
		{
			Name:        "image_resize",
			Description: "Resize an image to an exact width and height.",
			InputSchema: objectSchema(map[string]interface{}{
				"width":  prop("integer", "New width in pixels"),
				"height": prop("integer", "New height in pixels"),
				"filter": map[string]interface{}{
					"type":        "string",
					"description": "Resampling filter. Default bilinear",
					"enum":        []string{"nearest", "bilinear"},
				},
				"format": formatProp,
			}, "width", "height"),
		},
		{
			Name:        "image_rotate",
			Description: "Rotate an image counter-clockwise by a number of degrees.",
			InputSchema: objectSchema(map[string]interface{}{
				"angle":  prop("number", "Rotation in degrees, counter-clockwise"),
				"expand": prop("boolean", "Grow the canvas to fit the rotated image. Default true"),
				"format": formatProp,
			}, "angle"),
		},
		{
			Name:        "image_convert",
			Description: "Re-encode an image as PNG, JPEG or GIF. Lower JPEG quality compresses harder.",
			InputSchema: objectSchema(map[string]interface{}{
				"format":  prop("string", "Target format: png, jpeg or gif"),
				"quality": qualityProp,
			}, "format"),
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
