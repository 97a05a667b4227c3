// Package pipeline connects the contamination detector to the repair engine.
//
// A Request either names both a rectangle and a method, in which case the
// engine runs directly, or names neither, in which case the detector decides.
// Supplying exactly one of the two is rejected.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/ironsheep/watermark-tools-mcp/internal/detection"
	"github.com/ironsheep/watermark-tools-mcp/internal/imaging"
	"github.com/ironsheep/watermark-tools-mcp/internal/repair"
)

// ErrIncompleteRequest is returned when a request names a rectangle without
// a method or a method without a rectangle.
var ErrIncompleteRequest = errors.New("incomplete request: rectangle and method must be given together")

// Request describes one watermark removal.
type Request struct {
	// Rect is the region to repair. Nil asks the detector.
	Rect *imaging.Rectangle

	// Method is the strategy to use. Empty asks the detector.
	Method repair.Method

	// Params overrides strength and feather for explicit requests. Nil uses
	// repair.DefaultParams. Detected repairs use the detector's parameters.
	Params *repair.Params

	// Detection overrides the detector constants. Nil uses
	// detection.DefaultConfig.
	Detection *detection.Config
}

// Result is the outcome of Run.
type Result struct {
	// Image is the repaired grid, the same size as the input.
	Image *imaging.PixelGrid

	// Rect and Method are what was actually applied. Rect is clamped to the
	// image. For a diffuse repair Rect is the mask's bounding rectangle.
	Rect   imaging.Rectangle
	Method repair.Method
	Params repair.Params

	// Detection is the detector report, nil for explicit requests.
	Detection *detection.Report
}

// Diffuse reports whether the whole-image masked repair was used.
func (r *Result) Diffuse() bool {
	return r.Detection != nil && r.Detection.Diffuse
}

// Run repairs g according to req. The input grid is not modified.
func Run(g *imaging.PixelGrid, req Request) (*Result, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil grid", imaging.ErrInvalidImage)
	}

	hasRect, hasMethod := req.Rect != nil, req.Method != ""
	switch {
	case hasRect && hasMethod:
		return runExplicit(g, req)
	case !hasRect && !hasMethod:
		return runDetected(g, req)
	case hasRect:
		return nil, fmt.Errorf("%w: method missing for %s", ErrIncompleteRequest, *req.Rect)
	default:
		return nil, fmt.Errorf("%w: rectangle missing for %s", ErrIncompleteRequest, req.Method)
	}
}

func runExplicit(g *imaging.PixelGrid, req Request) (*Result, error) {
	params := repair.DefaultParams()
	if req.Params != nil {
		params = *req.Params
	}
	rect, err := imaging.ClampRect(g, *req.Rect)
	if err != nil {
		return nil, err
	}
	out, err := repair.Repair(g, rect, req.Method, params)
	if err != nil {
		return nil, err
	}
	return &Result{Image: out, Rect: rect, Method: req.Method, Params: params}, nil
}

func runDetected(g *imaging.PixelGrid, req Request) (*Result, error) {
	cfg := detection.DefaultConfig()
	if req.Detection != nil {
		cfg = *req.Detection
	}
	report, err := detection.DetectWithConfig(g, cfg)
	if err != nil {
		return nil, fmt.Errorf("detect contamination: %w", err)
	}

	var out *imaging.PixelGrid
	if report.Diffuse {
		out, err = repair.RepairMasked(g, report.Mask, report.Params)
	} else {
		out, err = repair.Repair(g, report.Rect, report.Method, report.Params)
	}
	if err != nil {
		return nil, err
	}
	return &Result{
		Image:     out,
		Rect:      report.Rect,
		Method:    report.Method,
		Params:    report.Params,
		Detection: report,
	}, nil
}
