package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ironsheep/watermark-tools-mcp/internal/imaging"
	"github.com/ironsheep/watermark-tools-mcp/internal/pipeline"
	"github.com/ironsheep/watermark-tools-mcp/internal/repair"
)

// removeOptions holds options for the remove command.
type removeOptions struct {
	output   string
	x, y     int
	width    int
	height   int
	method   string
	strength int
	feather  int
	quality  int
}

func (a *App) newRemoveCmd() *cobra.Command {
	opts := &removeOptions{}

	cmd := &cobra.Command{
		Use:   "remove <image>",
		Short: "Remove a watermark from a local image",
		Long: `Repair a watermark in a local image and write the result.

Give --width, --height and --method together to repair a known rectangle, or
none of them to let the detector choose.

Examples:
  # Let the detector find the watermark
  watermark-mcp remove photo.jpg -o clean.png

  # Clone over a known corner logo with a soft edge
  watermark-mcp remove photo.jpg -o clean.png --x 600 --y 420 --width 180 --height 50 --method clone_left --feather 4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.settings(cmd)
			if err != nil {
				return err
			}
			req, err := opts.request(cmd)
			if err != nil {
				return err
			}
			g, err := loadLocal(args[0], cfg.MaxPixels)
			if err != nil {
				return err
			}
			return a.remove(g, req, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "Output file; the extension picks png, jpeg or gif (required)")
	f.IntVar(&opts.x, "x", 0, "Left edge of the region")
	f.IntVar(&opts.y, "y", 0, "Top edge of the region")
	f.IntVar(&opts.width, "width", 0, "Width of the region")
	f.IntVar(&opts.height, "height", 0, "Height of the region")
	f.StringVar(&opts.method, "method", "", "Repair method: "+methodList())
	f.IntVar(&opts.strength, "strength", repair.DefaultStrength, "Blur radius, block size or median window")
	f.IntVar(&opts.feather, "feather", 0, "Soft blend width at the region border")
	f.IntVar(&opts.quality, "quality", imaging.DefaultJPEGQuality, "JPEG quality 1-100")

	_ = cmd.MarkFlagRequired("output")

	return cmd
}

// request builds a pipeline request from the flags that were set.
func (o *removeOptions) request(cmd *cobra.Command) (pipeline.Request, error) {
	var req pipeline.Request
	f := cmd.Flags()
	if f.Changed("x") || f.Changed("y") || f.Changed("width") || f.Changed("height") {
		if !f.Changed("width") || !f.Changed("height") {
			return req, fmt.Errorf("--width and --height are required with --x/--y")
		}
		r := imaging.Rect(o.x, o.y, o.width, o.height)
		req.Rect = &r
	}
	if o.method != "" {
		m, err := repair.ParseMethod(o.method)
		if err != nil {
			return req, err
		}
		req.Method = m
	}
	if f.Changed("strength") || f.Changed("feather") {
		req.Params = &repair.Params{Strength: o.strength, Feather: o.feather}
	}
	return req, nil
}

func (a *App) remove(g *imaging.PixelGrid, req pipeline.Request, opts *removeOptions) error {
	res, err := pipeline.Run(g, req)
	if err != nil {
		return err
	}
	enc, err := imaging.Encode(res.Image, filepath.Ext(opts.output), opts.quality)
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.output, enc.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	diff, err := imaging.Difference(g, res.Image, res.Rect)
	if err != nil {
		return err
	}
	mode := "explicit"
	if res.Detection != nil {
		mode = "detected"
		if res.Diffuse() {
			mode = "diffuse"
		}
	}
	fmt.Fprintf(a.stdout, "%s: %s %s (%s) changed=%d seam_delta_e=%.2f\n",
		opts.output, res.Method, res.Rect, mode, diff.ChangedPixels, imaging.SeamDeltaE(res.Image, res.Rect))
	return nil
}

func methodList() string {
	names := make([]string, 0, len(repair.Methods()))
	for _, m := range repair.Methods() {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}
