package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironsheep/watermark-tools-mcp/internal/detection"
	"github.com/ironsheep/watermark-tools-mcp/internal/imaging"
)

func (a *App) newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <image>",
		Short: "Print the watermark detection report for an image",
		Long: `Run the contamination detector on a local image and print its report as
JSON: the bounding rectangle, mask coverage, whether the contamination is
diffuse, and the recommended repair method and parameters.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.settings(cmd)
			if err != nil {
				return err
			}
			g, err := loadLocal(args[0], cfg.MaxPixels)
			if err != nil {
				return err
			}
			report, err := detection.Detect(g)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(a.stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}

// loadLocal decodes an image file, enforcing the pixel limit.
func loadLocal(path string, maxPixels int) (*imaging.PixelGrid, error) {
	g, err := imaging.NewImageCache().LoadGrid(path)
	if err != nil {
		return nil, err
	}
	if g.Width()*g.Height() > maxPixels {
		return nil, fmt.Errorf("image too large: %dx%d exceeds %d pixels", g.Width(), g.Height(), maxPixels)
	}
	return g, nil
}
