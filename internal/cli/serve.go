package cli

import (
	"context"
	"fmt"
	"log"
	"net"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/watermark-tools-mcp/internal/config"
	"github.com/ironsheep/watermark-tools-mcp/internal/metrics"
	"github.com/ironsheep/watermark-tools-mcp/internal/server"
	"github.com/ironsheep/watermark-tools-mcp/internal/store"
)

func (a *App) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdin/stdout",
		Long: `Run the MCP server. Requests are read from stdin one JSON-RPC message per
line; responses are written to stdout. Logs go to stderr.

Examples:
  # Keep output images in memory
  watermark-mcp serve

  # Write output images to a directory and expose metrics
  watermark-mcp serve --output-dir /tmp/watermark --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.settings(cmd)
			if err != nil {
				return err
			}
			return a.serve(cmd.Context(), cfg)
		},
	}
}

// newStore picks the filesystem store when an output directory is set.
func newStore(cfg *config.Config) (store.Store, error) {
	if cfg.OutputDir == "" {
		return store.NewMemoryStore(cfg.StoreLimit), nil
	}
	st, err := store.NewFilesystemStore(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open output directory: %w", err)
	}
	return st, nil
}

func (a *App) serve(ctx context.Context, cfg *config.Config) error {
	if cfg.Debug() {
		log.Printf("Watermark MCP Server %s (built %s, commit %s)", Version, BuildDate, GitCommit)
	}

	st, err := newStore(cfg)
	if err != nil {
		return err
	}
	if fs, ok := st.(*store.FilesystemStore); ok && cfg.Debug() {
		log.Printf("Writing output images to %s", fs.Dir())
	}

	opts := []server.Option{
		server.WithStore(st),
		server.WithIO(a.stdin, a.stdout),
		server.WithMaxPixels(cfg.MaxPixels),
		server.WithOCRLanguage(cfg.OCRLanguage),
		server.WithDebug(cfg.Debug()),
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if cfg.MetricsAddr != "" {
		ln, err := net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			return fmt.Errorf("failed to start metrics listener: %w", err)
		}
		m := metrics.New()
		opts = append(opts, server.WithMetrics(m))
		g.Go(func() error {
			return m.Serve(ctx, ln)
		})
	}

	srv := server.New(opts...)
	g.Go(func() error {
		// Stdin closing ends the session and stops the metrics listener.
		defer cancel()
		if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	return g.Wait()
}
