// Package cli provides the watermark-mcp command line: the stdio MCP server
// plus one-shot detect and remove commands for local files.
package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ironsheep/watermark-tools-mcp/internal/config"
)

// Version information set at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// App represents the CLI application.
type App struct {
	root   *cobra.Command
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// loadConfig is replaced in tests.
	loadConfig func() (*config.Config, error)

	// Flag values that override the environment.
	logLevel    string
	outputDir   string
	metricsAddr string
	maxPixels   int
	ocrLanguage string
}

// New creates a new CLI application.
func New() *App {
	app := &App{
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		loadConfig: config.Load,
	}

	app.root = &cobra.Command{
		Use:   "watermark-mcp",
		Short: "MCP server for watermark detection and removal",
		Long: `watermark-mcp serves image tools over the Model Context Protocol (JSON-RPC on
stdin/stdout). It finds watermarks, repairs the contaminated region so it
blends with its surroundings, and adds text or logo watermarks.

Settings come from .env and IMAGE_MCP_* environment variables; flags override
both.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := app.root.PersistentFlags()
	pf.StringVar(&app.logLevel, "log-level", "", "Log level: info or debug (env "+config.EnvLogLevel+")")
	pf.StringVar(&app.outputDir, "output-dir", "", "Directory for output artifacts; empty keeps them in memory (env "+config.EnvOutputDir+")")
	pf.StringVar(&app.metricsAddr, "metrics-addr", "", "Address for /metrics and /healthz, e.g. :9090 (env "+config.EnvMetricsAddr+")")
	pf.IntVar(&app.maxPixels, "max-pixels", 0, "Reject images with more pixels (env "+config.EnvMaxPixels+")")
	pf.StringVar(&app.ocrLanguage, "ocr-language", "", "Tesseract language code (env "+config.EnvOCRLanguage+")")

	// Without a subcommand the binary serves, so MCP client configs need no
	// arguments.
	serve := app.newServeCmd()
	app.root.Args = cobra.NoArgs
	app.root.RunE = serve.RunE

	app.root.AddCommand(
		app.newVersionCmd(),
		serve,
		app.newDetectCmd(),
		app.newRemoveCmd(),
	)

	return app
}

// WithIO sets custom input and output streams.
func (a *App) WithIO(stdin io.Reader, stdout, stderr io.Writer) *App {
	a.stdin = stdin
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments (useful for testing).
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// settings loads the configuration and applies flag overrides.
func (a *App) settings(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = a.outputDir
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = a.metricsAddr
	}
	if flags.Changed("max-pixels") {
		if a.maxPixels <= 0 {
			return nil, fmt.Errorf("--max-pixels must be positive, got %d", a.maxPixels)
		}
		cfg.MaxPixels = a.maxPixels
	}
	if flags.Changed("ocr-language") {
		cfg.OCRLanguage = a.ocrLanguage
	}

	// Logging goes to stderr; stdout is the MCP channel.
	log.SetOutput(a.stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	return cfg, nil
}

// newVersionCmd creates the version command.
func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "watermark-mcp %s\n", Version)
			fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
			fmt.Fprintf(a.stdout, "  Build date: %s\n", BuildDate)
		},
	}
}
