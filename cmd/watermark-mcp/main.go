// Package main provides the entry point for the watermark-mcp server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ironsheep/watermark-tools-mcp/internal/cli"
	"github.com/ironsheep/watermark-tools-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cli.Version = Version
	cli.BuildDate = BuildTime
	cli.GitCommit = GitCommit
	if Version != "dev" {
		server.Version = Version
	}

	app := cli.New()
	if err := app.Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
