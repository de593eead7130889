package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// CLI is the command line of pixelart. Running without a command starts the
// MCP server, which is how MCP clients launch it.
type CLI struct {
	LogLevel string `help:"Log level (debug, info, warn, error). Logs go to stderr." default:"info" enum:"debug,info,warn,error" env:"PIXELART_LOG_LEVEL"`

	Serve   ServeCmd   `cmd:"" default:"1" help:"Serve MCP requests on stdin/stdout"`
	Process ProcessCmd `cmd:"" help:"Run the pixel-art pipeline over one image"`
	Compare CompareCmd `cmd:"" help:"Report MSE and PSNR between two images of the same size"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// newLogger builds the stderr logger; stdout carries the MCP protocol.
func newLogger(level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})), nil
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("pixelart"),
		kong.Description("Pixel-art pipeline: pixelate, resize, key out the background and touch up by hand."),
		kong.UsageOnError(),
	)

	logger, err := newLogger(cli.LogLevel)
	kctx.FatalIfErrorf(err)
	slog.SetDefault(logger)

	kctx.FatalIfErrorf(kctx.Run(logger))
}
