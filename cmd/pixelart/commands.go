package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/ironsheep/pixelart/internal/imaging"
	"github.com/ironsheep/pixelart/internal/server"
	"github.com/ironsheep/pixelart/internal/workspace"
)

// ServeCmd runs the MCP server.
type ServeCmd struct {
	Delay time.Duration `help:"Debounce period for block size and target size changes" default:"100ms"`
}

func (c *ServeCmd) Run(logger *slog.Logger) error {
	logger.Debug("starting MCP server", "version", Version, "built", BuildTime, "commit", GitCommit)

	srv := server.New(server.Config{
		Logger:  logger,
		Version: Version,
		Delay:   c.Delay,
	})
	defer srv.Close()

	if err := srv.Run(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// ProcessCmd runs the whole pipeline once and saves the result.
type ProcessCmd struct {
	In  string `help:"Source image" required:"" type:"existingfile"`
	Out string `help:"Output path. The format follows the extension; without one the source suffix is used" required:""`

	BlockSize  int    `help:"Pixelation block size" default:"1" group:"pixelate"`
	Width      int    `help:"Output width (0 keeps the source width)" group:"resize"`
	Height     int    `help:"Output height (0 keeps the source height)" group:"resize"`
	LockAspect bool   `help:"Derive the missing dimension from the aspect ratio" group:"resize"`
	Filter     string `help:"Resample filter" default:"linear" enum:"nearest,box,linear,catmullrom,lanczos" group:"resize"`

	Background string  `help:"Key out this color (#RRGGBB or auto). Keying is off when empty" group:"key"`
	Tolerance  int     `help:"Per-channel keying tolerance" default:"16" group:"key"`
	Feather    float64 `help:"Gaussian radius for the keyed edge" group:"key"`

	Colors int `help:"Reduce to this many colors (0 keeps all)" group:"palette"`

	out io.Writer `kong:"-"`
}

func (c *ProcessCmd) Validate() error {
	switch {
	case c.BlockSize < 1:
		return fmt.Errorf("invalid block size: %d", c.BlockSize)
	case c.Width < 0:
		return fmt.Errorf("invalid width: %d", c.Width)
	case c.Height < 0:
		return fmt.Errorf("invalid height: %d", c.Height)
	case c.Tolerance < 0:
		return fmt.Errorf("invalid tolerance: %d", c.Tolerance)
	case c.Feather < 0:
		return fmt.Errorf("invalid feather radius: %g", c.Feather)
	case c.Colors < 0:
		return fmt.Errorf("invalid palette size: %d", c.Colors)
	}
	if c.Background != "" && !strings.EqualFold(c.Background, "auto") {
		if _, err := imaging.ParseColor(c.Background); err != nil {
			return err
		}
	}
	return nil
}

func (c *ProcessCmd) Run(logger *slog.Logger) error {
	ws := workspace.New(workspace.Config{Logger: logger.With("file", c.In)})
	defer ws.Close()

	if err := ws.Open(c.In); err != nil {
		return err
	}

	filter, err := imaging.ParseFilter(c.Filter)
	if err != nil {
		return err
	}
	if err := ws.SetFilter(filter); err != nil {
		return err
	}
	if c.Colors > 0 {
		if err := ws.SetPaletteColors(c.Colors); err != nil {
			return err
		}
	}

	if err := ws.SetBlockSize(c.BlockSize); err != nil {
		return err
	}
	ws.SetAspectLock(c.LockAspect)
	switch {
	case c.Width > 0 && c.Height > 0:
		err = ws.SetTargetSize(c.Width, c.Height)
	case c.Width > 0:
		err = ws.SetTargetWidth(c.Width)
	case c.Height > 0:
		err = ws.SetTargetHeight(c.Height)
	}
	if err != nil {
		return err
	}
	ws.Flush()

	if c.Background != "" {
		if err := c.applyKeying(ws); err != nil {
			return err
		}
	}

	path, err := ws.Save(c.Out)
	if err != nil {
		return err
	}
	report, err := ws.Quality()
	if err != nil {
		return err
	}

	w := c.out
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintf(w, "%s: %dx%d, PSNR %s\n", path, report.Width, report.Height, formatPSNR(float64(report.PSNR)))
	return nil
}

func (c *ProcessCmd) applyKeying(ws *workspace.Workspace) error {
	var bg = imaging.DefaultBackground
	if strings.EqualFold(c.Background, "auto") {
		img, err := ws.Result()
		if err != nil {
			return err
		}
		if bg, err = imaging.SuggestBackground(img); err != nil {
			return err
		}
	} else {
		var err error
		if bg, err = imaging.ParseColor(c.Background); err != nil {
			return err
		}
	}

	if err := ws.SetBackground(bg); err != nil {
		return err
	}
	if err := ws.SetTolerance(c.Tolerance); err != nil {
		return err
	}
	if err := ws.SetFeather(c.Feather); err != nil {
		return err
	}
	return ws.SetKeying(true)
}

// CompareCmd prints the quality of a candidate image against a reference.
type CompareCmd struct {
	Reference string `arg:"" help:"Reference image" type:"existingfile"`
	Candidate string `arg:"" help:"Candidate image" type:"existingfile"`
	JSON      bool   `help:"Print the full report as JSON"`

	out io.Writer `kong:"-"`
}

func (c *CompareCmd) Run(logger *slog.Logger) error {
	cache := imaging.NewImageCache()
	ref, err := cache.Load(c.Reference)
	if err != nil {
		return err
	}
	cand, err := cache.Load(c.Candidate)
	if err != nil {
		return err
	}

	report, err := imaging.CompareQuality(ref, cand)
	if err != nil {
		return err
	}
	logger.Debug("compared", "reference", c.Reference, "candidate", c.Candidate, "mse", report.MSE)

	w := c.out
	if w == nil {
		w = os.Stdout
	}
	if c.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(w, "MSE   %.4f\n", report.MSE)
	fmt.Fprintf(w, "PSNR  %s\n", formatPSNR(float64(report.PSNR)))
	fmt.Fprintf(w, "  R   %s\n", formatPSNR(float64(report.Red.PSNR)))
	fmt.Fprintf(w, "  G   %s\n", formatPSNR(float64(report.Green.PSNR)))
	fmt.Fprintf(w, "  B   %s\n", formatPSNR(float64(report.Blue.PSNR)))
	return nil
}

func formatPSNR(db float64) string {
	if math.IsInf(db, 1) {
		return "identical"
	}
	return fmt.Sprintf("%.2f dB", db)
}

// VersionCmd prints build information.
type VersionCmd struct {
	out io.Writer `kong:"-"`
}

func (c *VersionCmd) Run() error {
	w := c.out
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintf(w, "pixelart %s\n", Version)
	fmt.Fprintf(w, "  Build time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	return nil
}
