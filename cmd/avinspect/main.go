// Package main provides a command that prints the track layout of a
// recorded MP4 or MOV file.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/user/avgrabber/pkg/adapters/codecdetect"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:      "avinspect",
		Usage:     "Inspect recordings written by avgrabber",
		ArgsUsage: "<file>...",
		Version:   version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "print the report as JSON",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("a file argument is required", 2)
	}

	for _, path := range c.Args().Slice() {
		report, err := codecdetect.InspectFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if c.Bool("json") {
			if err := writeJSON(c.App.Writer, path, report); err != nil {
				return err
			}
			continue
		}
		writeText(c.App.Writer, path, report)
	}
	return nil
}

func writeJSON(w io.Writer, path string, report codecdetect.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		File string
		codecdetect.Report
	}{path, report})
}

func writeText(w io.Writer, path string, report codecdetect.Report) {
	fmt.Fprintf(w, "%s\n", path)
	fmt.Fprintf(w, "  brand:      %s\n", strings.TrimSpace(report.MajorBrand))
	fmt.Fprintf(w, "  fragmented: %t (%d fragments)\n", report.Fragmented, report.Fragments)
	for _, t := range report.Tracks {
		fmt.Fprintf(w, "  track %d: %s %s, timescale %d, %d samples", t.ID, t.Handler, t.Codec, t.Timescale, t.Samples)
		if t.Width > 0 && t.Height > 0 {
			fmt.Fprintf(w, ", %dx%d", t.Width, t.Height)
		}
		if t.Timescale > 0 {
			fmt.Fprintf(w, ", %.3f s", float64(t.Duration)/float64(t.Timescale))
		}
		fmt.Fprintln(w)
	}
}
