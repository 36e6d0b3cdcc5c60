package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-flowviz/pkg/engine"
	"github.com/dd0wney/cluso-flowviz/pkg/flowgraph"
	"github.com/dd0wney/cluso-flowviz/pkg/logging"
	"github.com/dd0wney/cluso-flowviz/pkg/parallel"
	"github.com/dd0wney/cluso-flowviz/pkg/render"
	"github.com/dd0wney/cluso-flowviz/pkg/visualization"
)

// Output formats accepted by render and the HTTP API
const (
	formatSVG    = "svg"
	formatPNG    = "png"
	formatFrame  = "json"
	formatLayout = "layout"
)

type renderOptions struct {
	output string
	format string
	ticks  int
	focus  string
	fit    bool
	width  float64
	height float64
	jobs   int
}

func renderCmd(flags *globalFlags) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render <descriptor>...",
		Short: "Settle layouts and write them as SVG, PNG or JSON",
		Long: "Render settles each descriptor and draws the final view. With several\n" +
			"descriptors, --output names a directory and one file is written per input.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if opts.width > 0 {
				cfg.Width = opts.width
			}
			if opts.height > 0 {
				cfg.Height = opts.height
			}
			if _, err := surfaceFor(opts.format); err != nil {
				return err
			}
			logger := flags.logger()

			if len(args) == 1 {
				data, err := renderFile(args[0], cfg, logger, opts)
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), opts.output, data)
			}
			return renderBatch(args, cfg, logger, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "-", "output file, - for stdout; a directory for several descriptors")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatSVG, "svg, png, json (frame) or layout (positions)")
	cmd.Flags().IntVar(&opts.ticks, "ticks", 3000, "maximum solver ticks before drawing")
	cmd.Flags().StringVar(&opts.focus, "focus", "", "node to focus once the layout settles")
	cmd.Flags().BoolVar(&opts.fit, "fit", false, "fit the whole graph in view before drawing")
	cmd.Flags().Float64Var(&opts.width, "width", 0, "viewport width (overrides config)")
	cmd.Flags().Float64Var(&opts.height, "height", 0, "viewport height (overrides config)")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", runtime.NumCPU(), "descriptors rendered in parallel")
	return cmd
}

// renderFile runs one descriptor through its own engine
func renderFile(path string, cfg *engine.Config, logger logging.Logger, opts *renderOptions) ([]byte, error) {
	desc, err := flowgraph.LoadDescriptorFile(path)
	if err != nil {
		return nil, err
	}
	e, err := engine.New(desc, engine.Options{
		Config:             cfg,
		Logger:             logger.With(logging.Path(path)),
		InitialFocusNodeID: opts.focus,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer e.Dispose()

	var buf bytes.Buffer
	if err := settleAndDraw(e, opts.ticks, opts.fit, opts.format, &buf); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return buf.Bytes(), nil
}

// renderBatch writes <dir>/<name>.<ext> for every descriptor. Failures are
// reported together once every descriptor has been tried.
func renderBatch(paths []string, cfg *engine.Config, logger logging.Logger, opts *renderOptions) error {
	dir := opts.output
	if dir == "" || dir == "-" {
		return fmt.Errorf("rendering %d descriptors needs --output to name a directory", len(paths))
	}
	names, err := batchOutputNames(paths, opts.format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	pool, err := parallel.NewWorkerPool(opts.jobs, logger)
	if err != nil {
		return err
	}
	for _, path := range paths {
		err := pool.Submit(func() error {
			data, err := renderFile(path, cfg, logger, opts)
			if err != nil {
				return err
			}
			return writeOutput(nil, filepath.Join(dir, names[path]), data)
		})
		if err != nil {
			return err
		}
	}
	return pool.Wait()
}

// batchOutputNames maps each descriptor to its output file name. Two
// descriptors that would write the same file are rejected before any work.
func batchOutputNames(paths []string, format string) (map[string]string, error) {
	names := make(map[string]string, len(paths))
	owner := make(map[string]string, len(paths))
	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + "." + extensionFor(format)
		if prev, ok := owner[name]; ok {
			return nil, fmt.Errorf("%s and %s would both write %s", prev, path, name)
		}
		owner[name] = path
		names[path] = name
	}
	return names, nil
}

// settleAndDraw runs e until it is idle and writes the final view to w
func settleAndDraw(e *engine.Engine, ticks int, fit bool, format string, w io.Writer) error {
	surface, err := surfaceFor(format)
	if err != nil {
		return err
	}

	frame, err := e.Settle(ticks, 16)
	if err != nil {
		return err
	}
	if fit {
		if err := e.Fit(); err != nil {
			return err
		}
		if frame, err = e.Tick(0); err != nil {
			return err
		}
	}

	switch format {
	case formatLayout:
		data, err := visualization.ExportJSON(e.Graph(), e.Alpha())
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case formatFrame:
		return json.NewEncoder(w).Encode(frame)
	}
	return surface.Draw(w, frame)
}

// surfaceFor returns nil for the JSON formats
func surfaceFor(format string) (render.Surface, error) {
	switch format {
	case formatSVG:
		return render.NewSVGSurface(), nil
	case formatPNG:
		return render.NewPNGSurface()
	case formatFrame, formatLayout:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown format %q", format)
}

func contentTypeFor(format string) string {
	switch format {
	case formatSVG:
		return "image/svg+xml"
	case formatPNG:
		return "image/png"
	}
	return "application/json"
}

func extensionFor(format string) string {
	switch format {
	case formatSVG, formatPNG:
		return format
	case formatLayout:
		return "layout.json"
	}
	return "json"
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
