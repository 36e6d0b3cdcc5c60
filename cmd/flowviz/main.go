// Command flowviz lays out, renders, serves and explores flow networks.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-flowviz/pkg/engine"
	"github.com/dd0wney/cluso-flowviz/pkg/logging"
	"github.com/dd0wney/cluso-flowviz/pkg/validation"
)

var version = "0.1.0"

type globalFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "flowviz",
		Short:         "Force-directed flow network visualization",
		Long:          "flowviz lays out donor, recipient, implementer and sector flow networks\nwith a force simulation and renders or serves the result.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("flowviz {{ .Version }}\n")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "engine config YAML (defaults when empty)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error (default LOG_LEVEL or info)")

	root.AddCommand(
		validateCmd(flags),
		renderCmd(flags),
		serveCmd(flags),
		tuiCmd(flags),
	)
	return root
}

// loadConfig returns the defaults when no config file is given
func (f *globalFlags) loadConfig() (*engine.Config, error) {
	if f.configPath == "" {
		cfg := engine.DefaultConfig()
		return &cfg, nil
	}
	cfg, err := engine.LoadConfig(f.configPath)
	if paths := validation.FieldPaths(err); len(paths) > 0 {
		return nil, fmt.Errorf("%s: invalid %s: %w", f.configPath, strings.Join(paths, ", "), err)
	}
	return cfg, err
}

func (f *globalFlags) level() logging.Level {
	if f.logLevel != "" {
		return logging.ParseLevel(f.logLevel)
	}
	return logging.LevelFromEnv(logging.InfoLevel)
}

func (f *globalFlags) logger() logging.Logger {
	logger := logging.NewStderrLogger(f.level())
	logging.SetDefaultLogger(logger)
	return logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "flowviz:", err)
		os.Exit(1)
	}
}
