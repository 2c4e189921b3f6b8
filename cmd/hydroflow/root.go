package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/config"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/errors"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/prompt"
)

// app holds global flag values and the process streams.
type app struct {
	configPath     string
	logLevel       string
	logFormat      string
	telemetry      bool
	nonInteractive bool

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	logger   *slog.Logger
	shutdown func(context.Context) error
}

func newApp() *app {
	return &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "hydroflow",
		Short: "Sediment yield of watersheds from a DEM, climate rasters and faults",
		Long: `hydroflow derives stream networks from a DEM, delineates watersheds from
pour points (given, or found where faults cross streams), and computes BQART
sediment yield per watershed for a climate scenario.

Each stage writes a manifest into its batch directory so later runs can
start from any stage, and a checkpoint so a failed run can be resumed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(a.stderr, a.logLevel, a.logFormat)
			if err != nil {
				return err
			}
			a.logger = logger
			slog.SetDefault(logger)

			if a.telemetry {
				shutdown, err := setupTelemetry(cmd.Context(), a.stderr)
				if err != nil {
					return fmt.Errorf("telemetry: %w", err)
				}
				a.shutdown = shutdown
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a.shutdown == nil {
				return nil
			}
			return a.shutdown(context.WithoutCancel(cmd.Context()))
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "config.yml", "project configuration (YAML or JSON)")
	flags.StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flags.StringVar(&a.logFormat, "log-format", "text", "log format: text or json")
	flags.BoolVar(&a.telemetry, "telemetry", false, "export traces and metrics to stderr")
	flags.BoolVar(&a.nonInteractive, "non-interactive", false, "never ask; missing inputs are errors")

	root.AddCommand(
		newModeCmd(a, modeFull),
		newModeCmd(a, modeWatershed),
		newModeCmd(a, modeBQART),
		newResumeCmd(a),
		newBatchesCmd(a),
	)
	return root
}

// newLogger builds the slog handler selected by the log flags.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("--log-level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("--log-format: unknown format %q", format)
	}
}

func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.FromFile(a.configPath)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("configuration loaded",
		slog.String("path", a.configPath),
		slog.String("project", cfg.ProjectName),
		slog.String("output", cfg.Output))
	return cfg, nil
}

// prompt picks the operator prompt: a list picker on a terminal, line
// questions on piped input, none with --non-interactive.
func (a *app) prompt() prompt.Prompt {
	if a.nonInteractive {
		return prompt.NonInteractive{}
	}
	in, inOK := a.stdin.(*os.File)
	out, outOK := a.stdout.(*os.File)
	if inOK && outOK && isatty.IsTerminal(in.Fd()) && isatty.IsTerminal(out.Fd()) {
		return prompt.NewTUI(a.stdin, a.stdout)
	}
	return prompt.NewLine(a.stdin, a.stdout)
}

// exitCode maps an error to the process exit status: 2 for configuration
// problems, 3 for I/O a rerun may fix, 1 otherwise.
func exitCode(err error) int {
	switch {
	case errors.KindOf(err) == errors.KindConfig:
		return 2
	case errors.IsRecoverable(err):
		return 3
	default:
		return 1
	}
}
