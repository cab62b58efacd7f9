package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"fiddle/internal/observ"
	"fiddle/internal/project"
	"fiddle/internal/trace"
	"fiddle/internal/version"
)

// app holds what every command shares for one invocation.
type app struct {
	logger  *zap.Logger
	timer   *observ.Timer
	cleanup func()
	loadEnv bool
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "labeltool",
		Short: "Find, validate and rewrite bootloader instrumentation labels",
		Long: `labeltool manages "#define ___<TAG>_<name>_<stage>_<value>" labels
in C, header and assembly sources of an instrumented bootloader tree.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().String("root", "", "source tree root (default: $"+project.EnvSourceRoot+" or "+project.ManifestName+")")
	root.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	root.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	root.PersistentFlags().Bool("verbose", false, "enable debug logging")
	root.PersistentFlags().Bool("timings", false, "show timing information")
	root.PersistentFlags().String("trace", "", "trace output file (- for stderr)")
	root.PersistentFlags().String("trace-level", "off", "trace level ("+trace.LevelNames+")")
	root.PersistentFlags().String("trace-format", "auto", "trace format (auto|text|ndjson)")

	root.AddCommand(
		newLabelsCmd(a),
		newSummarizeCmd(a),
		newCheckCmd(a),
		newInsertCmd(a),
		newRemoveCmd(a),
		newFmtCmd(a),
		newWatchCmd(a),
		newCleanCmd(a),
		newTypesCmd(),
		newVersionCmd(),
	)
	return root
}

// setup builds the logger, tracer and timer from the persistent flags.
func (a *app) setup(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()
	if a.loadEnv {
		if err := project.LoadEnv("."); err != nil {
			return err
		}
	}

	colorMode, err := flags.GetString("color")
	if err != nil {
		return err
	}
	switch colorMode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto":
		color.NoColor = !isTerminal(os.Stdout)
	default:
		return fmt.Errorf("invalid --color %q (expected auto|on|off)", colorMode)
	}

	verbose, err := flags.GetBool("verbose")
	if err != nil {
		return err
	}
	quiet, err := flags.GetBool("quiet")
	if err != nil {
		return err
	}
	if a.logger == nil {
		level := zapcore.WarnLevel
		switch {
		case verbose:
			level = zapcore.DebugLevel
		case quiet:
			level = zapcore.ErrorLevel
		}
		a.logger = newLogger(cmd.ErrOrStderr(), level)
	}

	timings, err := flags.GetBool("timings")
	if err != nil {
		return err
	}
	if timings {
		a.timer = observ.NewTimer()
	}

	if cmd.Context() == nil {
		cmd.SetContext(context.Background())
	}
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	a.cleanup = cleanup
	return nil
}

// finish flushes the tracer and logger and prints timings.
func (a *app) finish(stderr io.Writer) {
	if a.cleanup != nil {
		a.cleanup()
		a.cleanup = nil
	}
	if a.timer != nil && len(a.timer.Report().Phases) > 0 {
		fmt.Fprint(stderr, a.timer.Summary())
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func newLogger(w io.Writer, level zapcore.Level) *zap.Logger {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = ""
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

// execute runs the CLI with args and returns the command error.
func execute(ctx context.Context, a *app, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	defer a.finish(stderr)
	return root.ExecuteContext(ctx)
}

// main runs the CLI and exits with status 1 when the command fails.
func main() {
	a := &app{loadEnv: true}
	if err := execute(context.Background(), a, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// isTerminal reports whether f is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
