package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"probekit/internal/config"
	"probekit/internal/core"
	"probekit/internal/progress"
	"probekit/internal/session"
	"probekit/internal/source"
	"probekit/internal/summary"
)

type runOptions struct {
	probes  []string
	output  string
	noColor bool
	width   int
	quiet   bool
	verbose bool
}

func newRunCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay the recording through the selected probes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runProbes(ctx, configPath, opts, stdout, stderr)
		},
	}
	cmd.Flags().StringArrayVarP(&opts.probes, "probe", "P", nil, "probe or summary selector, repeatable (comma lists allowed)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output format: text, json (default from config)")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "disable colored outcome lines")
	cmd.Flags().IntVar(&opts.width, "width", 0, "summary width (default from config, then terminal)")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "suppress per-test outcome lines")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log probe activity to stderr")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, usageError("%v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, usageError("invalid config %s:\n%v", path, err)
	}
	return cfg, nil
}

func runProbes(ctx context.Context, configPath string, opts *runOptions, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if opts.output != "" {
		cfg.Output = opts.output
	}
	if cfg.Output != config.OutputText && cfg.Output != config.OutputJSON {
		return usageError("--output must be 'text' or 'json', got %q", cfg.Output)
	}
	if cfg.Recording == "" {
		return usageError("config %s does not name a recording", configPath)
	}

	rec, err := source.LoadRecording(cfg.Recording, cfg.Dir())
	if err != nil {
		return usageError("%v", err)
	}
	probes, summaries, err := cfg.Registries(core.RealClock{})
	if err != nil {
		return usageError("%v", err)
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	width := cfg.Width
	if opts.width > 0 {
		width = opts.width
	}
	if width == 0 {
		width = summary.TerminalWidth(os.Stdout)
	}

	// Display probes share stdout with text reports only; JSON keeps stdout clean.
	display := stdout
	if cfg.Output == config.OutputJSON {
		display = stderr
	}

	hub := source.NewHub()
	rec.Declare(hub)
	sess := session.New(hub, probes, summaries, session.Options{
		Logger:     logger,
		Clock:      core.RealClock{},
		Width:      width,
		Display:    display,
		Selectors:  append(append([]string(nil), cfg.Selectors...), opts.probes...),
		Thresholds: cfg.Thresholds,
	})

	prog := progress.NewProgress(opts.quiet)
	prog.SetOutput(stderr)
	prog.SetColor(!opts.noColor && cfg.ColorEnabled(!color.NoColor))

	interrupted := false
	for _, id := range rec.Tests() {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		result := sess.RunTest(ctx, core.ParseTestID(id), cfg.TestSelectors(id), func(context.Context) error {
			return rec.Replay(hub, id)
		})
		prog.Outcome(result)
	}

	report, err := sess.Finish()
	if err != nil {
		return err
	}
	if cfg.Output == config.OutputJSON {
		session.FormatJSON(stdout, report)
	} else {
		session.FormatText(stdout, report)
		prog.Tally(report.Tally)
	}

	return runResult(report, interrupted, stderr)
}

// runResult maps a finished run to its exit status. Failures win over an
// interrupt.
func runResult(report *session.Report, interrupted bool, stderr io.Writer) error {
	if interrupted {
		fmt.Fprintln(stderr, "interrupted, remaining tests skipped")
	}
	if !report.Passed() {
		return &exitError{code: ExitFailed, err: errors.New("run failed")}
	}
	return nil
}
