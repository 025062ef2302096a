// Package main provides the CLI entrypoint for anzan.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/anzan/internal/config"
	"github.com/verte-zerg/anzan/internal/generator"
	"github.com/verte-zerg/anzan/internal/logger"
	"github.com/verte-zerg/anzan/internal/model"
	"github.com/verte-zerg/anzan/internal/prompt"
	"github.com/verte-zerg/anzan/internal/session"
	"github.com/verte-zerg/anzan/internal/stats"
	"github.com/verte-zerg/anzan/internal/statsui"
	"github.com/verte-zerg/anzan/internal/store"
	"github.com/verte-zerg/anzan/internal/tui"
)

const (
	defaultOp          = "add"
	defaultLevel       = "beginner"
	defaultMode        = "fixed"
	defaultQuestions   = 10
	defaultDuration    = "60s"
	defaultLogLevel    = "warn"
	defaultLogFormat   = "json"
	defaultCurveWindow = 5
)

type practiceOptions struct {
	op        string
	level     string
	mode      string
	questions int
	duration  string
	timeLimit string
	noLimit   bool
	seed      int64
	plain     bool
	noSave    bool
	logLevel  string
	logFormat string
	logFile   string
}

var (
	practice practiceOptions

	statsOp          string
	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsPlain       bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "anzan",
		Short:         "Timed mental arithmetic trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.Flags().StringVar(&practice.op, "op", defaultOp, "operation: add, sub, mul, div or mixed")
	rootCmd.Flags().StringVar(&practice.level, "level", defaultLevel, "difficulty: beginner, intermediate or advanced")
	rootCmd.Flags().StringVar(&practice.mode, "mode", defaultMode, "session mode: fixed or time")
	rootCmd.Flags().IntVar(&practice.questions, "questions", defaultQuestions, "questions per fixed session")
	rootCmd.Flags().StringVar(&practice.duration, "duration", defaultDuration, "time attack length (e.g. 90s, 2m)")
	rootCmd.Flags().StringVar(&practice.timeLimit, "time-limit", "", "per-question limit overriding the level preset")
	rootCmd.Flags().BoolVar(&practice.noLimit, "no-limit", false, "disable the per-question limit")
	rootCmd.Flags().Int64Var(&practice.seed, "seed", 0, "random seed for a reproducible problem sequence")
	rootCmd.Flags().BoolVar(&practice.plain, "plain", false, "line-based prompt instead of the TUI")
	rootCmd.Flags().BoolVar(&practice.noSave, "no-save", false, "do not record the session in history")
	rootCmd.Flags().StringVar(&practice.logLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newLevelsCmd())
	rootCmd.AddCommand(newStatsCmd())

	return rootCmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFileConfig(cmd, &practice, fileCfg)

	cfg, err := buildSessionConfig(practice)
	if err != nil {
		return err
	}

	plain := practice.plain || !isInteractive()
	log, closeLog, err := openLogger(practice, plain)
	if err != nil {
		return err
	}
	defer closeLog()

	var st *store.Store
	if !practice.noSave {
		st, err = store.Open(config.DefaultDBPath())
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		defer func() {
			if cerr := st.Close(); cerr != nil {
				log.Warn().Err(cerr).Msg("failed to close db")
			}
		}()
	}

	gen := generator.New()
	if cmd.Flags().Changed("seed") {
		gen = generator.NewSeeded(practice.seed)
	}
	log.Debug().
		Str("op", string(cfg.Operation)).
		Str("level", string(cfg.Level)).
		Str("mode", string(cfg.Mode)).
		Bool("plain", plain).
		Msg("starting practice")

	if plain {
		return runPlain(cfg, gen, st, log)
	}

	m, err := tui.NewModel(tui.Options{
		Config:  cfg,
		Source:  gen,
		Tracker: session.NewTracker(),
		Store:   st,
		Log:     log,
	})
	if err != nil {
		return err
	}
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return m.Err()
}

func runPlain(cfg model.SessionConfig, gen *generator.Generator, st *store.Store, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := prompt.New(os.Stdin, os.Stdout)
	defer p.Close()
	runner := &prompt.Runner{
		Prompter: p,
		Tracker:  session.NewTracker(),
		Source:   gen,
		Now:      time.Now,
		Log:      log,
	}
	state, runErr := runner.Run(ctx, cfg)
	if state == nil {
		return runErr
	}
	endedAt := time.Now()
	if st != nil && state.Phase == model.PhaseComplete && state.Asked > 0 {
		if _, err := st.InsertSession(context.Background(), state, endedAt); err != nil {
			log.Error().Err(err).Msg("failed to save session")
		}
	}
	if err := runner.Report(state, endedAt); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, prompt.ErrClosed) {
		return runErr
	}
	return nil
}

// buildSessionConfig turns practice flags into a validated session config.
func buildSessionConfig(opts practiceOptions) (model.SessionConfig, error) {
	op, err := model.ParseOperation(opts.op)
	if err != nil {
		return model.SessionConfig{}, fmt.Errorf("invalid --op: %w", err)
	}
	level, err := model.ParseLevel(opts.level)
	if err != nil {
		return model.SessionConfig{}, fmt.Errorf("invalid --level: %w", err)
	}
	mode, err := model.ParseMode(opts.mode)
	if err != nil {
		return model.SessionConfig{}, fmt.Errorf("invalid --mode: %w", err)
	}
	specs, err := generator.Presets(level)
	if err != nil {
		return model.SessionConfig{}, err
	}
	switch {
	case opts.noLimit:
		specs = generator.OverrideTimeLimit(specs, 0)
	case opts.timeLimit != "":
		limit, err := config.ParseDuration(opts.timeLimit)
		if err != nil {
			return model.SessionConfig{}, fmt.Errorf("invalid --time-limit: %w", err)
		}
		specs = generator.OverrideTimeLimit(specs, limit)
	}

	cfg := model.SessionConfig{
		Mode:      mode,
		Operation: op,
		Level:     level,
		Specs:     specs,
	}
	if mode == model.ModeTimeAttack {
		d, err := config.ParseDuration(opts.duration)
		if err != nil {
			return model.SessionConfig{}, fmt.Errorf("invalid --duration: %w", err)
		}
		cfg.Duration = d
	} else {
		if opts.questions <= 0 {
			return model.SessionConfig{}, fmt.Errorf("--questions must be > 0")
		}
		cfg.Target = opts.questions
	}
	if err := specs.Validate(op); err != nil {
		return model.SessionConfig{}, err
	}
	return cfg, nil
}

func openLogger(opts practiceOptions, plain bool) (zerolog.Logger, func(), error) {
	if plain && opts.logFile == "" {
		return logger.Setup(os.Stderr, opts.logLevel, "pretty"), func() {}, nil
	}
	path := opts.logFile
	if path == "" {
		path = config.DefaultLogPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
	}
	closeFn := func() {
		// Best-effort close.
		_ = f.Close()
	}
	return logger.Setup(f, opts.logLevel, opts.logFormat), closeFn, nil
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newLevelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "levels",
		Short: "List difficulty presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeLevels(cmd.OutOrStdout())
		},
	}
}

func writeLevels(w io.Writer) error {
	headers := []string{"Level", "Op", "Operand 1", "Operand 2", "Time Limit"}
	rows := make([][]string, 0, len(model.Levels)*len(model.Operations))
	for _, level := range model.Levels {
		for _, op := range model.Operations {
			spec, err := generator.Preset(op, level)
			if err != nil {
				return err
			}
			rows = append(rows, []string{
				string(level),
				fmt.Sprintf("%s %s", op.Symbol(), op),
				spec.Operand1.String(),
				spec.Operand2.String(),
				spec.TimeLimit.String(),
			})
		}
	}
	for _, line := range stats.FormatTable(headers, rows, map[int]bool{4: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsOp, "op", "", "operation filter (add, sub, mul, div, mixed)")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsCurveWindow, "window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a text report instead of the TUI")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildStatsConfig(statsOp, statsSince, statsLast, statsCurveWindow)
	if err != nil {
		return err
	}

	storePath := config.DefaultDBPath()
	st, err := store.Open(storePath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		// Best-effort close.
		_ = st.Close()
	}()

	if statsPlain || !isInteractive() {
		report, err := stats.BuildReport(cmd.Context(), st, cfg)
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}
		return report.Render(cmd.OutOrStdout(), cfg, stats.TerminalWidth())
	}

	m := statsui.NewModel(st, cfg)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func buildStatsConfig(op, since string, last, window int) (model.StatsConfig, error) {
	var cfg model.StatsConfig
	if op != "" {
		parsed, err := model.ParseOperation(op)
		if err != nil {
			return cfg, fmt.Errorf("invalid --op: %w", err)
		}
		cfg.Operation = parsed
	}
	if since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return cfg, fmt.Errorf("invalid --since value: %w", err)
		}
		cfg.Since = &parsed
	}
	if last < 0 {
		return cfg, fmt.Errorf("--last must be >= 0")
	}
	if window < 1 {
		return cfg, fmt.Errorf("--window must be >= 1")
	}
	cfg.Last = last
	cfg.CurveWindow = window
	return cfg, nil
}

func applyFileConfig(cmd *cobra.Command, opts *practiceOptions, fileCfg config.FileConfig) {
	p := fileCfg.Practice
	applyStringConfig(cmd, "op", &opts.op, p.Op)
	applyStringConfig(cmd, "level", &opts.level, p.Level)
	applyStringConfig(cmd, "mode", &opts.mode, p.Mode)
	applyIntConfig(cmd, "questions", &opts.questions, p.Questions)
	applyStringConfig(cmd, "duration", &opts.duration, p.Duration)
	applyStringConfig(cmd, "time-limit", &opts.timeLimit, p.TimeLimit)
	applyBoolConfig(cmd, "no-limit", &opts.noLimit, p.NoLimit)
	applyBoolConfig(cmd, "plain", &opts.plain, p.Plain)
	applyBoolConfig(cmd, "no-save", &opts.noSave, p.NoSave)
	applyStringConfig(cmd, "log-level", &opts.logLevel, fileCfg.Log.Level)

	opts.logFormat = defaultLogFormat
	if fileCfg.Log.Format != nil {
		opts.logFormat = *fileCfg.Log.Format
	}
	if fileCfg.Log.File != nil {
		opts.logFile = *fileCfg.Log.File
	}
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# anzan configuration
# Uncomment a value to enable it. CLI flags override config values.

[practice]
# op = %q              # add, sub, mul, div or mixed
# level = %q      # beginner, intermediate or advanced
# mode = %q          # fixed or time
# questions = %d         # Questions per fixed session
# duration = %q        # Time attack length
# time-limit = "10s"     # Per-question limit overriding the level preset
# no-limit = false       # Disable the per-question limit
# plain = false          # Line-based prompt instead of the TUI
# no-save = false        # Do not record sessions

[log]
# level = %q          # debug, info, warn or error
# format = %q         # json or pretty
# file = ""              # Log file (default: data dir)
`,
		defaultOp,
		defaultLevel,
		defaultMode,
		defaultQuestions,
		defaultDuration,
		defaultLogLevel,
		defaultLogFormat,
	)
}
