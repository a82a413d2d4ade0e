// Package engine turns a configured session into a child process of the
// selected utility and relays its result.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tb0hdan/csak/pkg/models"
	"github.com/tb0hdan/csak/pkg/session"
	"github.com/tb0hdan/csak/pkg/types"
)

// MissingRequiredError lists required options without a value.
type MissingRequiredError struct {
	Keys []string
}

func (e *MissingRequiredError) Error() string {
	return "missing required options: " + strings.Join(e.Keys, ", ")
}

// Result is the outcome of one launched child. Stdout and Stderr are only
// filled in capture mode.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Command  []string
	Duration time.Duration
}

// Success reports a zero exit status.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Recorder receives an audit record after every launch attempt.
type Recorder interface {
	CreateRunRecord(ctx context.Context, record *models.RunRecord) error
}

// Config controls how utilities are launched.
type Config struct {
	// Interpreter runs the utility source; empty launches the source directly.
	Interpreter string
	// Mode is types.ModeStream or types.ModeCapture.
	Mode string
	// Frontend tags run records.
	Frontend string
	Stdin    io.Reader
	Stdout   io.Writer
	Stderr   io.Writer
}

// Engine launches the selected utility of a session.
type Engine struct {
	logger   zerolog.Logger
	cfg      Config
	launcher Launcher
	recorder Recorder
}

// New creates an engine. A nil launcher selects ExecLauncher; recorder may be nil.
func New(logger zerolog.Logger, cfg Config, launcher Launcher, recorder Recorder) *Engine {
	if launcher == nil {
		launcher = ExecLauncher{}
	}
	if cfg.Mode == "" {
		cfg.Mode = types.ModeStream
	}
	if cfg.Stdin == nil {
		cfg.Stdin = os.Stdin
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	return &Engine{
		logger:   logger.With().Str("component", "engine").Logger(),
		cfg:      cfg,
		launcher: launcher,
		recorder: recorder,
	}
}

// Arguments assembles the child arguments in the order options were set.
func Arguments(sess *session.Session) []string {
	var args []string
	for _, assignment := range sess.Assignments() {
		spec := assignment.Spec
		switch {
		case spec.Positional:
			args = append(args, assignment.Value.Text())
		case assignment.Value.IsFlag():
			args = append(args, spec.Flag)
		default:
			args = append(args, spec.Flag, assignment.Value.Text())
		}
	}
	return args
}

// Command returns the full argv that Run would launch.
func (e *Engine) Command(sess *session.Session) ([]string, error) {
	entry, ok := sess.Selected()
	if !ok {
		return nil, session.ErrNoToolSelected
	}
	var argv []string
	if e.cfg.Interpreter != "" {
		argv = append(argv, e.cfg.Interpreter)
	}
	argv = append(argv, entry.Path)
	return append(argv, Arguments(sess)...), nil
}

// Preflight checks that sess can be run without spawning anything.
func (e *Engine) Preflight(sess *session.Session) error {
	if _, ok := sess.Selected(); !ok {
		return session.ErrNoToolSelected
	}
	if missing := sess.MissingRequired(); missing.Cardinality() > 0 {
		return &MissingRequiredError{Keys: session.SortedKeys(missing)}
	}
	return nil
}

// Run launches the selected utility and blocks until it exits. A non-zero
// exit is reported through Result, never as an error. A utility source that
// is gone is a *SpawnError even when an interpreter would have started.
func (e *Engine) Run(ctx context.Context, sess *session.Session) (*Result, error) {
	if err := e.Preflight(sess); err != nil {
		return nil, err
	}
	argv, err := e.Command(sess)
	if err != nil {
		return nil, err
	}

	entry, _ := sess.Selected()
	if _, statErr := os.Stat(entry.Path); statErr != nil {
		spawnErr := &SpawnError{Command: entry.Path, Err: statErr}
		e.record(ctx, sess, argv, -1, 0, spawnErr)
		return nil, spawnErr
	}

	inv := Invocation{
		Name:   argv[0],
		Args:   argv[1:],
		Stdin:  e.cfg.Stdin,
		Stdout: e.cfg.Stdout,
		Stderr: e.cfg.Stderr,
	}
	var stdout, stderr bytes.Buffer
	if e.cfg.Mode == types.ModeCapture {
		inv.Stdin = nil
		inv.Stdout = &stdout
		inv.Stderr = &stderr
	}

	e.logger.Debug().Strs("argv", argv).Msg("launching utility")
	start := time.Now()
	exitCode, err := e.launcher.Launch(ctx, inv)
	duration := time.Since(start)

	e.record(ctx, sess, argv, exitCode, duration, err)
	if err != nil {
		var spawnErr *SpawnError
		if errors.As(err, &spawnErr) {
			return nil, err
		}
		return nil, fmt.Errorf("%s did not finish: %w", argv[0], err)
	}

	e.logger.Debug().Int("exit_code", exitCode).Dur("duration", duration).Msg("utility finished")
	return &Result{
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Command:  argv,
		Duration: duration,
	}, nil
}

func (e *Engine) record(ctx context.Context, sess *session.Session, argv []string, exitCode int, duration time.Duration, launchErr error) {
	if e.recorder == nil {
		return
	}
	entry, _ := sess.Selected()
	record := &models.RunRecord{
		SessionID:   sess.ID(),
		Frontend:    e.cfg.Frontend,
		Category:    entry.Category,
		Tool:        entry.Name,
		CommandLine: FormatCommand(argv),
		ExitCode:    exitCode,
		DurationMs:  duration.Milliseconds(),
		Success:     launchErr == nil && exitCode == 0,
	}
	if launchErr != nil {
		record.ErrorMessage = launchErr.Error()
	}
	if err := e.recorder.CreateRunRecord(ctx, record); err != nil {
		e.logger.Warn().Err(err).Msg("failed to record run")
	}
}

// FormatCommand renders argv for display, quoting arguments that need it.
func FormatCommand(argv []string) string {
	parts := make([]string, len(argv))
	for i, arg := range argv {
		if arg == "" || strings.ContainsAny(arg, " \t\n\"'\\") {
			parts[i] = strconv.Quote(arg)
			continue
		}
		parts[i] = arg
	}
	return strings.Join(parts, " ")
}
