package main

import (
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/tb0hdan/csak/pkg/catalog"
	"github.com/tb0hdan/csak/pkg/console"
	"github.com/tb0hdan/csak/pkg/engine"
	"github.com/tb0hdan/csak/pkg/types"
)

func newConsoleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Start the interactive console (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runConsole(cmd)
		},
	}
}

func (a *app) runConsole(cmd *cobra.Command) error {
	logger := a.consoleLogger(cmd.ErrOrStderr())

	store, err := a.openStorage()
	if err != nil {
		return err
	}
	var recorder engine.Recorder
	if store != nil {
		defer store.Close()
		recorder = store
	}

	defer watchInterrupts(logger)()

	eng := engine.New(logger, engine.Config{
		Interpreter: a.cfg.Interpreter,
		Mode:        a.cfg.Mode,
		Frontend:    types.FrontendConsole,
		Stdin:       cmd.InOrStdin(),
		Stdout:      cmd.OutOrStdout(),
		Stderr:      cmd.ErrOrStderr(),
	}, nil, recorder)

	c := console.New(logger, console.Config{
		ScriptsDir:  a.cfg.ScriptsDir,
		Mode:        a.cfg.Mode,
		HistoryFile: a.historyFile(),
		Out:         cmd.OutOrStdout(),
		Err:         cmd.ErrOrStderr(),
	}, catalog.NewScanner(logger, a.cfg.Extension), eng, store)

	return c.Run(cmd.Context(), cmd.InOrStdin())
}

// watchInterrupts swallows SIGINT so Ctrl-C reaches the running utility and
// not the console. The returned func stops watching and waits for the drain
// goroutine to exit.
func watchInterrupts(logger zerolog.Logger) func() {
	interrupts := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(interrupts, os.Interrupt)
	go func() {
		defer close(done)
		for range interrupts {
			logger.Debug().Msg("interrupt received")
		}
	}()
	return func() {
		signal.Stop(interrupts)
		close(interrupts)
		<-done
	}
}
