package main

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/tb0hdan/csak/pkg/config"
	"github.com/tb0hdan/csak/pkg/storage"
	"github.com/tb0hdan/csak/pkg/types"
)

const (
	ServerName      = "csak"
	ServiceName     = "Console Swiss Army Knife"
	ShutdownTimeout = 10 * time.Second
)

//go:embed VERSION
var Version string

// app carries the state shared by every subcommand once flags are parsed.
type app struct {
	configPath string
	cfg        *config.Config
	logger     zerolog.Logger
	version    string
}

func newRootCmd() *cobra.Command {
	a := &app{version: strings.TrimSpace(Version)}

	root := &cobra.Command{
		Use:   ServerName,
		Short: "Operator console over a directory of command-line utilities",
		Long: `csak discovers utilities laid out as <scripts>/<module>/<tool>.py, reads
their options straight from the source and launches them with the values
you set. Run without a subcommand to open the interactive console.`,
		Version:       a.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runConsole(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ./csak.yaml or $HOME/.csak/csak.yaml)")
	flags.String("scripts", types.DefaultScriptsDir, "scripts directory")
	flags.String("interpreter", types.DefaultInterpreter, "interpreter used to launch utilities, empty to run them directly")
	flags.String("mode", types.ModeStream, "output mode of the console: stream or capture")
	flags.Bool("debug", false, "debug mode")
	flags.String("db", "", "SQLite run history database path")
	flags.Bool("no-history", false, "disable the run history")

	root.AddCommand(newConsoleCmd(a), newCatalogCmd(a), newServeCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	a.logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	a.logger.Debug().Msg("debug mode enabled")
	return nil
}

// consoleLogger is the human-readable logger used while an operator is typing.
func (a *app) consoleLogger(w io.Writer) zerolog.Logger {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	if !a.cfg.Debug {
		logger = logger.Level(zerolog.WarnLevel)
	}
	return logger
}

// openStorage opens the run history, or returns nil when history is disabled.
func (a *app) openStorage() (storage.Storage, error) {
	if !a.cfg.History.Enabled {
		return nil, nil
	}
	store, err := storage.NewSQLiteStorage(storage.Config{
		DatabasePath: a.cfg.History.Database,
		CreateDir:    true,
		Debug:        a.cfg.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.logger.Debug().Msgf("Database initialized at %s", a.cfg.History.Database)
	return store, nil
}

// historyFile keeps the console line history next to the run history database.
func (a *app) historyFile() string {
	return filepath.Join(filepath.Dir(a.cfg.History.Database), "console_history")
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", ServerName, err)
		os.Exit(1)
	}
}
