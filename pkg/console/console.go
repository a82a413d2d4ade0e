// Package console is the interactive operator shell over the utility catalog.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/tb0hdan/csak/pkg/catalog"
	"github.com/tb0hdan/csak/pkg/engine"
	"github.com/tb0hdan/csak/pkg/session"
	"github.com/tb0hdan/csak/pkg/storage"
	"github.com/tb0hdan/csak/pkg/types"
)

const defaultHistoryLimit = 10

// Config wires a console to its environment.
type Config struct {
	ScriptsDir  string
	Mode        string
	HistoryFile string
	Out         io.Writer
	Err         io.Writer
}

// Console dispatches operator commands against a single owned session.
type Console struct {
	logger  zerolog.Logger
	cfg     Config
	scanner *catalog.Scanner
	engine  *engine.Engine
	store   storage.Storage
	session *session.Session
	styles  styles
}

// New creates a console and performs the initial scan. A missing scripts
// directory is reported and leaves the catalog empty.
func New(logger zerolog.Logger, cfg Config, scanner *catalog.Scanner, eng *engine.Engine, store storage.Storage) *Console {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Err == nil {
		cfg.Err = os.Stderr
	}
	c := &Console{
		logger:  logger.With().Str("component", "console").Logger(),
		cfg:     cfg,
		scanner: scanner,
		engine:  eng,
		store:   store,
		styles:  newStyles(cfg.Out),
	}
	c.session = session.New(logger, c.scan(), nil)
	return c
}

// Session exposes the console's session.
func (c *Console) Session() *session.Session {
	return c.session
}

func (c *Console) scan() *catalog.Catalog {
	cat, err := c.scanner.Scan(c.cfg.ScriptsDir)
	if err != nil {
		c.perror(err)
		if !errors.Is(err, catalog.ErrDirectoryNotFound) {
			c.logger.Error().Err(err).Msg("scan failed")
		}
		return &catalog.Catalog{Root: c.cfg.ScriptsDir}
	}
	return cat
}

// Prompt renders the prompt for the current selection.
func (c *Console) Prompt() string {
	entry, selected := c.session.Selected()
	switch {
	case selected:
		return fmt.Sprintf("CSAK (%s) - %s > ", c.styles.category.Render(entry.Category), c.styles.tool.Render(entry.Name))
	case c.session.Category() != "":
		return fmt.Sprintf("CSAK (%s) > ", c.styles.module.Render(c.session.Category()))
	default:
		return "CSAK > "
	}
}

// Run reads commands until exit or end of input. A terminal gets line editing,
// history and completion; anything else is read line by line.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	if f, ok := in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return c.runInteractive(ctx, f)
	}
	return c.runScript(ctx, in)
}

func (c *Console) runInteractive(ctx context.Context, in *os.File) error {
	stdin := newPromptStdin(in)
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            c.Prompt(),
		HistoryFile:       c.cfg.HistoryFile,
		HistorySearchFold: true,
		AutoComplete:      c.completer(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		Stdin:             stdin,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize line editor: %w", err)
	}
	defer func() {
		_ = rl.Close()
	}()

	for {
		rl.SetPrompt(c.Prompt())
		stdin.arm()
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return fmt.Errorf("failed to read command: %w", err)
		}
		if c.Execute(ctx, line) {
			return nil
		}
	}
}

func (c *Console) runScript(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if c.Execute(ctx, scanner.Text()) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read commands: %w", err)
	}
	return nil
}

// Execute runs one command line and reports whether the console should exit.
// Every command error is rendered here and never propagates.
func (c *Console) Execute(ctx context.Context, line string) bool {
	name, args := splitFirst(strings.TrimSpace(line))
	if name == "" || strings.HasPrefix(name, "#") {
		return false
	}

	var err error
	switch strings.ToLower(name) {
	case "list", "ls":
		err = c.doList(args)
	case "use":
		err = c.doUse(args)
	case "show":
		err = c.doShow(args)
	case "set":
		err = c.doSet(args)
	case "unset":
		err = c.doUnset(args)
	case "run":
		err = c.doRun(ctx)
	case "back":
		c.session.Back()
	case "rescan":
		c.doRescan()
	case "history":
		err = c.doHistory(ctx, args)
	case "help", "?":
		c.doHelp()
	case "exit", "quit":
		return true
	default:
		err = fmt.Errorf("unknown command %q, type help for a list of commands", name)
	}
	if err != nil {
		c.perror(err)
	}
	return false
}

func (c *Console) doList(args string) error {
	cat := c.session.Catalog()
	switch strings.ToLower(args) {
	case "", "all":
		c.renderCatalog(cat)
	case "modules", "module":
		c.renderModules(cat)
	case "tools", "tool":
		if category := c.session.Category(); category != "" {
			c.renderTools(cat.InCategory(category), false)
		} else {
			c.renderTools(cat.Entries, true)
		}
	default:
		return errors.New("usage: list [modules|tools]")
	}
	return nil
}

func (c *Console) doUse(args string) error {
	kind, rest := splitFirst(args)
	var err error
	switch {
	case args == "":
		return errors.New("usage: use <num> | <module>/<tool> | module <module> | tool <tool>")
	case kind == "module" && rest != "":
		if err := c.session.SelectCategory(rest); err != nil {
			return err
		}
		c.printf("Using module %s\n", rest)
		return nil
	case kind == "tool" && rest != "":
		err = c.session.SelectTool(rest)
	case isIndex(args):
		index, _ := strconv.Atoi(args)
		err = c.session.SelectByIndex(index)
	case strings.Contains(args, "/"):
		category, tool, _ := strings.Cut(args, "/")
		err = c.session.SelectByPath(category, tool)
	default:
		return errors.New("usage: use <num> | <module>/<tool> | module <module> | tool <tool>")
	}
	if err != nil {
		return err
	}
	entry, _ := c.session.Selected()
	c.printf("Using %s - %s\n", entry.ID(), entry.Description)
	return nil
}

func (c *Console) doShow(args string) error {
	if _, ok := c.session.Selected(); !ok && args != "" {
		return session.ErrNoToolSelected
	}
	switch strings.ToLower(args) {
	case "options":
		c.renderOptions()
	case "info":
		entry, _ := c.session.Selected()
		c.printf("Module:      %s\nTool:        %s\nPath:        %s\nDescription: %s\n", entry.Category, entry.Name, entry.Path, entry.Description)
	default:
		return errors.New("usage: show options | show info")
	}
	return nil
}

func (c *Console) doSet(args string) error {
	key, value := splitFirst(args)
	if key == "" {
		return errors.New("usage: set <option> [value]")
	}
	stored, err := c.session.SetOptionText(key, value)
	var invalid *session.InvalidOptionError
	if errors.As(err, &invalid) {
		return fmt.Errorf("%w, see show options", err)
	}
	if err != nil {
		return err
	}
	if _, ok := c.session.Value(key); !ok {
		c.printf("Unset %s\n", key)
		return nil
	}
	c.printf("Set %s = %s\n", key, stored)
	return nil
}

func (c *Console) doUnset(args string) error {
	switch args {
	case "":
		return errors.New("usage: unset <option> | unset all")
	case "all":
		if _, ok := c.session.Selected(); !ok {
			return session.ErrNoToolSelected
		}
		c.session.UnsetAll()
		c.printf("Cleared all options\n")
		return nil
	}
	if err := c.session.UnsetOption(args); err != nil {
		return err
	}
	c.printf("Unset %s\n", args)
	return nil
}

func (c *Console) doRun(ctx context.Context) error {
	if err := c.engine.Preflight(c.session); err != nil {
		return err
	}
	argv, err := c.engine.Command(c.session)
	if err != nil {
		return err
	}
	c.printf("Running: %s\n", engine.FormatCommand(argv))

	result, err := c.engine.Run(ctx, c.session)
	if err != nil {
		return err
	}
	if c.cfg.Mode == types.ModeCapture {
		c.printf("%s", result.Stdout)
		if result.Stderr != "" {
			_, _ = fmt.Fprint(c.cfg.Err, result.Stderr)
		}
	}
	elapsed := result.Duration.Round(time.Millisecond)
	if result.Success() {
		c.printf("%s exit status 0 (%s)\n", c.styles.ok.Render("[+]"), elapsed)
		return nil
	}
	entry, _ := c.session.Selected()
	c.printf("%s %s exited with status %d (%s)\n", c.styles.fail.Render("[-]"), entry.ID(), result.ExitCode, elapsed)
	return nil
}

func (c *Console) doRescan() {
	cat := c.scan()
	c.session.ReplaceCatalog(cat)
	c.printf("Found %d tools in %d modules\n", cat.Len(), len(cat.Categories))
}

func (c *Console) doHistory(ctx context.Context, args string) error {
	if c.store == nil {
		return errors.New("run history is disabled")
	}
	limit := defaultHistoryLimit
	if args != "" {
		n, err := strconv.Atoi(args)
		if err != nil || n <= 0 {
			return errors.New("usage: history [count]")
		}
		limit = n
	}
	records, total, err := c.store.GetRunRecords(ctx, limit, 0)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	c.renderHistory(records, total)
	return nil
}

func (c *Console) doHelp() {
	c.printf(`Commands:
  list [modules|tools]        list modules and tools with their indexes
  use <num> | <module>/<tool> select a tool
  use module <module>         select a module
  use tool <tool>             select a tool by name
  show options | info         show the selected tool's options or details
  set <option> [value]        set an option; without a value toggles a flag
  unset <option> | all        clear one or all options
  run                         run the selected tool
  back                        leave the current tool or module
  rescan                      rescan the scripts directory
  history [count]             show recent runs
  exit | quit                 leave the console
`)
}

func (c *Console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.cfg.Out, format, args...)
}

func (c *Console) perror(err error) {
	_, _ = fmt.Fprintf(c.cfg.Err, "%s %v\n", c.styles.fail.Render("[-]"), err)
}

func splitFirst(s string) (string, string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
