package launch

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/tb0hdan/csak/pkg/engine"
	"github.com/tb0hdan/csak/pkg/server"
	"github.com/tb0hdan/csak/pkg/tools"
	"github.com/tb0hdan/csak/pkg/types"
)

const toolName = "run_utility"

// Option is one "set <key> [value]" applied before the run. An empty value
// on a flag-only option sets the flag.
type Option struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value,omitempty"`
}

type Input struct {
	Tool     string   `json:"tool" jsonschema:"utility index, <module>/<tool> or a unique tool name" validate:"required"`
	Options  []Option `json:"options,omitempty" jsonschema:"options in command-line order" validate:"dive"`
	MaxLines int      `json:"max_lines,omitempty" validate:"min=0,max=100000"`
	Offset   int      `json:"offset,omitempty" validate:"min=0"`
}

type Tool struct {
	logger    zerolog.Logger
	validator *validator.Validate
	cfg       engine.Config
	launcher  engine.Launcher
	maxLines  int
	srv       *server.Server
}

func (t *Tool) Register(srv *server.Server) error {
	tool := &mcp.Tool{
		Name:        toolName,
		Description: "Run a utility with the given options and return its exit status and output.",
	}

	t.srv = srv
	mcp.AddTool(&srv.Server, tool, tools.WrapToolHandler(t.logger, toolName, t.RunHandler))
	t.logger.Debug().Msg("run_utility tool registered")

	return nil
}

func (t *Tool) RunHandler(ctx context.Context, _ *mcp.CallToolRequest, input Input) (*mcp.CallToolResult, any, error) {
	if err := t.validator.Struct(input); err != nil {
		return nil, nil, fmt.Errorf("validation error: %w", err)
	}

	sess, err := tools.SelectUtility(t.logger, t.srv.Catalog(), input.Tool)
	if err != nil {
		return nil, nil, err
	}
	for _, option := range input.Options {
		if _, err := sess.SetOptionText(option.Key, option.Value); err != nil {
			return nil, nil, err
		}
	}

	var recorder engine.Recorder
	if store := t.srv.Storage(); store != nil {
		recorder = store
	}
	eng := engine.New(t.logger, t.cfg, t.launcher, recorder)

	result, err := eng.Run(ctx, sess)
	if err != nil {
		return nil, nil, err
	}

	entry, _ := sess.Selected()
	t.logger.Info().Msgf("%s exited with status %d", entry.ID(), result.ExitCode)

	maxLines := input.MaxLines
	if maxLines == 0 {
		maxLines = t.maxLines
	}
	return tools.Result(formatResult(result, maxLines, input.Offset)), nil, nil
}

func formatResult(result *engine.Result, maxLines, offset int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Command: %s\n", engine.FormatCommand(result.Command))
	fmt.Fprintf(&b, "Exit status: %d\n", result.ExitCode)

	stdout, notice := tools.Paginate(result.Stdout, maxLines, offset)
	if notice != "" {
		b.WriteString(notice + "\n")
	}
	b.WriteString("\n" + stdout)

	if stderr := strings.TrimSpace(result.Stderr); stderr != "" {
		b.WriteString("\n\nStderr:\n" + stderr)
	}
	return strings.TrimRight(b.String(), "\n")
}

// New creates the run tool. Runs always capture output; launcher may be nil.
func New(logger zerolog.Logger, interpreter string, maxLines int, launcher engine.Launcher) tools.Tool {
	return &Tool{
		logger:    logger.With().Str("tool", toolName).Logger(),
		validator: validator.New(),
		cfg: engine.Config{
			Interpreter: interpreter,
			Mode:        types.ModeCapture,
			Frontend:    types.FrontendMCP,
		},
		launcher: launcher,
		maxLines: maxLines,
	}
}
