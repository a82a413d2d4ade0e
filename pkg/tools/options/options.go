package options

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/tb0hdan/csak/pkg/metadata"
	"github.com/tb0hdan/csak/pkg/server"
	"github.com/tb0hdan/csak/pkg/tools"
)

const toolName = "show_options"

type Input struct {
	Tool string `json:"tool" jsonschema:"utility index, <module>/<tool> or a unique tool name" validate:"required"`
}

// Output is the description of one utility and its declared options.
type Output struct {
	Tool        string                `json:"tool"`
	Path        string                `json:"path"`
	Description string                `json:"description"`
	Options     []metadata.OptionSpec `json:"options"`
}

type Tool struct {
	logger    zerolog.Logger
	validator *validator.Validate
	srv       *server.Server
}

func (t *Tool) Register(srv *server.Server) error {
	tool := &mcp.Tool{
		Name:        toolName,
		Description: "Show a utility's description and the options it declares, with required flags and defaults.",
	}

	t.srv = srv
	mcp.AddTool(&srv.Server, tool, tools.WrapToolHandler(t.logger, toolName, t.ShowHandler))
	t.logger.Debug().Msg("show_options tool registered")

	return nil
}

func (t *Tool) ShowHandler(_ context.Context, _ *mcp.CallToolRequest, input Input) (*mcp.CallToolResult, any, error) {
	if err := t.validator.Struct(input); err != nil {
		return nil, nil, fmt.Errorf("validation error: %w", err)
	}

	sess, err := tools.SelectUtility(t.logger, t.srv.Catalog(), input.Tool)
	if err != nil {
		return nil, nil, err
	}
	entry, _ := sess.Selected()

	specs := sess.Specs()
	if specs == nil {
		specs = []metadata.OptionSpec{}
	}
	data, _ := json.MarshalIndent(Output{
		Tool:        entry.ID(),
		Path:        entry.Path,
		Description: entry.Description,
		Options:     specs,
	}, "", "  ")

	return tools.Result(string(data)), nil, nil
}

func New(logger zerolog.Logger) tools.Tool {
	return &Tool{
		logger:    logger.With().Str("tool", toolName).Logger(),
		validator: validator.New(),
	}
}
