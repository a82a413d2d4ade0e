package utilities

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/tb0hdan/csak/pkg/catalog"
	"github.com/tb0hdan/csak/pkg/server"
	"github.com/tb0hdan/csak/pkg/tools"
)

const toolName = "list_utilities"

type Input struct {
	Category string `json:"category,omitempty" jsonschema:"only list tools of this module" validate:"omitempty,excludes=/"`
	Rescan   bool   `json:"rescan,omitempty" jsonschema:"rescan the scripts directory before listing"`
}

// Module is one category with its tools in catalog order.
type Module struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Tools       []catalog.Entry `json:"tools"`
}

type Tool struct {
	logger    zerolog.Logger
	validator *validator.Validate
	scanner   *catalog.Scanner
	root      string
	srv       *server.Server
}

func (t *Tool) Register(srv *server.Server) error {
	tool := &mcp.Tool{
		Name:        toolName,
		Description: "List the utilities available to run, grouped by module, with their indexes and descriptions.",
	}

	t.srv = srv
	mcp.AddTool(&srv.Server, tool, tools.WrapToolHandler(t.logger, toolName, t.ListHandler))
	t.logger.Debug().Msg("list_utilities tool registered")

	return nil
}

func (t *Tool) ListHandler(_ context.Context, _ *mcp.CallToolRequest, input Input) (*mcp.CallToolResult, any, error) {
	if err := t.validator.Struct(input); err != nil {
		return nil, nil, fmt.Errorf("validation error: %w", err)
	}

	if input.Rescan {
		cat, err := t.scanner.Scan(t.root)
		if err != nil {
			return nil, nil, fmt.Errorf("rescan failed: %w", err)
		}
		t.srv.SetCatalog(cat)
		t.logger.Info().Msgf("rescanned %s: %d utilities", t.root, cat.Len())
	}

	cat := t.srv.Catalog()
	if input.Category != "" && !cat.HasCategory(input.Category) {
		return nil, nil, fmt.Errorf("no such module %s", input.Category)
	}

	modules := make([]Module, 0, len(cat.Categories))
	for _, category := range cat.Categories {
		if input.Category != "" && category.Name != input.Category {
			continue
		}
		entries := cat.InCategory(category.Name)
		if entries == nil {
			entries = []catalog.Entry{}
		}
		modules = append(modules, Module{
			Name:        category.Name,
			Description: category.Description,
			Tools:       entries,
		})
	}

	data, _ := json.MarshalIndent(map[string]any{
		"total":   cat.Len(),
		"modules": modules,
	}, "", "  ")

	return tools.Result(string(data)), nil, nil
}

// New creates the listing tool. root is rescanned on request with scanner.
func New(logger zerolog.Logger, scanner *catalog.Scanner, root string) tools.Tool {
	return &Tool{
		logger:    logger.With().Str("tool", toolName).Logger(),
		validator: validator.New(),
		scanner:   scanner,
		root:      root,
	}
}
