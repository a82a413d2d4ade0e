package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/tb0hdan/csak/pkg/server"
	"github.com/tb0hdan/csak/pkg/storage"
	"github.com/tb0hdan/csak/pkg/tools"
)

const toolName = "history"

var ErrHistoryDisabled = errors.New("run history is disabled")

type Input struct {
	Action    string `json:"action" validate:"required,oneof=list get delete clear"`
	ID        uint   `json:"id,omitempty"`
	Tool      string `json:"tool,omitempty" jsonschema:"filter list by <module>/<tool>" validate:"omitempty,contains=/"`
	SessionID string `json:"session_id,omitempty" jsonschema:"filter list by session"`
	Limit     int    `json:"limit,omitempty" validate:"min=0,max=100"`
	Offset    int    `json:"offset,omitempty" validate:"min=0"`
}

type Tool struct {
	logger    zerolog.Logger
	validator *validator.Validate
	store     storage.Storage
}

func (t *Tool) Register(srv *server.Server) error {
	if srv.Storage() == nil {
		return ErrHistoryDisabled
	}

	tool := &mcp.Tool{
		Name:        toolName,
		Description: "Browse and manage the utility run history. Actions: list (paginated, optionally by tool or session), get (by ID), delete (by ID), clear (all).",
	}

	t.store = srv.Storage()

	mcp.AddTool(&srv.Server, tool, tools.WrapToolHandler(t.logger, toolName, t.HistoryHandler))
	t.logger.Debug().Msg("history tool registered")

	return nil
}

func (t *Tool) HistoryHandler(ctx context.Context, _ *mcp.CallToolRequest, input Input) (*mcp.CallToolResult, any, error) {
	if err := t.validator.Struct(input); err != nil {
		return nil, nil, fmt.Errorf("validation error: %w", err)
	}

	var resultText string

	switch input.Action {
	case "list":
		limit := input.Limit
		if limit == 0 {
			limit = 10
		}
		listing, err := t.list(ctx, input, limit)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list runs: %w", err)
		}
		data, _ := json.MarshalIndent(listing, "", "  ")
		resultText = string(data)

	case "get":
		if input.ID == 0 {
			return nil, nil, fmt.Errorf("id is required for get action")
		}
		record, err := t.store.GetRunRecord(ctx, input.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("run not found: %w", err)
		}
		data, _ := json.MarshalIndent(record, "", "  ")
		resultText = string(data)

	case "delete":
		if input.ID == 0 {
			return nil, nil, fmt.Errorf("id is required for delete action")
		}
		if err := t.store.DeleteRunRecord(ctx, input.ID); err != nil {
			return nil, nil, fmt.Errorf("failed to delete run: %w", err)
		}
		resultText = fmt.Sprintf("Run %d deleted successfully", input.ID)

	case "clear":
		if err := t.store.DeleteAllRunRecords(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to clear runs: %w", err)
		}
		resultText = "All run history cleared"
	}

	return tools.Result(resultText), nil, nil
}

func (t *Tool) list(ctx context.Context, input Input, limit int) (map[string]any, error) {
	switch {
	case input.Tool != "":
		category, name, _ := strings.Cut(input.Tool, "/")
		runs, err := t.store.GetRunRecordsByTool(ctx, category, name, limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"tool": input.Tool, "limit": limit, "runs": runs}, nil

	case input.SessionID != "":
		runs, err := t.store.GetRunRecordsBySession(ctx, input.SessionID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"session_id": input.SessionID, "runs": runs}, nil
	}

	runs, total, err := t.store.GetRunRecords(ctx, limit, input.Offset)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"total":  total,
		"limit":  limit,
		"offset": input.Offset,
		"runs":   runs,
	}, nil
}

func New(logger zerolog.Logger) tools.Tool {
	return &Tool{
		logger:    logger.With().Str("tool", toolName).Logger(),
		validator: validator.New(),
	}
}
