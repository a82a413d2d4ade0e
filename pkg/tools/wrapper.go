package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

// WrapToolHandler wraps a tool handler to add call logging. Utility launches
// are recorded by the engine; this only traces the MCP call itself.
func WrapToolHandler[In, Out any](
	logger zerolog.Logger,
	toolName string,
	handler func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, Out, error),
) func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, Out, error) {
	logger = logger.With().Str("handler", toolName).Logger()

	return func(ctx context.Context, req *mcp.CallToolRequest, input In) (*mcp.CallToolResult, Out, error) {
		startTime := time.Now()

		// Get session ID from request
		sessionID := ""
		if req != nil && req.Session != nil {
			sessionID = req.Session.ID()
		}

		result, output, err := handler(ctx, req, input)

		event := logger.Debug()
		if err != nil {
			event = logger.Warn().Err(err)
		}
		if inputJSON, marshalErr := json.Marshal(input); marshalErr == nil {
			event = event.RawJSON("input", inputJSON)
		}
		event.
			Str("session_id", sessionID).
			Int64("duration_ms", time.Since(startTime).Milliseconds()).
			Bool("success", err == nil).
			Msg("tool call")

		return result, output, err
	}
}
