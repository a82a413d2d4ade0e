package tools

import (
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/tb0hdan/csak/pkg/catalog"
	"github.com/tb0hdan/csak/pkg/server"
	"github.com/tb0hdan/csak/pkg/session"
)

type Tool interface {
	Register(srv *server.Server) error
}

// Result builds a single text content result.
func Result(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// SelectUtility opens a fresh session over cat with the utility named by ref
// selected. ref is an index, "<category>/<tool>" or a unique tool name.
func SelectUtility(logger zerolog.Logger, cat *catalog.Catalog, ref string) (*session.Session, error) {
	sess := session.New(logger, cat, nil)
	ref = strings.TrimSpace(ref)

	var err error
	if index, convErr := strconv.Atoi(ref); convErr == nil {
		err = sess.SelectByIndex(index)
	} else if category, tool, ok := strings.Cut(ref, "/"); ok {
		err = sess.SelectByPath(category, tool)
	} else {
		err = sess.SelectTool(ref)
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}
