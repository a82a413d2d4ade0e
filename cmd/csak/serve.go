package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"github.com/tb0hdan/csak/pkg/catalog"
	"github.com/tb0hdan/csak/pkg/server"
	"github.com/tb0hdan/csak/pkg/tools"
	"github.com/tb0hdan/csak/pkg/tools/history"
	"github.com/tb0hdan/csak/pkg/tools/launch"
	"github.com/tb0hdan/csak/pkg/tools/options"
	"github.com/tb0hdan/csak/pkg/tools/utilities"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog to MCP clients over streamable HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().String("bind", "localhost:8989", "bind address (host:port)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	signalCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := a.logger
	impl := &mcp.Implementation{
		Name:    ServerName,
		Version: a.version,
	}

	store, err := a.openStorage()
	if err != nil {
		return err
	}

	scanner := catalog.NewScanner(logger, a.cfg.Extension)
	cat, err := scanner.Scan(a.cfg.ScriptsDir)
	if err != nil {
		logger.Warn().Err(err).Msgf("Serving an empty catalog for %s", a.cfg.ScriptsDir)
		cat = &catalog.Catalog{Root: a.cfg.ScriptsDir}
	}
	logger.Info().Msgf("Catalog loaded: %d utilities in %d modules", cat.Len(), len(cat.Categories))

	srv := server.NewServer(impl, store, cat)

	toolList := []tools.Tool{
		utilities.New(logger, scanner, a.cfg.ScriptsDir),
		options.New(logger),
		launch.New(logger, a.cfg.Interpreter, a.cfg.Server.MaxLines, nil),
		history.New(logger),
	}

	for _, tool := range toolList {
		if err := tool.Register(srv); err != nil {
			if errors.Is(err, history.ErrHistoryDisabled) {
				logger.Info().Msg("Run history disabled, history tool not registered")
				continue
			}
			logger.Error().Msgf("Failed to register tool: %v", err)
		}
	}

	// Stateless mode avoids "session not found" errors after server restart
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return &srv.Server
	}, &mcp.StreamableHTTPOptions{
		Stateless: true,
	})

	mux := http.NewServeMux()
	mux.Handle("/mcp", handler)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"service": ServiceName,
			"version": a.version,
			"scripts": a.cfg.ScriptsDir,
			"endpoints": map[string]string{
				"mcp": "/mcp",
			},
		})
	})

	bindAddr := a.cfg.Server.Bind
	httpServer := &http.Server{ //nolint:gosec
		Addr:    bindAddr,
		Handler: mux,
	}

	logger.Info().Msgf("%s starting on address %s", ServiceName, bindAddr)
	logger.Info().Msgf("MCP endpoint available at: http://%s/mcp", bindAddr)

	serveErr := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("%s failed to start: %w", ServerName, err)
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		_ = srv.Shutdown(context.Background())
		return err
	case <-signalCtx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Msgf("HTTP shutdown error: %v", err)
	}
	// Shutdown MCP server
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Msgf("%s shutdown error: %v", ServiceName, err)
		return err
	}
	logger.Info().Msgf("%s shutdown complete", ServiceName)
	return nil
}
