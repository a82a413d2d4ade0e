package server

import (
	"context"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/tb0hdan/csak/pkg/catalog"
	"github.com/tb0hdan/csak/pkg/storage"
)

// Server is the MCP front-end. Every tool call works on its own session; only
// the catalog and the run history are shared.
type Server struct {
	mcp.Server
	storage storage.Storage

	mu      sync.RWMutex
	catalog *catalog.Catalog
}

func NewServer(impl *mcp.Implementation, store storage.Storage, cat *catalog.Catalog) *Server {
	if cat == nil {
		cat = &catalog.Catalog{}
	}
	return &Server{
		Server:  *mcp.NewServer(impl, nil),
		storage: store,
		catalog: cat,
	}
}

// Storage returns the run history, nil when history is disabled.
func (s *Server) Storage() storage.Storage {
	return s.storage
}

// Catalog returns the current catalog snapshot.
func (s *Server) Catalog() *catalog.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// SetCatalog replaces the catalog after a rescan.
func (s *Server) SetCatalog(cat *catalog.Catalog) {
	if cat == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = cat
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}
