package server

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/tb0hdan/csak/pkg/catalog"
	"github.com/tb0hdan/csak/pkg/models"
	"github.com/tb0hdan/csak/pkg/storage"
)

var testImpl = &mcp.Implementation{
	Name:    "test-server",
	Version: "1.0.0",
}

func setupTestStorage(t *testing.T) (storage.Storage, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "server-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := storage.NewSQLiteStorage(storage.Config{DatabasePath: tmpFile.Name()})
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create storage: %v", err)
	}

	cleanup := func() {
		store.Close()
		os.Remove(tmpFile.Name())
	}

	return store, cleanup
}

func TestNewServer(t *testing.T) {
	store, cleanup := setupTestStorage(t)
	defer cleanup()

	cat := &catalog.Catalog{Root: "/scripts"}
	srv := NewServer(testImpl, store, cat)

	if srv == nil {
		t.Fatal("expected non-nil server")
	}
	if srv.Storage() != store {
		t.Error("expected Storage() to return the store passed to NewServer")
	}
	if srv.Catalog() != cat {
		t.Error("expected Catalog() to return the catalog passed to NewServer")
	}
}

func TestNewServer_NilStorageAndCatalog(t *testing.T) {
	srv := NewServer(testImpl, nil, nil)

	if srv.Storage() != nil {
		t.Error("expected nil storage when nil is passed")
	}
	if srv.Catalog() == nil {
		t.Fatal("expected an empty catalog when nil is passed")
	}
	if srv.Catalog().Len() != 0 {
		t.Errorf("expected empty catalog, got %d entries", srv.Catalog().Len())
	}
}

func TestServer_Storage(t *testing.T) {
	store, cleanup := setupTestStorage(t)
	defer cleanup()

	srv := NewServer(testImpl, store, nil)

	record := &models.RunRecord{Category: "net", Tool: "scan", Success: true}
	if err := srv.Storage().CreateRunRecord(context.Background(), record); err != nil {
		t.Fatalf("failed to use retrieved storage: %v", err)
	}
	if record.ID == 0 {
		t.Error("expected record ID to be assigned")
	}
}

func TestServer_SetCatalog(t *testing.T) {
	srv := NewServer(testImpl, nil, nil)
	next := &catalog.Catalog{Entries: []catalog.Entry{{Category: "net", Name: "scan"}}}

	srv.SetCatalog(next)
	if srv.Catalog() != next {
		t.Fatal("expected catalog to be replaced")
	}

	srv.SetCatalog(nil)
	if srv.Catalog() != next {
		t.Error("expected nil catalog to be ignored")
	}
}

func TestServer_ConcurrentCatalogAccess(t *testing.T) {
	srv := NewServer(testImpl, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			srv.SetCatalog(&catalog.Catalog{})
		}()
		go func() {
			defer wg.Done()
			_ = srv.Catalog().Len()
		}()
	}
	wg.Wait()
}

func TestServer_Shutdown(t *testing.T) {
	store, cleanup := setupTestStorage(t)
	defer cleanup()

	srv := NewServer(testImpl, store, nil)
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() returned error: %v", err)
	}
}

func TestServer_Shutdown_NilStorage(t *testing.T) {
	srv := NewServer(testImpl, nil, nil)
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() with nil storage returned error: %v", err)
	}
}
