package storage

import (
	"context"

	"github.com/tb0hdan/csak/pkg/models"
)

type Storage interface {
	// Run history operations
	CreateRunRecord(ctx context.Context, record *models.RunRecord) error
	GetRunRecord(ctx context.Context, id uint) (*models.RunRecord, error)
	GetRunRecords(ctx context.Context, limit, offset int) ([]models.RunRecord, int64, error)
	GetRunRecordsBySession(ctx context.Context, sessionID string) ([]models.RunRecord, error)
	GetRunRecordsByTool(ctx context.Context, category, tool string, limit int) ([]models.RunRecord, error)
	DeleteRunRecord(ctx context.Context, id uint) error
	DeleteAllRunRecords(ctx context.Context) error

	// Lifecycle
	Close() error
}
