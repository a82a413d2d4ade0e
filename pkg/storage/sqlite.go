package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tb0hdan/csak/pkg/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type SQLiteStorage struct {
	db *gorm.DB
}

type Config struct {
	DatabasePath string
	// CreateDir creates the parent directory of DatabasePath when missing.
	CreateDir bool
	Debug     bool
}

func NewSQLiteStorage(cfg Config) (*SQLiteStorage, error) {
	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}

	if cfg.CreateDir {
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	database, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// Auto-migrate schema
	if err := database.AutoMigrate(&models.RunRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &SQLiteStorage{db: database}, nil
}

func (s *SQLiteStorage) CreateRunRecord(ctx context.Context, record *models.RunRecord) error {
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *SQLiteStorage) GetRunRecord(ctx context.Context, id uint) (*models.RunRecord, error) {
	var record models.RunRecord
	err := s.db.WithContext(ctx).First(&record, id).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *SQLiteStorage) GetRunRecords(ctx context.Context, limit, offset int) ([]models.RunRecord, int64, error) {
	var records []models.RunRecord
	var total int64

	if err := s.db.WithContext(ctx).Model(&models.RunRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	err := query.Find(&records).Error
	return records, total, err
}

func (s *SQLiteStorage) GetRunRecordsBySession(ctx context.Context, sessionID string) ([]models.RunRecord, error) {
	var records []models.RunRecord
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").Order("id DESC").
		Find(&records).Error
	return records, err
}

func (s *SQLiteStorage) GetRunRecordsByTool(ctx context.Context, category, tool string, limit int) ([]models.RunRecord, error) {
	var records []models.RunRecord
	query := s.db.WithContext(ctx).
		Where("category = ? AND tool = ?", category, tool).
		Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&records).Error
	return records, err
}

func (s *SQLiteStorage) DeleteRunRecord(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&models.RunRecord{}, id).Error
}

func (s *SQLiteStorage) DeleteAllRunRecords(ctx context.Context) error {
	return s.db.WithContext(ctx).Where("1 = 1").Delete(&models.RunRecord{}).Error
}

func (s *SQLiteStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
