package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/aegis-sentinel/aegis/pkg/domain/scanning"
)

type ScanLogRepository struct {
	db *gorm.DB
}

func NewScanLogRepository(db *gorm.DB) scanning.ScanLogRepository {
	return &ScanLogRepository{
		db: db,
	}
}

func (r *ScanLogRepository) Create(ctx context.Context, entry *scanning.ScanLogEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create scan log entry: %w", err)
	}
	return nil
}

func (r *ScanLogRepository) ListRecent(ctx context.Context, limit int) ([]scanning.ScanLogEntry, error) {
	var entries []scanning.ScanLogEntry
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list scan log entries: %w", err)
	}
	return entries, nil
}
