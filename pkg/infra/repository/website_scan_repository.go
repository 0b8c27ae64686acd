package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/aegis-sentinel/aegis/pkg/domain/scanning"
)

type WebsiteScanRepository struct {
	db *gorm.DB
}

func NewWebsiteScanRepository(db *gorm.DB) scanning.WebsiteScanRepository {
	return &WebsiteScanRepository{
		db: db,
	}
}

func (r *WebsiteScanRepository) Create(ctx context.Context, scan *scanning.WebsiteScan) error {
	if err := r.db.WithContext(ctx).Create(scan).Error; err != nil {
		return fmt.Errorf("failed to create website scan: %w", err)
	}
	return nil
}

func (r *WebsiteScanRepository) ListRecent(ctx context.Context, limit int) ([]scanning.WebsiteScan, error) {
	var scans []scanning.WebsiteScan
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&scans).Error; err != nil {
		return nil, fmt.Errorf("failed to list website scans: %w", err)
	}
	return scans, nil
}
