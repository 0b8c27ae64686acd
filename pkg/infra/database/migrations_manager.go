package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/aegis-sentinel/aegis/pkg/domain/scanning"
)

type MigrationsManager struct {
	db *gorm.DB
}

func NewMigrationsManager(db *gorm.DB) *MigrationsManager {
	return &MigrationsManager{db: db}
}

// Migrate applies the schema for the append-only scan tables. Rate-limit
// windows live in redis, not here.
func (m *MigrationsManager) Migrate() error {
	models := []interface{}{
		&scanning.ScanLogEntry{},
		&scanning.WebsiteScan{},
	}
	for _, model := range models {
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}
	return nil
}
