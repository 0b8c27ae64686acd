package scanning

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/aegis-sentinel/aegis/pkg/infra/database/types"
)

// Vulnerability is one failed check from the website reconnaissance scan.
type Vulnerability struct {
	Type        string `json:"type"` // high | medium | low
	Name        string `json:"name"`
	Description string `json:"description"`
	Fix         string `json:"fix"`
}

type Location struct {
	Country string `json:"country"`
	City    string `json:"city"`
	ISP     string `json:"isp"`
	IP      string `json:"ip"`
}

// WebsiteScan is the persisted outcome of a website reconnaissance scan.
type WebsiteScan struct {
	ID              uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	URL             string         `json:"url" gorm:"index"`
	Status          int            `json:"status"`
	LatencyMs       int            `json:"latency" gorm:"column:latency_ms"`
	Grade           string         `json:"grade"`
	Score           int            `json:"score"`
	TechStack       pq.StringArray `json:"techStack" gorm:"type:text[]"`
	Vulnerabilities types.JSONBlob `json:"vulnerabilities" gorm:"type:jsonb"`
	Country         string         `json:"country"`
	City            string         `json:"city"`
	ISP             string         `json:"isp"`
	IP              string         `json:"ip"`
	CreatedAt       time.Time      `json:"created_at"`
}

func (WebsiteScan) TableName() string {
	return "public.scan_history"
}

type WebsiteScanRepository interface {
	Create(ctx context.Context, scan *WebsiteScan) error
	ListRecent(ctx context.Context, limit int) ([]WebsiteScan, error)
}
