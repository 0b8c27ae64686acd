package scanning

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ScanLogEntry is the durable record of a classification outcome, one row per
// request that reached the persistence sink.
type ScanLogEntry struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	PromptText     string    `json:"prompt_text" gorm:"column:prompt_text"`
	Mode           string    `json:"mode" gorm:"index"`
	Verdict        string    `json:"verdict" gorm:"index"`
	RiskScore      int       `json:"risk_score"`
	ThreatType     string    `json:"threat_type"`
	AttackCategory string    `json:"attack_category"`
	Summary        string    `json:"summary,omitempty"`
	Mitigation     string    `json:"mitigation,omitempty"`
	Note           string    `json:"note,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func (ScanLogEntry) TableName() string {
	return "public.scan_logs"
}

type ScanLogRepository interface {
	Create(ctx context.Context, entry *ScanLogEntry) error
	ListRecent(ctx context.Context, limit int) ([]ScanLogEntry, error)
}
