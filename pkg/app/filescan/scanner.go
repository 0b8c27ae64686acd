package filescan

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aegis-sentinel/aegis/pkg/app/classification"
	"github.com/aegis-sentinel/aegis/pkg/common"
	domainErrors "github.com/aegis-sentinel/aegis/pkg/domain/errors"
	"github.com/aegis-sentinel/aegis/pkg/domain/scanning"
	"github.com/aegis-sentinel/aegis/pkg/infra/virustotal"
)

// Scanner type labels surfaced in the response envelope.
const (
	ScannerTypeSAST = "AI SAST"
	ScannerTypeAV   = "VirusTotal"
	ScannerTypeDemo = "Demo"
)

const demoResponse = "CLEAN (DEMO)"

// codeExtensions routes a file to static analysis instead of antivirus.
var codeExtensions = map[string]bool{
	".js": true, ".jsx": true, ".ts": true, ".tsx": true,
	".py": true, ".go": true, ".java": true, ".rb": true,
	".php": true, ".c": true, ".cpp": true, ".h": true,
	".cs": true, ".sh": true, ".sql": true, ".pl": true,
	".rs": true, ".kt": true, ".swift": true,
	".html": true, ".css": true, ".json": true,
	".yaml": true, ".yml": true, ".xml": true, ".env": true,
}

// Analyzer is the antivirus backend for non-code files.
//
//go:generate mockery --name=Analyzer --filename=analyzer_mock.go --output=./mocks --outpkg=mocks
type Analyzer interface {
	ScanFile(ctx context.Context, filename string, content []byte, apiKey string) (*virustotal.ScanStats, error)
	Configured() bool
}

// Pipeline is the classification stage code files are routed through.
type Pipeline interface {
	Process(ctx context.Context, req classification.Request) classification.Outcome
}

// Outcome is the result of one file scan, from either the static analysis
// path or the antivirus path.
type Outcome struct {
	ID          string                `json:"id"`
	FileName    string                `json:"fileName"`
	ScannerType string                `json:"scannerType"`
	IsClean     bool                  `json:"isClean"`
	Result      scanning.Result       `json:"result"`
	Stats       *virustotal.ScanStats `json:"avStats,omitempty"`
	Persisted   bool                  `json:"-"`
}

// Scanner routes uploaded files by type: source code goes through the
// classification pipeline as a code scan, everything else goes to the
// antivirus backend. Without antivirus credentials the binary path serves a
// clearly labeled demo verdict instead of failing.
type Scanner struct {
	pipeline Pipeline
	analyzer Analyzer
	repo     scanning.ScanLogRepository
	logger   *logrus.Logger
}

func NewScanner(pipeline Pipeline, analyzer Analyzer, repo scanning.ScanLogRepository, logger *logrus.Logger) *Scanner {
	return &Scanner{
		pipeline: pipeline,
		analyzer: analyzer,
		repo:     repo,
		logger:   logger,
	}
}

// Scan analyzes the uploaded file. apiKey optionally overrides the configured
// antivirus credential for this request only.
func (s *Scanner) Scan(ctx context.Context, filename string, content []byte, apiKey string, caller common.Caller) (*Outcome, error) {
	if IsCodeFile(filename) {
		return s.scanCode(ctx, filename, content, caller), nil
	}
	return s.scanBinary(ctx, filename, content, apiKey)
}

// IsCodeFile reports whether the filename routes to static analysis.
func IsCodeFile(filename string) bool {
	return codeExtensions[strings.ToLower(filepath.Ext(filename))]
}

func (s *Scanner) scanCode(ctx context.Context, filename string, content []byte, caller common.Caller) *Outcome {
	result := s.pipeline.Process(ctx, classification.Request{
		Content: string(content),
		Mode:    scanning.ModeCodeScan,
		Caller:  caller,
	})
	return &Outcome{
		ID:          result.ID,
		FileName:    filename,
		ScannerType: ScannerTypeSAST,
		IsClean:     result.Result.IsClean(),
		Result:      result.Result,
		Persisted:   result.Persisted,
	}
}

func (s *Scanner) scanBinary(ctx context.Context, filename string, content []byte, apiKey string) (*Outcome, error) {
	if apiKey == "" && !s.analyzer.Configured() {
		return s.demoOutcome(ctx, filename), nil
	}

	stats, err := s.analyzer.ScanFile(ctx, filename, content, apiKey)
	if err != nil {
		if errors.Is(err, domainErrors.ErrScanProviderUnavailable) {
			s.logger.WithError(err).WithField("file", filename).Warn("antivirus backend unavailable, serving demo verdict")
			return s.demoOutcome(ctx, filename), nil
		}
		return nil, err
	}

	result := resultFromStats(stats)
	outcome := &Outcome{
		FileName:    filename,
		ScannerType: ScannerTypeAV,
		IsClean:     result.IsClean(),
		Result:      result,
		Stats:       stats,
	}
	outcome.ID, outcome.Persisted = s.persist(ctx, filename, result)
	return outcome, nil
}

// demoOutcome is the credential-less path: a labeled mock verdict so the
// dashboard stays functional in demo deployments.
func (s *Scanner) demoOutcome(ctx context.Context, filename string) *Outcome {
	result := scanning.Result{
		Verdict:        scanning.VerdictSafe,
		RiskScore:      0,
		ThreatType:     "None",
		AttackCategory: scanning.CategoryNone,
		Message:        demoResponse,
		Note:           "Antivirus credentials not configured; result is simulated.",
	}
	outcome := &Outcome{
		FileName:    filename,
		ScannerType: ScannerTypeDemo,
		IsClean:     true,
		Result:      result,
	}
	outcome.ID, outcome.Persisted = s.persist(ctx, filename, result)
	return outcome
}

func resultFromStats(stats *virustotal.ScanStats) scanning.Result {
	if stats.Detected() {
		score := scanning.ClampScore(scanning.BlockedThreshold + stats.Malicious)
		return scanning.Result{
			Verdict:        scanning.VerdictBlocked,
			RiskScore:      score,
			ThreatType:     fmt.Sprintf("Malware (%d engines)", stats.Malicious+stats.Suspicious),
			AttackCategory: scanning.CategoryMalware,
		}
	}
	return scanning.Result{
		Verdict:        scanning.VerdictSafe,
		RiskScore:      0,
		ThreatType:     "None",
		AttackCategory: scanning.CategoryNone,
	}
}

func (s *Scanner) persist(ctx context.Context, filename string, result scanning.Result) (string, bool) {
	entry := &scanning.ScanLogEntry{
		ID:             newEntryID(),
		PromptText:     fmt.Sprintf("file upload: %s", filename),
		Mode:           string(scanning.ModeCodeScan),
		Verdict:        string(result.Verdict),
		RiskScore:      result.RiskScore,
		ThreatType:     result.ThreatType,
		AttackCategory: string(result.AttackCategory),
		Note:           result.Note,
		CreatedAt:      time.Now(),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.WithError(err).WithField("file", filename).Error("failed to persist file scan entry")
		return fmt.Sprintf("fallback-%d", time.Now().UnixMilli()), false
	}
	return entry.ID.String(), true
}

func newEntryID() uuid.UUID {
	id, err := uuid.NewV6()
	if err != nil {
		return uuid.New()
	}
	return id
}
