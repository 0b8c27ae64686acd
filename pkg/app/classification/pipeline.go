package classification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aegis-sentinel/aegis/pkg/common"
	"github.com/aegis-sentinel/aegis/pkg/domain/scanning"
	"github.com/aegis-sentinel/aegis/pkg/infra/prometheus"
)

// storedPromptLimit caps the content column so oversized pastes do not bloat
// the log table.
const storedPromptLimit = 2000

// Classifier is the completion-backed stage of the pipeline.
//
//go:generate mockery --name=Classifier --filename=classifier_mock.go --output=./mocks --outpkg=mocks
type Classifier interface {
	Classify(ctx context.Context, mode scanning.Mode, content string) (string, error)
}

// Request is one unit of work entering the pipeline after auth and rate
// limiting have admitted it.
type Request struct {
	Content string
	Mode    scanning.Mode
	Caller  common.Caller
}

// Outcome pairs the normalized result with its persistence identity.
// Persisted is false when the sink failed and ID carries a synthetic
// fallback identifier.
type Outcome struct {
	ID        string
	Result    scanning.Result
	Persisted bool
}

// Pipeline runs classify, fallback-on-failure, normalize, persist. Once a
// request is admitted it always produces a verdict; classifier and sink
// failures degrade the outcome instead of erroring.
type Pipeline struct {
	classifier Classifier
	repo       scanning.ScanLogRepository
	logger     *logrus.Logger
}

func NewPipeline(classifier Classifier, repo scanning.ScanLogRepository, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		repo:       repo,
		logger:     logger,
	}
}

// Process never returns an error for classifier-side failures: every admitted
// request yields a verdict, degraded if necessary.
func (p *Pipeline) Process(ctx context.Context, req Request) Outcome {
	p.logger.WithFields(logrus.Fields{
		"mode":    req.Mode,
		"subject": req.Caller.Subject,
		"guest":   req.Caller.Guest,
	}).Debug("processing classification request")

	result, source := p.classify(ctx, req)
	prometheus.VerdictTotal.WithLabelValues(string(req.Mode), string(result.Verdict), source).Inc()

	outcome := Outcome{Result: result}
	if req.Mode == scanning.ModeChat {
		// Chat replies are ephemeral; nothing reaches the log table.
		outcome.ID = newEntryID().String()
		outcome.Persisted = false
		return outcome
	}

	entry := p.buildEntry(req, result)
	if err := p.repo.Create(ctx, entry); err != nil {
		p.logger.WithError(err).WithFields(logrus.Fields{
			"mode":    req.Mode,
			"verdict": result.Verdict,
		}).Error("failed to persist scan log entry")
		outcome.ID = fmt.Sprintf("fallback-%d", time.Now().UnixMilli())
		return outcome
	}

	outcome.ID = entry.ID.String()
	outcome.Persisted = true
	return outcome
}

func (p *Pipeline) classify(ctx context.Context, req Request) (scanning.Result, string) {
	raw, err := p.classifier.Classify(ctx, req.Mode, req.Content)
	if err != nil {
		p.logger.WithError(err).WithField("mode", req.Mode).Warn("classifier unavailable, using offline screening")
		return Screen(req.Mode, req.Content), "fallback"
	}

	result, err := Normalize(req.Mode, raw)
	if err != nil {
		p.logger.WithError(err).WithField("mode", req.Mode).Warn("unusable classifier output, using offline screening")
		return Screen(req.Mode, req.Content), "fallback"
	}
	return result, "ai"
}

func (p *Pipeline) buildEntry(req Request, result scanning.Result) *scanning.ScanLogEntry {
	return &scanning.ScanLogEntry{
		ID:             newEntryID(),
		PromptText:     truncate(req.Content, storedPromptLimit),
		Mode:           string(req.Mode),
		Verdict:        string(result.Verdict),
		RiskScore:      result.RiskScore,
		ThreatType:     result.ThreatType,
		AttackCategory: string(result.AttackCategory),
		Summary:        result.Summary,
		Mitigation:     result.Mitigation,
		Note:           result.Note,
		CreatedAt:      time.Now(),
	}
}

// newEntryID prefers time-ordered v6 identifiers so the log table clusters by
// insertion time.
func newEntryID() uuid.UUID {
	id, err := uuid.NewV6()
	if err != nil {
		return uuid.New()
	}
	return id
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
