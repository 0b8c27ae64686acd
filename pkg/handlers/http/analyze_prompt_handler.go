package http

import (
	"context"
	"regexp"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/aegis-sentinel/aegis/pkg/app/classification"
	"github.com/aegis-sentinel/aegis/pkg/domain/scanning"
	"github.com/aegis-sentinel/aegis/pkg/middleware"
)

// Pipeline is the classification entrypoint behind the analysis surfaces.
type Pipeline interface {
	Process(ctx context.Context, req classification.Request) classification.Outcome
}

type analyzePromptRequest struct {
	Prompt string `json:"prompt"`
	Mode   string `json:"mode"`

	// Legacy toggles kept for older dashboard builds; an explicit mode wins.
	ChatMode bool `json:"chatMode"`
	LogMode  bool `json:"logMode"`
}

type analyzePromptResponse struct {
	ID             string `json:"id"`
	Prompt         string `json:"prompt"`
	Verdict        string `json:"verdict"`
	RiskScore      int    `json:"riskScore"`
	ThreatType     string `json:"threatType"`
	AttackCategory string `json:"attackCategory"`
	Summary        string `json:"summary,omitempty"`
	Mitigation     string `json:"mitigation,omitempty"`
	Message        string `json:"message,omitempty"`
	Note           string `json:"note,omitempty"`
}

type analyzePromptHandler struct {
	logger   *logrus.Logger
	pipeline Pipeline
}

func NewAnalyzePromptHandler(logger *logrus.Logger, pipeline Pipeline) Handler {
	return &analyzePromptHandler{
		logger:   logger,
		pipeline: pipeline,
	}
}

// Handle classifies a prompt, chat message, or log excerpt. Once the request
// is admitted the response is always 200 with a verdict; degraded analysis is
// flagged in the note field, never as an error status.
func (h *analyzePromptHandler) Handle(c *fiber.Ctx) error {
	var req analyzePromptRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Prompt == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "prompt is required"})
	}

	mode, err := resolveMode(req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	outcome := h.pipeline.Process(c.Context(), classification.Request{
		Content: req.Prompt,
		Mode:    mode,
		Caller:  middleware.CallerFromLocals(c),
	})

	return c.Status(fiber.StatusOK).JSON(analyzePromptResponse{
		ID:             outcome.ID,
		Prompt:         req.Prompt,
		Verdict:        string(outcome.Result.Verdict),
		RiskScore:      outcome.Result.RiskScore,
		ThreatType:     outcome.Result.ThreatType,
		AttackCategory: string(outcome.Result.AttackCategory),
		Summary:        outcome.Result.Summary,
		Mitigation:     outcome.Result.Mitigation,
		Message:        outcome.Result.Message,
		Note:           outcome.Result.Note,
	})
}

// resolveMode prefers an explicit mode, then the legacy toggles, then shape
// inference: content that looks like log lines is analyzed as logs.
func resolveMode(req analyzePromptRequest) (scanning.Mode, error) {
	if req.Mode != "" {
		mode := scanning.Mode(req.Mode)
		if !mode.IsValid() || mode == scanning.ModeWebsiteScan {
			return "", fiber.NewError(fiber.StatusBadRequest, "unsupported mode")
		}
		return mode, nil
	}
	if req.ChatMode {
		return scanning.ModeChat, nil
	}
	if req.LogMode || looksLikeLog(req.Prompt) {
		return scanning.ModeLogAnalysis, nil
	}
	return scanning.ModePromptScan, nil
}

var logShapeRe = regexp.MustCompile(`(?m)^\s*(\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}|\w{3}\s+\d{1,2}\s\d{2}:\d{2}:\d{2}|\[(ERROR|WARN|INFO|DEBUG|FATAL)\])`)

func looksLikeLog(content string) bool {
	return logShapeRe.MatchString(content)
}
