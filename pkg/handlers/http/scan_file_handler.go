package http

import (
	"context"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/aegis-sentinel/aegis/pkg/app/filescan"
	"github.com/aegis-sentinel/aegis/pkg/common"
	"github.com/aegis-sentinel/aegis/pkg/middleware"
)

// maxUploadBytes caps accepted file uploads.
const maxUploadBytes = 10 << 20

// FileScanner analyzes an uploaded file by type.
type FileScanner interface {
	Scan(ctx context.Context, filename string, content []byte, apiKey string, caller common.Caller) (*filescan.Outcome, error)
}

type scanFileResponse struct {
	ID             string      `json:"id"`
	FileName       string      `json:"fileName"`
	ScannerType    string      `json:"scannerType"`
	IsClean        bool        `json:"isClean"`
	Verdict        string      `json:"verdict"`
	RiskScore      int         `json:"riskScore"`
	ThreatType     string      `json:"threatType"`
	AttackCategory string      `json:"attackCategory"`
	Findings       interface{} `json:"findings,omitempty"`
	Stats          interface{} `json:"stats,omitempty"`
	Message        string      `json:"message,omitempty"`
	Note           string      `json:"note,omitempty"`
}

type scanFileHandler struct {
	logger  *logrus.Logger
	scanner FileScanner
}

func NewScanFileHandler(logger *logrus.Logger, scanner FileScanner) Handler {
	return &scanFileHandler{
		logger:  logger,
		scanner: scanner,
	}
}

// Handle accepts a multipart upload under the "file" field. An optional
// x_api_key form value carries the caller's own antivirus credential for
// this request.
func (h *scanFileHandler) Handle(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}
	if fileHeader.Size > maxUploadBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "file exceeds upload limit"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.WithError(err).Error("failed to open uploaded file")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unreadable upload"})
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		h.logger.WithError(err).Error("failed to read uploaded file")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unreadable upload"})
	}

	outcome, err := h.scanner.Scan(
		c.Context(),
		fileHeader.Filename,
		content,
		c.FormValue("x_api_key"),
		middleware.CallerFromLocals(c),
	)
	if err != nil {
		h.logger.WithError(err).WithField("file", fileHeader.Filename).Error("file scan failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "file scan failed"})
	}

	resp := scanFileResponse{
		ID:             outcome.ID,
		FileName:       outcome.FileName,
		ScannerType:    outcome.ScannerType,
		IsClean:        outcome.IsClean,
		Verdict:        string(outcome.Result.Verdict),
		RiskScore:      outcome.Result.RiskScore,
		ThreatType:     outcome.Result.ThreatType,
		AttackCategory: string(outcome.Result.AttackCategory),
		Message:        outcome.Result.Message,
		Note:           outcome.Result.Note,
	}
	if len(outcome.Result.Findings) > 0 {
		resp.Findings = outcome.Result.Findings
	}
	if outcome.Result.Stats != nil {
		resp.Stats = outcome.Result.Stats
	} else if outcome.Stats != nil {
		resp.Stats = outcome.Stats
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}
