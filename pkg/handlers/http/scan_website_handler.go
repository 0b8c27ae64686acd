package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/aegis-sentinel/aegis/pkg/app/webscan"
	domainErrors "github.com/aegis-sentinel/aegis/pkg/domain/errors"
	"github.com/aegis-sentinel/aegis/pkg/domain/scanning"
)

// WebsiteScanner grades a target site's security posture.
type WebsiteScanner interface {
	Scan(ctx context.Context, rawURL string) (*webscan.Result, error)
}

type scanWebsiteRequest struct {
	URL string `json:"url"`
}

type scanWebsiteResponse struct {
	ID              string                   `json:"id"`
	URL             string                   `json:"url"`
	Status          int                      `json:"status"`
	LatencyMs       int                      `json:"latency"`
	Grade           string                   `json:"grade"`
	Score           int                      `json:"score"`
	TechStack       []string                 `json:"techStack"`
	Vulnerabilities []scanning.Vulnerability `json:"vulnerabilities"`
	Country         string                   `json:"country,omitempty"`
	City            string                   `json:"city,omitempty"`
	ISP             string                   `json:"isp,omitempty"`
	IP              string                   `json:"ip,omitempty"`
}

type scanWebsiteHandler struct {
	logger  *logrus.Logger
	scanner WebsiteScanner
}

func NewScanWebsiteHandler(logger *logrus.Logger, scanner WebsiteScanner) Handler {
	return &scanWebsiteHandler{
		logger:  logger,
		scanner: scanner,
	}
}

// Handle runs a passive reconnaissance scan. An unreachable target is the one
// analysis failure surfaced as an error status.
func (h *scanWebsiteHandler) Handle(c *fiber.Ctx) error {
	var req scanWebsiteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "url is required"})
	}

	result, err := h.scanner.Scan(c.Context(), req.URL)
	if err != nil {
		if errors.Is(err, domainErrors.ErrTargetUnreachable) {
			h.logger.WithError(err).WithField("url", req.URL).Warn("scan target unreachable")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "target unreachable"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	vulnerabilities := result.Vulnerabilities
	if vulnerabilities == nil {
		vulnerabilities = []scanning.Vulnerability{}
	}
	techStack := []string(result.Scan.TechStack)
	if techStack == nil {
		techStack = []string{}
	}

	return c.Status(fiber.StatusOK).JSON(scanWebsiteResponse{
		ID:              result.Scan.ID.String(),
		URL:             result.Scan.URL,
		Status:          result.Scan.Status,
		LatencyMs:       result.Scan.LatencyMs,
		Grade:           result.Scan.Grade,
		Score:           result.Scan.Score,
		TechStack:       techStack,
		Vulnerabilities: vulnerabilities,
		Country:         result.Scan.Country,
		City:            result.Scan.City,
		ISP:             result.Scan.ISP,
		IP:              result.Scan.IP,
	})
}
