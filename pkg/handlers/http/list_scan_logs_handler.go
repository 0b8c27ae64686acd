package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/aegis-sentinel/aegis/pkg/domain/scanning"
)

const (
	defaultLogListLimit = 50
	maxLogListLimit     = 500
)

type listScanLogsHandler struct {
	logger *logrus.Logger
	repo   scanning.ScanLogRepository
}

func NewListScanLogsHandler(logger *logrus.Logger, repo scanning.ScanLogRepository) Handler {
	return &listScanLogsHandler{
		logger: logger,
		repo:   repo,
	}
}

// Handle returns recent scan log entries for the dashboard live feed. The
// route requires authentication.
func (h *listScanLogsHandler) Handle(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultLogListLimit)
	if limit < 1 {
		limit = defaultLogListLimit
	}
	if limit > maxLogListLimit {
		limit = maxLogListLimit
	}

	entries, err := h.repo.ListRecent(c.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("failed to list scan logs")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list scan logs"})
	}
	if entries == nil {
		entries = []scanning.ScanLogEntry{}
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"count": len(entries),
		"logs":  entries,
	})
}
