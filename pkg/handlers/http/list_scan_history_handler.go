package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/aegis-sentinel/aegis/pkg/domain/scanning"
)

type listScanHistoryHandler struct {
	logger *logrus.Logger
	repo   scanning.WebsiteScanRepository
}

func NewListScanHistoryHandler(logger *logrus.Logger, repo scanning.WebsiteScanRepository) Handler {
	return &listScanHistoryHandler{
		logger: logger,
		repo:   repo,
	}
}

// Handle returns recent website scans for the dashboard history panel.
func (h *listScanHistoryHandler) Handle(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultLogListLimit)
	if limit < 1 {
		limit = defaultLogListLimit
	}
	if limit > maxLogListLimit {
		limit = maxLogListLimit
	}

	scans, err := h.repo.ListRecent(c.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("failed to list scan history")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list scan history"})
	}
	if scans == nil {
		scans = []scanning.WebsiteScan{}
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"count": len(scans),
		"scans": scans,
	})
}
