package http

import "github.com/gofiber/fiber/v2"

type Handler interface {
	Handle(ctx *fiber.Ctx) error
}

type HandlerTransport struct {
	// Analysis
	AnalyzePromptHandler Handler
	ScanFileHandler      Handler
	ScanWebsiteHandler   Handler

	// Dashboard feeds
	ListScanLogsHandler    Handler
	ListScanHistoryHandler Handler

	// Meta
	GetVersionHandler Handler
}
