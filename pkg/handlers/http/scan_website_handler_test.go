package http

import (
	"context"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/aegis-sentinel/aegis/pkg/app/webscan"
	domainErrors "github.com/aegis-sentinel/aegis/pkg/domain/errors"
	"github.com/aegis-sentinel/aegis/pkg/domain/scanning"
)

type mockWebsiteScanner struct {
	mock.Mock
}

func (m *mockWebsiteScanner) Scan(ctx context.Context, rawURL string) (*webscan.Result, error) {
	args := m.Called(ctx, rawURL)
	if result, ok := args.Get(0).(*webscan.Result); ok {
		return result, args.Error(1)
	}
	return nil, args.Error(1)
}

func newWebsiteTestApp(scanner WebsiteScanner) *fiber.App {
	app := fiber.New()
	handler := NewScanWebsiteHandler(logrus.New(), scanner)
	app.Post("/scan-website", handler.Handle)
	return app
}

func TestScanWebsite_ReturnsReport(t *testing.T) {
	scanner := new(mockWebsiteScanner)
	scanner.On("Scan", mock.Anything, "https://example.com").Return(&webscan.Result{
		Scan: &scanning.WebsiteScan{
			ID:        uuid.New(),
			URL:       "https://example.com",
			Status:    200,
			LatencyMs: 120,
			Grade:     "D",
			Score:     40,
			TechStack: []string{"React"},
		},
		Vulnerabilities: []scanning.Vulnerability{
			{Type: "high", Name: "Missing Content-Security-Policy"},
		},
		Persisted: true,
	}, nil)

	app := newWebsiteTestApp(scanner)
	_, body, status := postJSON(t, app, "/scan-website", map[string]interface{}{
		"url": "https://example.com",
	})

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "D", body["grade"])
	assert.Equal(t, float64(40), body["score"])
	assert.Equal(t, float64(200), body["status"])
	vulnerabilities, ok := body["vulnerabilities"].([]interface{})
	assert.True(t, ok)
	assert.Len(t, vulnerabilities, 1)
}

func TestScanWebsite_MissingURL(t *testing.T) {
	scanner := new(mockWebsiteScanner)
	app := newWebsiteTestApp(scanner)

	_, body, status := postJSON(t, app, "/scan-website", map[string]interface{}{})

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body["error"], "url")
	scanner.AssertNotCalled(t, "Scan", mock.Anything, mock.Anything)
}

func TestScanWebsite_UnreachableTarget(t *testing.T) {
	scanner := new(mockWebsiteScanner)
	scanner.On("Scan", mock.Anything, "https://does-not-resolve.invalid").
		Return(nil, domainErrors.ErrTargetUnreachable)

	app := newWebsiteTestApp(scanner)
	_, body, status := postJSON(t, app, "/scan-website", map[string]interface{}{
		"url": "https://does-not-resolve.invalid",
	})

	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "target unreachable", body["error"])
}
