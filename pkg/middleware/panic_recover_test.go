package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPanicTestApp() *fiber.App {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	app := fiber.New()
	app.Use(NewPanicRecoverMiddleware(logger).Middleware())
	app.Post("/explode", func(c *fiber.Ctx) error {
		panic("unexpected nil scan result")
	})
	app.Get("/ok", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestPanicRecover_ReturnsInternalServerError(t *testing.T) {
	app := newPanicTestApp()

	req := httptest.NewRequest(fiber.MethodPost, "/explode", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "internal server error", body["error"])
}

func TestPanicRecover_ListenerSurvivesPanic(t *testing.T) {
	app := newPanicTestApp()

	req := httptest.NewRequest(fiber.MethodPost, "/explode", nil)
	_, err := app.Test(req)
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
