package middleware

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aegis-sentinel/aegis/pkg/common"
	domainErrors "github.com/aegis-sentinel/aegis/pkg/domain/errors"
)

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) Verify(ctx context.Context, token string) (common.Caller, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(common.Caller), args.Error(1)
}

func newAuthTestApp(handler fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(handler)
	app.Get("/whoami", func(c *fiber.Ctx) error {
		caller := CallerFromLocals(c)
		return c.JSON(fiber.Map{"subject": caller.Subject, "guest": caller.Guest})
	})
	return app
}

func TestAuthMiddleware_SoftPolicyAdmitsGuest(t *testing.T) {
	verifier := new(mockVerifier)
	m := NewAuthMiddleware(logrus.New(), verifier)
	app := newAuthTestApp(m.Middleware())

	req := httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
}

func TestAuthMiddleware_SoftPolicyResolvesSubject(t *testing.T) {
	verifier := new(mockVerifier)
	verifier.On("Verify", mock.Anything, "valid-token").
		Return(common.AuthenticatedCaller("user-9"), nil)
	m := NewAuthMiddleware(logrus.New(), verifier)

	var seen common.Caller
	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/whoami", func(c *fiber.Ctx) error {
		seen = CallerFromLocals(c)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer valid-token")
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "user-9", seen.Subject)
	assert.False(t, seen.Guest)
}

func TestAuthMiddleware_SoftPolicyDowngradesBadToken(t *testing.T) {
	verifier := new(mockVerifier)
	verifier.On("Verify", mock.Anything, "bad-token").
		Return(common.Caller{}, domainErrors.ErrInvalidCredential)
	m := NewAuthMiddleware(logrus.New(), verifier)

	var seen common.Caller
	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/whoami", func(c *fiber.Ctx) error {
		seen = CallerFromLocals(c)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer bad-token")
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, seen.Guest)
}

func TestAuthMiddleware_RequiredRejectsMissingToken(t *testing.T) {
	verifier := new(mockVerifier)
	m := NewAuthMiddleware(logrus.New(), verifier)
	app := newAuthTestApp(m.Required())

	req := httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddleware_RequiredRejectsInvalidToken(t *testing.T) {
	verifier := new(mockVerifier)
	verifier.On("Verify", mock.Anything, "expired-token").
		Return(common.Caller{}, domainErrors.ErrInvalidCredential)
	m := NewAuthMiddleware(logrus.New(), verifier)
	app := newAuthTestApp(m.Required())

	req := httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer expired-token")
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddleware_MalformedAuthorizationHeaderIsGuest(t *testing.T) {
	verifier := new(mockVerifier)
	m := NewAuthMiddleware(logrus.New(), verifier)
	app := newAuthTestApp(m.Middleware())

	req := httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Basic dXNlcjpwYXNz")
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
}
