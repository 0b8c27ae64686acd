package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/aegis-sentinel/aegis/pkg/common"
	"github.com/aegis-sentinel/aegis/pkg/infra/auth"
)

// AuthMiddleware resolves the caller identity from the Authorization header.
// Middleware() admits unauthenticated requests as guests; Required() rejects
// them. Both store the resolved common.Caller in request locals.
type AuthMiddleware interface {
	Middleware() fiber.Handler
	Required() fiber.Handler
}

type authMiddleware struct {
	logger   *logrus.Logger
	verifier auth.Verifier
}

func NewAuthMiddleware(logger *logrus.Logger, verifier auth.Verifier) AuthMiddleware {
	return &authMiddleware{
		logger:   logger,
		verifier: verifier,
	}
}

// Middleware is the soft policy for the scan surfaces: a missing or invalid
// credential downgrades the request to guest instead of rejecting it.
func (m *authMiddleware) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		token := bearerToken(ctx)
		if token == "" {
			ctx.Locals(common.CallerContextKey, common.GuestCaller())
			return ctx.Next()
		}

		caller, err := m.verifier.Verify(ctx.Context(), token)
		if err != nil {
			m.logger.WithError(err).Debug("credential rejected, continuing as guest")
			caller = common.GuestCaller()
		}
		ctx.Locals(common.CallerContextKey, caller)
		return ctx.Next()
	}
}

// Required is the hard policy for authenticated-only surfaces.
func (m *authMiddleware) Required() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		token := bearerToken(ctx)
		if token == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
		}

		caller, err := m.verifier.Verify(ctx.Context(), token)
		if err != nil {
			m.logger.WithError(err).Debug("credential rejected")
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credential"})
		}
		ctx.Locals(common.CallerContextKey, caller)
		return ctx.Next()
	}
}

func bearerToken(ctx *fiber.Ctx) string {
	header := ctx.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// CallerFromLocals returns the caller stored by the auth middleware,
// defaulting to guest when the route skipped authentication.
func CallerFromLocals(ctx *fiber.Ctx) common.Caller {
	if caller, ok := ctx.Locals(common.CallerContextKey).(common.Caller); ok {
		return caller
	}
	return common.GuestCaller()
}
