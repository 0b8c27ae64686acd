package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/aegis-sentinel/aegis/pkg/common"
	"github.com/aegis-sentinel/aegis/pkg/config"
	domainErrors "github.com/aegis-sentinel/aegis/pkg/domain/errors"
	"github.com/aegis-sentinel/aegis/pkg/infra/prometheus"
	"github.com/aegis-sentinel/aegis/pkg/infra/ratelimit"
)

// rateLimitMiddleware enforces per-identity fixed windows. Authenticated
// callers budget by subject; guests share a per-IP budget with a lower limit.
// Windows are tracked per endpoint path so one surface cannot starve another.
type rateLimitMiddleware struct {
	logger  *logrus.Logger
	limiter *ratelimit.Limiter
	limits  config.RateLimitsConfig
}

func NewRateLimitMiddleware(logger *logrus.Logger, limiter *ratelimit.Limiter, limits config.RateLimitsConfig) Middleware {
	return &rateLimitMiddleware{
		logger:  logger,
		limiter: limiter,
		limits:  limits,
	}
}

func (m *rateLimitMiddleware) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		caller := CallerFromLocals(ctx)

		identity := caller.Subject
		limit := m.limits.Authenticated
		if caller.Guest {
			identity = ctx.IP()
			limit = m.limits.Guest
		}

		window, err := m.limiter.Allow(ctx.Context(), ctx.Path(), identity, limit)
		if err != nil {
			// Security errors always reach the caller with their status;
			// only infrastructure failures are absorbed.
			if domainErrors.IsSecurityError(err) {
				prometheus.RateLimitRejections.WithLabelValues(ctx.Path()).Inc()
				m.logger.WithFields(logrus.Fields{
					"identity": identity,
					"endpoint": ctx.Path(),
					"count":    window.RequestCount,
					"limit":    window.Limit,
				}).Warn("rate limit exceeded")

				setWindowHeaders(ctx, window)
				ctx.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfterSeconds(window)))
				return ctx.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error": "rate limit exceeded, try again later",
				})
			}
			// A broken limiter backend must not take the scan surfaces down
			// with it.
			m.logger.WithError(err).Error("rate limiter unavailable, admitting request")
			return ctx.Next()
		}

		ctx.Locals(common.RateLimitContextKey, window)
		setWindowHeaders(ctx, window)
		return ctx.Next()
	}
}

func setWindowHeaders(ctx *fiber.Ctx, window *ratelimit.Window) {
	ctx.Set("X-RateLimit-Limit", strconv.Itoa(window.Limit))
	ctx.Set("X-RateLimit-Remaining", strconv.FormatInt(window.Remaining(), 10))
	ctx.Set("X-RateLimit-Reset", strconv.FormatInt(window.ResetAt.Unix(), 10))
}

func retryAfterSeconds(window *ratelimit.Window) int {
	seconds := int(time.Until(window.ResetAt).Seconds())
	if seconds < 1 {
		return 1
	}
	return seconds
}
