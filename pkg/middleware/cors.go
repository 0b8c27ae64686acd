package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

var corsAllowMethods = []string{
	fiber.MethodGet,
	fiber.MethodPost,
	fiber.MethodOptions,
}

type corsMiddleware struct {
	allowOrigins []string
}

func NewCORSMiddleware(allowOrigins []string) Middleware {
	return &corsMiddleware{allowOrigins: allowOrigins}
}

func (m *corsMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := c.Get("Origin")
		if origin == "" {
			return c.Next()
		}

		if m.originAllowed(origin) {
			c.Set("Vary", "Origin")
			c.Set("Access-Control-Allow-Origin", origin)
			c.Set("Access-Control-Expose-Headers", "X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset")

			if c.Method() == fiber.MethodOptions {
				c.Set("Access-Control-Allow-Methods", strings.Join(corsAllowMethods, ", "))
				reqHeaders := c.Get("Access-Control-Request-Headers")
				if reqHeaders != "" {
					c.Set("Access-Control-Allow-Headers", reqHeaders)
				} else {
					c.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				}
				c.Set("Access-Control-Max-Age", "3600")
				return c.SendStatus(fiber.StatusNoContent)
			}
		}
		return c.Next()
	}
}

func (m *corsMiddleware) originAllowed(origin string) bool {
	// An unset allow-list means the dashboard may be served from anywhere.
	if len(m.allowOrigins) == 0 {
		return true
	}
	for _, o := range m.allowOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}
