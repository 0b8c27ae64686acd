package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/aegis-sentinel/aegis/pkg/common"
	"github.com/aegis-sentinel/aegis/pkg/infra/prometheus"
)

// metricsMiddleware records request counts and latency per endpoint. The
// start time is also published to locals for handlers that report latency in
// their payload.
type metricsMiddleware struct {
	logger *logrus.Logger
}

func NewMetricsMiddleware(logger *logrus.Logger) Middleware {
	return &metricsMiddleware{logger: logger}
}

func (m *metricsMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		c.Locals(common.LatencyContextKey, start)

		err := c.Next()

		elapsed := time.Since(start)
		status := c.Response().StatusCode()

		prometheus.RequestTotal.WithLabelValues(c.Path(), c.Method(), statusClass(status)).Inc()
		prometheus.RequestLatency.WithLabelValues(c.Path()).Observe(float64(elapsed.Milliseconds()))

		return err
	}
}

func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}
