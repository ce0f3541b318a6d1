package middleware

import (
	"strconv"
	"time"

	"github.com/PaulBabatuyi/socialhub/internal/metrics"

	"github.com/gofiber/fiber/v2"
)

// Metrics records request count and latency per matched route. It must sit
// outside RequestLogger so the status it reads is final.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		// route template, not the raw path, to keep label cardinality bounded
		route := c.Route().Path
		if route == "" || (route == "/" && c.Path() != "/") {
			route = "other"
		}
		method := c.Method()

		metrics.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(c.Response().StatusCode())).Inc()
		metrics.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return err
	}
}
