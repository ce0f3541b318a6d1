package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Locals keys set by the API server.
const (
	LocalRequestID = "requestid"
	LocalUserID    = "userID"
)

// RequestLogger logs every request once, after the error handler has run, so
// the logged status is the one the client saw. 5xx responses log at error
// level together with the cause.
func RequestLogger(log *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		chainErr := c.Next()
		if chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		entry := log.WithFields(logrus.Fields{
			"status":  status,
			"method":  c.Method(),
			"path":    c.Path(),
			"ip":      c.IP(),
			"latency": time.Since(start).String(),
		})
		if rid, ok := c.Locals(LocalRequestID).(string); ok && rid != "" {
			entry = entry.WithField("request_id", rid)
		}
		if uid, ok := c.Locals(LocalUserID).(string); ok && uid != "" {
			entry = entry.WithField("user_id", uid)
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			if chainErr != nil {
				entry = entry.WithError(chainErr)
			}
			entry.Error("request failed")
		case status >= fiber.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Info("request processed")
		}
		return nil
	}
}
