package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/zoo-booking/internal/metrics"
)

// RequestLogger writes one logrus entry per request and records the
// request latency histogram.  It expects echo's RequestID middleware to
// run first.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let the error handler write the status before logging it
				c.Error(err)
			}
			latency := time.Since(start)
			status := c.Response().Status
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			metrics.HTTPRequestDuration.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(latency.Seconds())

			entry := logrus.WithFields(logrus.Fields{
				"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
				"method":     c.Request().Method,
				"path":       c.Request().URL.Path,
				"status":     status,
				"latency_ms": latency.Milliseconds(),
				"user_id":    currentUserID(c),
			})
			switch {
			case status >= 500:
				entry.Error("request failed")
			case status >= 400:
				entry.Info("request rejected")
			default:
				entry.Debug("request served")
			}
			return nil
		}
	}
}
