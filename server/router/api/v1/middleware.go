package v1

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/feedlens/ai/metrics"
	"github.com/hrygo/feedlens/internal/logging"
)

const headerProcessTime = "X-Process-Time"

// RequestContext attaches a request id and a request-scoped logger.
// An incoming X-Request-Id header is reused.
func RequestContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = logging.NewRequestID()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)
			c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), requestID)))
			return next(c)
		}
	}
}

// AccessLog logs every request, sets X-Process-Time and records HTTP metrics.
func AccessLog(exporter *metrics.PrometheusExporter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			res := c.Response()
			res.Before(func() {
				res.Header().Set(headerProcessTime, fmt.Sprintf("%.4f", time.Since(start).Seconds()))
			})

			err := next(c)
			if err != nil {
				// Render now so the logged status is the one sent.
				c.Error(err)
			}

			latency := time.Since(start)
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			exporter.RecordHTTPRequest(c.Request().Method, route, res.Status, latency)
			logging.FromContext(c.Request().Context()).Info("request completed",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", res.Status,
				"duration_ms", latency.Milliseconds(),
			)
			return nil
		}
	}
}
