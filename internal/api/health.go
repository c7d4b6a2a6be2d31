package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"workflow-governance/backend/pkg/models"
)

const healthTimeout = 2 * time.Second

// Health reports whether the service and its store are reachable. It is
// mounted outside the authenticated group.
// (GET /health)
func (s *Server) Health(c echo.Context) error {
	status := models.HealthStatus{
		Status:    "ok",
		Service:   "workflow-governance",
		Version:   s.Version,
		Timestamp: time.Now().UTC(),
		Checks:    map[string]string{},
	}
	code := http.StatusOK

	if s.Store != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
		defer cancel()
		if err := s.Store.Ping(ctx); err != nil {
			s.Logger.Warn("store health check failed", "error", err)
			status.Status = "degraded"
			status.Checks["store"] = "unreachable"
			code = http.StatusServiceUnavailable
		} else {
			status.Checks["store"] = "ok"
		}
	}
	return c.JSON(code, status)
}
