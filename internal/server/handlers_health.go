package server

import (
	"github.com/labstack/echo/v4"

	"github.com/af-inet/PZDiscordEventPublisher/internal/platform/version"
)

func (s *Server) handleLiveness(c echo.Context) error {
	uptime := s.clock.Since(s.startTime).Seconds()
	return c.JSON(200, map[string]any{
		"status": "ok",
		"uptime": uptime,
	})
}

// handleReadiness reports unhealthy until the first poll cycle completes
// and whenever cycles have stopped completing inside the stale window.
// A cycle that ended in a fault still counts as a completed cycle: the
// bridge is working as designed against an unreachable server.
func (s *Server) handleReadiness(c echo.Context) error {
	status := s.controller.Status()

	if status.LastCycleAt.IsZero() {
		return c.JSON(503, map[string]any{
			"status":       "unhealthy",
			"failed_check": "first_cycle",
			"error":        "no poll cycle has completed yet",
		})
	}

	if age := s.clock.Since(status.LastCycleAt); age > s.staleAfter {
		return c.JSON(503, map[string]any{
			"status":       "unhealthy",
			"failed_check": "cycle_recency",
			"error":        "last poll cycle is too old",
			"age_seconds":  age.Seconds(),
		})
	}

	return c.JSON(200, map[string]any{
		"status":       "ready",
		"last_outcome": string(status.LastOutcome),
	})
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(200, version.Get())
}
