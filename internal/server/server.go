// Package server exposes the observability surface of the bridge:
// liveness, readiness, Prometheus metrics, and build info.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/af-inet/PZDiscordEventPublisher/internal/bridge"
)

// bridgeStatus is the subset of the controller the probes need.
type bridgeStatus interface {
	Status() bridge.Status
}

type Server struct {
	echo       *echo.Echo
	port       string
	controller bridgeStatus
	clock      clockwork.Clock
	staleAfter time.Duration
	startTime  time.Time
}

// NewServer builds the observability server. staleAfter bounds how old
// the last completed cycle may be before readiness reports unhealthy;
// it must cover the poll interval plus a full failure cooldown.
func NewServer(port string, controller bridgeStatus, clock clockwork.Clock, staleAfter time.Duration) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())

	s := &Server{
		echo:       e,
		port:       port,
		controller: controller,
		clock:      clock,
		staleAfter: staleAfter,
		startTime:  clock.Now(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%s", s.port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
