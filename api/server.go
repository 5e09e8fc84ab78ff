// Package api is a read-only HTTP+WebSocket surface over the orchestrator's
// Ps and Events operations (GET /projects/{name}/ps, GET
// /projects/{name}/events as a WS stream). It never drives convergence
// itself — it is a convenience view onto Component G, grounded on
// graphium's internal/api/server.go (echo bootstrap) and
// internal/api/websocket_hub.go (the Hub broadcaster).
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"evalgo.org/strata/orchestrator"
	"evalgo.org/strata/project"
)

// ProjectResolver looks up the live *project.Project for name, the way the
// CLI's loadProject does from compose files; the api package has no
// storage layer of its own (§ "Non-goals" excludes persistence).
type ProjectResolver func(name string) (*project.Project, error)

// Server is the HTTP+WebSocket read surface.
type Server struct {
	echo     *echo.Echo
	orch     *orchestrator.Orchestrator
	resolve  ProjectResolver
	upgrader websocket.Upgrader
}

// New builds a Server backed by orch, resolving project names via resolve.
func New(orch *orchestrator.Orchestrator, resolve ProjectResolver) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = HTTPErrorHandler

	s := &Server{
		echo:    e,
		orch:    orch,
		resolve: resolve,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "[${time_rfc3339}] ${status} ${method} ${uri} (${latency_human})\n",
	}))
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)

	projects := s.echo.Group("/projects/:name")
	projects.GET("/ps", s.listContainers)
	projects.GET("/events", s.streamEvents)
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy", "service": "strata"})
}

// Handler exposes the underlying http.Handler for use with net/http/httptest
// or a caller-managed http.Server.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start runs the HTTP server, blocking until it returns an error (including
// http.ErrServerClosed on a clean Shutdown).
func (s *Server) Start(addr string) error {
	log.Printf("api: listening on %s", addr)
	return s.echo.Start(addr)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) project(c echo.Context) (*project.Project, error) {
	name := c.Param("name")
	p, err := s.resolve(name)
	if err != nil {
		return nil, fmt.Errorf("resolving project %q: %w", name, err)
	}
	return p, nil
}
