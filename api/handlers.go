package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// listContainers handles GET /projects/:name/ps, grounded on graphium's
// handlers_containers.go listContainers (query params, plain JSON array
// response), restricted here to the single project named in the path.
func (s *Server) listContainers(c echo.Context) error {
	p, err := s.project(c)
	if err != nil {
		return notFoundError("project", c.Param("name"))
	}

	var services []string
	if svc := c.QueryParam("service"); svc != "" {
		services = []string{svc}
	}

	entries, err := s.orch.Ps(c.Request().Context(), p, services)
	if err != nil {
		return internalError(err)
	}
	return c.JSON(http.StatusOK, entries)
}

// streamEvents handles GET /projects/:name/events, upgrading to a
// WebSocket connection and relaying every orchestrator.Event for the
// project until the client disconnects or the stream errs, grounded on
// graphium's handlers_websocket.go HandleWebSocket.
func (s *Server) streamEvents(c echo.Context) error {
	p, err := s.project(c)
	if err != nil {
		return notFoundError("project", c.Param("name"))
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return internalError(err)
	}

	h := newHub()
	go h.run()

	client := &wsClient{hub: h, conn: conn, send: make(chan []byte, 256)}
	h.register <- client
	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	go client.writePump()
	go func() {
		client.readPump()
		cancel()
	}()

	events, errc := s.orch.Events(ctx, p)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			h.broadcastEvent(ev)
		case <-errc:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}
