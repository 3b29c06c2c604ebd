package ws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"findash/internal/metrics"
)

const writeTimeout = 5 * time.Second

// socket adapts a websocket connection to Conn.
type socket struct {
	conn *websocket.Conn
}

func (s *socket) WriteText(ctx context.Context, msg string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return s.conn.Write(ctx, websocket.MessageText, []byte(msg))
}

// Handler upgrades requests and relays messages through a Hub.
type Handler struct {
	hub *Hub
	log *logrus.Logger
}

// NewHandler creates a WebSocket handler backed by hub.
func NewHandler(hub *Hub, log *logrus.Logger) *Handler {
	return &Handler{hub: hub, log: log}
}

// Serve godoc
// @Summary WebSocket chat demo
// @Description Upgrades to a WebSocket. Each text message is echoed to the sender and broadcast to the other clients. A client id that is already connected is closed with 1008 (policy violation).
// @Tags websocket
// @Param client_id path string true "Client identifier"
// @Success 101
// @Router /ws_example/ws/{client_id} [get]
func (h *Handler) Serve(c echo.Context) error {
	id := c.Param("client_id")
	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		// Accept has already written the HTTP error response.
		h.log.WithError(err).WithField("client_id", id).Debug("websocket upgrade failed")
		return nil
	}
	defer conn.CloseNow()

	if !h.hub.Register(id, &socket{conn: conn}) {
		h.log.WithField("client_id", id).Warn("websocket client id already connected")
		_ = conn.Close(websocket.StatusPolicyViolation, "client id already connected")
		return nil
	}
	metrics.WebSocketConnected(1)

	ctx := c.Request().Context()
	h.hub.Broadcast(ctx, fmt.Sprintf("System: Client '%s' joined the session.", id), "")

	err = h.relay(ctx, conn, id)

	h.hub.Unregister(id)
	metrics.WebSocketConnected(-1)
	h.hub.Broadcast(context.WithoutCancel(ctx), fmt.Sprintf("System: Client '%s' left the session.", id), "")

	status := websocket.CloseStatus(err)
	if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
		h.log.WithError(err).WithField("client_id", id).Debug("websocket closed")
	}
	return nil
}

func (h *Handler) relay(ctx context.Context, conn *websocket.Conn, id string) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			continue
		}
		msg := string(data)
		if err := h.hub.Send(ctx, id, fmt.Sprintf("You (%s) sent: %s", id, msg)); err != nil {
			return err
		}
		h.hub.Broadcast(ctx, fmt.Sprintf("Client '%s' says: %s", id, msg), id)
	}
}
