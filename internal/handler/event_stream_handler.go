package handler

import (
	"design-analysis-be/internal/pkg/logger"
	"design-analysis-be/internal/pkg/serverutils"
	internalWS "design-analysis-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// EventStreamHandler upgrades authenticated requests to a websocket that
// receives the caller's analysis lifecycle events.
type EventStreamHandler struct {
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewEventStreamHandler(hub *internalWS.Hub, log logger.ILogger) *EventStreamHandler {
	return &EventStreamHandler{hub: hub, logger: log}
}

func (h *EventStreamHandler) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	r.Get("/events/v1/ws", auth, h.ServeWs)
}

func (h *EventStreamHandler) ServeWs(c *fiber.Ctx) error {
	userID, err := serverutils.UserId(c)
	if err != nil {
		return err
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("EventStreamHandler", "Starting WebSocket session", map[string]interface{}{"user_id": userID})
		internalWS.ServeWs(h.hub, conn, userID)
		h.logger.Info("EventStreamHandler", "WebSocket session ended", map[string]interface{}{"user_id": userID})
	})(c)
}
