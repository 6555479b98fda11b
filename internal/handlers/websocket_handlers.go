package handlers

import (
	"context"
	"net/http"

	"collab-rooms/internal/config"
	ws "collab-rooms/internal/websocket"
	"collab-rooms/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

type WebSocketHandlers struct {
	ctx      context.Context
	gateway  *ws.Gateway
	cfg      config.WebSocketConfig
	upgrader websocket.Upgrader
}

// NewWebSocketHandlers builds the socket endpoint. ctx bounds every event
// handled on the connections it accepts.
func NewWebSocketHandlers(ctx context.Context, gateway *ws.Gateway, cfg config.WebSocketConfig) *WebSocketHandlers {
	return &WebSocketHandlers{
		ctx:     ctx,
		gateway: gateway,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(cfg.AllowedOrigins),
		},
	}
}

func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Upgrade connection to WebSocket
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	client := ws.NewClient(conn, h.cfg.SendBuffer)
	h.gateway.Connect(client)
	logger.Info("Connection %s opened from %s", client.ID, r.RemoteAddr)

	// Start client pumps
	go client.WritePump()
	go client.ReadPump(h.ctx, h.gateway, h.cfg.MaxMessageSize)
}

// originChecker accepts requests without an Origin header, any origin when
// "*" is configured, and otherwise only the listed origins.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || lo.Contains(allowed, "*") {
			return true
		}
		return lo.Contains(allowed, origin)
	}
}
