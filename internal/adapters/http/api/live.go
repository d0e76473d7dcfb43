// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/playdeck/liverank/internal/adapters/broadcast"
	"github.com/playdeck/liverank/pkg/logger"
)

const (
	// Time allowed to write an update to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// LiveDependencies defines the interface for live update subscriptions.
type LiveDependencies interface {
	Subscribe(ctx context.Context, room string) (*broadcast.Subscription, error)
	Unsubscribe(ctx context.Context, sub *broadcast.Subscription)
}

// LiveHandler streams rank updates over a websocket. A connection with a
// game query parameter receives that game's updates; without one it
// receives updates across all games.
type LiveHandler struct {
	deps     LiveDependencies
	upgrader websocket.Upgrader
}

// NewLiveHandler creates a new live handler.
func NewLiveHandler(deps LiveDependencies) *LiveHandler {
	return &LiveHandler{
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// HandleLive handles GET /live and GET /live?game={gameID} requests.
func (h *LiveHandler) HandleLive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	room := broadcast.GlobalRoom
	if gameID := r.URL.Query().Get("game"); gameID != "" {
		room = broadcast.GameRoom(gameID)
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		logger.Get().Debug(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	sub, err := h.deps.Subscribe(r.Context(), room)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "subscribe failed"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	go h.readLoop(conn)
	h.writeLoop(r.Context(), conn, sub)
}

// readLoop discards inbound messages; the connection is one-way. It exists
// to process control frames and to notice when the peer goes away.
func (h *LiveHandler) readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			_ = conn.Close()
			return
		}
	}
}

func (h *LiveHandler) writeLoop(ctx context.Context, conn *websocket.Conn, sub *broadcast.Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.deps.Unsubscribe(ctx, sub)
		_ = conn.Close()
	}()

	for {
		select {
		case ev, ok := <-sub.Updates():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
