package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/room-tracker/internal/application"
	"github.com/example/room-tracker/internal/notify"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type roomSubscriber interface {
	Subscribe() (*notify.Subscription[[]application.Room], error)
}

// SubscribeHandler streams room list snapshots over a websocket.
type SubscribeHandler struct {
	hub       roomSubscriber
	rooms     roomReader
	upgrader  websocket.Upgrader
	responder responder
	logger    *slog.Logger
}

// NewSubscribeHandler constructs a handler. checkOrigin may be nil to accept
// same-origin requests only.
func NewSubscribeHandler(hub roomSubscriber, rooms roomReader, checkOrigin func(*http.Request) bool, logger *slog.Logger) *SubscribeHandler {
	base := defaultLogger(logger)
	return &SubscribeHandler{
		hub:   hub,
		rooms: rooms,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *SubscribeHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.hub == nil || h.rooms == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := handlerLogger(r.Context(), h.logger, "SubscribeHandler", "Subscribe", "remote_addr", r.RemoteAddr)

	// Subscribe before reading the initial snapshot so no change is missed in between.
	sub, err := h.hub.Subscribe()
	if err != nil {
		logger.WarnContext(r.Context(), "subscription refused", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusServiceUnavailable, err)
		return
	}
	defer sub.Close()

	initial, err := h.rooms.ListRooms(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	logger.InfoContext(r.Context(), "subscriber connected")
	defer logger.InfoContext(r.Context(), "subscriber disconnected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go h.readPump(conn, cancel)

	if err := writeSnapshot(conn, initial); err != nil {
		logger.DebugContext(ctx, "initial snapshot write failed", "error", err)
		return
	}
	h.writePump(ctx, conn, sub, logger)
}

// readPump discards client messages and keeps the pong deadline fresh. It
// cancels the stream when the peer goes away.
func (h *SubscribeHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *SubscribeHandler) writePump(ctx context.Context, conn *websocket.Conn, sub *notify.Subscription[[]application.Room], logger *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case rooms, ok := <-sub.C():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Now().Add(writeWait))
				return
			}
			if err := writeSnapshot(conn, rooms); err != nil {
				logger.DebugContext(ctx, "snapshot write failed", "error", err)
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

func writeSnapshot(conn *websocket.Conn, rooms []application.Room) error {
	payload, err := EncodeRoomList(rooms)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, payload)
}
