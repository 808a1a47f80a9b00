package statusfeed

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/fixpoint-io/fixpoint-api/internal/authz"
	"github.com/rs/zerolog"
)

// Handler upgrades dashboard connections and pumps hub frames to them.
type Handler struct {
	hub    *Hub
	logger zerolog.Logger
}

func NewHandler(hub *Hub, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:    hub,
		logger: logger.With().Str("component", "statusfeed_handler").Logger(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ident, ok := authz.IdentityFromRequest(r)
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.CloseNow() //nolint:errcheck

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	frames, unsubscribe := h.hub.Subscribe(ident.UserID)
	defer unsubscribe()

	// Drain inbound frames so pings and closes are processed; the feed is
	// one-way, anything a client sends is discarded.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	h.logger.Debug().Str("user_id", ident.UserID).Msg("feed client connected")
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := wsjson.Write(ctx, conn, frame); err != nil {
				h.logger.Debug().Err(err).Str("user_id", ident.UserID).Msg("feed client write failed")
				return
			}
		}
	}
}
