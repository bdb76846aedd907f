package web

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pooltrack/pooltrack/internal/auth"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API already answers any origin; the session token gates access.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWebSocket streams change notifications to the dashboard so it can
// refetch without polling. Each connection only receives its own owner's
// events.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		s.writeErrorResponse(w, http.StatusServiceUnavailable, "Change feed not available")
		return
	}

	ownerID := auth.OwnerID(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		webLogger.Error().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := s.feed.Subscribe(ownerID)
	defer cancel()

	webLogger.Debug().Str("ownerId", ownerID).Msg("Websocket client connected")

	// Drain reads so close frames and connection drops are noticed.
	readClosed := make(chan struct{})
	go func() {
		defer close(readClosed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-events:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				webLogger.Debug().Err(err).Str("ownerId", ownerID).Msg("Websocket write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-readClosed:
			webLogger.Debug().Str("ownerId", ownerID).Msg("Websocket client disconnected")
			return
		case <-r.Context().Done():
			return
		}
	}
}
