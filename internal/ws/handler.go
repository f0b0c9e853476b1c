package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/RyanMercier/gambleapp-sub000/internal/proto"
	"github.com/RyanMercier/gambleapp-sub000/internal/room"
)

// Handler upgrades client connections and runs their read loop against a
// room: frames in, intents delivered; read failure or disconnect becomes an
// implicit leave.
type Handler struct {
	mgr      *room.Manager
	upgrader websocket.Upgrader
	log      *logrus.Entry
}

// NewHandler builds the websocket endpoint. allowedOrigin of "*" accepts any
// origin; anything else must match the request's Origin header exactly.
func NewHandler(mgr *room.Manager, allowedOrigin string, logger *logrus.Logger) *Handler {
	return &Handler{
		mgr: mgr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
		log: logger.WithField("component", "ws"),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomID"]
	rm, ok := h.mgr.Get(roomID)
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	username := r.URL.Query().Get("username")

	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Debug("upgrade failed")
		return
	}

	conn := newConn(wsConn)
	sessionID, err := rm.Join(conn, username)
	if err != nil {
		deadline := time.Now().Add(time.Second)
		wsConn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()), deadline)
		conn.Close()
		return
	}
	defer rm.Leave(sessionID)

	log := h.log.WithFields(logrus.Fields{"room": roomID, "session": sessionID})
	wsConn.SetReadLimit(maxMessageSize)

	for {
		_, payload, err := wsConn.ReadMessage()
		if err != nil {
			// Transport loss follows the same path as an explicit leave.
			return
		}
		var msg proto.ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.WithError(err).Debug("discarding malformed frame")
			continue
		}
		rm.Deliver(sessionID, msg)
	}
}
