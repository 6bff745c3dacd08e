package store

import (
	"net/http"
	"time"

	"github.com/frahmantamala/plant-maintenance/internal/auth"
	"github.com/frahmantamala/plant-maintenance/internal/transport"
	"github.com/frahmantamala/plant-maintenance/pkg/logger"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 4
)

type WebsocketHandler struct {
	*transport.BaseHandler
	Hub      *Hub
	upgrader websocket.Upgrader
}

func NewWebsocketHandler(hub *Hub, allowedOrigins []string) *WebsocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return &WebsocketHandler{
		BaseHandler: transport.NewBaseHandler(logger.LoggerWrapper()),
		Hub:         hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// Subscribe upgrades to a websocket and streams snapshots of ?collection= until the
// client goes away.
func (h *WebsocketHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.HandleError(w, auth.ErrProfileNotFound)
		return
	}

	collection := r.URL.Query().Get("collection")
	if !h.Hub.Known(collection) {
		h.HandleError(w, ErrUnknownCollection)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", "error", err, "collection", collection)
		return
	}
	defer conn.Close()

	// A slow reader only needs the latest snapshot, so older queued ones are discarded.
	send := make(chan Snapshot, sendBuffer)
	onChange := func(s Snapshot) {
		for {
			select {
			case send <- s:
				return
			default:
			}
			select {
			case <-send:
			default:
			}
		}
	}

	ctx := r.Context()
	unsubscribe, err := h.Hub.Subscribe(ctx, collection, principal, onChange)
	if err != nil {
		h.Logger.Warn("subscription refused", "error", err, "collection", collection, "user_id", principal.ID)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()),
			time.Now().Add(writeWait))
		return
	}
	defer unsubscribe()

	closed := make(chan struct{})
	go h.readPump(conn, closed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case snap := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snap); err != nil {
				h.Logger.Debug("websocket write failed", "error", err, "collection", collection)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-ctx.Done():
			return
		}
	}
}

// readPump consumes client frames so pongs and close frames are processed.
func (h *WebsocketHandler) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
