package ws

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/campushub/gateway/internal/interfaces"
)

// Handler upgrades /ws/{user_id} requests and runs the read loop for the
// lifetime of each connection
type Handler struct {
	manager  *Manager
	router   *Router
	logger   interfaces.Logger
	upgrader websocket.Upgrader

	maxMessageBytes int64
	pongWait        time.Duration
}

// NewHandler creates the upgrade handler. allowedOrigins follows the CORS
// policy; "*" or an empty list accepts any origin.
func NewHandler(manager *Manager, router *Router, cfg interfaces.WebSocketConfig, allowedOrigins []string, logger interfaces.Logger) *Handler {
	pongWait := time.Duration(cfg.PingIntervalSeconds) * time.Second * 2
	if pongWait <= 0 {
		pongWait = 60 * time.Second
	}

	return &Handler{
		manager: manager,
		router:  router,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		maxMessageBytes: cfg.MaxMessageBytes,
		pongWait:        pongWait,
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// ServeHTTP handles GET /ws/{user_id}
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/ws"), "/")
	if userID == "" || strings.Contains(userID, "/") {
		http.Error(w, "user id required", http.StatusBadRequest)
		return
	}

	sock, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		if h.logger != nil {
			h.logger.Warn("WebSocket upgrade failed", map[string]any{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
		return
	}

	conn, err := h.manager.Register(userID, sock)
	if err != nil {
		sock.Close()
		return
	}

	h.readLoop(r, sock, conn)
}

// readLoop is the sole reader for the socket. Frames are dispatched in
// arrival order; any read error ends the connection.
func (h *Handler) readLoop(r *http.Request, sock *websocket.Conn, conn *Connection) {
	defer h.manager.Unregister(conn.UserID(), conn.ID())

	if h.maxMessageBytes > 0 {
		sock.SetReadLimit(h.maxMessageBytes)
	}
	sock.SetReadDeadline(time.Now().Add(h.pongWait))
	sock.SetPongHandler(func(string) error {
		return sock.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	for {
		msgType, data, err := sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				if h.logger != nil {
					h.logger.Debug("WebSocket read ended", map[string]any{
						"user_id": conn.UserID(),
						"error":   err.Error(),
					})
				}
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		h.router.HandleFrame(r.Context(), conn, data)
	}
}
