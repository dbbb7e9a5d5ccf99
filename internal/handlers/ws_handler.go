package handlers

import (
	"net/http"
	"time"

	"github.com/NuoNuo720/TheNuo2/internal/models"
	"github.com/NuoNuo720/TheNuo2/internal/realtime"
	"github.com/NuoNuo720/TheNuo2/internal/services"
	jwtutil "github.com/NuoNuo720/TheNuo2/pkg/jwt"
	"github.com/NuoNuo720/TheNuo2/pkg/logger"
	"github.com/NuoNuo720/TheNuo2/pkg/middleware"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// clientFrame is what connected clients send upstream.
type clientFrame struct {
	Type       string `json:"type"` // "message", "typing", "ack"
	ReceiverID string `json:"receiverId,omitempty"`
	Content    string `json:"content,omitempty"`
	Typing     bool   `json:"typing,omitempty"`
	EventID    string `json:"eventId,omitempty"`
}

// WSHandler owns the websocket endpoint: it authenticates the connection,
// hands it to the registry, replays the outbox and then pumps client frames.
type WSHandler struct {
	Registry     *realtime.Registry
	Router       *realtime.Router
	Chat         *services.ChatService
	JWTSecret    string
	PingInterval time.Duration
}

func NewWSHandler(registry *realtime.Registry, router *realtime.Router, chat *services.ChatService, jwtSecret string, pingInterval time.Duration) *WSHandler {
	return &WSHandler{
		Registry:     registry,
		Router:       router,
		Chat:         chat,
		JWTSecret:    jwtSecret,
		PingInterval: pingInterval,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the connection and runs its read pump until the client
// goes away or the heartbeat times out.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}
	claims, err := jwtutil.ValidateToken(token, h.JWTSecret)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		logger.Log.Warnf("WebSocket auth failed: %v", err)
		return
	}
	userID := models.UserID(claims.UserID)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	handle := realtime.NewWSConn(conn)
	h.Registry.Register(userID, handle)
	logger.Log.Infof("WebSocket connected: %s", userID)

	// Anything that piled up while the user was offline goes out first.
	h.Router.Replay(r.Context(), userID)

	done := make(chan struct{})
	defer func() {
		close(done)
		h.Registry.Unregister(userID, handle)
		logger.Log.Infof("WebSocket disconnected: %s", userID)
	}()

	pongWait := 2 * h.PingInterval
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go h.ping(handle, done)

	for {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Warnf("WebSocket read error for %s: %v", userID, err)
			}
			return
		}

		switch frame.Type {
		case "ack":
			h.Router.Ack(r.Context(), userID, frame.EventID)

		case "typing":
			// Live-only relay; a typing signal is worthless later.
			h.Registry.Send(models.UserID(frame.ReceiverID), models.NewEvent(
				models.EventTyping, userID, models.UserID(frame.ReceiverID),
				map[string]interface{}{"typing": frame.Typing},
			))

		case "", "message":
			msg, err := h.Chat.SendMessage(r.Context(), userID, models.UserID(frame.ReceiverID), frame.Content)
			if err != nil {
				logger.Log.Warnf("Rejected message from %s to %s: %v", userID, frame.ReceiverID, err)
				continue
			}
			// Echo to the sender's own devices so every client converges.
			h.Registry.Send(userID, models.NewEvent(models.EventMessageSent, userID, userID, map[string]interface{}{
				"message": msg,
			}))
		}
	}
}

func (h *WSHandler) ping(handle *realtime.WSConn, done <-chan struct{}) {
	ticker := time.NewTicker(h.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := handle.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.PingInterval)); err != nil {
				return
			}
		}
	}
}

// GetChatHistory returns the conversation with one friend.
func (h *WSHandler) GetChatHistory(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	friendID := models.UserID(mux.Vars(r)["friendId"])
	messages, err := h.Chat.GetChat(r.Context(), models.UserID(claims.UserID), friendID)
	if err != nil {
		http.Error(w, "Failed to get chat history", http.StatusInternalServerError)
		logger.Log.Errorf("Failed to load chat history for %s: %v", claims.UserID, err)
		return
	}

	respondJSON(w, http.StatusOK, messages)
}
