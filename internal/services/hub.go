package services

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/checkme-health/checkme-backend/internal/models"
)

// Gateway event names, shared with the frontend clients.
const (
	EventSendTextMessage     = "send-text-message"
	EventSendDocumentMessage = "send-document-message"
	EventReadMessages        = "read-messages"
	EventTextMessageReceived = "text-message-received"
	EventDocumentReceived    = "document-message-received"
	EventUserStatus          = "user-status"
	EventVideoCallOffer      = "video-call-offer"
	EventVideoCallAnswer     = "video-call-answer"
	EventIceCandidate        = "ice-candidate"
	EventCallEnded           = "call-ended"
	EventError               = "error"
)

// Event is the payload relayed over Redis and WebSocket.
type Event struct {
	Type       string          `json:"type"`
	SenderID   string          `json:"sender_id,omitempty"`
	ReceiverID string          `json:"receiver_id,omitempty"`
	ChatID     string          `json:"chat_id,omitempty"`
	Message    *models.Message `json:"message,omitempty"`
	UserID     string          `json:"user_id,omitempty"`
	Status     string          `json:"status,omitempty"` // "online" / "offline"
	Signal     json.RawMessage `json:"signal,omitempty"` // SDP offer/answer, ICE candidate
	Accepted   bool            `json:"accepted,omitempty"`
	Error      string          `json:"error,omitempty"`
	Timestamp  time.Time       `json:"timestamp,omitempty"`
}

// Conn is the minimal interface the gateway's WebSocket connections satisfy.
// Kept small so hub behavior is testable without sockets.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Hub maps user ids to this instance's live connections. One connection per
// user; a reconnect replaces the previous entry.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]Conn)}
}

// DefaultHub is the process-wide hub the gateway and relay share.
var DefaultHub = NewHub()

// Register binds a user's connection, closing any previous one.
func (h *Hub) Register(userID string, conn Conn) {
	h.mu.Lock()
	prev := h.conns[userID]
	h.conns[userID] = conn
	h.mu.Unlock()

	if prev != nil && prev != conn {
		_ = prev.Close()
	}
}

// Unregister removes the user's connection, but only when it is still the
// given one; a newer connection registered by a reconnect stays.
func (h *Hub) Unregister(userID string, conn Conn) {
	h.mu.Lock()
	if h.conns[userID] == conn {
		delete(h.conns, userID)
	}
	h.mu.Unlock()
}

// Deliver writes an event to the user's local connection. Returns false when
// the user has no connection on this instance.
func (h *Hub) Deliver(userID string, evt Event) bool {
	h.mu.RLock()
	conn, ok := h.conns[userID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	if err := conn.WriteJSON(evt); err != nil {
		log.Printf("hub: write to user %s failed: %v", userID, err)
		return false
	}
	return true
}

// Broadcast writes an event to every local connection. Used only for
// presence-status events; message delivery is always targeted.
func (h *Hub) Broadcast(evt Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for userID, conn := range h.conns {
		if err := conn.WriteJSON(evt); err != nil {
			log.Printf("hub: broadcast to user %s failed: %v", userID, err)
		}
	}
}

// Connected reports whether the user has a connection on this instance.
func (h *Hub) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[userID]
	return ok
}
