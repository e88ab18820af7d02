package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/checkme-health/checkme-backend/internal/models"
	"github.com/checkme-health/checkme-backend/internal/services"
	"github.com/gorilla/websocket"
)

var gatewayUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, allowed := range appConfig.AllowedOrigins {
			if strings.EqualFold(origin, allowed) {
				return true
			}
		}
		return !appConfig.IsProduction()
	},
}

// clientFrame is what a connected client sends over the socket. The type field
// selects the action; the rest is per-type payload.
type clientFrame struct {
	Type       string          `json:"type"`
	ReceiverID string          `json:"receiver_id,omitempty"`
	ChatID     string          `json:"chat_id,omitempty"`
	Text       string          `json:"text,omitempty"`
	Document   string          `json:"document,omitempty"` // base64 payload
	FileName   string          `json:"file_name,omitempty"`
	Signal     json.RawMessage `json:"signal,omitempty"`
	Accepted   bool            `json:"accepted,omitempty"`
}

// wsConn wraps a gorilla connection with the write lock WriteJSON needs when
// the relay subscriber and the read loop both deliver to the same socket.
type wsConn struct {
	*websocket.Conn
	writeMu sync.Mutex
}

func (c *wsConn) WriteJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteJSON(v)
}

// GatewayHandler upgrades an authenticated client to the realtime gateway:
// messaging, read receipts, presence updates and call signaling all flow over
// this one socket.
func GatewayHandler(w http.ResponseWriter, r *http.Request) {
	token := extractGatewayToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Missing session token")
		return
	}
	ident, ok, err := services.ValidateSession(r.Context(), token)
	if err != nil || !ok {
		writeError(w, http.StatusUnauthorized, "Invalid session token")
		return
	}

	conn, err := gatewayUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("gateway: upgrade failed for %s: %v", ident.ID, err)
		return
	}

	handleGatewaySession(r.Context(), ident.ID, &wsConn{Conn: conn})
}

// extractGatewayToken accepts the Authorization header or, for browser
// WebSocket clients that cannot set headers, a token query parameter.
func extractGatewayToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func handleGatewaySession(ctx context.Context, userID string, conn *wsConn) {
	instanceID := appConfig.InstanceID

	services.DefaultHub.Register(userID, conn)
	if err := services.SetUserOnline(ctx, userID, instanceID); err != nil {
		log.Printf("gateway: presence registration failed for %s: %v", userID, err)
	}
	_ = services.PublishStatus(ctx, services.Event{
		Type:   services.EventUserStatus,
		UserID: userID,
		Status: "online",
	})
	log.Printf("gateway: user %s connected on %s", userID, instanceID)

	defer func() {
		services.DefaultHub.Unregister(userID, conn)
		services.SetUserOffline(context.Background(), userID, instanceID)
		_ = services.PublishStatus(context.Background(), services.Event{
			Type:   services.EventUserStatus,
			UserID: userID,
			Status: "offline",
		})
		conn.Close()
		log.Printf("gateway: user %s disconnected", userID)
	}()

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(services.PresenceTTL))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(services.PresenceTTL))
		services.RefreshPresence(context.Background(), userID, instanceID)
		return nil
	})

	for {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("gateway: read error for %s: %v", userID, err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(services.PresenceTTL))
		services.RefreshPresence(ctx, userID, instanceID)

		dispatchFrame(ctx, userID, conn, frame)
	}
}

func dispatchFrame(ctx context.Context, userID string, conn services.Conn, frame clientFrame) {
	switch frame.Type {
	case services.EventSendTextMessage:
		gatewayTextMessage(ctx, userID, conn, frame)
	case services.EventSendDocumentMessage:
		gatewayDocumentMessage(ctx, userID, conn, frame)
	case services.EventReadMessages:
		gatewayReadMessages(ctx, userID, conn, frame)
	case services.EventVideoCallOffer, services.EventIceCandidate:
		gatewaySignal(ctx, userID, conn, frame)
	case services.EventVideoCallAnswer:
		gatewayCallAnswer(ctx, userID, conn, frame)
	case services.EventCallEnded:
		gatewayCallEnded(ctx, userID, conn, frame)
	default:
		sendGatewayError(conn, "Unknown event type: "+frame.Type)
	}
}

// gatewayReceiverKnown mirrors the HTTP path's directory check so a socket
// client cannot durably create a chat against a nonexistent id.
func gatewayReceiverKnown(conn services.Conn, receiverID string) bool {
	participants, err := services.ResolveParticipants([]string{receiverID})
	if err != nil {
		sendGatewayError(conn, "Could not verify the receiver")
		return false
	}
	if p, ok := participants[receiverID]; !ok || p.Type == "" {
		sendGatewayError(conn, "There is no user with that ID")
		return false
	}
	return true
}

func gatewayTextMessage(ctx context.Context, userID string, conn services.Conn, frame clientFrame) {
	if frame.ReceiverID == "" || frame.Text == "" {
		sendGatewayError(conn, "Please provide a receiver and a message")
		return
	}
	if frame.ReceiverID == userID {
		sendGatewayError(conn, "You cannot message yourself")
		return
	}
	if !gatewayReceiverKnown(conn, frame.ReceiverID) {
		return
	}

	msg := models.Message{
		SenderID:   userID,
		ReceiverID: frame.ReceiverID,
		Text:       frame.Text,
		SentAt:     time.Now().UTC(),
	}
	chat, err := services.AppendMessage(ctx, msg)
	if err != nil {
		log.Printf("gateway: persist message from %s failed: %v", userID, err)
		sendGatewayError(conn, "Message could not be saved")
		return
	}

	relayAndAck(ctx, conn, chat, msg, services.EventTextMessageReceived)
}

func gatewayDocumentMessage(ctx context.Context, userID string, conn services.Conn, frame clientFrame) {
	if frame.ReceiverID == "" || frame.Document == "" {
		sendGatewayError(conn, "Please provide the document to upload.")
		return
	}
	if frame.ReceiverID == userID {
		sendGatewayError(conn, "You cannot message yourself")
		return
	}
	if !gatewayReceiverKnown(conn, frame.ReceiverID) {
		return
	}
	if cloudinaryService == nil {
		sendGatewayError(conn, "Upload service is not available")
		return
	}

	payload, err := base64.StdEncoding.DecodeString(frame.Document)
	if err != nil {
		sendGatewayError(conn, "Document payload must be base64 encoded")
		return
	}

	uploadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	url, err := cloudinaryService.UploadBytes(uploadCtx, payload, "chat-documents")
	if err != nil {
		log.Printf("gateway: document upload from %s failed: %v", userID, err)
		sendGatewayError(conn, "Document upload failed")
		return
	}

	msg := models.Message{
		SenderID:   userID,
		ReceiverID: frame.ReceiverID,
		Text:       frame.Text,
		Document:   url,
		SentAt:     time.Now().UTC(),
	}
	chat, err := services.AppendMessage(ctx, msg)
	if err != nil {
		log.Printf("gateway: persist document from %s failed: %v", userID, err)
		sendGatewayError(conn, "Message could not be saved")
		return
	}

	relayAndAck(ctx, conn, chat, msg, services.EventDocumentReceived)
}

// relayAndAck echoes the stored message back to the sender and relays it to
// the receiver's instance when the presence registry knows them.
func relayAndAck(ctx context.Context, conn services.Conn, chat *models.Chat, msg models.Message, eventType string) {
	evt := services.Event{
		Type:       eventType,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		ChatID:     chat.ID.Hex(),
		Message:    &msg,
		Timestamp:  time.Now().UTC(),
	}

	if err := conn.WriteJSON(evt); err != nil {
		log.Printf("gateway: ack to %s failed: %v", msg.SenderID, err)
	}

	services.InvalidateChatLists(ctx, msg.SenderID, msg.ReceiverID)

	if _, online := services.LookupInstance(ctx, msg.ReceiverID); !online {
		return
	}
	if err := services.PublishToUser(ctx, msg.ReceiverID, evt); err != nil {
		log.Printf("gateway: relay to %s failed: %v", msg.ReceiverID, err)
	}
}

func gatewayReadMessages(ctx context.Context, userID string, conn services.Conn, frame clientFrame) {
	if frame.ChatID == "" {
		sendGatewayError(conn, "Please provide a chat ID")
		return
	}

	// Same participant guard as the HTTP mark-read path; without it a caller
	// could seed foreign chat documents with their own counter key.
	chat, err := services.GetChatByID(ctx, frame.ChatID)
	if err != nil {
		if err == services.ErrChatNotFound {
			sendGatewayError(conn, "Chat not found")
			return
		}
		log.Printf("gateway: chat lookup for %s failed: %v", userID, err)
		sendGatewayError(conn, "Could not mark messages as read")
		return
	}
	if !isParticipant(chat, userID) {
		sendGatewayError(conn, "You are not part of this chat")
		return
	}

	if err := services.ResetUnreadCount(ctx, frame.ChatID, userID); err != nil {
		if err == services.ErrChatNotFound {
			sendGatewayError(conn, "Chat not found")
			return
		}
		log.Printf("gateway: reset unread for %s failed: %v", userID, err)
		sendGatewayError(conn, "Could not mark messages as read")
		return
	}
	services.InvalidateChatLists(ctx, userID)
}

// gatewaySignal forwards an offer or ICE candidate to the callee. Signaling
// is pure relay; nothing is persisted.
func gatewaySignal(ctx context.Context, userID string, conn services.Conn, frame clientFrame) {
	if frame.ReceiverID == "" {
		sendGatewayError(conn, "Please provide a receiver")
		return
	}

	if _, online := services.LookupInstance(ctx, frame.ReceiverID); !online {
		// Tell the caller immediately instead of letting the offer ring out.
		_ = conn.WriteJSON(services.Event{
			Type:       services.EventCallEnded,
			SenderID:   frame.ReceiverID,
			ReceiverID: userID,
			Error:      "Receiver is not online.",
			Timestamp:  time.Now().UTC(),
		})
		return
	}

	_ = services.PublishToUser(ctx, frame.ReceiverID, services.Event{
		Type:       frame.Type,
		SenderID:   userID,
		ReceiverID: frame.ReceiverID,
		Signal:     frame.Signal,
	})
}

func gatewayCallAnswer(ctx context.Context, userID string, conn services.Conn, frame clientFrame) {
	if frame.ReceiverID == "" {
		sendGatewayError(conn, "Please provide a receiver")
		return
	}

	if !frame.Accepted {
		// A decline ends the call for the offering side.
		_ = services.PublishToUser(ctx, frame.ReceiverID, services.Event{
			Type:       services.EventCallEnded,
			SenderID:   userID,
			ReceiverID: frame.ReceiverID,
			Error:      "Call was declined.",
		})
		return
	}

	_ = services.PublishToUser(ctx, frame.ReceiverID, services.Event{
		Type:       services.EventVideoCallAnswer,
		SenderID:   userID,
		ReceiverID: frame.ReceiverID,
		Signal:     frame.Signal,
		Accepted:   true,
	})
}

func gatewayCallEnded(ctx context.Context, userID string, conn services.Conn, frame clientFrame) {
	if frame.ReceiverID == "" {
		sendGatewayError(conn, "Please provide a receiver")
		return
	}

	evt := services.Event{
		Type:       services.EventCallEnded,
		SenderID:   userID,
		ReceiverID: frame.ReceiverID,
	}
	_ = services.PublishToUser(ctx, frame.ReceiverID, evt)
	// Echo to the hangup side too so every client tears down the same way.
	_ = conn.WriteJSON(evt)
}

func sendGatewayError(conn services.Conn, message string) {
	_ = conn.WriteJSON(services.Event{
		Type:      services.EventError,
		Error:     message,
		Timestamp: time.Now().UTC(),
	})
}
