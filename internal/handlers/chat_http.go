package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/checkme-health/checkme-backend/internal/config"
	"github.com/checkme-health/checkme-backend/internal/middleware"
	"github.com/checkme-health/checkme-backend/internal/models"
	"github.com/checkme-health/checkme-backend/internal/services"
	"github.com/go-chi/chi/v5"
)

var cloudinaryService *services.CloudinaryService

// InitCloudinaryService wires the upload collaborator. Called once from main;
// document messages 503 until it succeeds.
func InitCloudinaryService(cfg *config.Config) error {
	svc, err := services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		return err
	}
	cloudinaryService = svc
	return nil
}

// SendTextMessageRequest is the HTTP fallback for clients without a live
// WebSocket connection.
type SendTextMessageRequest struct {
	ReceiverID string `json:"receiverId"`
	Text       string `json:"text"`
}

// SendTextMessage persists a text message and relays it to the receiver's
// instance when they are online.
func SendTextMessage(w http.ResponseWriter, r *http.Request) {
	ident, _ := middleware.CallerIdentity(r)

	var req SendTextMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ReceiverID == "" || req.Text == "" {
		writeError(w, http.StatusBadRequest, "Please provide a receiver and a message")
		return
	}
	if req.ReceiverID == ident.ID {
		writeError(w, http.StatusBadRequest, "You cannot message yourself")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if !receiverExists(w, req.ReceiverID) {
		return
	}

	msg := models.Message{
		SenderID:   ident.ID,
		ReceiverID: req.ReceiverID,
		Text:       req.Text,
		SentAt:     time.Now().UTC(),
	}

	chat, err := services.AppendMessage(ctx, msg)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	finishDelivery(ctx, chat, msg, services.EventTextMessageReceived)

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"chatId":  chat.ID.Hex(),
		"message": msg,
	})
}

// SendDocumentMessage accepts a multipart upload, stores it and persists the
// resulting URL as a document message.
func SendDocumentMessage(w http.ResponseWriter, r *http.Request) {
	ident, _ := middleware.CallerIdentity(r)

	if cloudinaryService == nil {
		writeError(w, http.StatusServiceUnavailable, "Upload service is not available")
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	receiverID := r.FormValue("receiverId")
	if receiverID == "" {
		writeError(w, http.StatusBadRequest, "Please provide a receiver")
		return
	}
	if receiverID == ident.ID {
		writeError(w, http.StatusBadRequest, "You cannot message yourself")
		return
	}

	_, fileHeader, err := r.FormFile("document")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Please provide the document to upload.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if !receiverExists(w, receiverID) {
		return
	}

	url, err := cloudinaryService.UploadFileFromHeader(ctx, fileHeader, "chat-documents")
	if err != nil {
		writeInternalError(w, err)
		return
	}

	msg := models.Message{
		SenderID:   ident.ID,
		ReceiverID: receiverID,
		Text:       r.FormValue("text"),
		Document:   url,
		SentAt:     time.Now().UTC(),
	}

	chat, err := services.AppendMessage(ctx, msg)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	finishDelivery(ctx, chat, msg, services.EventDocumentReceived)

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"chatId":  chat.ID.Hex(),
		"message": msg,
	})
}

// receiverExists checks the directory for the receiver (either table) and
// writes the error response when they cannot be found.
func receiverExists(w http.ResponseWriter, receiverID string) bool {
	participants, err := services.ResolveParticipants([]string{receiverID})
	if err != nil {
		writeInternalError(w, err)
		return false
	}
	if p, ok := participants[receiverID]; !ok || p.Type == "" {
		writeError(w, http.StatusNotFound, "There is no user with that ID")
		return false
	}
	return true
}

// finishDelivery invalidates both participants' cached listings and relays the
// stored message to the receiver when the presence registry says they are
// reachable. Relay failures are logged, never surfaced: the message is already
// durable.
func finishDelivery(ctx context.Context, chat *models.Chat, msg models.Message, eventType string) {
	services.InvalidateChatLists(ctx, msg.SenderID, msg.ReceiverID)

	if _, online := services.LookupInstance(ctx, msg.ReceiverID); !online {
		return
	}
	evt := services.Event{
		Type:       eventType,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		ChatID:     chat.ID.Hex(),
		Message:    &msg,
	}
	if err := services.PublishToUser(ctx, msg.ReceiverID, evt); err != nil {
		log.Printf("chat: relay to %s failed: %v", msg.ReceiverID, err)
	}
}

// GetMyChats lists the caller's chats, participant profiles attached, newest
// activity first. Served from the Redis cache when fresh.
func GetMyChats(w http.ResponseWriter, r *http.Request) {
	ident, _ := middleware.CallerIdentity(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if cached, ok := services.GetCachedChatList(ctx, ident.ID); ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"results": len(cached),
			"chats":   cached,
		})
		return
	}

	chats, err := services.ListChatsForUser(ctx, ident.ID)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	enriched, err := enrichChats(chats)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	services.SetCachedChatList(ctx, ident.ID, enriched)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"results": len(enriched),
		"chats":   enriched,
	})
}

func enrichChats(chats []models.Chat) ([]services.EnrichedChat, error) {
	idSet := map[string]struct{}{}
	for _, c := range chats {
		for _, p := range c.Participants {
			idSet[p] = struct{}{}
		}
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	profiles, err := services.ResolveParticipants(ids)
	if err != nil {
		return nil, err
	}

	enriched := make([]services.EnrichedChat, 0, len(chats))
	for _, c := range chats {
		participants := make([]models.Participant, 0, len(c.Participants))
		for _, p := range c.Participants {
			participants = append(participants, profiles[p])
		}
		enriched = append(enriched, services.EnrichedChat{
			ID:           c.ID.Hex(),
			Participants: participants,
			Messages:     c.Messages,
			UnreadCounts: c.UnreadCounts,
			UpdatedAt:    c.UpdatedAt,
		})
	}
	return enriched, nil
}

// GetChatByID returns one chat with participant profiles attached. The caller
// must be a participant.
func GetChatByID(w http.ResponseWriter, r *http.Request) {
	ident, _ := middleware.CallerIdentity(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	chat, err := services.GetChatByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		if err == services.ErrChatNotFound {
			writeError(w, http.StatusNotFound, "Chat not found")
			return
		}
		writeInternalError(w, err)
		return
	}
	if !isParticipant(chat, ident.ID) {
		writeError(w, http.StatusForbidden, "You are not part of this chat")
		return
	}

	enriched, err := enrichChats([]models.Chat{*chat})
	if err != nil {
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"chat":    enriched[0],
	})
}

// MarkChatRead zeroes the caller's unread counter for a chat.
func MarkChatRead(w http.ResponseWriter, r *http.Request) {
	ident, _ := middleware.CallerIdentity(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	chatID := chi.URLParam(r, "id")
	chat, err := services.GetChatByID(ctx, chatID)
	if err != nil {
		if err == services.ErrChatNotFound {
			writeError(w, http.StatusNotFound, "Chat not found")
			return
		}
		writeInternalError(w, err)
		return
	}
	if !isParticipant(chat, ident.ID) {
		writeError(w, http.StatusForbidden, "You are not part of this chat")
		return
	}

	if err := services.ResetUnreadCount(ctx, chatID, ident.ID); err != nil {
		writeInternalError(w, err)
		return
	}
	services.InvalidateChatLists(ctx, ident.ID)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Messages marked as read",
	})
}

func isParticipant(chat *models.Chat, userID string) bool {
	for _, p := range chat.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
