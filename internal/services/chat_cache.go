package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/checkme-health/checkme-backend/internal/database"
	"github.com/checkme-health/checkme-backend/internal/models"
)

const (
	chatListKeyPrefix = "chat:list:"
	chatListTTL       = 60 * time.Second
)

func chatListKey(userID string) string {
	return chatListKeyPrefix + userID
}

// EnrichedChat is what chat listings return: the stored document with its
// participant ids replaced by directory profiles.
type EnrichedChat struct {
	ID           string               `json:"id"`
	Participants []models.Participant `json:"participants"`
	Messages     []models.Message     `json:"messages"`
	UnreadCounts map[string]int       `json:"unreadCounts"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

// GetCachedChatList returns a user's enriched chat list on cache hit.
func GetCachedChatList(ctx context.Context, userID string) ([]EnrichedChat, bool) {
	if database.RedisClient == nil {
		return nil, false
	}

	raw, err := database.RedisClient.Get(ctx, chatListKey(userID)).Result()
	if err != nil || raw == "" {
		return nil, false
	}

	var chats []EnrichedChat
	if err := json.Unmarshal([]byte(raw), &chats); err != nil {
		return nil, false
	}
	return chats, true
}

// SetCachedChatList stores a user's enriched chat list with a short TTL; the
// list changes on every send, so the TTL is the staleness bound when an
// invalidation is missed.
func SetCachedChatList(ctx context.Context, userID string, chats []EnrichedChat) {
	if database.RedisClient == nil {
		return
	}

	data, err := json.Marshal(chats)
	if err != nil {
		return
	}
	if err := database.RedisClient.Set(ctx, chatListKey(userID), data, chatListTTL).Err(); err != nil {
		log.Printf("chat_cache: set failed for user %s: %v", userID, err)
	}
}

// InvalidateChatLists drops the cached listing for each participant. Called
// after a send or a read-state change.
func InvalidateChatLists(ctx context.Context, userIDs ...string) {
	if database.RedisClient == nil {
		return
	}

	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, chatListKey(id))
	}
	if err := database.RedisClient.Del(ctx, keys...).Err(); err != nil {
		log.Printf("chat_cache: invalidate failed: %v", err)
	}
}
