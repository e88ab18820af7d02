package services

import (
	"context"
	"time"

	"github.com/checkme-health/checkme-backend/internal/database"
)

const (
	presenceKeyPrefix = "presence:user:"
	// PresenceTTL bounds how stale an entry can get when a process dies
	// without unregistering; connections refresh it on every ping.
	PresenceTTL = 90 * time.Second
)

func presenceKey(userID string) string {
	return presenceKeyPrefix + userID
}

// SetUserOnline records that the user's active connection lives on this
// instance. Any instance can then resolve where to relay a targeted event.
func SetUserOnline(ctx context.Context, userID, instanceID string) error {
	return database.RedisClient.Set(ctx, presenceKey(userID), instanceID, PresenceTTL).Err()
}

// RefreshPresence extends the TTL on an existing presence entry.
func RefreshPresence(ctx context.Context, userID, instanceID string) {
	_ = database.RedisClient.Set(ctx, presenceKey(userID), instanceID, PresenceTTL).Err()
}

// SetUserOffline removes the presence entry, but only when it still points at
// this instance; a reconnect to another instance must not be clobbered by the
// old connection's teardown.
func SetUserOffline(ctx context.Context, userID, instanceID string) {
	current, err := database.RedisClient.Get(ctx, presenceKey(userID)).Result()
	if err != nil || current != instanceID {
		return
	}
	_ = database.RedisClient.Del(ctx, presenceKey(userID)).Err()
}

// LookupInstance resolves which instance holds the user's connection.
// ok is false when the user is offline.
func LookupInstance(ctx context.Context, userID string) (string, bool) {
	instanceID, err := database.RedisClient.Get(ctx, presenceKey(userID)).Result()
	if err != nil || instanceID == "" {
		return "", false
	}
	return instanceID, true
}
