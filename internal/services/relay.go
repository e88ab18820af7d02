package services

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/checkme-health/checkme-backend/internal/database"
)

const (
	relayUserPrefix    = "relay:user:"
	relayStatusChannel = "relay:status"
)

var relayStarted sync.Once

// PublishToUser relays a targeted event to whichever instance holds the
// user's connection. Publishing to an offline user is a no-op; callers that
// need offline detection check the presence registry first.
func PublishToUser(ctx context.Context, userID string, evt Event) error {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return database.RedisClient.Publish(ctx, relayUserPrefix+userID, data).Err()
}

// PublishStatus broadcasts a presence-status event to every instance.
func PublishStatus(ctx context.Context, evt Event) error {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return database.RedisClient.Publish(ctx, relayStatusChannel, data).Err()
}

// StartRelaySubscriber ensures a single shared Redis listener per instance.
func StartRelaySubscriber(ctx context.Context) {
	relayStarted.Do(func() {
		go runRelaySubscriber(ctx)
	})
}

func runRelaySubscriber(ctx context.Context) {
	client := database.RedisClient
	if client == nil {
		log.Println("Redis client not initialized; relay subscriber not started")
		return
	}

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			pubsub := client.PSubscribe(ctx, relayUserPrefix+"*", relayStatusChannel)
			defer pubsub.Close()

			log.Println("✅ Relay subscriber started (relay:user:*, relay:status)")

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Printf("relay subscriber error: %v", err)
					time.Sleep(backoff)
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
					return
				}

				backoff = time.Second

				var evt Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					log.Printf("relay: failed to unmarshal event: %v", err)
					continue
				}

				if msg.Channel == relayStatusChannel {
					DefaultHub.Broadcast(evt)
					continue
				}
				DefaultHub.Deliver(strings.TrimPrefix(msg.Channel, relayUserPrefix), evt)
			}
		}()
	}
}
