package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/checkme-health/checkme-backend/internal/database"
	"github.com/redis/go-redis/v9"
)

// Template identifiers understood by the notification provider.
const (
	TemplateAppointmentConfirmation = "appointment-confirmation"
	TemplateAppointmentUpdate       = "appointment-update"
)

const (
	notifyQueueKey    = "notify:queue"
	notifyMaxAttempts = 5
)

// Notification is a templated message request for the provider.
type Notification struct {
	RecipientEmail string            `json:"recipient_email"`
	Title          string            `json:"title"`
	TemplateID     string            `json:"template_id"`
	TemplateData   map[string]string `json:"template_data"`
	Attempts       int               `json:"attempts"`
}

// Notifier is the delivery side of the notification collaborator.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// HTTPNotifier posts templated messages to the provider endpoint.
type HTTPNotifier struct {
	URL    string
	APIKey string
	Client *http.Client
}

func NewHTTPNotifier(url, apiKey string) *HTTPNotifier {
	return &HTTPNotifier{
		URL:    url,
		APIKey: apiKey,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (h *HTTPNotifier) Send(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.APIKey)

	resp, err := h.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification provider returned %d", resp.StatusCode)
	}
	return nil
}

// EnqueueNotification queues a notification for the background worker. The
// caller's request has already been persisted and answered; delivery failures
// never surface as request failures.
func EnqueueNotification(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return database.RedisClient.LPush(ctx, notifyQueueKey, data).Err()
}

var notifyWorkerStarted sync.Once

// StartNotificationWorker runs the dispatch loop: pop, send, and on failure
// requeue with exponential backoff until the attempt budget is spent.
func StartNotificationWorker(ctx context.Context, notifier Notifier) {
	notifyWorkerStarted.Do(func() {
		go runNotificationWorker(ctx, notifier)
	})
}

func runNotificationWorker(ctx context.Context, notifier Notifier) {
	log.Println("✅ Notification worker started")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := database.RedisClient.BRPop(ctx, 5*time.Second, notifyQueueKey).Result()
		if err != nil {
			if err == redis.Nil {
				continue // queue empty
			}
			if ctx.Err() != nil {
				return
			}
			log.Printf("notify: queue pop failed: %v", err)
			time.Sleep(time.Second)
			continue
		}

		// BRPop returns [key, value]
		if len(res) != 2 {
			continue
		}

		var n Notification
		if err := json.Unmarshal([]byte(res[1]), &n); err != nil {
			log.Printf("notify: dropping malformed entry: %v", err)
			continue
		}

		if err := notifier.Send(ctx, n); err != nil {
			n.Attempts++
			if n.Attempts >= notifyMaxAttempts {
				log.Printf("notify: giving up on %s to %s after %d attempts: %v",
					n.TemplateID, n.RecipientEmail, n.Attempts, err)
				continue
			}
			log.Printf("notify: send failed (attempt %d): %v", n.Attempts, err)
			go requeueAfter(ctx, n, RetryDelay(n.Attempts))
			continue
		}
	}
}

// RetryDelay is the backoff before attempt n+1: 1s, 2s, 4s... capped at 30s.
func RetryDelay(attempts int) time.Duration {
	delay := time.Second << (attempts - 1)
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	return delay
}

func requeueAfter(ctx context.Context, n Notification, delay time.Duration) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(delay):
	}
	if err := EnqueueNotification(ctx, n); err != nil {
		log.Printf("notify: requeue failed: %v", err)
	}
}
