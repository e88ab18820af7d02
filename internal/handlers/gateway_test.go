package handlers

import (
	"context"
	"sync"
	"testing"

	"github.com/checkme-health/checkme-backend/internal/database"
	"github.com/checkme-health/checkme-backend/internal/services"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

// recordedConn captures gateway events so frame dispatch is testable without
// a WebSocket server.
type recordedConn struct {
	mu     sync.Mutex
	events []services.Event
}

func (c *recordedConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, v.(services.Event))
	return nil
}

func (c *recordedConn) Close() error { return nil }

func (c *recordedConn) lastError(t *testing.T) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		t.Fatal("no event written to the connection")
	}
	evt := c.events[len(c.events)-1]
	if evt.Type != services.EventError {
		t.Fatalf("last event type = %q, want %q", evt.Type, services.EventError)
	}
	return evt.Error
}

func TestDispatchFrameRejectsUnknownReceiver(t *testing.T) {
	// An id the directory cannot resolve must be rejected before anything is
	// persisted, matching the HTTP send path.
	tests := []struct {
		name  string
		frame clientFrame
	}{
		{"text message", clientFrame{
			Type:       services.EventSendTextMessage,
			ReceiverID: "not-a-directory-id",
			Text:       "hi",
		}},
		{"document message", clientFrame{
			Type:       services.EventSendDocumentMessage,
			ReceiverID: "not-a-directory-id",
			Document:   "aGVsbG8=",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &recordedConn{}
			dispatchFrame(context.Background(), "caller", conn, tt.frame)
			if got := conn.lastError(t); got != "There is no user with that ID" {
				t.Fatalf("error = %q", got)
			}
		})
	}
}

func TestDispatchFrameRejectsSelfMessage(t *testing.T) {
	conn := &recordedConn{}
	dispatchFrame(context.Background(), "caller", conn, clientFrame{
		Type:       services.EventSendTextMessage,
		ReceiverID: "caller",
		Text:       "hi",
	})
	if got := conn.lastError(t); got != "You cannot message yourself" {
		t.Fatalf("error = %q", got)
	}
}

func TestDispatchFrameUnknownType(t *testing.T) {
	conn := &recordedConn{}
	dispatchFrame(context.Background(), "caller", conn, clientFrame{Type: "made-up"})
	if got := conn.lastError(t); got != "Unknown event type: made-up" {
		t.Fatalf("error = %q", got)
	}
}

func TestGatewayReadMessagesUnknownChat(t *testing.T) {
	conn := &recordedConn{}
	dispatchFrame(context.Background(), "caller", conn, clientFrame{
		Type:   services.EventReadMessages,
		ChatID: "not-an-object-id",
	})
	if got := conn.lastError(t); got != "Chat not found" {
		t.Fatalf("error = %q", got)
	}
}

func TestGatewayReadMessagesForeignChat(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("non-participant rejected", func(mt *mtest.T) {
		prev := database.DB
		database.DB = mt.DB
		defer func() { database.DB = prev }()

		chatID := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "checkme.chats", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: chatID},
			{Key: "pair_key", Value: "a:b"},
			{Key: "participants", Value: bson.A{"a", "b"}},
		}))

		conn := &recordedConn{}
		dispatchFrame(context.Background(), "intruder", conn, clientFrame{
			Type:   services.EventReadMessages,
			ChatID: chatID.Hex(),
		})
		if got := conn.lastError(t); got != "You are not part of this chat" {
			t.Fatalf("error = %q", got)
		}
	})
}
