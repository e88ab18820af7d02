package services

import (
	"context"
	"errors"
	"testing"

	"github.com/checkme-health/checkme-backend/internal/database"
	"github.com/checkme-health/checkme-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func useMockDB(mt *mtest.T) func() {
	prev := database.DB
	database.DB = mt.DB
	return func() { database.DB = prev }
}

func storedChat(id primitive.ObjectID, a, b string, unread int) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "pair_key", Value: models.ChatPairKey(a, b)},
		{Key: "participants", Value: bson.A{a, b}},
		{Key: "messages", Value: bson.A{}},
		{Key: "unread_counts", Value: bson.D{{Key: b, Value: unread}}},
	}
}

func duplicatePairKeyError() bson.D {
	return mtest.CreateCommandErrorResponse(mtest.CommandError{
		Code:    11000,
		Name:    "DuplicateKey",
		Message: "E11000 duplicate key error collection: checkme.chats index: idx_pair_key_unique",
	})
}

func TestAppendMessageDuplicatePairKey(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("losing first send retries and converges", func(mt *mtest.T) {
		defer useMockDB(mt)()

		// Two first messages for the same pair can both take the upsert
		// insert path; the loser's insert hits the unique index and must
		// retry against the now-existing document instead of failing.
		id := primitive.NewObjectID()
		mt.AddMockResponses(
			duplicatePairKeyError(),
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: storedChat(id, "a", "b", 1)}),
		)

		chat, err := AppendMessage(context.Background(), models.Message{
			SenderID:   "a",
			ReceiverID: "b",
			Text:       "hi",
		})
		if err != nil {
			t.Fatalf("AppendMessage after duplicate-key retry: %v", err)
		}
		if chat.PairKey != models.ChatPairKey("a", "b") {
			t.Errorf("pair key = %q, want %q", chat.PairKey, models.ChatPairKey("a", "b"))
		}
		if chat.UnreadCounts["b"] != 1 {
			t.Errorf("unread_counts[b] = %d, want 1", chat.UnreadCounts["b"])
		}
	})

	mt.Run("persistent duplicate surfaces the error", func(mt *mtest.T) {
		defer useMockDB(mt)()

		mt.AddMockResponses(duplicatePairKeyError(), duplicatePairKeyError())

		if _, err := AppendMessage(context.Background(), models.Message{
			SenderID:   "a",
			ReceiverID: "b",
			Text:       "hi",
		}); err == nil {
			t.Fatal("expected error when the retry also fails")
		}
	})

	mt.Run("other errors are not retried", func(mt *mtest.T) {
		defer useMockDB(mt)()

		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    112,
			Name:    "WriteConflict",
			Message: "write conflict",
		}))

		if _, err := AppendMessage(context.Background(), models.Message{
			SenderID:   "a",
			ReceiverID: "b",
			Text:       "hi",
		}); err == nil {
			t.Fatal("expected the write conflict to surface")
		}
	})
}

func TestResetUnreadCount(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("double mark-read is a no-op", func(mt *mtest.T) {
		defer useMockDB(mt)()

		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 0}),
		)

		chatID := primitive.NewObjectID().Hex()
		if err := ResetUnreadCount(context.Background(), chatID, "a"); err != nil {
			t.Fatalf("first mark-read: %v", err)
		}
		// The counter is already 0; marking again must still succeed.
		if err := ResetUnreadCount(context.Background(), chatID, "a"); err != nil {
			t.Fatalf("second mark-read: %v", err)
		}
	})

	mt.Run("unknown chat", func(mt *mtest.T) {
		defer useMockDB(mt)()

		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
		)

		err := ResetUnreadCount(context.Background(), primitive.NewObjectID().Hex(), "a")
		if !errors.Is(err, ErrChatNotFound) {
			t.Fatalf("got %v, want ErrChatNotFound", err)
		}
	})
}

func TestResetUnreadCountMalformedID(t *testing.T) {
	if err := ResetUnreadCount(context.Background(), "not-an-object-id", "a"); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("got %v, want ErrChatNotFound", err)
	}
}
