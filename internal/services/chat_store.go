package services

import (
	"context"
	"errors"
	"time"

	"github.com/checkme-health/checkme-backend/internal/database"
	"github.com/checkme-health/checkme-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const chatCollection = "chats"

// ErrChatNotFound is returned when a chat id does not resolve.
var ErrChatNotFound = errors.New("chat not found")

// EnsureChatIndexes configures indexes for the chats collection.
// Called on startup from main after Mongo has connected. The unique pair_key
// index is what makes the first-message find-or-create race safe: concurrent
// upserts for the same pair converge on a single document.
func EnsureChatIndexes(ctx context.Context) error {
	col := database.DB.Collection(chatCollection)

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "pair_key", Value: 1}},
			Options: options.Index().SetName("idx_pair_key_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "participants", Value: 1}},
			Options: options.Index().SetName("idx_participants"),
		},
	}

	for _, m := range indexModels {
		if _, err := col.Indexes().CreateOne(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// AppendMessage find-or-creates the chat for the sender/receiver pair, appends
// the message and increments the receiver's unread counter, all in one upsert.
// Returns the updated chat.
func AppendMessage(ctx context.Context, msg models.Message) (*models.Chat, error) {
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}

	pairKey := models.ChatPairKey(msg.SenderID, msg.ReceiverID)
	now := time.Now().UTC()

	filter := bson.M{"pair_key": pairKey}
	update := bson.M{
		"$push": bson.M{"messages": msg},
		"$inc":  bson.M{"unread_counts." + msg.ReceiverID: 1},
		"$set":  bson.M{"updated_at": now},
		"$setOnInsert": bson.M{
			"pair_key":     pairKey,
			"participants": []string{msg.SenderID, msg.ReceiverID},
			"created_at":   now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	col := database.DB.Collection(chatCollection)

	var chat models.Chat
	err := col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&chat)
	if mongo.IsDuplicateKeyError(err) {
		// Two first messages for the same pair can both miss the filter
		// match and race to the insert; the loser hits the unique pair_key
		// index. The document exists now, so one retry matches it and
		// appends normally.
		err = col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&chat)
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// ListChatsForUser returns every chat the user participates in, most recently
// active first.
func ListChatsForUser(ctx context.Context, userID string) ([]models.Chat, error) {
	col := database.DB.Collection(chatCollection)

	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cur, err := col.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var chats []models.Chat
	if err := cur.All(ctx, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// GetChatByID fetches a single chat document.
func GetChatByID(ctx context.Context, chatID string) (*models.Chat, error) {
	objectID, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return nil, ErrChatNotFound
	}

	var chat models.Chat
	err = database.DB.Collection(chatCollection).
		FindOne(ctx, bson.M{"_id": objectID}).
		Decode(&chat)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	return &chat, nil
}

// ResetUnreadCount zeroes the user's unread counter for a chat. Idempotent.
func ResetUnreadCount(ctx context.Context, chatID, userID string) error {
	objectID, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return ErrChatNotFound
	}

	res, err := database.DB.Collection(chatCollection).UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{
			"unread_counts." + userID: 0,
			"updated_at":              time.Now().UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrChatNotFound
	}
	return nil
}
