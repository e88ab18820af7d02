package models

import (
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is one entry in a chat's append-only log. At least one of Text and
// Document is set; messages are immutable once appended.
type Message struct {
	SenderID   string    `bson:"sender_id" json:"senderId"`
	ReceiverID string    `bson:"receiver_id" json:"receiverId"`
	Text       string    `bson:"text,omitempty" json:"text,omitempty"`
	Document   string    `bson:"document,omitempty" json:"document,omitempty"`
	SentAt     time.Time `bson:"sent_at" json:"sentAt"`
}

// Chat is the single conversation document for one participant pair.
// PairKey is the sorted participant ids joined with ":"; a unique index on it
// makes the lazy find-or-create on first message safe under concurrency.
type Chat struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PairKey      string             `bson:"pair_key" json:"-"`
	Participants []string           `bson:"participants" json:"participants"`
	Messages     []Message          `bson:"messages" json:"messages"`
	UnreadCounts map[string]int     `bson:"unread_counts" json:"unreadCounts"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updatedAt"`
}

// ChatPairKey normalizes an unordered participant pair to a stable key.
func ChatPairKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, ":")
}

// Participant is a chat participant enriched from the directory.
type Participant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Type   string `json:"type"` // "user" or "specialist"
}
