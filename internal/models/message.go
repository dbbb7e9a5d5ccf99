package models

import (
	"time"
)

// Message is a direct chat message between two friends.
type Message struct {
	ID         string    `bson:"_id" json:"id"`
	SenderID   UserID    `bson:"sender_id" json:"senderId"`
	ReceiverID UserID    `bson:"receiver_id" json:"receiverId"`
	Content    string    `bson:"content" json:"content"`
	CreatedAt  time.Time `bson:"created_at" json:"createdAt"`
}
