package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/NuoNuo720/TheNuo2/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository stores direct chat messages.
type MessageRepository struct {
	collection *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	return &MessageRepository{collection: db.Collection("messages")}
}

func (r *MessageRepository) SaveMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	msg.CreatedAt = time.Now()
	if _, err := r.collection.InsertOne(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save message: %v", err)
	}
	return msg, nil
}

// GetConversation returns the full message history between two users in
// chronological order.
func (r *MessageRepository) GetConversation(ctx context.Context, userID, friendID models.UserID) ([]models.Message, error) {
	filter := bson.M{
		"$or": []bson.M{
			{"sender_id": userID, "receiver_id": friendID},
			{"sender_id": friendID, "receiver_id": userID},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %v", err)
	}
	defer cursor.Close(ctx)

	var messages []models.Message
	for cursor.Next(ctx) {
		var msg models.Message
		if err := cursor.Decode(&msg); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, cursor.Err()
}
