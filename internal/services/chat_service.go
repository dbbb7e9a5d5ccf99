package services

import (
	"context"

	"github.com/NuoNuo720/TheNuo2/internal/graph"
	"github.com/NuoNuo720/TheNuo2/internal/models"
	"github.com/NuoNuo720/TheNuo2/internal/repository"
	"github.com/google/uuid"
)

// ChatService persists direct messages and routes them to the recipient.
type ChatService struct {
	repo  *repository.MessageRepository
	graph *graph.Graph
	sink  EventSink
}

func NewChatService(repo *repository.MessageRepository, g *graph.Graph, sink EventSink) *ChatService {
	return &ChatService{repo: repo, graph: g, sink: sink}
}

// SendMessage stores a message between friends and pushes a message_sent
// event to the recipient. Only friends may message each other.
func (s *ChatService) SendMessage(ctx context.Context, from, to models.UserID, content string) (*models.Message, error) {
	if !s.graph.IsFriend(from, to) {
		return nil, graph.ErrForbidden
	}

	msg := &models.Message{
		ID:         uuid.NewString(),
		SenderID:   from,
		ReceiverID: to,
		Content:    content,
	}
	msg, err := s.repo.SaveMessage(ctx, msg)
	if err != nil {
		return nil, err
	}

	s.sink.Publish(ctx, models.NewEvent(models.EventMessageSent, from, to, map[string]interface{}{
		"message": msg,
	}))
	return msg, nil
}

// GetChat returns the conversation history between the user and a friend.
func (s *ChatService) GetChat(ctx context.Context, userID, friendID models.UserID) ([]models.Message, error) {
	return s.repo.GetConversation(ctx, userID, friendID)
}
