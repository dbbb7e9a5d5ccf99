package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/NuoNuo720/TheNuo2/internal/graph"
	"github.com/NuoNuo720/TheNuo2/internal/models"
	"github.com/samber/lo"
)

// ErrUserNotFound is returned when an operation targets a user id the
// directory does not know.
var ErrUserNotFound = errors.New("user not found")

// OnlineChecker reports live connection state. Satisfied by the realtime
// registry.
type OnlineChecker interface {
	IsOnline(userID models.UserID) bool
}

// UserDirectory is the slice of the user repository the friend service
// needs.
type UserDirectory interface {
	GetUserByID(ctx context.Context, id models.UserID) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []models.UserID) ([]models.User, error)
}

// EventSink pushes a domain event towards its recipient. Satisfied by the
// realtime router.
type EventSink interface {
	Publish(ctx context.Context, event models.Event)
}

// FriendService handles business logic for managing friendships. Lifecycle
// rules live in the graph; this layer adds directory lookups and the
// outward-facing shapes.
type FriendService struct {
	graph  *graph.Graph
	users  UserDirectory
	online OnlineChecker
	sink   EventSink
}

// NewFriendService creates a new FriendService.
func NewFriendService(g *graph.Graph, users UserDirectory, online OnlineChecker, sink EventSink) *FriendService {
	return &FriendService{
		graph:  g,
		users:  users,
		online: online,
		sink:   sink,
	}
}

// SendFriendRequest creates a new friend request after checking the target
// exists. Mutual pending requests collapse into an acceptance inside the
// graph.
func (s *FriendService) SendFriendRequest(ctx context.Context, from, to models.UserID, message string) (models.FriendRequest, error) {
	if _, err := s.users.GetUserByID(ctx, to); err != nil {
		return models.FriendRequest{}, fmt.Errorf("%w: %s", ErrUserNotFound, to)
	}
	return s.graph.CreateRequest(ctx, from, to, message)
}

// AcceptRequest marks a pending request accepted and creates the friendship.
func (s *FriendService) AcceptRequest(ctx context.Context, requestID string, actor models.UserID) (models.FriendRequest, error) {
	return s.graph.Accept(ctx, requestID, actor)
}

// RejectRequest marks a pending request rejected.
func (s *FriendService) RejectRequest(ctx context.Context, requestID string, actor models.UserID) (models.FriendRequest, error) {
	return s.graph.Reject(ctx, requestID, actor)
}

// CancelRequest withdraws a request the actor sent earlier.
func (s *FriendService) CancelRequest(ctx context.Context, requestID string, actor models.UserID) (models.FriendRequest, error) {
	return s.graph.Cancel(ctx, requestID, actor)
}

// IncomingRequests lists requests addressed to the user, oldest first.
func (s *FriendService) IncomingRequests(userID models.UserID, status models.RequestStatus) []models.FriendRequest {
	return s.graph.ListIncoming(userID, status)
}

// OutgoingRequests lists requests the user sent, oldest first.
func (s *FriendService) OutgoingRequests(userID models.UserID, status models.RequestStatus) []models.FriendRequest {
	return s.graph.ListOutgoing(userID, status)
}

// GetFriends returns the user's friends enriched with directory info and
// live online state.
func (s *FriendService) GetFriends(ctx context.Context, userID models.UserID) ([]models.PublicUser, error) {
	friendIDs := s.graph.FriendsOf(userID)
	if len(friendIDs) == 0 {
		return []models.PublicUser{}, nil
	}

	users, err := s.users.GetUsersByIDs(ctx, friendIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %v", err)
	}

	return lo.Map(users, func(user models.User, _ int) models.PublicUser {
		return models.PublicUser{
			ID:       user.ID,
			Username: user.Username,
			Avatar:   user.Avatar,
			IsOnline: s.online.IsOnline(user.ID),
		}
	}), nil
}

// RemoveFriend deletes the friendship edge and notifies the removed side.
// Removing a non-friend is a no-op.
func (s *FriendService) RemoveFriend(ctx context.Context, userID, friendID models.UserID) error {
	removed, err := s.graph.RemoveEdge(ctx, userID, friendID)
	if err != nil {
		return err
	}
	if removed {
		s.sink.Publish(ctx, models.NewEvent(models.EventFriendRemoved, userID, friendID, map[string]interface{}{
			"userId": userID,
		}))
	}
	return nil
}

// IsFriend reports whether the two users share an edge.
func (s *FriendService) IsFriend(a, b models.UserID) bool {
	return s.graph.IsFriend(a, b)
}
