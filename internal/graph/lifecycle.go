package graph

import (
	"context"
	"time"

	"github.com/NuoNuo720/TheNuo2/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CreateRequest opens a friend request from -> to. If the reverse request is
// already pending the two requests are collapsed: the existing one is
// accepted, the edge is created and no second pending request is stored.
func (g *Graph) CreateRequest(ctx context.Context, from, to models.UserID, message string) (models.FriendRequest, error) {
	if from == to {
		return models.FriendRequest{}, ErrSelfRequest
	}

	unlock := g.locks.lock(from, to)
	defer unlock()

	g.mu.RLock()
	_, friends := g.edges[edgeKey(from, to)]
	_, dup := g.pending[pairKey{from, to}]
	reverseID, mutual := g.pending[pairKey{to, from}]
	g.mu.RUnlock()

	if friends {
		return models.FriendRequest{}, ErrAlreadyFriends
	}
	if dup {
		return models.FriendRequest{}, ErrDuplicateRequest
	}
	if mutual {
		// Both sides asked for each other; treat this as acceptance of the
		// request that already exists.
		return g.finishLocked(ctx, reverseID, models.StatusAccepted)
	}

	now := time.Now()
	req := &models.FriendRequest{
		ID:         uuid.NewString(),
		FromUserID: from,
		ToUserID:   to,
		Message:    message,
		Status:     models.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := g.store.PersistRequest(ctx, req); err != nil {
		return models.FriendRequest{}, err
	}

	g.mu.Lock()
	g.reqs[req.ID] = req
	g.pending[pairKey{from, to}] = req.ID
	g.mu.Unlock()

	g.sink.Publish(ctx, models.NewEvent(models.EventRequestCreated, from, to, map[string]interface{}{
		"request": *req,
	}))
	logrus.WithFields(logrus.Fields{
		"requestID": req.ID,
		"from":      from,
		"to":        to,
	}).Info("Friend request created")
	return *req, nil
}

// Accept transitions a pending request to accepted and creates the edge.
// Only the request's recipient may accept.
func (g *Graph) Accept(ctx context.Context, requestID string, actor models.UserID) (models.FriendRequest, error) {
	return g.transition(ctx, requestID, actor, models.StatusAccepted)
}

// Reject transitions a pending request to rejected. Only the request's
// recipient may reject.
func (g *Graph) Reject(ctx context.Context, requestID string, actor models.UserID) (models.FriendRequest, error) {
	return g.transition(ctx, requestID, actor, models.StatusRejected)
}

// Cancel transitions a pending request to cancelled. Only the request's
// sender may cancel.
func (g *Graph) Cancel(ctx context.Context, requestID string, actor models.UserID) (models.FriendRequest, error) {
	return g.transition(ctx, requestID, actor, models.StatusCancelled)
}

func (g *Graph) transition(ctx context.Context, requestID string, actor models.UserID, target models.RequestStatus) (models.FriendRequest, error) {
	g.mu.RLock()
	req, ok := g.reqs[requestID]
	g.mu.RUnlock()
	if !ok {
		return models.FriendRequest{}, ErrRequestNotFound
	}

	// The pair lock serializes every transition on this request id, so a
	// concurrent accept+cancel cannot both pass the pending check below.
	unlock := g.locks.lock(req.FromUserID, req.ToUserID)
	defer unlock()

	g.mu.RLock()
	current := *req
	g.mu.RUnlock()

	switch target {
	case models.StatusCancelled:
		if actor != current.FromUserID {
			return models.FriendRequest{}, ErrForbidden
		}
	default:
		if actor != current.ToUserID {
			return models.FriendRequest{}, ErrForbidden
		}
	}
	if current.Status != models.StatusPending {
		return models.FriendRequest{}, ErrNotPending
	}

	return g.finishLocked(ctx, requestID, target)
}

// finishLocked applies a terminal status to a pending request. The caller
// must hold the pair lock for the request's user pair.
func (g *Graph) finishLocked(ctx context.Context, requestID string, target models.RequestStatus) (models.FriendRequest, error) {
	g.mu.RLock()
	req := g.reqs[requestID]
	updated := *req
	g.mu.RUnlock()

	updated.Status = target
	updated.UpdatedAt = time.Now()

	// The edge goes to the store first. If the status write below fails the
	// request stays pending and a retried accept converges; the reverse order
	// could leave an accepted request with no edge after a restart.
	if target == models.StatusAccepted {
		if _, err := g.addEdgeLocked(ctx, updated.FromUserID, updated.ToUserID); err != nil {
			return models.FriendRequest{}, err
		}
	}
	if err := g.store.PersistRequest(ctx, &updated); err != nil {
		return models.FriendRequest{}, err
	}

	g.mu.Lock()
	*req = updated
	delete(g.pending, pairKey{updated.FromUserID, updated.ToUserID})
	g.mu.Unlock()

	var event models.Event
	switch target {
	case models.StatusAccepted:
		event = models.NewEvent(models.EventRequestAccepted, updated.ToUserID, updated.FromUserID, map[string]interface{}{
			"request": updated,
		})
	case models.StatusRejected:
		event = models.NewEvent(models.EventRequestRejected, updated.ToUserID, updated.FromUserID, map[string]interface{}{
			"requestId": updated.ID,
		})
	case models.StatusCancelled:
		event = models.NewEvent(models.EventRequestCancelled, updated.FromUserID, updated.ToUserID, map[string]interface{}{
			"requestId": updated.ID,
		})
	}
	g.sink.Publish(ctx, event)

	logrus.WithFields(logrus.Fields{
		"requestID": updated.ID,
		"status":    updated.Status,
	}).Info("Friend request resolved")
	return updated, nil
}
