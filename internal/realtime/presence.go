package realtime

import (
	"context"
	"sync"

	"github.com/NuoNuo720/TheNuo2/internal/models"
	"github.com/sirupsen/logrus"
)

// Sink receives presence events for routing. Satisfied by the Router.
type Sink interface {
	Publish(ctx context.Context, event models.Event)
}

// PresenceTracker turns registry occupancy edges into presence_changed
// events, fanned out to the user's friends only. The registry serializes
// Transition calls per user (the user's entry lock is held), so transitions
// for one user arrive in order; the tracker keeps the last known state and
// emits exactly one event per state change, nothing for handle churn within
// a state.
type PresenceTracker struct {
	mu     sync.Mutex
	online map[models.UserID]bool

	sink    Sink
	friends func(models.UserID) []models.UserID
}

func NewPresenceTracker(sink Sink, friends func(models.UserID) []models.UserID) *PresenceTracker {
	return &PresenceTracker{
		online:  make(map[models.UserID]bool),
		sink:    sink,
		friends: friends,
	}
}

// Transition reports one occupancy edge for the user. Implements Presence.
func (t *PresenceTracker) Transition(userID models.UserID, online bool) {
	t.mu.Lock()
	if t.online[userID] == online {
		t.mu.Unlock()
		return
	}
	t.online[userID] = online
	t.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"userID": userID,
		"online": online,
	}).Info("Presence changed")

	ctx := context.Background()
	for _, friendID := range t.friends(userID) {
		t.sink.Publish(ctx, models.NewEvent(models.EventPresenceChanged, userID, friendID, map[string]interface{}{
			"userId": userID,
			"online": online,
		}))
	}
}

// IsOnline reports the tracker's view of the user's state.
func (t *PresenceTracker) IsOnline(userID models.UserID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.online[userID]
}
