package realtime

import (
	"context"
	"sync"
	"testing"

	"github.com/NuoNuo720/TheNuo2/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu     sync.Mutex
	events []models.Event
}

func (s *captureSink) Publish(ctx context.Context, event models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *captureSink) all() []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Event(nil), s.events...)
}

func TestPresenceFansOutToFriends(t *testing.T) {
	sink := &captureSink{}
	friends := map[models.UserID][]models.UserID{
		"alice": {"bob", "carol"},
	}
	tracker := NewPresenceTracker(sink, func(id models.UserID) []models.UserID {
		return friends[id]
	})

	tracker.Transition("alice", true)

	events := sink.all()
	require.Len(t, events, 2)
	recipients := []models.UserID{events[0].RecipientID, events[1].RecipientID}
	assert.ElementsMatch(t, []models.UserID{"bob", "carol"}, recipients)
	for _, e := range events {
		assert.Equal(t, models.EventPresenceChanged, e.Type)
		assert.Equal(t, models.UserID("alice"), e.SenderID)
		assert.Equal(t, true, e.Payload["online"])
	}
}

func TestPresenceDeduplicatesRepeatedStates(t *testing.T) {
	sink := &captureSink{}
	tracker := NewPresenceTracker(sink, func(models.UserID) []models.UserID {
		return []models.UserID{"bob"}
	})

	tracker.Transition("alice", true)
	tracker.Transition("alice", true)
	tracker.Transition("alice", false)
	tracker.Transition("alice", false)
	tracker.Transition("alice", true)

	events := sink.all()
	require.Len(t, events, 3, "one event per state change")
	assert.Equal(t, true, events[0].Payload["online"])
	assert.Equal(t, false, events[1].Payload["online"])
	assert.Equal(t, true, events[2].Payload["online"])
	assert.True(t, tracker.IsOnline("alice"))
}

func TestPresenceNoFriendsNoEvents(t *testing.T) {
	sink := &captureSink{}
	tracker := NewPresenceTracker(sink, func(models.UserID) []models.UserID { return nil })

	tracker.Transition("loner", true)
	assert.Empty(t, sink.all())
	assert.True(t, tracker.IsOnline("loner"))
}
