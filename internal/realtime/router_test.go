package realtime

import (
	"context"
	"sync"
	"testing"

	"github.com/NuoNuo720/TheNuo2/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu     sync.Mutex
	online map[models.UserID]bool
	sent   []models.Event
}

func newFakeSender() *fakeSender {
	return &fakeSender{online: make(map[models.UserID]bool)}
}

func (s *fakeSender) Send(userID models.UserID, event models.Event) Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.online[userID] {
		return Delivery{}
	}
	s.sent = append(s.sent, event)
	return Delivery{Delivered: true, HandleCount: 1}
}

func (s *fakeSender) delivered() []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Event(nil), s.sent...)
}

type memOutbox struct {
	mu      sync.Mutex
	entries map[models.UserID][]models.Event
}

func newMemOutbox() *memOutbox {
	return &memOutbox{entries: make(map[models.UserID][]models.Event)}
}

func (o *memOutbox) Append(ctx context.Context, event models.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries[event.RecipientID] = append(o.entries[event.RecipientID], event)
	return nil
}

func (o *memOutbox) Pending(ctx context.Context, userID models.UserID) ([]models.Event, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]models.Event(nil), o.entries[userID]...), nil
}

func (o *memOutbox) Ack(ctx context.Context, userID models.UserID, eventID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	kept := o.entries[userID][:0]
	for _, e := range o.entries[userID] {
		if e.ID != eventID {
			kept = append(kept, e)
		}
	}
	o.entries[userID] = kept
	return nil
}

func TestPublishDeliversLive(t *testing.T) {
	sender := newFakeSender()
	sender.online["bob"] = true
	outbox := newMemOutbox()
	router := NewRouter(sender, outbox)

	event := models.NewEvent(models.EventRequestCreated, "alice", "bob", nil)
	router.Publish(context.Background(), event)

	require.Len(t, sender.delivered(), 1)
	pending, _ := outbox.Pending(context.Background(), "bob")
	assert.Empty(t, pending, "delivered events never reach the outbox")
}

func TestPublishQueuesForOfflineRecipient(t *testing.T) {
	sender := newFakeSender()
	outbox := newMemOutbox()
	router := NewRouter(sender, outbox)

	event := models.NewEvent(models.EventRequestAccepted, "bob", "alice", nil)
	router.Publish(context.Background(), event)

	assert.Empty(t, sender.delivered())
	pending, err := outbox.Pending(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, event.ID, pending[0].ID)
}

func TestReplayKeepsEntriesUntilAck(t *testing.T) {
	sender := newFakeSender()
	outbox := newMemOutbox()
	router := NewRouter(sender, outbox)
	ctx := context.Background()

	first := models.NewEvent(models.EventRequestCreated, "bob", "alice", nil)
	second := models.NewEvent(models.EventMessageSent, "carol", "alice", nil)
	router.Publish(ctx, first)
	router.Publish(ctx, second)

	// Alice reconnects: replay pushes everything but at-least-once means the
	// queue survives until the client acknowledges.
	sender.online["alice"] = true
	router.Replay(ctx, "alice")
	require.Len(t, sender.delivered(), 2)
	pending, _ := outbox.Pending(ctx, "alice")
	assert.Len(t, pending, 2)

	router.Ack(ctx, "alice", first.ID)
	pending, _ = outbox.Pending(ctx, "alice")
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	// A second replay redelivers only what is still queued.
	router.Replay(ctx, "alice")
	assert.Len(t, sender.delivered(), 3)
}

func TestReplayStopsWhenClientDropsAgain(t *testing.T) {
	sender := newFakeSender()
	outbox := newMemOutbox()
	router := NewRouter(sender, outbox)
	ctx := context.Background()

	router.Publish(ctx, models.NewEvent(models.EventRequestCreated, "bob", "alice", nil))
	router.Replay(ctx, "alice")

	assert.Empty(t, sender.delivered())
	pending, _ := outbox.Pending(ctx, "alice")
	assert.Len(t, pending, 1, "undeliverable replay leaves the queue intact")
}
