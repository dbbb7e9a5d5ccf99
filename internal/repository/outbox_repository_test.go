package repository

import (
	"context"
	"testing"
	"time"

	"github.com/NuoNuo720/TheNuo2/internal/models"
	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOutbox(t *testing.T, retention time.Duration) *OutboxRepository {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewOutboxRepository(db, retention)
}

func TestOutboxAppendAndPendingOrder(t *testing.T) {
	outbox := newTestOutbox(t, time.Hour)
	ctx := context.Background()

	first := models.NewEvent(models.EventRequestCreated, "bob", "alice", nil)
	time.Sleep(time.Millisecond)
	second := models.NewEvent(models.EventMessageSent, "carol", "alice", nil)

	require.NoError(t, outbox.Append(ctx, first))
	require.NoError(t, outbox.Append(ctx, second))

	pending, err := outbox.Pending(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID, "oldest first")
	assert.Equal(t, second.ID, pending[1].ID)
}

func TestOutboxIsolatedPerUser(t *testing.T) {
	outbox := newTestOutbox(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, outbox.Append(ctx, models.NewEvent(models.EventRequestCreated, "bob", "alice", nil)))
	require.NoError(t, outbox.Append(ctx, models.NewEvent(models.EventRequestCreated, "alice", "bob", nil)))

	alicePending, err := outbox.Pending(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, alicePending, 1)

	carolPending, err := outbox.Pending(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, carolPending)
}

func TestOutboxAck(t *testing.T) {
	outbox := newTestOutbox(t, time.Hour)
	ctx := context.Background()

	event := models.NewEvent(models.EventRequestAccepted, "bob", "alice", nil)
	keep := models.NewEvent(models.EventMessageSent, "bob", "alice", nil)
	require.NoError(t, outbox.Append(ctx, event))
	require.NoError(t, outbox.Append(ctx, keep))

	require.NoError(t, outbox.Ack(ctx, "alice", event.ID))

	pending, err := outbox.Pending(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, keep.ID, pending[0].ID)

	// Acking twice, or acking an unknown id, is a no-op.
	require.NoError(t, outbox.Ack(ctx, "alice", event.ID))
	require.NoError(t, outbox.Ack(ctx, "alice", "unknown"))
}

func TestOutboxRetentionExpiry(t *testing.T) {
	outbox := newTestOutbox(t, 50*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, outbox.Append(ctx, models.NewEvent(models.EventRequestCreated, "bob", "alice", nil)))
	time.Sleep(120 * time.Millisecond)

	pending, err := outbox.Pending(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, pending, "entries past the retention window are gone")
}
