package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/NuoNuo720/TheNuo2/internal/models"
	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

// OutboxRepository is the durable per-user queue of undelivered events,
// backed by BadgerDB.
//
// Keys are "outbox:{user}:{nanos_padded}:{event_id}": the 19-digit zero
// padding makes a prefix scan return events in the order they were queued,
// and the event id disambiguates entries queued in the same nanosecond.
// Entries expire via Badger's TTL, which is the bounded retention window for
// events the client never acknowledges.
type OutboxRepository struct {
	db        *badger.DB
	retention time.Duration
}

func NewOutboxRepository(db *badger.DB, retention time.Duration) *OutboxRepository {
	return &OutboxRepository{db: db, retention: retention}
}

func outboxPrefix(userID models.UserID) []byte {
	return []byte(fmt.Sprintf("outbox:%s:", userID))
}

func outboxKey(event models.Event) []byte {
	return []byte(fmt.Sprintf("outbox:%s:%019d:%s",
		event.RecipientID,
		event.Timestamp.UnixNano(),
		event.ID,
	))
}

// Append queues an event for the recipient.
func (r *OutboxRepository) Append(ctx context.Context, event models.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %v", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(outboxKey(event), value).WithTTL(r.retention)
		return txn.SetEntry(entry)
	})
}

// Pending returns the user's queued events, oldest first.
func (r *OutboxRepository) Pending(ctx context.Context, userID models.UserID) ([]models.Event, error) {
	var events []models.Event
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := outboxPrefix(userID)
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var event models.Event
				if err := json.Unmarshal(value, &event); err != nil {
					return err
				}
				events = append(events, event)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read outbox: %v", err)
	}
	return events, nil
}

// Ack deletes the entry carrying the given event id from the user's queue.
// Acking an unknown or already-expired event is a no-op.
func (r *OutboxRepository) Ack(ctx context.Context, userID models.UserID, eventID string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		prefix := outboxPrefix(userID)
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		suffix := ":" + eventID
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if len(key) >= len(suffix) && string(key[len(key)-len(suffix):]) == suffix {
				return txn.Delete(key)
			}
		}
		return nil
	})
}

// RunGC reclaims value-log space freed by expired and acked entries. Called
// periodically by the scheduler.
func (r *OutboxRepository) RunGC() {
	for {
		if err := r.db.RunValueLogGC(0.5); err != nil {
			if err != badger.ErrNoRewrite {
				logrus.WithError(err).Warn("Outbox value log GC failed")
			}
			return
		}
	}
}
