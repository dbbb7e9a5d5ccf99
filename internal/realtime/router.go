package realtime

import (
	"context"

	"github.com/NuoNuo720/TheNuo2/internal/models"
	"github.com/sirupsen/logrus"
)

// Outbox is the durable per-user queue of undelivered events. Entries stay
// until acknowledged or until the retention window expires.
type Outbox interface {
	Append(ctx context.Context, event models.Event) error
	Pending(ctx context.Context, userID models.UserID) ([]models.Event, error)
	Ack(ctx context.Context, userID models.UserID, eventID string) error
}

// Sender delivers an event to one user's live handles. Satisfied by Registry.
type Sender interface {
	Send(userID models.UserID, event models.Event) Delivery
}

// Router converts domain events into delivery attempts. Undeliverable events
// go to the outbox and are replayed on the recipient's next connect, giving
// at-least-once delivery; the stable event id lets clients de-duplicate.
type Router struct {
	registry Sender
	outbox   Outbox
}

func NewRouter(registry Sender, outbox Outbox) *Router {
	return &Router{registry: registry, outbox: outbox}
}

// Publish attempts live delivery and falls back to the outbox. A recipient
// being offline is a normal outcome, never an error.
func (r *Router) Publish(ctx context.Context, event models.Event) {
	outcome := r.registry.Send(event.RecipientID, event)
	if outcome.Delivered {
		return
	}
	if err := r.outbox.Append(ctx, event); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"eventID":     event.ID,
			"recipientID": event.RecipientID,
		}).Error("Failed to enqueue undelivered event")
		return
	}
	logrus.WithFields(logrus.Fields{
		"eventID":     event.ID,
		"type":        event.Type,
		"recipientID": event.RecipientID,
	}).Debug("Recipient offline, event queued")
}

// Replay pushes every outstanding outbox entry to the user. Entries are kept
// until the client acknowledges them, so a crash mid-replay redelivers.
func (r *Router) Replay(ctx context.Context, userID models.UserID) {
	events, err := r.outbox.Pending(ctx, userID)
	if err != nil {
		logrus.WithError(err).WithField("userID", userID).Error("Failed to read outbox for replay")
		return
	}
	for _, event := range events {
		if outcome := r.registry.Send(userID, event); !outcome.Delivered {
			// Client went away again; the rest stays queued.
			return
		}
	}
	if len(events) > 0 {
		logrus.WithFields(logrus.Fields{
			"userID": userID,
			"count":  len(events),
		}).Info("Outbox replayed")
	}
}

// Ack removes an acknowledged event from the user's outbox.
func (r *Router) Ack(ctx context.Context, userID models.UserID, eventID string) {
	if err := r.outbox.Ack(ctx, userID, eventID); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"userID":  userID,
			"eventID": eventID,
		}).Warn("Failed to ack outbox entry")
	}
}
