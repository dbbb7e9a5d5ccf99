package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the domain events pushed to connected clients.
type EventType string

const (
	EventRequestCreated   EventType = "request_created"
	EventRequestAccepted  EventType = "request_accepted"
	EventRequestRejected  EventType = "request_rejected"
	EventRequestCancelled EventType = "request_cancelled"
	EventPresenceChanged  EventType = "presence_changed"
	EventMessageSent      EventType = "message_sent"
	EventFriendRemoved    EventType = "friend_removed"

	// EventTyping is relayed live-only and never enters the outbox.
	EventTyping EventType = "typing"
)

// Event is the wire shape pushed over the websocket. The id is stable across
// redeliveries so clients can de-duplicate replayed events.
type Event struct {
	ID          string                 `json:"id"`
	Type        EventType              `json:"type"`
	SenderID    UserID                 `json:"senderId"`
	RecipientID UserID                 `json:"recipientId"`
	Payload     map[string]interface{} `json:"payload"`
	Timestamp   time.Time              `json:"timestamp"`
}

// NewEvent builds an event addressed to a single recipient.
func NewEvent(t EventType, sender, recipient UserID, payload map[string]interface{}) Event {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return Event{
		ID:          uuid.NewString(),
		Type:        t,
		SenderID:    sender,
		RecipientID: recipient,
		Payload:     payload,
		Timestamp:   time.Now().UTC(),
	}
}
