package models

import (
	"time"
)

// RequestStatus is the lifecycle state of a friend request. Pending is the
// only non-terminal state; terminal requests are retained for audit and
// duplicate detection, never deleted.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusAccepted  RequestStatus = "accepted"
	StatusRejected  RequestStatus = "rejected"
	StatusCancelled RequestStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s RequestStatus) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected || s == StatusCancelled
}

// FriendRequest is a directional friendship proposal.
type FriendRequest struct {
	ID         string        `bson:"_id" json:"id"`
	FromUserID UserID        `bson:"from_user_id" json:"fromUserId"`
	ToUserID   UserID        `bson:"to_user_id" json:"toUserId"`
	Message    string        `bson:"message,omitempty" json:"message,omitempty"`
	Status     RequestStatus `bson:"status" json:"status"`
	CreatedAt  time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time     `bson:"updated_at" json:"updatedAt"`
}

// FriendEdge is a single undirected friendship edge. UserA/UserB are stored
// in canonical (lexicographic) order so the pair has exactly one encoding.
type FriendEdge struct {
	UserA     UserID    `bson:"user_a" json:"userA"`
	UserB     UserID    `bson:"user_b" json:"userB"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// CanonicalPair orders two user ids so that {a,b} and {b,a} map to the same
// key. No self-pairs ever reach this point.
func CanonicalPair(a, b UserID) (UserID, UserID) {
	if b < a {
		return b, a
	}
	return a, b
}
