package models

import (
	"time"
)

// UserID is the opaque identity used everywhere inside the core. Translation
// to storage-specific representations (ObjectID hex, usernames) happens in the
// repository layer, never here.
type UserID string

func (id UserID) String() string { return string(id) }

// User represents an account in the user directory.
type User struct {
	ID             UserID    `bson:"_id,omitempty" json:"id"`
	Username       string    `bson:"username" json:"username"`
	Email          string    `bson:"email" json:"email"`
	HashedPassword string    `bson:"hashed_password" json:"-"`
	Avatar         string    `bson:"avatar" json:"avatar"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
}

// PublicUser is the shape exposed to other users (search results, friend
// lists). Online state is derived from the connection registry at read time.
type PublicUser struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	IsOnline bool   `json:"isOnline"`
}
