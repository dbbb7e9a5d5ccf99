package graph

import "errors"

// Caller-reported errors for friend graph operations. All of them are
// recoverable; handlers translate them to HTTP statuses.
var (
	ErrSelfRequest      = errors.New("cannot send a friend request to yourself")
	ErrDuplicateRequest = errors.New("a pending request to this user already exists")
	ErrAlreadyFriends   = errors.New("users are already friends")
	ErrRequestNotFound  = errors.New("friend request not found")
	ErrNotPending       = errors.New("friend request already responded to")
	ErrForbidden        = errors.New("user is not allowed to act on this request")
)
