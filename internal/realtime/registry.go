package realtime

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/NuoNuo720/TheNuo2/internal/models"
	"github.com/sirupsen/logrus"
)

// Delivery is the outcome of a fan-out to one user's live handles.
type Delivery struct {
	Delivered   bool
	HandleCount int
}

// Presence receives occupancy transitions from the registry. Calls for a
// given user are serialized by the registry (the user's entry lock is held),
// so transitions arrive in order and exactly once per occupancy edge.
type Presence interface {
	Transition(userID models.UserID, online bool)
}

// userEntry guards one user's handle set. The mutable map is only touched
// under mu; readers (Send, IsOnline) go through the copy-on-write snapshot so
// a presence fan-out running under one user's lock can deliver to another
// user without taking that user's lock.
//
// Entries are never removed from the registry once created. An entry that
// went empty stays resident so that every occupancy transition for a user,
// including a reconnect racing the previous disconnect, is raised under the
// same mutex and therefore in order.
type userEntry struct {
	mu       sync.Mutex
	handles  map[Conn]time.Time // handle -> connectedAt
	snapshot atomic.Value       // []Conn
}

func (e *userEntry) publishSnapshot() {
	conns := make([]Conn, 0, len(e.handles))
	for c := range e.handles {
		conns = append(conns, c)
	}
	e.snapshot.Store(conns)
}

func (e *userEntry) conns() []Conn {
	conns, _ := e.snapshot.Load().([]Conn)
	return conns
}

// Registry is the authoritative map from user id to live transport handles.
// A user may hold several handles at once (multiple devices). Mutations are
// keyed per user; unrelated users never contend.
type Registry struct {
	mu    sync.RWMutex
	users map[models.UserID]*userEntry

	presence     Presence
	writeTimeout time.Duration
}

func NewRegistry(writeTimeout time.Duration) *Registry {
	return &Registry{
		users:        make(map[models.UserID]*userEntry),
		writeTimeout: writeTimeout,
	}
}

// BindPresence attaches the presence tracker. Must be called before any
// connection is registered.
func (r *Registry) BindPresence(p Presence) {
	r.presence = p
}

func (r *Registry) entry(userID models.UserID) *userEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.users[userID]
	if !ok {
		e = &userEntry{handles: make(map[Conn]time.Time)}
		e.publishSnapshot()
		r.users[userID] = e
	}
	return e
}

func (r *Registry) lookup(userID models.UserID) *userEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.users[userID]
}

// Register adds a handle for the user. Adding a handle that is already
// present is a no-op. The user's first handle triggers a single "online"
// transition.
func (r *Registry) Register(userID models.UserID, c Conn) {
	e := r.entry(userID)
	e.mu.Lock()
	if _, ok := e.handles[c]; ok {
		e.mu.Unlock()
		return
	}
	wasEmpty := len(e.handles) == 0
	e.handles[c] = time.Now()
	e.publishSnapshot()
	if wasEmpty && r.presence != nil {
		r.presence.Transition(userID, true)
	}
	e.mu.Unlock()
	logrus.WithField("userID", userID).Debug("Connection registered")
}

// Unregister removes a handle and closes it. Removing an absent handle still
// closes it but raises no transition. When the last handle goes away a single
// "offline" transition fires under the entry lock, so a reconnect racing this
// call cannot observe its "online" before our "offline".
func (r *Registry) Unregister(userID models.UserID, c Conn) {
	defer func() {
		_ = c.Close()
	}()

	e := r.lookup(userID)
	if e == nil {
		return
	}

	e.mu.Lock()
	if _, ok := e.handles[c]; !ok {
		e.mu.Unlock()
		return
	}
	delete(e.handles, c)
	e.publishSnapshot()
	if len(e.handles) == 0 && r.presence != nil {
		r.presence.Transition(userID, false)
	}
	e.mu.Unlock()

	logrus.WithField("userID", userID).Debug("Connection unregistered")
}

// IsOnline reports whether the user has at least one live handle.
func (r *Registry) IsOnline(userID models.UserID) bool {
	e := r.lookup(userID)
	return e != nil && len(e.conns()) > 0
}

// Send fans the event out to every live handle of the user. A handle whose
// write fails or times out is treated as dead, unregistered, and presence is
// re-evaluated; this never fails the call. Zero successful writes yield
// Delivered=false so the caller can fall back to the outbox.
//
// The prune runs on its own goroutine: Send may be reached from a presence
// fan-out that holds another user's entry lock, and unregistering inline
// from there could deadlock two users dropping each other's connections.
func (r *Registry) Send(userID models.UserID, event models.Event) Delivery {
	e := r.lookup(userID)
	if e == nil {
		return Delivery{}
	}

	var delivered int
	for _, c := range e.conns() {
		if err := c.WriteEvent(event, r.writeTimeout); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"userID": userID,
				"event":  event.Type,
			}).Warn("Dropping dead connection after failed write")
			go r.Unregister(userID, c)
			continue
		}
		delivered++
	}
	return Delivery{Delivered: delivered > 0, HandleCount: delivered}
}
