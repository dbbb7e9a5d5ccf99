package graph

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/NuoNuo720/TheNuo2/internal/models"
	"github.com/sirupsen/logrus"
)

// Store is the durable persistence collaborator. The graph calls it
// synchronously on every mutation but does not depend on its schema.
type Store interface {
	PersistRequest(ctx context.Context, req *models.FriendRequest) error
	PersistEdge(ctx context.Context, edge models.FriendEdge) error
	RemoveEdge(ctx context.Context, a, b models.UserID) error
	LoadRequests(ctx context.Context) ([]models.FriendRequest, error)
	LoadEdges(ctx context.Context) ([]models.FriendEdge, error)
}

// Sink receives the domain events produced by graph mutations. Delivery
// semantics (live push, outbox fallback) are the sink's concern.
type Sink interface {
	Publish(ctx context.Context, event models.Event)
}

type pairKey struct {
	a, b models.UserID
}

func edgeKey(a, b models.UserID) pairKey {
	x, y := models.CanonicalPair(a, b)
	return pairKey{x, y}
}

// Graph is the canonical in-memory store of accepted friend edges and
// in-flight friend requests. Mutations are serialized per unordered user
// pair; the inner mutex only guards map access.
type Graph struct {
	mu      sync.RWMutex
	edges   map[pairKey]models.FriendEdge
	reqs    map[string]*models.FriendRequest
	pending map[pairKey]string // directed (from,to) -> request id

	locks pairLock
	store Store
	sink  Sink
}

// New creates an empty graph backed by the given store and event sink.
func New(store Store, sink Sink) *Graph {
	return &Graph{
		edges:   make(map[pairKey]models.FriendEdge),
		reqs:    make(map[string]*models.FriendRequest),
		pending: make(map[pairKey]string),
		store:   store,
		sink:    sink,
	}
}

// Load hydrates the graph from the store. Called once at startup before any
// traffic is admitted.
func (g *Graph) Load(ctx context.Context) error {
	edges, err := g.store.LoadEdges(ctx)
	if err != nil {
		return err
	}
	reqs, err := g.store.LoadRequests(ctx)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, e := range edges {
		g.edges[edgeKey(e.UserA, e.UserB)] = e
	}
	for i := range reqs {
		req := reqs[i]
		g.reqs[req.ID] = &req
		if req.Status == models.StatusPending {
			g.pending[pairKey{req.FromUserID, req.ToUserID}] = req.ID
		}
	}
	logrus.WithFields(logrus.Fields{
		"edges":    len(edges),
		"requests": len(reqs),
	}).Info("Friend graph loaded")
	return nil
}

// IsFriend reports whether an edge exists between a and b. Symmetric.
func (g *Graph) IsFriend(a, b models.UserID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.edges[edgeKey(a, b)]
	return ok
}

// HasPendingRequest reports whether a pending request from -> to exists.
func (g *Graph) HasPendingRequest(from, to models.UserID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.pending[pairKey{from, to}]
	return ok
}

// FriendsOf returns the ids of every friend of the given user.
func (g *Graph) FriendsOf(userID models.UserID) []models.UserID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var friends []models.UserID
	for key := range g.edges {
		switch userID {
		case key.a:
			friends = append(friends, key.b)
		case key.b:
			friends = append(friends, key.a)
		}
	}
	return friends
}

// AddEdge inserts the undirected edge {a,b}. Inserting an existing edge is a
// no-op. Returns true if the edge was created.
func (g *Graph) AddEdge(ctx context.Context, a, b models.UserID) (bool, error) {
	unlock := g.locks.lock(a, b)
	defer unlock()
	return g.addEdgeLocked(ctx, a, b)
}

// addEdgeLocked requires the pair lock for {a,b} to be held.
func (g *Graph) addEdgeLocked(ctx context.Context, a, b models.UserID) (bool, error) {
	key := edgeKey(a, b)

	g.mu.RLock()
	_, exists := g.edges[key]
	g.mu.RUnlock()
	if exists {
		return false, nil
	}

	edge := models.FriendEdge{UserA: key.a, UserB: key.b, CreatedAt: time.Now()}
	if err := g.store.PersistEdge(ctx, edge); err != nil {
		return false, err
	}

	g.mu.Lock()
	g.edges[key] = edge
	g.mu.Unlock()
	return true, nil
}

// RemoveEdge deletes the undirected edge {a,b}. Removing an absent edge is a
// no-op. Returns true if an edge was actually removed.
func (g *Graph) RemoveEdge(ctx context.Context, a, b models.UserID) (bool, error) {
	unlock := g.locks.lock(a, b)
	defer unlock()

	key := edgeKey(a, b)
	g.mu.RLock()
	_, exists := g.edges[key]
	g.mu.RUnlock()
	if !exists {
		return false, nil
	}

	if err := g.store.RemoveEdge(ctx, key.a, key.b); err != nil {
		return false, err
	}

	g.mu.Lock()
	delete(g.edges, key)
	g.mu.Unlock()
	return true, nil
}

// ListIncoming returns the requests addressed to userID with the given
// status, ordered by creation time.
func (g *Graph) ListIncoming(userID models.UserID, status models.RequestStatus) []models.FriendRequest {
	return g.list(func(r *models.FriendRequest) bool {
		return r.ToUserID == userID && r.Status == status
	})
}

// ListOutgoing returns the requests sent by userID with the given status,
// ordered by creation time.
func (g *Graph) ListOutgoing(userID models.UserID, status models.RequestStatus) []models.FriendRequest {
	return g.list(func(r *models.FriendRequest) bool {
		return r.FromUserID == userID && r.Status == status
	})
}

func (g *Graph) list(keep func(*models.FriendRequest) bool) []models.FriendRequest {
	g.mu.RLock()
	out := make([]models.FriendRequest, 0)
	for _, req := range g.reqs {
		if keep(req) {
			out = append(out, *req)
		}
	}
	g.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// GetRequest returns a copy of the request with the given id.
func (g *Graph) GetRequest(requestID string) (models.FriendRequest, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	req, ok := g.reqs[requestID]
	if !ok {
		return models.FriendRequest{}, ErrRequestNotFound
	}
	return *req, nil
}
