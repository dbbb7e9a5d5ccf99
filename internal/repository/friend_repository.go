package repository

import (
	"context"
	"fmt"

	"github.com/NuoNuo720/TheNuo2/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FriendRepository is the durable store behind the friend graph. Requests and
// edges live in separate collections; the in-memory graph is the authority,
// this layer only has to survive restarts.
type FriendRepository struct {
	requests *mongo.Collection
	edges    *mongo.Collection
}

func NewFriendRepository(db *mongo.Database) *FriendRepository {
	return &FriendRepository{
		requests: db.Collection("friend_requests"),
		edges:    db.Collection("friend_edges"),
	}
}

// PersistRequest upserts a request by id, covering both creation and status
// transitions.
func (r *FriendRepository) PersistRequest(ctx context.Context, req *models.FriendRequest) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.requests.ReplaceOne(ctx, bson.M{"_id": req.ID}, req, opts)
	if err != nil {
		return fmt.Errorf("failed to persist friend request: %v", err)
	}
	return nil
}

// PersistEdge stores an undirected edge. The pair arrives canonicalized, so
// an upsert on both fields is naturally idempotent.
func (r *FriendRepository) PersistEdge(ctx context.Context, edge models.FriendEdge) error {
	filter := bson.M{"user_a": edge.UserA, "user_b": edge.UserB}
	update := bson.M{"$setOnInsert": edge}
	opts := options.Update().SetUpsert(true)
	if _, err := r.edges.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to persist friend edge: %v", err)
	}
	return nil
}

// RemoveEdge deletes the edge for the canonical pair (a, b). Deleting an
// absent edge is not an error.
func (r *FriendRepository) RemoveEdge(ctx context.Context, a, b models.UserID) error {
	if _, err := r.edges.DeleteOne(ctx, bson.M{"user_a": a, "user_b": b}); err != nil {
		return fmt.Errorf("failed to remove friend edge: %v", err)
	}
	return nil
}

// LoadRequests returns every stored request, terminal ones included.
func (r *FriendRepository) LoadRequests(ctx context.Context) ([]models.FriendRequest, error) {
	cursor, err := r.requests.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to load friend requests: %v", err)
	}
	defer cursor.Close(ctx)

	var requests []models.FriendRequest
	for cursor.Next(ctx) {
		var req models.FriendRequest
		if err := cursor.Decode(&req); err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, cursor.Err()
}

// LoadEdges returns every stored friendship edge.
func (r *FriendRepository) LoadEdges(ctx context.Context) ([]models.FriendEdge, error) {
	cursor, err := r.edges.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to load friend edges: %v", err)
	}
	defer cursor.Close(ctx)

	var edges []models.FriendEdge
	for cursor.Next(ctx) {
		var edge models.FriendEdge
		if err := cursor.Decode(&edge); err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	return edges, cursor.Err()
}
