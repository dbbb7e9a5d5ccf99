package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/NuoNuo720/TheNuo2/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository handles database operations for the user directory.
type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		collection: db.Collection("users"),
	}
}

// CreateUser inserts a new user into the database.
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	if _, err := r.collection.InsertOne(ctx, user); err != nil {
		logrus.WithError(err).Error("Failed to insert user into database")
		return nil, fmt.Errorf("failed to insert user: %v", err)
	}

	logrus.WithField("userID", user.ID).Info("User inserted successfully")
	return user, nil
}

// GetUserByID retrieves a user by their id.
func (r *UserRepository) GetUserByID(ctx context.Context, id models.UserID) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by id: %v", err)
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by their exact username.
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %v", err)
	}
	return &user, nil
}

// GetUsersByIDs fetches users for a batch of ids.
func (r *UserRepository) GetUsersByIDs(ctx context.Context, ids []models.UserID) ([]models.User, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to find users: %v", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	for cursor.Next(ctx) {
		var user models.User
		if err := cursor.Decode(&user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, cursor.Err()
}

// SearchUsers finds users whose username contains the query, excluding the
// searching user.
func (r *UserRepository) SearchUsers(ctx context.Context, query string, exclude models.UserID, limit int64) ([]models.User, error) {
	filter := bson.M{
		"username": bson.M{"$regex": query, "$options": "i"},
		"_id":      bson.M{"$ne": exclude},
	}
	opts := options.Find().SetLimit(limit).SetSort(bson.D{{Key: "username", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %v", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	for cursor.Next(ctx) {
		var user models.User
		if err := cursor.Decode(&user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, cursor.Err()
}
