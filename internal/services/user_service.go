package services

import (
	"context"
	"fmt"

	"github.com/NuoNuo720/TheNuo2/internal/models"
	"github.com/NuoNuo720/TheNuo2/internal/repository"
	jwtutil "github.com/NuoNuo720/TheNuo2/pkg/jwt"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/crypto/bcrypt"
)

// UserService is the user-directory collaborator: account creation, login
// and search. The social core only ever sees the opaque user ids it hands
// out.
type UserService struct {
	repo      *repository.UserRepository
	online    OnlineChecker
	jwtSecret string
}

func NewUserService(repo *repository.UserRepository, online OnlineChecker, jwtSecret string) *UserService {
	return &UserService{repo: repo, online: online, jwtSecret: jwtSecret}
}

// RegisterUser creates an account with a hashed password.
func (s *UserService) RegisterUser(ctx context.Context, username, email, password string) (*models.User, error) {
	if existing, _ := s.repo.GetUserByUsername(ctx, username); existing != nil {
		return nil, fmt.Errorf("username %q is already taken", username)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %v", err)
	}

	user := &models.User{
		ID:             models.UserID(uuid.NewString()),
		Username:       username,
		Email:          email,
		HashedPassword: string(hashed),
		Avatar:         fmt.Sprintf("https://picsum.photos/seed/%s/200", username),
	}
	return s.repo.CreateUser(ctx, user)
}

// AuthenticateUser verifies credentials and issues a signed token.
func (s *UserService) AuthenticateUser(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return "", nil, fmt.Errorf("invalid username or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("invalid username or password")
	}

	token, err := jwtutil.GenerateToken(string(user.ID), user.Username, s.jwtSecret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %v", err)
	}
	return token, user, nil
}

// GetUser fetches one user by id.
func (s *UserService) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// SearchUsers finds users by partial username, with live online state.
func (s *UserService) SearchUsers(ctx context.Context, query string, current models.UserID) ([]models.PublicUser, error) {
	users, err := s.repo.SearchUsers(ctx, query, current, 20)
	if err != nil {
		return nil, err
	}
	return lo.Map(users, func(user models.User, _ int) models.PublicUser {
		return models.PublicUser{
			ID:       user.ID,
			Username: user.Username,
			Avatar:   user.Avatar,
			IsOnline: s.online.IsOnline(user.ID),
		}
	}), nil
}
