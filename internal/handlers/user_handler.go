package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/NuoNuo720/TheNuo2/internal/models"
	"github.com/NuoNuo720/TheNuo2/internal/services"
	"github.com/NuoNuo720/TheNuo2/pkg/logger"
	"github.com/NuoNuo720/TheNuo2/pkg/middleware"
	"github.com/gorilla/mux"
)

// UserHandler manages the user-directory endpoints.
type UserHandler struct {
	Service *services.UserService
}

func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{Service: service}
}

// RegisterUserHandler creates a new account.
func (h *UserHandler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if body.Username == "" || body.Email == "" || body.Password == "" {
		http.Error(w, "username, email and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.Service.RegisterUser(r.Context(), body.Username, body.Email, body.Password)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		logger.Log.Warnf("Registration failed: %v", err)
		return
	}

	logger.Log.Infof("New user registered: %s", user.Username)
	respondJSON(w, http.StatusCreated, user)
}

// LoginUserHandler verifies credentials and returns a token.
func (h *UserHandler) LoginUserHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	token, user, err := h.Service.AuthenticateUser(r.Context(), body.Username, body.Password)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		logger.Log.Warnf("Login failed for %s: %v", body.Username, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token":    token,
		"userId":   user.ID,
		"username": user.Username,
		"avatar":   user.Avatar,
	})
}

// SearchUsersHandler finds users by partial username.
func (h *UserHandler) SearchUsersHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	query := r.URL.Query().Get("username")
	if query == "" {
		http.Error(w, "username query parameter is required", http.StatusBadRequest)
		return
	}

	users, err := h.Service.SearchUsers(r.Context(), query, models.UserID(claims.UserID))
	if err != nil {
		http.Error(w, "Failed to search users", http.StatusInternalServerError)
		logger.Log.Errorf("User search failed: %v", err)
		return
	}

	respondJSON(w, http.StatusOK, users)
}

// GetUserHandler returns one user's public profile.
func (h *UserHandler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id := models.UserID(mux.Vars(r)["id"])
	user, err := h.Service.GetUser(r.Context(), id)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, models.PublicUser{
		ID:       user.ID,
		Username: user.Username,
		Avatar:   user.Avatar,
	})
}
