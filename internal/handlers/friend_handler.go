package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/NuoNuo720/TheNuo2/internal/models"
	"github.com/NuoNuo720/TheNuo2/internal/services"
	"github.com/NuoNuo720/TheNuo2/pkg/logger"
	"github.com/NuoNuo720/TheNuo2/pkg/middleware"
	"github.com/gorilla/mux"
)

// FriendHandler manages HTTP endpoints related to friend requests.
type FriendHandler struct {
	Service *services.FriendService
}

// NewFriendHandler initializes a new FriendHandler.
func NewFriendHandler(service *services.FriendService) *FriendHandler {
	return &FriendHandler{Service: service}
}

// SendFriendRequestHandler allows a user to send a friend request.
func (h *FriendHandler) SendFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		logger.Log.Warn("Unauthorized attempt to send friend request")
		return
	}

	toID := models.UserID(mux.Vars(r)["id"])

	var body struct {
		Message string `json:"message"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
		defer r.Body.Close()
	}

	request, err := h.Service.SendFriendRequest(r.Context(), models.UserID(claims.UserID), toID, body.Message)
	if err != nil {
		respondError(w, err)
		logger.Log.Warnf("Failed to send friend request: %v", err)
		return
	}

	logger.Log.Infof("User %s sent a friend request to %s", claims.UserID, toID)
	respondJSON(w, http.StatusCreated, request)
}

// GetPendingRequestsHandler shows all incoming pending friend requests.
func (h *FriendHandler) GetPendingRequestsHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	requests := h.Service.IncomingRequests(models.UserID(claims.UserID), models.StatusPending)
	respondJSON(w, http.StatusOK, requests)
}

// GetOutgoingRequestsHandler shows requests the user sent that are still
// pending.
func (h *FriendHandler) GetOutgoingRequestsHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	requests := h.Service.OutgoingRequests(models.UserID(claims.UserID), models.StatusPending)
	respondJSON(w, http.StatusOK, requests)
}

type requestAction func(ctx context.Context, requestID string, actor models.UserID) (models.FriendRequest, error)

func (h *FriendHandler) resolveRequest(w http.ResponseWriter, r *http.Request, action requestAction) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	requestID := mux.Vars(r)["id"]
	request, err := action(r.Context(), requestID, models.UserID(claims.UserID))
	if err != nil {
		respondError(w, err)
		logger.Log.Warnf("Failed to resolve friend request %s: %v", requestID, err)
		return
	}

	logger.Log.Infof("User %s moved friend request %s to %s", claims.UserID, requestID, request.Status)
	respondJSON(w, http.StatusOK, request)
}

// AcceptRequestHandler accepts an incoming friend request.
func (h *FriendHandler) AcceptRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.resolveRequest(w, r, h.Service.AcceptRequest)
}

// RejectRequestHandler rejects an incoming friend request.
func (h *FriendHandler) RejectRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.resolveRequest(w, r, h.Service.RejectRequest)
}

// CancelRequestHandler withdraws a request the user sent earlier.
func (h *FriendHandler) CancelRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.resolveRequest(w, r, h.Service.CancelRequest)
}

// GetFriendsHandler returns the user's friends with live online state.
func (h *FriendHandler) GetFriendsHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	friends, err := h.Service.GetFriends(r.Context(), models.UserID(claims.UserID))
	if err != nil {
		http.Error(w, "Failed to get friends", http.StatusInternalServerError)
		logger.Log.Errorf("Failed to fetch friends for user %s: %v", claims.UserID, err)
		return
	}

	respondJSON(w, http.StatusOK, friends)
}

// RemoveFriendHandler deletes a friendship.
func (h *FriendHandler) RemoveFriendHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	friendID := models.UserID(mux.Vars(r)["id"])
	if err := h.Service.RemoveFriend(r.Context(), models.UserID(claims.UserID), friendID); err != nil {
		http.Error(w, "Failed to remove friend", http.StatusInternalServerError)
		logger.Log.Errorf("Failed to remove friend %s for user %s: %v", friendID, claims.UserID, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Friend removed"})
}
