package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/NuoNuo720/TheNuo2/internal/graph"
	"github.com/NuoNuo720/TheNuo2/internal/services"
)

// statusFor maps the domain error taxonomy onto HTTP statuses. Anything
// unrecognized is an internal error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, graph.ErrSelfRequest):
		return http.StatusBadRequest
	case errors.Is(err, graph.ErrDuplicateRequest),
		errors.Is(err, graph.ErrAlreadyFriends),
		errors.Is(err, graph.ErrNotPending):
		return http.StatusConflict
	case errors.Is(err, graph.ErrRequestNotFound),
		errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, graph.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
