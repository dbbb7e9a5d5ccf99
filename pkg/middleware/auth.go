package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	jwtutil "github.com/NuoNuo720/TheNuo2/pkg/jwt"
	"github.com/NuoNuo720/TheNuo2/pkg/logger"
	"github.com/sirupsen/logrus"
)

type contextKey string

// UserContextKey is where the authenticated claims live in the request
// context.
const UserContextKey contextKey = "user"

// AuthMiddleware validates the Bearer token and injects the claims into the
// request context.
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "Missing or malformed token", http.StatusUnauthorized)
				return
			}

			claims, err := jwtutil.ValidateToken(strings.TrimPrefix(header, "Bearer "), jwtSecret)
			if err != nil {
				logger.Log.Warnf("Rejected request with invalid token: %v", err)
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserFromContext returns the claims stored by AuthMiddleware, or nil.
func GetUserFromContext(ctx context.Context) *jwtutil.Claims {
	claims, _ := ctx.Value(UserContextKey).(*jwtutil.Claims)
	return claims
}

// LoggingMiddleware logs every request with its duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Info("Request handled")
	})
}
