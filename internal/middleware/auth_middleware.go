package middleware

import (
	"context"
	"net/http"
	"strings"

	"branchdesk-server/pkg/jwt"
	"branchdesk-server/pkg/response"
)

type contextKey string

const (
	UserIDKey   contextKey = "userID"
	userSlotKey contextKey = "userSlot"
)

// AuthMiddleware requires an anonymous session token on every request.
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				response.Unauthorized(w, "Missing or malformed authorization header")
				return
			}

			claims, err := jwt.ValidateAccessToken(token, jwtSecret)
			if err != nil {
				response.Unauthorized(w, "Invalid or expired session")
				return
			}

			if slot, ok := r.Context().Value(userSlotKey).(*string); ok {
				*slot = claims.UserID
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func GetUserID(r *http.Request) string {
	userID, ok := r.Context().Value(UserIDKey).(string)
	if !ok {
		return ""
	}
	return userID
}

// withUserSlot lets an outer middleware observe the user authenticated by an
// inner one.
func withUserSlot(ctx context.Context, slot *string) context.Context {
	return context.WithValue(ctx, userSlotKey, slot)
}
