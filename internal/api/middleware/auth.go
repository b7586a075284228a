// Package middleware provides the HTTP middleware applied by the router.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/taskman-api/internal/api/shared"
	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/platform/logger"
	"github.com/phrazzld/taskman-api/internal/redact"
	"github.com/phrazzld/taskman-api/internal/service/auth"
	"github.com/phrazzld/taskman-api/internal/store"
)

// authFailureMessage is the single body returned for every authentication
// failure on protected routes.
const authFailureMessage = "Please authenticate."

// AuthMiddleware authenticates bearer tokens on protected routes.
//
// A request passes only when both halves of the check succeed: the token's
// signature verifies against the signing secret, AND the decoded user still
// holds the token in their live-token list. The second half is what makes
// logout effective: a revoked token keeps a valid signature but is rejected
// here, and a token issued for another user can never match the list.
type AuthMiddleware struct {
	jwtService auth.JWTService
	userStore  store.UserStore
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(jwtService auth.JWTService, userStore store.UserStore) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		userStore:  userStore,
	}
}

// Authenticate validates the Authorization header and attaches the
// authenticated user and the presented token to the request context.
// Every failure mode produces the same 401 response.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, authFailureMessage)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, authFailureMessage)
			return
		}
		token := parts[1]

		claims, err := m.jwtService.ValidateToken(r.Context(), token)
		if err != nil {
			log.Debug("token rejected", slog.String("reason", err.Error()))
			shared.RespondWithError(w, r, http.StatusUnauthorized, authFailureMessage)
			return
		}

		// Membership half of the double check: the signature alone is not
		// enough, the user must still hold this exact token.
		user, err := m.userStore.GetByIDWithToken(r.Context(), claims.UserID, token)
		if err != nil {
			if !store.IsNotFoundError(err) {
				log.Error("token membership lookup failed",
					slog.String("error", redact.Error(err)))
			}
			shared.RespondWithError(w, r, http.StatusUnauthorized, authFailureMessage)
			return
		}

		ctx := context.WithValue(r.Context(), shared.UserContextKey, user)
		ctx = context.WithValue(ctx, shared.TokenContextKey, token)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUser extracts the authenticated user from the request context.
// Returns the user and a boolean indicating if it was found.
func GetUser(r *http.Request) (*domain.User, bool) {
	user, ok := r.Context().Value(shared.UserContextKey).(*domain.User)
	return user, ok && user != nil
}

// GetToken extracts the presented session token from the request context.
func GetToken(r *http.Request) (string, bool) {
	token, ok := r.Context().Value(shared.TokenContextKey).(string)
	return token, ok && token != ""
}
