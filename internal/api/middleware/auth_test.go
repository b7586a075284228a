package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/mocks"
	"github.com/phrazzld/taskman-api/internal/service/auth"
)

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	user := &domain.User{ID: userID, Name: "Amelia", Email: "amelia@example.com"}

	// newEnv builds a middleware instance around a user who holds
	// "live-token" and a protected handler that records whether it ran.
	newEnv := func(jwt *mocks.MockJWTService) (*AuthMiddleware, *bool) {
		userStore := mocks.NewMockUserStore()
		userStore.Users[user.Email] = user
		userStore.Tokens[userID] = []string{"live-token"}

		called := false
		return NewAuthMiddleware(jwt, userStore), &called
	}

	tests := []struct {
		name       string
		header     string
		jwt        *mocks.MockJWTService
		wantStatus int
		wantNext   bool
	}{
		{
			name:       "valid live token",
			header:     "Bearer live-token",
			jwt:        &mocks.MockJWTService{UserID: userID},
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
		{
			name:       "missing header",
			header:     "",
			jwt:        &mocks.MockJWTService{UserID: userID},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "malformed header scheme",
			header:     "Token live-token",
			jwt:        &mocks.MockJWTService{UserID: userID},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "bad signature",
			header:     "Bearer live-token",
			jwt:        &mocks.MockJWTService{UserID: userID, ValidateErr: auth.ErrInvalidToken},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "expired token",
			header:     "Bearer live-token",
			jwt:        &mocks.MockJWTService{UserID: userID, ValidateErr: auth.ErrExpiredToken},
			wantStatus: http.StatusUnauthorized,
		},
		{
			// The signature verifies but the token was revoked by logout:
			// the membership half of the check must reject it.
			name:       "revoked token",
			header:     "Bearer revoked-token",
			jwt:        &mocks.MockJWTService{UserID: userID},
			wantStatus: http.StatusUnauthorized,
		},
		{
			// A token signed for a user that does not exist in the store.
			name:       "token for unknown user",
			header:     "Bearer live-token",
			jwt:        &mocks.MockJWTService{UserID: uuid.New()},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mw, called := newEnv(tt.jwt)
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				*called = true

				// The context must carry both halves of the session.
				got, ok := GetUser(r)
				require.True(t, ok)
				assert.Equal(t, userID, got.ID)
				token, ok := GetToken(r)
				require.True(t, ok)
				assert.NotEmpty(t, token)
			})

			req := httptest.NewRequest("GET", "/tasks", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			recorder := httptest.NewRecorder()

			mw.Authenticate(next).ServeHTTP(recorder, req)

			assert.Equal(t, tt.wantStatus, recorder.Code)
			assert.Equal(t, tt.wantNext, *called)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, recorder.Body.String(), "Please authenticate.")
			}
		})
	}
}

func TestAuthenticateOtherSessionsSurviveLogout(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	user := &domain.User{ID: userID, Name: "Amelia", Email: "amelia@example.com"}

	userStore := mocks.NewMockUserStore()
	userStore.Users[user.Email] = user
	userStore.Tokens[userID] = []string{"phone-token", "laptop-token"}

	mw := NewAuthMiddleware(&mocks.MockJWTService{UserID: userID}, userStore)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	// Revoke the phone session only.
	require.NoError(t, userStore.RemoveToken(context.Background(), userID, "phone-token"))

	phone := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/users/me", nil)
	req.Header.Set("Authorization", "Bearer phone-token")
	mw.Authenticate(next).ServeHTTP(phone, req)

	laptop := httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/users/me", nil)
	req.Header.Set("Authorization", "Bearer laptop-token")
	mw.Authenticate(next).ServeHTTP(laptop, req)

	assert.Equal(t, http.StatusUnauthorized, phone.Code)
	assert.Equal(t, http.StatusOK, laptop.Code)
}
