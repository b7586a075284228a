package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskman-api/internal/api/shared"
	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/mocks"
	"github.com/phrazzld/taskman-api/internal/service/avatar"
)

// newTestUserHandler wires a UserHandler with mock collaborators and a
// sqlmock-backed database for the transactional endpoints.
func newTestUserHandler(t *testing.T) (*UserHandler, *mocks.MockUserStore, *mocks.MockTaskStore, *mocks.RecordingMailer, sqlmock.Sqlmock) {
	t.Helper()

	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	userStore := mocks.NewMockUserStore()
	taskStore := mocks.NewMockTaskStore()
	mailer := mocks.NewRecordingMailer()

	handler := NewUserHandler(
		userStore,
		taskStore,
		db,
		&mocks.MockJWTService{Token: "test-token"},
		&mocks.MockPasswordHasher{},
		&mocks.MockPasswordVerifier{ShouldSucceed: true},
		mailer,
		avatar.NewImagingProcessor(),
	)
	return handler, userStore, taskStore, mailer, dbMock
}

// seedUser inserts a user into the mock store and returns it.
func seedUser(t *testing.T, userStore *mocks.MockUserStore) *domain.User {
	t.Helper()
	user, err := domain.NewUser("Amelia", "amelia@example.com", 30, "correct horse")
	require.NoError(t, err)
	user.Password = ""
	user.HashedPassword = "hashed:correct horse"
	userStore.Users[user.Email] = user
	return user
}

// authedRequest builds a request carrying the authenticated user and token
// the way the auth middleware would.
func authedRequest(method, target string, body *bytes.Buffer, user *domain.User, token string) *http.Request {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	ctx := context.WithValue(req.Context(), shared.UserContextKey, user)
	ctx = context.WithValue(ctx, shared.TokenContextKey, token)
	return req.WithContext(ctx)
}

func jsonBody(t *testing.T, payload any) *bytes.Buffer {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return bytes.NewBuffer(data)
}

func TestRegister(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		payload    map[string]interface{}
		seedFirst  bool
		expectTx   string // "", "commit", "rollback"
		wantStatus int
	}{
		{
			name: "valid registration",
			payload: map[string]interface{}{
				"name":     "Amelia",
				"email":    "amelia@example.com",
				"age":      30,
				"password": "correct horse",
			},
			expectTx:   "commit",
			wantStatus: http.StatusCreated,
		},
		{
			name: "duplicate email",
			payload: map[string]interface{}{
				"name":     "Impostor",
				"email":    "amelia@example.com",
				"password": "correct horse",
			},
			seedFirst:  true,
			expectTx:   "rollback",
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "invalid email",
			payload: map[string]interface{}{
				"name":     "Amelia",
				"email":    "not-an-email",
				"password": "correct horse",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "password too short",
			payload: map[string]interface{}{
				"name":     "Amelia",
				"email":    "amelia@example.com",
				"password": "short",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "password containing password",
			payload: map[string]interface{}{
				"name":     "Amelia",
				"email":    "amelia@example.com",
				"password": "myPassword1",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "negative age",
			payload: map[string]interface{}{
				"name":     "Amelia",
				"email":    "amelia@example.com",
				"age":      -1,
				"password": "correct horse",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "missing name",
			payload: map[string]interface{}{
				"email":    "amelia@example.com",
				"password": "correct horse",
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			handler, userStore, _, mailer, dbMock := newTestUserHandler(t)

			if tt.seedFirst {
				seedUser(t, userStore)
			}
			switch tt.expectTx {
			case "commit":
				dbMock.ExpectBegin()
				dbMock.ExpectCommit()
			case "rollback":
				dbMock.ExpectBegin()
				dbMock.ExpectRollback()
			}

			req := httptest.NewRequest("POST", "/users", jsonBody(t, tt.payload))
			req.Header.Set("Content-Type", "application/json")
			recorder := httptest.NewRecorder()

			handler.Register(recorder, req)

			assert.Equal(t, tt.wantStatus, recorder.Code)
			require.NoError(t, dbMock.ExpectationsWereMet())

			if tt.wantStatus == http.StatusCreated {
				var resp map[string]json.RawMessage
				require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
				assert.JSONEq(t, `"test-token"`, string(resp["token"]))

				var userFields map[string]interface{}
				require.NoError(t, json.Unmarshal(resp["user"], &userFields))
				assert.Equal(t, "amelia@example.com", userFields["email"])
				assert.NotContains(t, userFields, "password")
				assert.NotContains(t, userFields, "tokens")
				assert.NotContains(t, userFields, "avatar")

				// Welcome mail fires asynchronously.
				require.Eventually(t, func() bool {
					return len(mailer.Sent()) == 1
				}, 2*time.Second, 10*time.Millisecond)
				assert.Equal(t, "welcome", mailer.Sent()[0].Kind)
			} else if !tt.seedFirst {
				assert.Empty(t, userStore.Users, "no user should be created on failure")
			}
		})
	}
}

func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("valid credentials", func(t *testing.T) {
		t.Parallel()
		handler, userStore, _, _, _ := newTestUserHandler(t)
		user := seedUser(t, userStore)

		payload := map[string]string{"email": "Amelia@Example.com", "password": "correct horse"}
		recorder := httptest.NewRecorder()
		handler.Login(recorder, httptest.NewRequest("POST", "/users/login", jsonBody(t, payload)))

		assert.Equal(t, http.StatusOK, recorder.Code)
		var resp AuthResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
		assert.Equal(t, "test-token", resp.Token)
		assert.Equal(t, user.ID, resp.User.ID)
		assert.Contains(t, userStore.Tokens[user.ID], "test-token")
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		t.Parallel()
		handler, userStore, _, _, _ := newTestUserHandler(t)
		seedUser(t, userStore)
		verifier := handler.passwordVerifier.(*mocks.MockPasswordVerifier)
		verifier.ShouldSucceed = false

		unknownEmail := httptest.NewRecorder()
		handler.Login(unknownEmail, httptest.NewRequest("POST", "/users/login",
			jsonBody(t, map[string]string{"email": "nobody@example.com", "password": "whatever"})))

		wrongPassword := httptest.NewRecorder()
		handler.Login(wrongPassword, httptest.NewRequest("POST", "/users/login",
			jsonBody(t, map[string]string{"email": "amelia@example.com", "password": "wrong"})))

		assert.Equal(t, http.StatusBadRequest, unknownEmail.Code)
		assert.Equal(t, http.StatusBadRequest, wrongPassword.Code)
		assert.Equal(t, unknownEmail.Body.String(), wrongPassword.Body.String())
		assert.Contains(t, unknownEmail.Body.String(), "Unable to login")
	})
}

func TestLogout(t *testing.T) {
	t.Parallel()

	handler, userStore, _, _, _ := newTestUserHandler(t)
	user := seedUser(t, userStore)
	userStore.Tokens[user.ID] = []string{"token-a", "token-b"}

	recorder := httptest.NewRecorder()
	handler.Logout(recorder, authedRequest("POST", "/users/logout", nil, user, "token-a"))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, []string{"token-b"}, userStore.Tokens[user.ID],
		"only the presented token should be revoked")
}

func TestLogoutAll(t *testing.T) {
	t.Parallel()

	handler, userStore, _, _, _ := newTestUserHandler(t)
	user := seedUser(t, userStore)
	userStore.Tokens[user.ID] = []string{"token-a", "token-b"}

	recorder := httptest.NewRecorder()
	handler.LogoutAll(recorder, authedRequest("POST", "/users/logoutAll", nil, user, "token-a"))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Empty(t, userStore.Tokens[user.ID])
}

func TestMe(t *testing.T) {
	t.Parallel()

	handler, userStore, _, _, _ := newTestUserHandler(t)
	user := seedUser(t, userStore)

	recorder := httptest.NewRecorder()
	handler.Me(recorder, authedRequest("GET", "/users/me", nil, user, "token-a"))

	assert.Equal(t, http.StatusOK, recorder.Code)
	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &fields))
	assert.Equal(t, user.Email, fields["email"])
	assert.NotContains(t, fields, "password")
	assert.NotContains(t, fields, "tokens")
	assert.NotContains(t, fields, "avatar")
}

func TestUpdateMe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		payload    map[string]interface{}
		wantStatus int
		check      func(t *testing.T, stored *domain.User)
	}{
		{
			name:       "update name and age",
			payload:    map[string]interface{}{"name": "Amelia P.", "age": 31},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, stored *domain.User) {
				assert.Equal(t, "Amelia P.", stored.Name)
				assert.Equal(t, 31, stored.Age)
			},
		},
		{
			name:       "update password rehashes",
			payload:    map[string]interface{}{"password": "brand new secret"},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, stored *domain.User) {
				assert.Equal(t, "hashed:brand new secret", stored.HashedPassword)
			},
		},
		{
			name:       "disallowed field rejects whole request",
			payload:    map[string]interface{}{"name": "Sneaky", "height": 180},
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, stored *domain.User) {
				assert.Equal(t, "Amelia", stored.Name, "no partial mutation on invalid update")
			},
		},
		{
			name:       "short password rejected",
			payload:    map[string]interface{}{"password": "tiny"},
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, stored *domain.User) {
				assert.Equal(t, "hashed:correct horse", stored.HashedPassword)
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			handler, userStore, _, _, _ := newTestUserHandler(t)
			user := seedUser(t, userStore)

			recorder := httptest.NewRecorder()
			handler.UpdateMe(recorder, authedRequest("PATCH", "/users/me", jsonBody(t, tt.payload), user, "token-a"))

			assert.Equal(t, tt.wantStatus, recorder.Code)
			stored, err := userStore.GetByID(context.Background(), user.ID)
			require.NoError(t, err)
			tt.check(t, stored)
		})
	}

	t.Run("duplicate email", func(t *testing.T) {
		t.Parallel()
		handler, userStore, _, _, _ := newTestUserHandler(t)
		user := seedUser(t, userStore)
		other, err := domain.NewUser("Briar", "briar@example.com", 0, "another secret")
		require.NoError(t, err)
		other.HashedPassword = "hashed:another secret"
		userStore.Users[other.Email] = other

		recorder := httptest.NewRecorder()
		handler.UpdateMe(recorder, authedRequest("PATCH", "/users/me",
			jsonBody(t, map[string]string{"email": "briar@example.com"}), user, "token-a"))

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "Email already exists")
	})
}

func TestDeleteMe(t *testing.T) {
	t.Parallel()

	handler, userStore, taskStore, mailer, dbMock := newTestUserHandler(t)
	user := seedUser(t, userStore)
	task, err := domain.NewTask(user.ID, "walk the dog", false)
	require.NoError(t, err)
	require.NoError(t, taskStore.Create(context.Background(), task))

	dbMock.ExpectBegin()
	dbMock.ExpectCommit()

	recorder := httptest.NewRecorder()
	handler.DeleteMe(recorder, authedRequest("DELETE", "/users/me", nil, user, "token-a"))

	assert.Equal(t, http.StatusOK, recorder.Code)
	require.NoError(t, dbMock.ExpectationsWereMet())
	assert.Empty(t, userStore.Users, "account row should be gone")
	assert.Empty(t, taskStore.Tasks, "owned tasks should be cascaded")

	require.Eventually(t, func() bool {
		return len(mailer.Sent()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "cancellation", mailer.Sent()[0].Kind)
	assert.Equal(t, user.Email, mailer.Sent()[0].Email)
}

// pngUpload builds a multipart body with a small generated PNG under the
// "avatar" field.
func pngUpload(t *testing.T, filename string) (*bytes.Buffer, string) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for x := 0; x < 64; x++ {
		for y := 0; y < 48; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 5), B: 90, A: 255})
		}
	}
	var encoded bytes.Buffer
	require.NoError(t, png.Encode(&encoded, img))

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("avatar", filename)
	require.NoError(t, err)
	_, err = part.Write(encoded.Bytes())
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return &body, writer.FormDataContentType()
}

func TestAvatarLifecycle(t *testing.T) {
	t.Parallel()

	handler, userStore, _, _, _ := newTestUserHandler(t)
	user := seedUser(t, userStore)

	// No avatar yet.
	recorder := httptest.NewRecorder()
	handler.GetAvatar(recorder, authedRequest("GET", "/users/me/avatar", nil, user, "token-a"))
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	// Upload a PNG; it is stored as a processed JPEG.
	body, contentType := pngUpload(t, "me.png")
	req := authedRequest("POST", "/users/me/avatar", body, user, "token-a")
	req.Header.Set("Content-Type", contentType)
	recorder = httptest.NewRecorder()
	handler.UploadAvatar(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	require.NotEmpty(t, userStore.Avatars[user.ID])

	// Fetch it back as image/jpeg.
	recorder = httptest.NewRecorder()
	handler.GetAvatar(recorder, authedRequest("GET", "/users/me/avatar", nil, user, "token-a"))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "image/jpeg", recorder.Header().Get("Content-Type"))
	decoded, format, err := image.Decode(bytes.NewReader(recorder.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, avatar.Width, decoded.Bounds().Dx())
	assert.Equal(t, avatar.Height, decoded.Bounds().Dy())

	// Delete clears it.
	recorder = httptest.NewRecorder()
	handler.DeleteAvatar(recorder, authedRequest("DELETE", "/users/me/avatar", nil, user, "token-a"))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Empty(t, userStore.Avatars[user.ID])
}

func TestUploadAvatarRejectsBadExtension(t *testing.T) {
	t.Parallel()

	handler, userStore, _, _, _ := newTestUserHandler(t)
	user := seedUser(t, userStore)

	body, contentType := pngUpload(t, "resume.pdf")
	req := authedRequest("POST", "/users/me/avatar", body, user, "token-a")
	req.Header.Set("Content-Type", contentType)

	recorder := httptest.NewRecorder()
	handler.UploadAvatar(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Empty(t, userStore.Avatars[user.ID], "nothing persisted on rejected upload")
}

// Guard against accidentally responding before the middleware ran.
func TestHandlersRequireAuthenticatedContext(t *testing.T) {
	t.Parallel()

	handler, _, _, _, _ := newTestUserHandler(t)

	recorder := httptest.NewRecorder()
	handler.Me(recorder, httptest.NewRequest("GET", "/users/me", nil))

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Please authenticate.")
}
