package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/taskman-api/internal/api/middleware"
	"github.com/phrazzld/taskman-api/internal/api/shared"
	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/platform/logger"
	"github.com/phrazzld/taskman-api/internal/service/auth"
	"github.com/phrazzld/taskman-api/internal/service/avatar"
	"github.com/phrazzld/taskman-api/internal/service/mail"
	"github.com/phrazzld/taskman-api/internal/store"
)

// allowedUserUpdates are the only fields a profile PATCH may carry. A
// request naming any other field is rejected whole, before any mutation.
var allowedUserUpdates = map[string]bool{
	"name":     true,
	"email":    true,
	"password": true,
	"age":      true,
}

// mailTimeout bounds the fire-and-forget notification sends so they don't
// hold a goroutine forever on a stuck gateway.
const mailTimeout = 10 * time.Second

// UserHandler handles account-related API requests: registration, login,
// session management, profile updates, and avatars.
type UserHandler struct {
	userStore        store.UserStore
	taskStore        store.TaskStore
	db               *sql.DB
	jwtService       auth.JWTService
	passwordHasher   auth.PasswordHasher
	passwordVerifier auth.PasswordVerifier
	mailer           mail.Mailer
	avatars          avatar.Processor
}

// NewUserHandler creates a new UserHandler with the given dependencies.
func NewUserHandler(
	userStore store.UserStore,
	taskStore store.TaskStore,
	db *sql.DB,
	jwtService auth.JWTService,
	passwordHasher auth.PasswordHasher,
	passwordVerifier auth.PasswordVerifier,
	mailer mail.Mailer,
	avatars avatar.Processor,
) *UserHandler {
	return &UserHandler{
		userStore:        userStore,
		taskStore:        taskStore,
		db:               db,
		jwtService:       jwtService,
		passwordHasher:   passwordHasher,
		passwordVerifier: passwordVerifier,
		mailer:           mailer,
		avatars:          avatars,
	}
}

// Register handles POST /users.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req RegisterRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	user, err := domain.NewUser(req.Name, req.Email, req.Age, req.Password)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	hashed, err := h.passwordHasher.Hash(req.Password)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to create user", err)
		return
	}
	user.HashedPassword = hashed

	token, err := h.jwtService.GenerateToken(r.Context(), user.ID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to generate authentication token", err)
		return
	}

	// The user row and its first session token are created atomically.
	err = store.RunInTransaction(r.Context(), h.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := h.userStore.WithTx(tx)
		if err := txStore.Create(ctx, user); err != nil {
			return err
		}
		return txStore.AddToken(ctx, user.ID, token)
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Email already exists")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to create user", err)
		return
	}

	h.sendMail(log, user, "welcome", h.mailer.SendWelcome)

	shared.RespondWithJSON(w, r, http.StatusCreated, AuthResponse{User: user, Token: token})
}

// Login handles POST /users/login. Unknown email and wrong password produce
// the same response so the endpoint can't be used to probe for accounts.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(auth.ErrUnableToLogin))
		return
	}

	user, err := h.userStore.GetByEmail(r.Context(), domain.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(auth.ErrUnableToLogin))
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to authenticate user", err)
		return
	}

	if err := h.passwordVerifier.Compare(user.HashedPassword, req.Password); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(auth.ErrUnableToLogin))
		return
	}

	token, err := h.jwtService.GenerateToken(r.Context(), user.ID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to generate authentication token", err)
		return
	}

	if err := h.userStore.AddToken(r.Context(), user.ID, token); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to authenticate user", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AuthResponse{User: user, Token: token})
}

// Logout handles POST /users/logout. Only the presented token is revoked;
// sessions on other devices stay live.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, token, ok := h.sessionFromContext(w, r)
	if !ok {
		return
	}

	if err := h.userStore.RemoveToken(r.Context(), user.ID, token); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to log out", err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// LogoutAll handles POST /users/logoutAll, revoking every live session for
// the user.
func (h *UserHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	user, _, ok := h.sessionFromContext(w, r)
	if !ok {
		return
	}

	if err := h.userStore.ClearTokens(r.Context(), user.ID); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to log out", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, user)
}

// Me handles GET /users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, _, ok := h.sessionFromContext(w, r)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, user)
}

// UpdateMe handles PATCH /users/me. The field set is validated before any
// mutation: a request naming a field outside {name, email, password, age}
// is rejected whole.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, _, ok := h.sessionFromContext(w, r)
	if !ok {
		return
	}

	var fields map[string]json.RawMessage
	if err := shared.DecodeJSON(r, &fields); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	for name := range fields {
		if !allowedUserUpdates[name] {
			shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(domain.ErrInvalidUpdate))
			return
		}
	}

	// Apply the changes to a copy so a failure partway through leaves the
	// authenticated user untouched.
	updated := *user

	if raw, ok := fields["name"]; ok {
		if err := json.Unmarshal(raw, &updated.Name); err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
			return
		}
	}
	if raw, ok := fields["email"]; ok {
		var email string
		if err := json.Unmarshal(raw, &email); err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
			return
		}
		updated.Email = domain.NormalizeEmail(email)
	}
	if raw, ok := fields["age"]; ok {
		if err := json.Unmarshal(raw, &updated.Age); err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
			return
		}
	}
	if raw, ok := fields["password"]; ok {
		var password string
		if err := json.Unmarshal(raw, &password); err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
			return
		}
		if err := domain.ValidatePassword(password); err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		hashed, err := h.passwordHasher.Hash(password)
		if err != nil {
			shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
				"Failed to update user", err)
			return
		}
		updated.HashedPassword = hashed
	}

	if err := updated.Validate(); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.userStore.Update(r.Context(), &updated); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Email already exists")
			return
		}
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, &updated)
}

// DeleteMe handles DELETE /users/me. The user's tasks and sessions are
// removed in the same transaction as the account row.
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	user, _, ok := h.sessionFromContext(w, r)
	if !ok {
		return
	}

	err := store.RunInTransaction(r.Context(), h.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := h.taskStore.WithTx(tx).DeleteByOwner(ctx, user.ID); err != nil {
			return err
		}
		return h.userStore.WithTx(tx).Delete(ctx, user.ID)
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to delete user", err)
		return
	}

	h.sendMail(log, user, "cancellation", h.mailer.SendCancellation)

	shared.RespondWithJSON(w, r, http.StatusOK, user)
}

// GetAvatar handles GET /users/me/avatar. The stored blob is always a JPEG.
func (h *UserHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	user, _, ok := h.sessionFromContext(w, r)
	if !ok {
		return
	}

	data, err := h.userStore.GetAvatar(r.Context(), user.ID)
	if err != nil {
		if store.IsNotFoundError(err) {
			shared.RespondWithError(w, r, http.StatusNotFound, GetSafeErrorMessage(store.ErrAvatarNotFound))
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to fetch avatar", err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// UploadAvatar handles POST /users/me/avatar. The upload is validated and
// processed before anything is persisted, so a bad image never clobbers an
// existing avatar.
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	user, _, ok := h.sessionFromContext(w, r)
	if !ok {
		return
	}

	// Cap the multipart read slightly above the avatar limit so oversized
	// uploads fail the size check instead of exhausting memory.
	r.Body = http.MaxBytesReader(w, r.Body, domain.MaxAvatarBytes+(64<<10))

	file, header, err := r.FormFile("avatar")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Avatar file is required")
		return
	}
	defer func() { _ = file.Close() }()

	if err := avatar.CheckUpload(header.Filename, header.Size); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(err))
		return
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Failed to read avatar upload")
		return
	}

	processed, err := h.avatars.Process(raw)
	if err != nil {
		shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	if err := h.userStore.SetAvatar(r.Context(), user.ID, processed); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to store avatar", err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// DeleteAvatar handles DELETE /users/me/avatar.
func (h *UserHandler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	user, _, ok := h.sessionFromContext(w, r)
	if !ok {
		return
	}

	if err := h.userStore.ClearAvatar(r.Context(), user.ID); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to delete avatar", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, user)
}

// sessionFromContext pulls the authenticated user and token placed in the
// context by the auth middleware. It writes a 401 and returns false if the
// middleware did not run.
func (h *UserHandler) sessionFromContext(w http.ResponseWriter, r *http.Request) (*domain.User, string, bool) {
	user, ok := middleware.GetUser(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Please authenticate.")
		return nil, "", false
	}
	token, ok := middleware.GetToken(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Please authenticate.")
		return nil, "", false
	}
	return user, token, true
}

// sendMail fires a notification without blocking the response. Failures are
// logged and swallowed; the triggering operation has already committed.
func (h *UserHandler) sendMail(
	log *slog.Logger,
	user *domain.User,
	kind string,
	send func(ctx context.Context, email, name string) error,
) {
	email, name := user.Email, user.Name
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		defer cancel()
		if err := send(ctx, email, name); err != nil {
			log.Warn("failed to send notification email",
				"kind", kind,
				"error", err)
		}
	}()
}
