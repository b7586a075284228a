package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/phrazzld/taskman-api/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user to the store. The user must already carry a
	// hashed password; the store never sees plaintext credentials.
	// Returns ErrEmailExists if the email is already taken (enforced
	// atomically by a unique index, so concurrent registrations with the
	// same email cannot both succeed).
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by their normalized email address.
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByIDWithToken retrieves a user only if the given session token is
	// currently in their live-token list. This is the membership half of
	// the authentication double check: a token that verifies
	// cryptographically but has been revoked (or belongs to another user)
	// yields ErrUserNotFound.
	GetByIDWithToken(ctx context.Context, id uuid.UUID, token string) (*domain.User, error)

	// Update modifies an existing user's profile fields (name, email, age,
	// hashed password). Token lists and avatars are managed by their own
	// methods, never by Update.
	// Returns ErrUserNotFound if the user does not exist.
	// Returns ErrEmailExists if updating to an email that already exists.
	Update(ctx context.Context, user *domain.User) error

	// SetAvatar stores the processed avatar blob for the user.
	// Returns ErrUserNotFound if the user does not exist.
	SetAvatar(ctx context.Context, id uuid.UUID, data []byte) error

	// GetAvatar retrieves the stored avatar blob.
	// Returns ErrAvatarNotFound when the user has no avatar set, and
	// ErrUserNotFound when the user does not exist.
	GetAvatar(ctx context.Context, id uuid.UUID) ([]byte, error)

	// ClearAvatar unsets the stored avatar blob.
	// Returns ErrUserNotFound if the user does not exist.
	ClearAvatar(ctx context.Context, id uuid.UUID) error

	// Delete removes a user from the store by their ID.
	// Returns ErrUserNotFound if the user does not exist.
	// Callers are responsible for deleting owned tasks first, inside the
	// same transaction.
	Delete(ctx context.Context, id uuid.UUID) error

	// AddToken appends a session token to the user's live-token list using
	// an atomic document update, so concurrent logins from two devices
	// cannot lose each other's tokens.
	AddToken(ctx context.Context, id uuid.UUID, token string) error

	// RemoveToken removes exactly the given token from the user's
	// live-token list. Removing a token that is not present is a no-op.
	RemoveToken(ctx context.Context, id uuid.UUID, token string) error

	// ClearTokens revokes every session token for the user.
	ClearTokens(ctx context.Context, id uuid.UUID) error

	// WithTx returns a UserStore bound to the given transaction, allowing
	// multiple operations to commit or roll back together.
	WithTx(tx *sql.Tx) UserStore
}
