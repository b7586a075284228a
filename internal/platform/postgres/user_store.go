package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/platform/logger"
	"github.com/phrazzld/taskman-api/internal/store"
)

// userColumns are the row fields loaded for a user. The avatar blob is
// deliberately excluded; it is served by GetAvatar only, so routine auth
// lookups never haul up to 1MB of image data.
const userColumns = "id, name, email, age, hashed_password, created_at, updated_at"

// PostgresUserStore implements the store.UserStore interface
// using a PostgreSQL database as the storage backend.
type PostgresUserStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresUserStore creates a new PostgreSQL implementation of the
// UserStore interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller.
func NewPostgresUserStore(db store.DBTX, log *slog.Logger) *PostgresUserStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresUserStore{
		db:     db,
		logger: log.With(slog.String("component", "user_store")),
	}
}

// Ensure PostgresUserStore implements store.UserStore interface
var _ store.UserStore = (*PostgresUserStore)(nil)

// WithTx implements store.UserStore.WithTx
func (s *PostgresUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &PostgresUserStore{db: tx, logger: s.logger}
}

// Create implements store.UserStore.Create
// Returns store.ErrEmailExists when the email is already taken; the unique
// index makes this atomic against concurrent registrations.
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := user.Validate(); err != nil {
		log.Warn("user validation failed during create",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return err
	}
	if user.HashedPassword == "" {
		return domain.ErrEmptyHashedPassword
	}

	query := `
		INSERT INTO users (id, name, email, age, hashed_password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Name,
		user.Email,
		user.Age,
		user.HashedPassword,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("duplicate email during user creation",
				slog.String("user_id", user.ID.String()))
			return fmt.Errorf("%w: %v", store.ErrEmailExists, err)
		}
		log.Error("failed to create user",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return MapError(err)
	}

	log.Info("user created successfully",
		slog.String("user_id", user.ID.String()))
	return nil
}

// GetByID implements store.UserStore.GetByID
func (s *PostgresUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	return s.getOne(ctx, query, id)
}

// GetByEmail implements store.UserStore.GetByEmail
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE lower(email) = $1", userColumns)
	return s.getOne(ctx, query, domain.NormalizeEmail(email))
}

// GetByIDWithToken implements store.UserStore.GetByIDWithToken
// The EXISTS clause is the membership half of the authentication double
// check: a revoked or foreign token yields ErrUserNotFound no matter how
// valid its signature is.
func (s *PostgresUserStore) GetByIDWithToken(
	ctx context.Context,
	id uuid.UUID,
	token string,
) (*domain.User, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM users u
		WHERE u.id = $1
		  AND EXISTS (
			SELECT 1 FROM user_tokens t
			WHERE t.user_id = u.id AND t.token = $2
		  )`, userColumns)
	return s.getOne(ctx, query, id, token)
}

// getOne runs a single-row user query and loads the user's token list.
func (s *PostgresUserStore) getOne(
	ctx context.Context,
	query string,
	args ...any,
) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var user domain.User
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Age,
		&user.HashedPassword,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		log.Error("failed to get user",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	tokens, err := s.loadTokens(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Tokens = tokens

	return &user, nil
}

// loadTokens fetches the user's live session tokens in issue order.
func (s *PostgresUserStore) loadTokens(ctx context.Context, id uuid.UUID) ([]string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx,
		`SELECT token FROM user_tokens WHERE user_id = $1 ORDER BY created_at, token`, id)
	if err != nil {
		log.Error("failed to load user tokens",
			slog.String("error", err.Error()),
			slog.String("user_id", id.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, MapError(err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return tokens, nil
}

// Update implements store.UserStore.Update
func (s *PostgresUserStore) Update(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := user.Validate(); err != nil {
		log.Warn("user validation failed during update",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return err
	}
	if user.HashedPassword == "" {
		return domain.ErrEmptyHashedPassword
	}

	user.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users
		SET name = $1, email = $2, age = $3, hashed_password = $4, updated_at = $5
		WHERE id = $6
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		user.Name,
		user.Email,
		user.Age,
		user.HashedPassword,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", store.ErrEmailExists, err)
		}
		log.Error("failed to update user",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return MapError(err)
	}

	return CheckRowsAffected(result, store.ErrUserNotFound)
}

// Delete implements store.UserStore.Delete
func (s *PostgresUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete user",
			slog.String("error", err.Error()),
			slog.String("user_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrUserNotFound); err != nil {
		return err
	}

	log.Info("user deleted successfully", slog.String("user_id", id.String()))
	return nil
}

// AddToken implements store.UserStore.AddToken
// The insert is a single atomic statement; two devices logging in at the
// same time both keep their sessions.
func (s *PostgresUserStore) AddToken(ctx context.Context, id uuid.UUID, token string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO user_tokens (user_id, token)
		VALUES ($1, $2)
		ON CONFLICT (user_id, token) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query, id, token)
	if err != nil {
		mapped := MapError(err)
		if errors.Is(mapped, store.ErrInvalidEntity) {
			// Foreign key violation: no such user.
			return store.ErrUserNotFound
		}
		log.Error("failed to add session token",
			slog.String("error", err.Error()),
			slog.String("user_id", id.String()))
		return mapped
	}

	return nil
}

// RemoveToken implements store.UserStore.RemoveToken
// Removing a token that is not present is a no-op, which makes logout
// idempotent.
func (s *PostgresUserStore) RemoveToken(ctx context.Context, id uuid.UUID, token string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM user_tokens WHERE user_id = $1 AND token = $2`, id, token)
	if err != nil {
		log.Error("failed to remove session token",
			slog.String("error", err.Error()),
			slog.String("user_id", id.String()))
		return MapError(err)
	}

	return nil
}

// ClearTokens implements store.UserStore.ClearTokens
func (s *PostgresUserStore) ClearTokens(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `DELETE FROM user_tokens WHERE user_id = $1`, id)
	if err != nil {
		log.Error("failed to clear session tokens",
			slog.String("error", err.Error()),
			slog.String("user_id", id.String()))
		return MapError(err)
	}

	log.Info("all session tokens revoked", slog.String("user_id", id.String()))
	return nil
}

// SetAvatar implements store.UserStore.SetAvatar
func (s *PostgresUserStore) SetAvatar(ctx context.Context, id uuid.UUID, data []byte) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET avatar = $1, updated_at = $2 WHERE id = $3`,
		data, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to set avatar",
			slog.String("error", err.Error()),
			slog.String("user_id", id.String()))
		return MapError(err)
	}

	return CheckRowsAffected(result, store.ErrUserNotFound)
}

// GetAvatar implements store.UserStore.GetAvatar
func (s *PostgresUserStore) GetAvatar(ctx context.Context, id uuid.UUID) ([]byte, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var avatar []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT avatar FROM users WHERE id = $1`, id).Scan(&avatar)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		log.Error("failed to get avatar",
			slog.String("error", err.Error()),
			slog.String("user_id", id.String()))
		return nil, MapError(err)
	}

	if len(avatar) == 0 {
		return nil, store.ErrAvatarNotFound
	}

	return avatar, nil
}

// ClearAvatar implements store.UserStore.ClearAvatar
func (s *PostgresUserStore) ClearAvatar(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET avatar = NULL, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to clear avatar",
			slog.String("error", err.Error()),
			slog.String("user_id", id.String()))
		return MapError(err)
	}

	return CheckRowsAffected(result, store.ErrUserNotFound)
}
