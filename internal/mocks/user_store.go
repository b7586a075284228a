package mocks

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/store"
)

// MockUserStore implements store.UserStore for testing. The default
// behavior is an in-memory map keyed by email; individual methods can be
// overridden through the Fn fields.
type MockUserStore struct {
	// Function fields for customizable behavior
	CreateFn           func(ctx context.Context, user *domain.User) error
	GetByEmailFn       func(ctx context.Context, email string) (*domain.User, error)
	GetByIDFn          func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByIDWithTokenFn func(ctx context.Context, id uuid.UUID, token string) (*domain.User, error)
	UpdateFn           func(ctx context.Context, user *domain.User) error
	DeleteFn           func(ctx context.Context, id uuid.UUID) error

	// Data for the default implementation
	Users   map[string]*domain.User
	Tokens  map[uuid.UUID][]string
	Avatars map[uuid.UUID][]byte

	// Forced errors for the default implementation
	CreateError error
	TokenError  error
	AvatarError error
}

var _ store.UserStore = (*MockUserStore)(nil)

// NewMockUserStore creates a new mock store with initialized defaults.
func NewMockUserStore() *MockUserStore {
	return &MockUserStore{
		Users:   make(map[string]*domain.User),
		Tokens:  make(map[uuid.UUID][]string),
		Avatars: make(map[uuid.UUID][]byte),
	}
}

// Create implements the UserStore interface
func (m *MockUserStore) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, user)
	}
	if m.CreateError != nil {
		return m.CreateError
	}
	if _, exists := m.Users[user.Email]; exists {
		return store.ErrEmailExists
	}
	m.Users[user.Email] = user
	return nil
}

// GetByEmail implements the UserStore interface
func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.GetByEmailFn != nil {
		return m.GetByEmailFn(ctx, email)
	}
	user, exists := m.Users[email]
	if !exists {
		return nil, store.ErrUserNotFound
	}
	return user, nil
}

// GetByID implements the UserStore interface
func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	for _, user := range m.Users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, store.ErrUserNotFound
}

// GetByIDWithToken implements the UserStore interface
func (m *MockUserStore) GetByIDWithToken(
	ctx context.Context,
	id uuid.UUID,
	token string,
) (*domain.User, error) {
	if m.GetByIDWithTokenFn != nil {
		return m.GetByIDWithTokenFn(ctx, id, token)
	}
	user, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, t := range m.Tokens[id] {
		if t == token {
			return user, nil
		}
	}
	return nil, store.ErrUserNotFound
}

// Update implements the UserStore interface
func (m *MockUserStore) Update(ctx context.Context, user *domain.User) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, user)
	}
	for email, existing := range m.Users {
		if existing.ID == user.ID {
			if email != user.Email {
				if _, taken := m.Users[user.Email]; taken {
					return store.ErrEmailExists
				}
				delete(m.Users, email)
			}
			m.Users[user.Email] = user
			return nil
		}
	}
	return store.ErrUserNotFound
}

// Delete implements the UserStore interface
func (m *MockUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	for email, user := range m.Users {
		if user.ID == id {
			delete(m.Users, email)
			delete(m.Tokens, id)
			delete(m.Avatars, id)
			return nil
		}
	}
	return store.ErrUserNotFound
}

// AddToken implements the UserStore interface
func (m *MockUserStore) AddToken(ctx context.Context, id uuid.UUID, token string) error {
	if m.TokenError != nil {
		return m.TokenError
	}
	for _, t := range m.Tokens[id] {
		if t == token {
			return nil
		}
	}
	m.Tokens[id] = append(m.Tokens[id], token)
	return nil
}

// RemoveToken implements the UserStore interface
func (m *MockUserStore) RemoveToken(ctx context.Context, id uuid.UUID, token string) error {
	if m.TokenError != nil {
		return m.TokenError
	}
	kept := m.Tokens[id][:0]
	for _, t := range m.Tokens[id] {
		if t != token {
			kept = append(kept, t)
		}
	}
	m.Tokens[id] = kept
	return nil
}

// ClearTokens implements the UserStore interface
func (m *MockUserStore) ClearTokens(ctx context.Context, id uuid.UUID) error {
	if m.TokenError != nil {
		return m.TokenError
	}
	delete(m.Tokens, id)
	return nil
}

// SetAvatar implements the UserStore interface
func (m *MockUserStore) SetAvatar(ctx context.Context, id uuid.UUID, data []byte) error {
	if m.AvatarError != nil {
		return m.AvatarError
	}
	if _, err := m.GetByID(ctx, id); err != nil {
		return err
	}
	m.Avatars[id] = data
	return nil
}

// GetAvatar implements the UserStore interface
func (m *MockUserStore) GetAvatar(ctx context.Context, id uuid.UUID) ([]byte, error) {
	if m.AvatarError != nil {
		return nil, m.AvatarError
	}
	if _, err := m.GetByID(ctx, id); err != nil {
		return nil, err
	}
	data, ok := m.Avatars[id]
	if !ok || len(data) == 0 {
		return nil, store.ErrAvatarNotFound
	}
	return data, nil
}

// ClearAvatar implements the UserStore interface
func (m *MockUserStore) ClearAvatar(ctx context.Context, id uuid.UUID) error {
	if m.AvatarError != nil {
		return m.AvatarError
	}
	if _, err := m.GetByID(ctx, id); err != nil {
		return err
	}
	delete(m.Avatars, id)
	return nil
}

// WithTx implements the UserStore interface. The mock has no transaction
// state, so it returns itself.
func (m *MockUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return m
}
