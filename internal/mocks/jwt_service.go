package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/taskman-api/internal/service/auth"
)

// MockJWTService implements auth.JWTService for testing.
type MockJWTService struct {
	// Token is returned by GenerateToken when Err is nil.
	Token string

	// UserID is set as the claims' user ID by ValidateToken.
	UserID uuid.UUID

	// Err, when set, is returned by both methods.
	Err error

	// ValidateErr, when set, is returned by ValidateToken only.
	ValidateErr error
}

var _ auth.JWTService = (*MockJWTService)(nil)

// GenerateToken implements the JWTService interface
func (m *MockJWTService) GenerateToken(ctx context.Context, userID uuid.UUID) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.Token, nil
}

// ValidateToken implements the JWTService interface
func (m *MockJWTService) ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.ValidateErr != nil {
		return nil, m.ValidateErr
	}
	return &auth.Claims{
		UserID:    m.UserID,
		Subject:   m.UserID.String(),
		IssuedAt:  time.Now().Add(-time.Minute),
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}
