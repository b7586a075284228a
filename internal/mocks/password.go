package mocks

import (
	"errors"

	"github.com/phrazzld/taskman-api/internal/service/auth"
)

// MockPasswordHasher implements auth.PasswordHasher for testing without the
// cost of real bcrypt rounds.
type MockPasswordHasher struct {
	// Hashed is the value returned for any input. Defaults to a fixed
	// marker when empty.
	Hashed string

	// Err, when set, is returned by Hash.
	Err error
}

var _ auth.PasswordHasher = (*MockPasswordHasher)(nil)

// Hash implements the PasswordHasher interface
func (m *MockPasswordHasher) Hash(password string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if m.Hashed != "" {
		return m.Hashed, nil
	}
	return "hashed:" + password, nil
}

// MockPasswordVerifier implements auth.PasswordVerifier for testing.
type MockPasswordVerifier struct {
	// ShouldSucceed determines whether Compare reports a match.
	ShouldSucceed bool
}

var _ auth.PasswordVerifier = (*MockPasswordVerifier)(nil)

// Compare implements the PasswordVerifier interface
func (m *MockPasswordVerifier) Compare(hashedPassword, password string) error {
	if m.ShouldSucceed {
		return nil
	}
	return errors.New("password mismatch")
}
