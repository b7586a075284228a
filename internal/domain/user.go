package domain

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common user validation errors
var (
	ErrEmptyUserID         = errors.New("user ID cannot be empty")
	ErrEmptyName           = errors.New("name cannot be empty")
	ErrEmptyEmail          = errors.New("email cannot be empty")
	ErrInvalidEmail        = errors.New("invalid email format")
	ErrNegativeAge         = errors.New("age must be a non-negative number")
	ErrEmptyPassword       = errors.New("password cannot be empty")
	ErrPasswordTooShort    = errors.New("password must be at least 7 characters long")
	ErrPasswordTooLong     = errors.New("password must be at most 72 characters long")
	ErrPasswordForbidden   = errors.New("password cannot contain the word \"password\"")
	ErrEmptyHashedPassword = errors.New("hashed password cannot be empty")
)

// MaxAvatarBytes is the maximum accepted size of an uploaded avatar image.
const MaxAvatarBytes = 1 << 20 // 1MB

// User represents a registered account. Tokens holds one active session
// token per logged-in device; a token outside this list is treated as
// revoked even when its signature still verifies.
type User struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Age            int       `json:"age"`
	Password       string    `json:"-"` // Plaintext, only populated transiently before hashing
	HashedPassword string    `json:"-"` // Never expose the password hash in JSON
	Tokens         []string  `json:"-"`
	Avatar         []byte    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewUser creates a new User with the given fields. It generates a new UUID,
// normalizes the email, and sets the creation/update timestamps.
// Returns an error if validation fails.
//
// NOTE: the struct carries the plaintext password only until the caller
// hashes it; the store layer refuses to persist a user without a hash.
func NewUser(name, email string, age int, password string) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(name),
		Email:     NormalizeEmail(email),
		Age:       age,
		Password:  password,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// NormalizeEmail lowercases and trims an email address so that uniqueness
// checks are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks if the User has valid data.
// Returns an error if any field fails validation.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}

	if u.Name == "" {
		return ErrEmptyName
	}

	if u.Email == "" {
		return ErrEmptyEmail
	}

	if _, err := mail.ParseAddress(u.Email); err != nil {
		return ErrInvalidEmail
	}

	if u.Age < 0 {
		return ErrNegativeAge
	}

	if u.Password != "" {
		if err := ValidatePassword(u.Password); err != nil {
			return err
		}
	} else if u.HashedPassword == "" {
		// An existing user loaded from the store always carries a hash.
		return ErrEmptyPassword
	}

	return nil
}

// ValidatePassword checks a plaintext password against the account rules:
// at least 7 characters, at most 72 (bcrypt's input limit), and it must not
// contain the substring "password" in any casing.
func ValidatePassword(password string) error {
	if len(password) < 7 {
		return ErrPasswordTooShort
	}
	if len(password) > 72 {
		return ErrPasswordTooLong
	}
	if strings.Contains(strings.ToLower(password), "password") {
		return ErrPasswordForbidden
	}
	return nil
}

// HasToken reports whether the given session token is currently live for
// this user.
func (u *User) HasToken(token string) bool {
	for _, t := range u.Tokens {
		if t == token {
			return true
		}
	}
	return false
}
