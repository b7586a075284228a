package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskman-api/internal/domain"
)

func TestNewUser(t *testing.T) {
	t.Parallel()

	user, err := domain.NewUser("Ann", "A@X.com", 30, "longenough1")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "Ann", user.Name)
	assert.Equal(t, "a@x.com", user.Email, "email should be normalized to lowercase")
	assert.Equal(t, 30, user.Age)
	assert.False(t, user.CreatedAt.IsZero())
	assert.Empty(t, user.Tokens)
}

func TestUserValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		mutate   func(u *domain.User)
		expected error
	}{
		{
			name:     "valid user",
			mutate:   func(u *domain.User) {},
			expected: nil,
		},
		{
			name:     "missing ID",
			mutate:   func(u *domain.User) { u.ID = uuid.Nil },
			expected: domain.ErrEmptyUserID,
		},
		{
			name:     "empty name",
			mutate:   func(u *domain.User) { u.Name = "" },
			expected: domain.ErrEmptyName,
		},
		{
			name:     "empty email",
			mutate:   func(u *domain.User) { u.Email = "" },
			expected: domain.ErrEmptyEmail,
		},
		{
			name:     "malformed email",
			mutate:   func(u *domain.User) { u.Email = "not-an-email" },
			expected: domain.ErrInvalidEmail,
		},
		{
			name:     "negative age",
			mutate:   func(u *domain.User) { u.Age = -1 },
			expected: domain.ErrNegativeAge,
		},
		{
			name:     "short password",
			mutate:   func(u *domain.User) { u.Password = "short" },
			expected: domain.ErrPasswordTooShort,
		},
		{
			name:     "password containing password",
			mutate:   func(u *domain.User) { u.Password = "myPassWord123" },
			expected: domain.ErrPasswordForbidden,
		},
		{
			name: "no password at all",
			mutate: func(u *domain.User) {
				u.Password = ""
				u.HashedPassword = ""
			},
			expected: domain.ErrEmptyPassword,
		},
		{
			name: "hashed password only is fine",
			mutate: func(u *domain.User) {
				u.Password = ""
				u.HashedPassword = "$2a$10$abcdefghijklmnopqrstuv"
			},
			expected: nil,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			user, err := domain.NewUser("Ann", "a@x.com", 30, "longenough1")
			require.NoError(t, err)

			tc.mutate(user)

			err = user.Validate()
			if tc.expected == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.expected)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	assert.NoError(t, domain.ValidatePassword("sevench"))
	assert.ErrorIs(t, domain.ValidatePassword("sixcha"), domain.ErrPasswordTooShort)
	assert.ErrorIs(t, domain.ValidatePassword("PASSWORD123"), domain.ErrPasswordForbidden)

	long := make([]byte, 73)
	for i := range long {
		long[i] = 'a'
	}
	assert.ErrorIs(t, domain.ValidatePassword(string(long)), domain.ErrPasswordTooLong)
}

func TestUserHasToken(t *testing.T) {
	t.Parallel()

	user, err := domain.NewUser("Ann", "a@x.com", 0, "longenough1")
	require.NoError(t, err)

	user.Tokens = []string{"tok-a", "tok-b"}

	assert.True(t, user.HasToken("tok-a"))
	assert.True(t, user.HasToken("tok-b"))
	assert.False(t, user.HasToken("tok-c"))
}
