package repositories

import (
	"testing"

	"github.com/stretchr/testify/require"

	"chatline/errors"
)

func Test_CreateUser_And_FetchByEmail(t *testing.T) {
	req := require.New(t)
	db := openTestBadger(t)
	repository := NewUserRepository(db)

	id, err := repository.CreateUser("alice@example.com", "$argon2id$fake-hash")
	req.NoError(err)
	req.NotEmpty(id)

	user, err := repository.GetUserByEmail("alice@example.com")
	req.NoError(err)
	req.Equal(id, user.ID)
	req.Equal("alice@example.com", user.Email)
	req.Equal("$argon2id$fake-hash", user.PasswordHash)
	req.Equal([]string{"user"}, user.Roles)
	req.False(user.CreatedAt.IsZero())
}

func Test_CreateUser_DuplicateEmail(t *testing.T) {
	req := require.New(t)
	db := openTestBadger(t)
	repository := NewUserRepository(db)

	_, err := repository.CreateUser("taken@example.com", "hash-1")
	req.NoError(err)

	// Then a second registration on the same email is refused
	_, err = repository.CreateUser("taken@example.com", "hash-2")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)

	// And the original account is untouched
	user, err := repository.GetUserByEmail("taken@example.com")
	req.NoError(err)
	req.Equal("hash-1", user.PasswordHash)
}

func Test_GetUserByID_Unknown(t *testing.T) {
	req := require.New(t)
	db := openTestBadger(t)
	repository := NewUserRepository(db)

	_, err := repository.GetUserByID("ghost")
	req.ErrorIs(err, errors.ErrNotFound)

	_, err = repository.GetUserByEmail("ghost@example.com")
	req.ErrorIs(err, errors.ErrNotFound)
}

func Test_ListUsers(t *testing.T) {
	req := require.New(t)
	db := openTestBadger(t)
	repository := NewUserRepository(db)

	emails := []string{"a@example.com", "b@example.com", "c@example.com"}
	for _, email := range emails {
		_, err := repository.CreateUser(email, "hash")
		req.NoError(err)
	}

	users, err := repository.ListUsers()
	req.NoError(err)
	req.Len(users, len(emails))

	found := make(map[string]struct{}, len(users))
	for _, u := range users {
		found[u.Email] = struct{}{}
	}
	for _, email := range emails {
		req.Contains(found, email)
	}
}
