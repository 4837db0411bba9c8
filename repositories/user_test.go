package repositories

import (
	"testing"

	"github.com/stretchr/testify/require"

	relayerrors "dm-relay/errors"
)

func Test_CreateUser_And_Get(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(newTestDB(t))

	req.NoError(repository.CreateUser("alice", "hash"))

	user, err := repository.GetUser("alice")
	req.NoError(err)
	req.Equal("alice", user.Username)
	req.Equal("hash", user.PasswordHash)
	req.False(user.CreatedAt.IsZero())
}

func Test_CreateUser_Duplicate_Is_A_Conflict(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(newTestDB(t))

	req.NoError(repository.CreateUser("alice", "hash"))

	// The second create reports a conflict and leaves the record untouched
	err := repository.CreateUser("alice", "other-hash")
	req.ErrorIs(err, relayerrors.ErrUserAlreadyExists)

	user, err := repository.GetUser("alice")
	req.NoError(err)
	req.Equal("hash", user.PasswordHash)
}

func Test_GetUser_Unknown_Is_Not_Found(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(newTestDB(t))

	_, err := repository.GetUser("ghost")
	req.ErrorIs(err, relayerrors.ErrUserNotFound)
}

func Test_Exists(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(newTestDB(t))

	ok, err := repository.Exists("alice")
	req.NoError(err)
	req.False(ok)

	req.NoError(repository.CreateUser("alice", "hash"))

	ok, err = repository.Exists("alice")
	req.NoError(err)
	req.True(ok)
}
