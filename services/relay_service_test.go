package services

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	relayerrors "dm-relay/errors"
	"dm-relay/relay"
	"dm-relay/repositories"
)

func newTestService(t *testing.T) *RelayService {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	registry := relay.NewRegistry()
	messages := repositories.NewMessageRepository(db, slog.Default())
	stats := repositories.NewStatsRepository(db)
	users := repositories.NewUserRepository(db)
	engine := relay.NewEngine(slog.Default(), registry, messages, stats, time.Second)

	return NewRelayService(engine, users, messages, stats, []byte("test-secret"), time.Hour)
}

func Test_CreateUser_Then_Authenticate(t *testing.T) {
	req := require.New(t)
	service := newTestService(t)

	// Given alice registered
	req.NoError(service.CreateUser("alice", "a strong password"))

	// When she logs in
	token, err := service.Authenticate("alice", "a strong password")
	req.NoError(err)

	// Then the token resolves back to her identity
	username, err := service.VerifyToken(token)
	req.NoError(err)
	req.Equal("alice", username)
}

func Test_CreateUser_Duplicate_Conflict(t *testing.T) {
	req := require.New(t)
	service := newTestService(t)

	req.NoError(service.CreateUser("alice", "a strong password"))

	err := service.CreateUser("alice", "another password")
	req.ErrorIs(err, relayerrors.ErrUserAlreadyExists)
}

func Test_CreateUser_Rejects_Invalid_Requests(t *testing.T) {
	req := require.New(t)
	service := newTestService(t)

	req.Error(service.CreateUser("", "a strong password"))
	req.Error(service.CreateUser("alice", "short"))
}

func Test_Authenticate_Failures_Are_Indistinguishable(t *testing.T) {
	req := require.New(t)
	service := newTestService(t)

	req.NoError(service.CreateUser("alice", "a strong password"))

	// Wrong password and unknown user yield the same error
	_, err := service.Authenticate("alice", "wrong password")
	req.ErrorIs(err, relayerrors.ErrInvalidCredentials)

	_, err = service.Authenticate("ghost", "a strong password")
	req.ErrorIs(err, relayerrors.ErrInvalidCredentials)
}

func Test_ListMessages_Unknown_User(t *testing.T) {
	req := require.New(t)
	service := newTestService(t)

	_, err := service.ListMessages("ghost")
	req.ErrorIs(err, relayerrors.ErrUserNotFound)
}

func Test_ListMessages_Known_User_With_Empty_History(t *testing.T) {
	req := require.New(t)
	service := newTestService(t)

	req.NoError(service.CreateUser("alice", "a strong password"))

	// Found-but-empty is not an error
	messages, err := service.ListMessages("alice")
	req.NoError(err)
	req.Empty(messages)
}

func Test_GetStats_Unknown_User(t *testing.T) {
	req := require.New(t)
	service := newTestService(t)

	_, err := service.GetStats("ghost")
	req.ErrorIs(err, relayerrors.ErrStatsNotFound)
}
