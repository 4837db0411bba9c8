package services

import (
	"context"
	"errors"
	"time"

	"dm-relay/auth"
	"dm-relay/contract"
	"dm-relay/domain"
	relayerrors "dm-relay/errors"
	"dm-relay/relay"
	"dm-relay/repositories"
)

type IRelayService interface {
	CreateUser(username, password string) error
	Authenticate(username, password string) (string, error)
	VerifyToken(token string) (string, error)
	ListMessages(username string) ([]domain.Message, error)
	GetStats(username string) (domain.UserStats, error)
	HandleConnection(ctx context.Context, username string,
		sink contract.MessageSink, receiver contract.Receiver) error
}

// RelayService is the facade the transport layer talks to. It owns request
// validation and credential handling; routing itself lives in the engine.
type RelayService struct {
	engine        *relay.Engine
	users         repositories.IUserRepository
	messages      repositories.IMessageRepository
	stats         repositories.IStatsRepository
	authSecret    []byte
	tokenDuration time.Duration
}

func NewRelayService(engine *relay.Engine, users repositories.IUserRepository,
	messages repositories.IMessageRepository, stats repositories.IStatsRepository,
	authSecret []byte, tokenDuration time.Duration) *RelayService {
	return &RelayService{
		engine:        engine,
		users:         users,
		messages:      messages,
		stats:         stats,
		authSecret:    authSecret,
		tokenDuration: tokenDuration,
	}
}

// CreateUser registers a new identity in the user directory. A duplicate
// username is a conflict (ErrUserAlreadyExists), never a second record.
func (s *RelayService) CreateUser(username, password string) error {
	if err := auth.ValidateRegister(auth.RegisterRequest{
		Username: username,
		Password: password,
	}); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return s.users.CreateUser(username, hash)
}

// Authenticate checks credentials and mints a connection token. An unknown
// user and a wrong password are indistinguishable to the caller.
func (s *RelayService) Authenticate(username, password string) (string, error) {
	user, err := s.users.GetUser(username)
	if errors.Is(err, relayerrors.ErrUserNotFound) {
		return "", relayerrors.ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil {
		return "", err
	}
	if !match {
		return "", relayerrors.ErrInvalidCredentials
	}

	return auth.GenerateToken(s.authSecret, username, s.tokenDuration)
}

// VerifyToken resolves a token to the verified identity it names.
func (s *RelayService) VerifyToken(token string) (string, error) {
	claims, err := auth.ValidateToken(s.authSecret, token)
	if err != nil {
		return "", err
	}
	return claims.Username, nil
}

// ListMessages returns every stored message involving username, in
// timestamp order. Unknown users are a not-found, distinct from a known
// user with no history.
func (s *RelayService) ListMessages(username string) ([]domain.Message, error) {
	exists, err := s.users.Exists(username)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, relayerrors.ErrUserNotFound
	}
	return s.messages.MessagesFor(username)
}

// GetStats returns the per-correspondent counters for username.
func (s *RelayService) GetStats(username string) (domain.UserStats, error) {
	return s.stats.Get(username)
}

// HandleConnection hands an authenticated connection to the relay engine.
func (s *RelayService) HandleConnection(ctx context.Context, username string,
	sink contract.MessageSink, receiver contract.Receiver) error {
	return s.engine.HandleConnection(ctx, username, sink, receiver)
}
