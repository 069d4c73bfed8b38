package accounts

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/bubble/internal/dependencies/clock"
	"github.com/mcoot/bubble/internal/model"
	"github.com/mcoot/bubble/internal/storage"
)

// Service verifies credentials and registers new accounts
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
	cfg     Config
}

// Config holds configuration for the accounts service
type Config struct {
	BcryptCost int
	Retry      storage.RetryConfig
}

// DefaultConfig returns default accounts configuration
func DefaultConfig() Config {
	return Config{
		BcryptCost: bcrypt.DefaultCost,
		Retry:      storage.DefaultRetryConfig(),
	}
}

// New creates a new accounts Service
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger, cfg Config) *Service {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = DefaultConfig().BcryptCost
	}
	return &Service{
		storage: storage,
		clock:   clock,
		logger:  logger,
		cfg:     cfg,
	}
}

// MaxPasswordBytes is the longest password bcrypt can hash
const MaxPasswordBytes = 72

// Verify checks the password of an existing player and records the connection
func (s *Service) Verify(ctx context.Context, user model.PlayerID, password string) (*model.Player, error) {
	if len(password) > MaxPasswordBytes {
		return nil, model.ErrPasswordTooLong
	}

	var player *model.Player
	err := storage.RetryOnConflict(ctx, s.cfg.Retry, func() error {
		p, err := s.storage.GetPlayer(ctx, user)
		if err != nil {
			if errors.Is(err, model.ErrPlayerNotFound) {
				return model.ErrUserNotExist
			}
			return err
		}

		if err := checkPassword(p.PasswordHash, password); err != nil {
			return err
		}

		p.LastConnection = s.clock.Now()
		if err := s.storage.UpdatePlayer(ctx, p); err != nil {
			return err
		}
		player = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return player, nil
}

// Register creates a player with zeroed economics
func (s *Service) Register(ctx context.Context, user model.PlayerID, password string) (*model.Player, error) {
	if len(password) > MaxPasswordBytes {
		return nil, model.ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	player := &model.Player{
		ID:             user,
		PasswordHash:   string(hash),
		LastConnection: now,
		CreatedAt:      now,
	}

	if err := s.storage.CreatePlayer(ctx, player); err != nil {
		return nil, err
	}

	s.logger.Info("player registered",
		slog.String("player_id", string(user)),
	)
	return player, nil
}

// Authenticate verifies the credentials, registering the user on first contact
func (s *Service) Authenticate(ctx context.Context, user model.PlayerID, password string) (*model.Player, error) {
	player, err := s.Verify(ctx, user, password)
	if !errors.Is(err, model.ErrUserNotExist) {
		return player, err
	}

	player, err = s.Register(ctx, user, password)
	if errors.Is(err, model.ErrPlayerExists) {
		// Registered concurrently by another request
		return s.Verify(ctx, user, password)
	}
	return player, err
}

func checkPassword(hash, password string) error {
	if hash == "" {
		return model.ErrCorruptRecord
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return model.ErrIncorrectPassword
	default:
		return model.ErrCorruptRecord
	}
}
