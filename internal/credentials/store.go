// Package credentials holds user accounts for sign-in.
//
// Passwords are stored and compared as plaintext. That mirrors the demo
// application this service grew out of and must not be changed silently;
// see DESIGN.md.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chrissnell/rhythmanchor/internal/types"
	"github.com/chrissnell/rhythmanchor/pkg/config"
	"go.uber.org/zap"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrExists             = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidUser        = errors.New("invalid user record")
)

// DefaultSignupAge is the age given to accounts created through sign-up
const DefaultSignupAge = 25

// Store is a user account backend
type Store interface {
	Get(ctx context.Context, username string) (types.UserRecord, error)
	Create(ctx context.Context, user types.UserRecord) error
	UpdateProfile(ctx context.Context, username, fullName string, age int) error
	Close() error
}

// DemoAdmin is the account every fresh store is seeded with
func DemoAdmin() types.UserRecord {
	return types.UserRecord{
		Username:       "admin",
		Password:       "1234",
		FullName:       "System Administrator",
		Age:            30,
		Email:          "admin@rhythmanchor.com",
		MedicalHistory: "None",
	}
}

// Authenticate succeeds iff the user exists and the password matches exactly.
// Unknown users and wrong passwords both report ErrInvalidCredentials.
func Authenticate(ctx context.Context, s Store, username, password string) (types.UserRecord, error) {
	user, err := s.Get(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return types.UserRecord{}, ErrInvalidCredentials
	}
	if err != nil {
		return types.UserRecord{}, err
	}
	if user.Password != password {
		return types.UserRecord{}, ErrInvalidCredentials
	}
	return user, nil
}

// SignUp creates a new account with the sign-up defaults.
func SignUp(ctx context.Context, s Store, username, password string) (types.UserRecord, error) {
	user := types.UserRecord{
		Username: username,
		Password: password,
		FullName: username,
		Age:      DefaultSignupAge,
	}
	if err := s.Create(ctx, user); err != nil {
		return types.UserRecord{}, err
	}
	return user, nil
}

func validate(user types.UserRecord) error {
	if strings.TrimSpace(user.Username) == "" {
		return fmt.Errorf("%w: username is empty", ErrInvalidUser)
	}
	if user.Age < 0 {
		return fmt.Errorf("%w: age %d is negative", ErrInvalidUser, user.Age)
	}
	return nil
}

// seed adds the demo admin unless it is already present
func seed(ctx context.Context, s Store) error {
	err := s.Create(ctx, DemoAdmin())
	if err != nil && !errors.Is(err, ErrExists) {
		return fmt.Errorf("error seeding demo account: %w", err)
	}
	return nil
}

// New opens the backend selected in the configuration and seeds it.
func New(ctx context.Context, cfg config.CredentialsData, logger *zap.SugaredLogger) (Store, error) {
	var store Store
	var err error

	switch cfg.Backend {
	case "", "memory":
		store = NewMemoryStore()
	case "sqlite":
		store, err = NewSQLiteStore(cfg.SQLitePath)
	case "postgres":
		store, err = NewPostgresStore(cfg.PostgresDSN, logger)
	default:
		return nil, fmt.Errorf("unsupported credentials backend: %s", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if err := seed(ctx, store); err != nil {
		store.Close()
		return nil, err
	}

	logger.Infof("credential store ready (backend: %s)", cfg.Backend)
	return store, nil
}
