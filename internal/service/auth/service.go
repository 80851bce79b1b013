package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/park-go/internal/domain"
	"github.com/kirinyoku/park-go/internal/repository"
	postgresrepo "github.com/kirinyoku/park-go/internal/repository/postgres"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type Service struct {
	store  *postgresrepo.Store
	tokens *TokenManager
}

func New(store *postgresrepo.Store, cfg Config) *Service {
	return &Service{
		store:  store,
		tokens: NewTokenManager(cfg.JWTSecret, cfg.TokenTTL),
	}
}

func (s *Service) Tokens() *TokenManager { return s.tokens }

// Register creates a user with a bcrypt-hashed password. The role defaults
// to USER.
//
// Returns:
//   - error: auth.ErrEmailConflict if the email is already registered.
func (s *Service) Register(
	ctx context.Context,
	email, firstName, lastName, password string,
	role domain.Role,
) (*domain.User, error) {
	const op = "service.auth.Register"

	if role == "" {
		role = domain.RoleUser
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.store.Users().Create(ctx, &domain.User{
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: string(hash),
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s: %w", op, ErrEmailConflict)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// Login verifies credentials and issues an access token.
//
// Returns:
//   - error: auth.ErrInvalidCredentials for an unknown email or a password
//     mismatch; the two cases are deliberately indistinguishable.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	const op = "service.auth.Login"

	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	return user, token, nil
}

// UpdateProfile updates name fields and, when newPassword is set, rotates the
// password after checking the old one.
//
// Returns:
//   - error: auth.ErrUserNotFound if the user does not exist.
//   - error: auth.ErrWrongOldPassword if oldPassword does not match.
func (s *Service) UpdateProfile(
	ctx context.Context,
	userID int64,
	firstName, lastName, oldPassword, newPassword string,
) (*domain.User, error) {
	const op = "service.auth.UpdateProfile"

	user, err := s.store.Users().Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if firstName != "" {
		user.FirstName = firstName
	}
	if lastName != "" {
		user.LastName = lastName
	}

	if newPassword != "" {
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
			return nil, fmt.Errorf("%s: %w", op, ErrWrongOldPassword)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		user.PasswordHash = string(hash)
	}

	if err := s.store.Users().Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}
