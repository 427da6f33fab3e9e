package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/karming-leong/datacentric-assingment/internal/apperr"
	"github.com/karming-leong/datacentric-assingment/internal/domain"
	"github.com/karming-leong/datacentric-assingment/internal/repository"
	"github.com/karming-leong/datacentric-assingment/pkg/crypto"
	jwtpkg "github.com/karming-leong/datacentric-assingment/pkg/jwt"
)

// MsgUsernameTaken is returned when registering an existing username.
const MsgUsernameTaken = "Username already exists"

// Service handles registration, login and token checks.
type Service struct {
	users  repository.UserRepository
	hasher *crypto.PasswordHasher
	tokens *jwtpkg.Issuer
	logger *slog.Logger
	now    func() time.Time
}

// New constructs a Service.
func New(users repository.UserRepository, hasher *crypto.PasswordHasher, tokens *jwtpkg.Issuer, logger *slog.Logger) Service {
	return Service{users: users, hasher: hasher, tokens: tokens, logger: logger, now: time.Now}
}

// Register stores a new user with a hashed password and returns its id.
func (s Service) Register(ctx context.Context, username, password string) (string, error) {
	if strings.TrimSpace(username) == "" {
		return "", apperr.Validation("Username is required", nil)
	}
	if password == "" {
		return "", apperr.Validation("Password is required", nil)
	}

	// The unique constraint still decides concurrent registrations.
	if _, err := s.users.GetUserByUsername(ctx, username); err == nil {
		return "", apperr.Duplicate(MsgUsernameTaken, repository.ErrDuplicate)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return "", storageError(err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, crypto.ErrPasswordTooLong) {
			return "", apperr.Validation("Password must be at most 72 bytes", err)
		}
		return "", apperr.Internal(err)
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return "", apperr.Duplicate(MsgUsernameTaken, err)
		}
		return "", storageError(err)
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user.ID, nil
}

// Verify checks a username and password pair and returns the user id.
// Unknown users and wrong passwords fail identically.
func (s Service) Verify(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.CompareDummy(password)
			return "", apperr.Credentials(err)
		}
		return "", storageError(err)
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return "", apperr.Credentials(err)
	}
	return user.ID, nil
}

// Login verifies credentials and issues a session token.
func (s Service) Login(ctx context.Context, username, password string) (jwtpkg.Token, error) {
	userID, err := s.Verify(ctx, username, password)
	if err != nil {
		return jwtpkg.Token{}, err
	}
	token, err := s.tokens.Issue(userID)
	if err != nil {
		return jwtpkg.Token{}, apperr.Internal(err)
	}
	s.logger.Info("user logged in", "user_id", userID)
	return token, nil
}

// Authorize validates a bearer token and returns the caller identity.
func (s Service) Authorize(_ context.Context, token string) (domain.Identity, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return domain.Identity{}, apperr.Authentication(errors.New("token required"))
	}
	userID, err := s.tokens.Verify(trimmed)
	if err != nil {
		var verr *jwtpkg.VerifyError
		if errors.As(err, &verr) {
			return domain.Identity{}, apperr.Authentication(verr.Reason)
		}
		return domain.Identity{}, apperr.Authentication(err)
	}
	return domain.Identity{UserID: userID}, nil
}

func storageError(err error) error {
	if errors.Is(err, repository.ErrConstraint) {
		return apperr.Validation("Invalid username or password", err)
	}
	if errors.Is(err, repository.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Transient(err)
	}
	return apperr.Internal(err)
}
