package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatekeeper-events/gatekeeper/internal/shared"
)

// ProfileHook is fired after an identity is created so the profile row can
// be provisioned. The hook failing does not undo the identity.
type ProfileHook interface {
	UserCreated(ctx context.Context, userID uuid.UUID, email, displayName string) error
}

// Service wraps account creation and credential checks.
type Service struct {
	repo   Repository
	hook   ProfileHook
	logger *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, hook ProfileHook, logger *slog.Logger) *Service {
	return &Service{repo: repo, hook: hook, logger: logger}
}

// Signup creates an identity with a bcrypt password hash and fires the
// profile hook.
func (s *Service) Signup(ctx context.Context, email, password, displayName string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	if s.hook != nil {
		if err := s.hook.UserCreated(ctx, user.ID, email, displayName); err != nil {
			if s.logger != nil {
				s.logger.Error("profile hook", slog.Any("error", err))
			}
		}
	}
	return user, nil
}

// UserByID fetches the account behind a session.
func (s *Service) UserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}
