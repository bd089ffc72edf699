package profiles

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Service handles profile business logic. It also implements the identity
// provider's post-creation hook.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// UserCreated provisions the profile row for a freshly created identity.
func (s *Service) UserCreated(ctx context.Context, userID uuid.UUID, email, displayName string) error {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = email
	}
	return s.repo.Insert(ctx, &Profile{UserID: userID, Email: email, DisplayName: displayName})
}

// Get fetches a profile.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return s.repo.Get(ctx, userID)
}

// Rename updates the display name.
func (s *Service) Rename(ctx context.Context, userID uuid.UUID, displayName string) error {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return errors.New("profiles: display name required")
	}
	return s.repo.UpdateDisplayName(ctx, userID, displayName)
}

// List returns all profiles.
func (s *Service) List(ctx context.Context) ([]Profile, error) {
	return s.repo.List(ctx)
}
