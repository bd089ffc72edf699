package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service handles event business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// EventInput carries the caller-editable event fields.
type EventInput struct {
	Name         string
	Venue        string
	StartsAt     time.Time
	WifiNetwork  string
	WifiPassword string
	CoverURL     string
	Public       bool
}

// List returns all events.
func (s *Service) List(ctx context.Context) ([]Event, error) {
	return s.repo.List(ctx)
}

// Get fetches one event.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Event, error) {
	return s.repo.Get(ctx, id)
}

// Create inserts a new event owned by the calling user.
func (s *Service) Create(ctx context.Context, in EventInput, createdBy uuid.UUID) (*Event, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	event := &Event{
		ID:           uuid.New(),
		Name:         in.Name,
		Venue:        in.Venue,
		StartsAt:     in.StartsAt,
		WifiNetwork:  in.WifiNetwork,
		WifiPassword: in.WifiPassword,
		CoverURL:     in.CoverURL,
		Public:       in.Public,
		CreatedBy:    createdBy,
	}
	if err := s.repo.Insert(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// Update overwrites an event's editable fields.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in EventInput) (*Event, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	event, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	event.Name = in.Name
	event.Venue = in.Venue
	event.StartsAt = in.StartsAt
	event.WifiNetwork = in.WifiNetwork
	event.WifiPassword = in.WifiPassword
	event.CoverURL = in.CoverURL
	event.Public = in.Public
	if err := s.repo.Update(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// Delete removes an event.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// Display returns the public screen data.
func (s *Service) Display(ctx context.Context, id uuid.UUID) (*DisplayInfo, error) {
	return s.repo.Display(ctx, id)
}

func validateInput(in *EventInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return errors.New("events: name required")
	}
	if in.StartsAt.IsZero() {
		return errors.New("events: start time required")
	}
	return nil
}
