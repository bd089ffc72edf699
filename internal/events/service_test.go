package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatekeeper-events/gatekeeper/internal/events"
	"github.com/gatekeeper-events/gatekeeper/internal/shared"
	_ "github.com/gatekeeper-events/gatekeeper/testing"
)

type stubRepo struct {
	byID map[uuid.UUID]*events.Event
}

func newStubRepo() *stubRepo {
	return &stubRepo{byID: make(map[uuid.UUID]*events.Event)}
}

func (s *stubRepo) List(ctx context.Context) ([]events.Event, error) {
	var out []events.Event
	for _, e := range s.byID {
		out = append(out, *e)
	}
	return out, nil
}

func (s *stubRepo) Get(ctx context.Context, id uuid.UUID) (*events.Event, error) {
	e, ok := s.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *e
	return &copied, nil
}

func (s *stubRepo) Insert(ctx context.Context, event *events.Event) error {
	copied := *event
	s.byID[event.ID] = &copied
	return nil
}

func (s *stubRepo) Update(ctx context.Context, event *events.Event) error {
	if _, ok := s.byID[event.ID]; !ok {
		return shared.ErrNotFound
	}
	copied := *event
	s.byID[event.ID] = &copied
	return nil
}

func (s *stubRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.byID[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *stubRepo) Display(ctx context.Context, id uuid.UUID) (*events.DisplayInfo, error) {
	e, ok := s.byID[id]
	if !ok || !e.Public {
		return nil, shared.ErrNotFound
	}
	return &events.DisplayInfo{
		Name:         e.Name,
		Venue:        e.Venue,
		WifiNetwork:  e.WifiNetwork,
		WifiPassword: e.WifiPassword,
	}, nil
}

func validInput() events.EventInput {
	return events.EventInput{
		Name:        "Tech Meetup Floripa",
		Venue:       "Centro de Eventos",
		StartsAt:    time.Now().Add(48 * time.Hour),
		WifiNetwork: "meetup-guest",
	}
}

func TestCreateEvent(t *testing.T) {
	ctx := context.Background()
	repo := newStubRepo()
	svc := events.NewService(repo)
	owner := uuid.New()

	event, err := svc.Create(ctx, validInput(), owner)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, owner, event.CreatedBy)
	assert.Contains(t, repo.byID, event.ID)
}

func TestCreateEventValidation(t *testing.T) {
	svc := events.NewService(newStubRepo())

	in := validInput()
	in.Name = "   "
	_, err := svc.Create(context.Background(), in, uuid.New())
	assert.Error(t, err)

	in = validInput()
	in.StartsAt = time.Time{}
	_, err = svc.Create(context.Background(), in, uuid.New())
	assert.Error(t, err)
}

func TestUpdateEvent(t *testing.T) {
	ctx := context.Background()
	repo := newStubRepo()
	svc := events.NewService(repo)

	event, err := svc.Create(ctx, validInput(), uuid.New())
	require.NoError(t, err)

	in := validInput()
	in.Name = "Renamed Meetup"
	in.Public = true
	updated, err := svc.Update(ctx, event.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Renamed Meetup", updated.Name)
	assert.True(t, updated.Public)
	// Ownership never changes on update.
	assert.Equal(t, event.CreatedBy, updated.CreatedBy)
}

func TestUpdateMissingEvent(t *testing.T) {
	svc := events.NewService(newStubRepo())
	_, err := svc.Update(context.Background(), uuid.New(), validInput())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDisplayOnlyForPublicEvents(t *testing.T) {
	ctx := context.Background()
	repo := newStubRepo()
	svc := events.NewService(repo)

	event, err := svc.Create(ctx, validInput(), uuid.New())
	require.NoError(t, err)

	_, err = svc.Display(ctx, event.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	in := validInput()
	in.Public = true
	_, err = svc.Update(ctx, event.ID, in)
	require.NoError(t, err)

	info, err := svc.Display(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "meetup-guest", info.WifiNetwork)
}
