package guests_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatekeeper-events/gatekeeper/internal/checkinlog"
	"github.com/gatekeeper-events/gatekeeper/internal/guests"
	_ "github.com/gatekeeper-events/gatekeeper/testing"
)

type stubRepo struct {
	byID         map[uuid.UUID]*guests.Guest
	publicEvents map[uuid.UUID]bool
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		byID:         make(map[uuid.UUID]*guests.Guest),
		publicEvents: make(map[uuid.UUID]bool),
	}
}

func (s *stubRepo) ListByEvent(ctx context.Context, eventID uuid.UUID, foldedSearch string) ([]guests.Guest, error) {
	var out []guests.Guest
	for _, g := range s.byID {
		if g.EventID == eventID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (s *stubRepo) Get(ctx context.Context, id uuid.UUID) (*guests.Guest, error) {
	g, ok := s.byID[id]
	if !ok {
		return nil, guests.ErrGuestNotFound
	}
	copied := *g
	return &copied, nil
}

func (s *stubRepo) Insert(ctx context.Context, guest *guests.Guest) error {
	for _, existing := range s.byID {
		if existing.EventID == guest.EventID && existing.NameFolded == guest.NameFolded {
			return guests.ErrDuplicateGuest
		}
	}
	copied := *guest
	s.byID[guest.ID] = &copied
	return nil
}

func (s *stubRepo) InsertBatch(ctx context.Context, batch []guests.Guest) (int, error) {
	inserted := 0
	for i := range batch {
		if err := s.Insert(ctx, &batch[i]); err == nil {
			inserted++
		}
	}
	return inserted, nil
}

func (s *stubRepo) Update(ctx context.Context, guest *guests.Guest) error {
	if _, ok := s.byID[guest.ID]; !ok {
		return guests.ErrGuestNotFound
	}
	copied := *guest
	s.byID[guest.ID] = &copied
	return nil
}

func (s *stubRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.byID[id]; !ok {
		return guests.ErrGuestNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *stubRepo) SetCheckin(ctx context.Context, id uuid.UUID, checked bool, at time.Time) (*guests.Guest, error) {
	g, ok := s.byID[id]
	if !ok {
		return nil, guests.ErrGuestNotFound
	}
	g.CheckedIn = checked
	if checked {
		g.CheckedInAt = &at
	} else {
		g.CheckedInAt = nil
	}
	copied := *g
	return &copied, nil
}

func (s *stubRepo) FindByFoldedNameOrEmail(ctx context.Context, eventID uuid.UUID, folded, email string) (*guests.Guest, error) {
	for _, g := range s.byID {
		if g.EventID != eventID {
			continue
		}
		if g.NameFolded == folded || (email != "" && g.Email == email) {
			copied := *g
			return &copied, nil
		}
	}
	return nil, guests.ErrGuestNotFound
}

func (s *stubRepo) EventIsPublic(ctx context.Context, eventID uuid.UUID) (bool, error) {
	return s.publicEvents[eventID], nil
}

type stubPublisher struct {
	events []guests.CheckinEvent
}

func (s *stubPublisher) PublishCheckin(ctx context.Context, event guests.CheckinEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubRecorder struct {
	entries []checkinlog.Entry
}

func (s *stubRecorder) Record(ctx context.Context, entry checkinlog.Entry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func newTestService() (*guests.Service, *stubRepo, *stubPublisher, *stubRecorder) {
	repo := newStubRepo()
	pub := &stubPublisher{}
	rec := &stubRecorder{}
	return guests.NewService(repo, pub, rec, nil), repo, pub, rec
}

func TestFold(t *testing.T) {
	assert.Equal(t, "joao da silva", guests.Fold("  João   da Silva "))
	assert.Equal(t, "carlota munoz", guests.Fold("CARLOTA MUÑOZ"))
	assert.Equal(t, guests.Fold("José"), guests.Fold("jose"))
}

func TestCheckInPublishesAndRecords(t *testing.T) {
	ctx := context.Background()
	svc, _, pub, rec := newTestService()
	eventID := uuid.New()

	guest, err := svc.Create(ctx, eventID, guests.GuestInput{Name: "Ana Costa"}, "staff-1")
	require.NoError(t, err)

	checked, err := svc.CheckIn(ctx, guest.ID, "staff-1")
	require.NoError(t, err)
	assert.True(t, checked.CheckedIn)
	require.NotNil(t, checked.CheckedInAt)

	require.Len(t, pub.events, 1)
	assert.Equal(t, guest.ID, pub.events[0].GuestID)
	assert.True(t, pub.events[0].CheckedIn)

	// guest_created then checkin.
	require.Len(t, rec.entries, 2)
	assert.Equal(t, checkinlog.ActionGuestCreated, rec.entries[0].Action)
	assert.Equal(t, checkinlog.ActionCheckin, rec.entries[1].Action)
	assert.Equal(t, "staff-1", rec.entries[1].Actor)
}

func TestUndoCheckIn(t *testing.T) {
	ctx := context.Background()
	svc, _, pub, rec := newTestService()
	eventID := uuid.New()

	guest, err := svc.Create(ctx, eventID, guests.GuestInput{Name: "Bruno Lima"}, "staff-1")
	require.NoError(t, err)
	_, err = svc.CheckIn(ctx, guest.ID, "staff-1")
	require.NoError(t, err)

	undone, err := svc.UndoCheckIn(ctx, guest.ID, "staff-1")
	require.NoError(t, err)
	assert.False(t, undone.CheckedIn)
	assert.Nil(t, undone.CheckedInAt)

	require.Len(t, pub.events, 2)
	assert.False(t, pub.events[1].CheckedIn)
	assert.Equal(t, checkinlog.ActionUndoCheckin, rec.entries[len(rec.entries)-1].Action)
}

func TestDuplicateGuestRejected(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService()
	eventID := uuid.New()

	_, err := svc.Create(ctx, eventID, guests.GuestInput{Name: "José Silva"}, "staff-1")
	require.NoError(t, err)

	// Same name modulo accents and case collides on the folded key.
	_, err = svc.Create(ctx, eventID, guests.GuestInput{Name: "jose  silva"}, "staff-1")
	assert.ErrorIs(t, err, guests.ErrDuplicateGuest)
}

func TestImportReport(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, rec := newTestService()
	eventID := uuid.New()

	_, err := svc.Create(ctx, eventID, guests.GuestInput{Name: "Ana Costa"}, "staff-1")
	require.NoError(t, err)

	// Row two duplicates row one after folding, row three is already on
	// the list, row four has no name.
	report, err := svc.Import(ctx, eventID, []guests.ImportRow{
		{Name: "Bruno Lima", Email: "bruno@example.com"},
		{Name: "bruno lima"},
		{Name: "Ana Costa"},
		{Name: ""},
		{Name: "Carla Dias", Company: "ACME"},
	}, "staff-1")
	require.NoError(t, err)

	assert.Equal(t, 2, report.Inserted)
	assert.Equal(t, 2, report.Skipped)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "row 4")

	guestsForEvent, err := repo.ListByEvent(ctx, eventID, "")
	require.NoError(t, err)
	assert.Len(t, guestsForEvent, 3)

	last := rec.entries[len(rec.entries)-1]
	assert.Equal(t, checkinlog.ActionImport, last.Action)
	assert.Equal(t, "2 inserted, 2 skipped", last.Detail)
}

func TestSelfCheckInRequiresPublicEvent(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService()

	_, err := svc.SelfCheckIn(ctx, uuid.New(), "Ana Costa", "")
	assert.ErrorIs(t, err, guests.ErrEventNotPublic)
}

func TestSelfCheckInMatchesExistingGuest(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, rec := newTestService()
	eventID := uuid.New()
	repo.publicEvents[eventID] = true

	guest, err := svc.Create(ctx, eventID, guests.GuestInput{Name: "João Pereira", Email: "joao@example.com"}, "staff-1")
	require.NoError(t, err)

	// Accent-insensitive name match against the invited list.
	found, err := svc.SelfCheckIn(ctx, eventID, "joao pereira", "")
	require.NoError(t, err)
	assert.Equal(t, guest.ID, found.ID)
	assert.True(t, found.CheckedIn)
	assert.Equal(t, checkinlog.ActionSelfCheckin, rec.entries[len(rec.entries)-1].Action)
	assert.Equal(t, guests.PublicActor, rec.entries[len(rec.entries)-1].Actor)

	// Repeating the self check-in is a no-op, not an error.
	again, err := svc.SelfCheckIn(ctx, eventID, "João Pereira", "")
	require.NoError(t, err)
	assert.Equal(t, guest.ID, again.ID)
	assert.True(t, again.CheckedIn)
}

func TestSelfCheckInRegistersWalkIn(t *testing.T) {
	ctx := context.Background()
	svc, repo, pub, _ := newTestService()
	eventID := uuid.New()
	repo.publicEvents[eventID] = true

	walkIn, err := svc.SelfCheckIn(ctx, eventID, "Maria Nova", "maria@example.com")
	require.NoError(t, err)
	assert.Equal(t, guests.SourceSelf, walkIn.Source)
	assert.True(t, walkIn.CheckedIn)
	require.Len(t, pub.events, 1)
	assert.Equal(t, walkIn.ID, pub.events[0].GuestID)
}
