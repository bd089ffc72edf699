package guests

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gatekeeper-events/gatekeeper/internal/checkinlog"
)

// Recorder appends entries to the check-in log.
type Recorder interface {
	Record(ctx context.Context, entry checkinlog.Entry) error
}

// PublicActor identifies unauthenticated self check-in actions in the log.
const PublicActor = "public"

// Service handles guest business logic. Check-in state changes are
// published to the realtime feed and appended to the log; both are best
// effort and never fail the operation itself.
type Service struct {
	repo      RepositoryPort
	publisher Publisher
	recorder  Recorder
	logger    *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, publisher Publisher, recorder Recorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, publisher: publisher, recorder: recorder, logger: logger}
}

// GuestInput carries the caller-editable guest fields.
type GuestInput struct {
	Name       string
	Email      string
	Phone      string
	Company    string
	TableLabel string
}

// List returns guests for an event filtered by a free-text search.
func (s *Service) List(ctx context.Context, eventID uuid.UUID, search string) ([]Guest, error) {
	return s.repo.ListByEvent(ctx, eventID, Fold(search))
}

// Get fetches one guest.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Guest, error) {
	return s.repo.Get(ctx, id)
}

// Create inserts a guest added by staff.
func (s *Service) Create(ctx context.Context, eventID uuid.UUID, in GuestInput, actor string) (*Guest, error) {
	guest, err := buildGuest(eventID, in, SourceManual)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, guest); err != nil {
		return nil, err
	}
	s.record(ctx, checkinlog.Entry{
		EventID:   eventID,
		GuestID:   guest.ID,
		GuestName: guest.Name,
		Actor:     actor,
		Action:    checkinlog.ActionGuestCreated,
	})
	return guest, nil
}

// Update overwrites a guest's editable fields.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in GuestInput) (*Guest, error) {
	guest, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, errors.New("guests: name required")
	}
	guest.Name = in.Name
	guest.NameFolded = Fold(in.Name)
	guest.Email = strings.ToLower(strings.TrimSpace(in.Email))
	guest.Phone = strings.TrimSpace(in.Phone)
	guest.Company = strings.TrimSpace(in.Company)
	guest.TableLabel = strings.TrimSpace(in.TableLabel)
	if err := s.repo.Update(ctx, guest); err != nil {
		return nil, err
	}
	return guest, nil
}

// Delete removes a guest.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actor string) error {
	guest, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, checkinlog.Entry{
		EventID:   guest.EventID,
		GuestID:   guest.ID,
		GuestName: guest.Name,
		Actor:     actor,
		Action:    checkinlog.ActionGuestDeleted,
	})
	return nil
}

// CheckIn marks a guest as arrived.
func (s *Service) CheckIn(ctx context.Context, id uuid.UUID, actor string) (*Guest, error) {
	return s.setCheckin(ctx, id, true, actor, checkinlog.ActionCheckin)
}

// UndoCheckIn reverts an accidental check-in.
func (s *Service) UndoCheckIn(ctx context.Context, id uuid.UUID, actor string) (*Guest, error) {
	return s.setCheckin(ctx, id, false, actor, checkinlog.ActionUndoCheckin)
}

// SelfCheckIn handles the public totem/mobile flow on a public event: an
// existing guest matched by name or email is checked in; an unknown name
// registers a walk-in row already checked in. This is the only
// unauthenticated write path.
func (s *Service) SelfCheckIn(ctx context.Context, eventID uuid.UUID, name, email string) (*Guest, error) {
	public, err := s.repo.EventIsPublic(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !public {
		return nil, ErrEventNotPublic
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("guests: name required")
	}
	email = strings.ToLower(strings.TrimSpace(email))

	guest, err := s.repo.FindByFoldedNameOrEmail(ctx, eventID, Fold(name), email)
	if err != nil {
		if !errors.Is(err, ErrGuestNotFound) {
			return nil, err
		}
		walkIn, buildErr := buildGuest(eventID, GuestInput{Name: name, Email: email}, SourceSelf)
		if buildErr != nil {
			return nil, buildErr
		}
		now := time.Now().UTC()
		walkIn.CheckedIn = true
		walkIn.CheckedInAt = &now
		if err := s.repo.Insert(ctx, walkIn); err != nil {
			return nil, err
		}
		s.afterCheckin(ctx, walkIn, true, PublicActor, checkinlog.ActionSelfCheckin)
		return walkIn, nil
	}

	if guest.CheckedIn {
		return guest, nil
	}
	updated, err := s.repo.SetCheckin(ctx, guest.ID, true, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	s.afterCheckin(ctx, updated, true, PublicActor, checkinlog.ActionSelfCheckin)
	return updated, nil
}

// Import inserts already-mapped spreadsheet rows, skipping duplicates and
// reporting per-row failures without aborting the batch.
func (s *Service) Import(ctx context.Context, eventID uuid.UUID, rows []ImportRow, actor string) (ImportReport, error) {
	report := ImportReport{}
	batch := make([]Guest, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for i, row := range rows {
		name := strings.TrimSpace(row.Name)
		if name == "" {
			report.Errors = append(report.Errors, fmt.Sprintf("row %d: name missing", i+1))
			continue
		}
		folded := Fold(name)
		if _, dup := seen[folded]; dup {
			report.Skipped++
			continue
		}
		seen[folded] = struct{}{}
		batch = append(batch, Guest{
			ID:         uuid.New(),
			EventID:    eventID,
			Name:       name,
			NameFolded: folded,
			Email:      strings.ToLower(strings.TrimSpace(row.Email)),
			Phone:      strings.TrimSpace(row.Phone),
			Company:    strings.TrimSpace(row.Company),
			TableLabel: strings.TrimSpace(row.TableLabel),
			Source:     SourceImport,
		})
	}

	inserted, err := s.repo.InsertBatch(ctx, batch)
	if err != nil {
		return ImportReport{}, err
	}
	report.Inserted = inserted
	report.Skipped += len(batch) - inserted

	s.record(ctx, checkinlog.Entry{
		EventID: eventID,
		Actor:   actor,
		Action:  checkinlog.ActionImport,
		Detail:  fmt.Sprintf("%d inserted, %d skipped", report.Inserted, report.Skipped),
	})
	return report, nil
}

func (s *Service) setCheckin(ctx context.Context, id uuid.UUID, checked bool, actor, action string) (*Guest, error) {
	guest, err := s.repo.SetCheckin(ctx, id, checked, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	s.afterCheckin(ctx, guest, checked, actor, action)
	return guest, nil
}

func (s *Service) afterCheckin(ctx context.Context, guest *Guest, checked bool, actor, action string) {
	s.record(ctx, checkinlog.Entry{
		EventID:   guest.EventID,
		GuestID:   guest.ID,
		GuestName: guest.Name,
		Actor:     actor,
		Action:    action,
	})
	if s.publisher == nil {
		return
	}
	event := CheckinEvent{
		EventID:   guest.EventID,
		GuestID:   guest.ID,
		GuestName: guest.Name,
		CheckedIn: checked,
		At:        time.Now().UTC(),
	}
	if err := s.publisher.PublishCheckin(ctx, event); err != nil && s.logger != nil {
		s.logger.Warn("publish checkin", slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, entry checkinlog.Entry) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, entry); err != nil && s.logger != nil {
		s.logger.Warn("record checkin log", slog.Any("error", err))
	}
}

func buildGuest(eventID uuid.UUID, in GuestInput, source string) (*Guest, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errors.New("guests: name required")
	}
	return &Guest{
		ID:         uuid.New(),
		EventID:    eventID,
		Name:       name,
		NameFolded: Fold(name),
		Email:      strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:      strings.TrimSpace(in.Phone),
		Company:    strings.TrimSpace(in.Company),
		TableLabel: strings.TrimSpace(in.TableLabel),
		Source:     source,
	}, nil
}
