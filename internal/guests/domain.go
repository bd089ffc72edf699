package guests

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Guest is one guest-list row for an event.
type Guest struct {
	ID          uuid.UUID
	EventID     uuid.UUID
	Name        string
	NameFolded  string
	Email       string
	Phone       string
	Company     string
	TableLabel  string
	Source      string
	CheckedIn   bool
	CheckedInAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Guest sources.
const (
	SourceManual = "manual"
	SourceImport = "import"
	SourceSelf   = "self"
)

// ImportRow is one already-column-mapped spreadsheet row. The column
// guessing itself happens upstream; this is its output contract.
type ImportRow struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Company    string `json:"company"`
	TableLabel string `json:"table_label"`
}

// ImportReport summarises a bulk import.
type ImportReport struct {
	Inserted int      `json:"inserted"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

var (
	// ErrDuplicateGuest indicates a guest with that name already exists on
	// the event list.
	ErrDuplicateGuest = errors.New("guests: duplicate guest")
	// ErrEventNotPublic indicates a self check-in attempt against an event
	// that is not open to the public flows.
	ErrEventNotPublic = errors.New("guests: event not public")
	// ErrGuestNotFound is returned by self check-in when no list entry
	// matches the submitted name or email.
	ErrGuestNotFound = errors.New("guests: guest not found")
)
