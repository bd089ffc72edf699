package checkinlog

import (
	"time"

	"github.com/google/uuid"
)

// Actions recorded in the log.
const (
	ActionCheckin      = "checkin"
	ActionUndoCheckin  = "undo_checkin"
	ActionSelfCheckin  = "self_checkin"
	ActionGuestCreated = "guest_created"
	ActionGuestDeleted = "guest_deleted"
	ActionImport       = "import"
)

// Entry is one append-only log record. IDs are ULIDs so the stream sorts
// by creation time.
type Entry struct {
	ID        string
	EventID   uuid.UUID
	GuestID   uuid.UUID
	GuestName string
	Actor     string
	Action    string
	Detail    string
	At        time.Time
}

// TimelineFilters narrows the timeline read.
type TimelineFilters struct {
	EventID  uuid.UUID
	Action   string
	Page     int
	PageSize int
}

// PagingInfo describes the page window returned.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result wraps timeline rows with paging information.
type Result struct {
	Rows   []Entry
	Paging PagingInfo
}
