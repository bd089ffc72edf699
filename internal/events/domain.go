package events

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a single occasion with its own guest list and
// public-facing display settings.
type Event struct {
	ID           uuid.UUID
	Name         string
	Venue        string
	StartsAt     time.Time
	WifiNetwork  string
	WifiPassword string
	CoverURL     string
	Public       bool
	CreatedBy    uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayInfo is the slice of event state exposed on unauthenticated
// screens (Wi-Fi display, entrance totem).
type DisplayInfo struct {
	Name         string `json:"name"`
	Venue        string `json:"venue"`
	WifiNetwork  string `json:"wifi_network"`
	WifiPassword string `json:"wifi_password"`
	CoverURL     string `json:"cover_url,omitempty"`
	GuestCount   int64  `json:"guest_count"`
	CheckedIn    int64  `json:"checked_in"`
}
