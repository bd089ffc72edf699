package profiles

import (
	"time"

	"github.com/google/uuid"
)

// Profile stores display information 1:1 with a user. It carries no
// privilege; roles live in their own table.
type Profile struct {
	UserID      uuid.UUID
	Email       string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
