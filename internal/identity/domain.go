package identity

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account held by the identity provider. The rest of
// the system only ever sees the opaque ID.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
