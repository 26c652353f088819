package relay

import (
	"time"

	"github.com/google/uuid"
)

// Derived is the short-lived execution context handed to business logic
// after a successful authentication. RunID is unique per call, so two
// concurrent requests by the same user still get isolated contexts
type Derived struct {
	UserID       string    `json:"user_id"`
	RunID        string    `json:"run_id"`
	ConnectionID string    `json:"connection_id,omitempty"`
	IssuedAt     time.Time `json:"issued_at"`
}

// newDerived mints a context for a request-scoped transport
func newDerived(userID string) *Derived {
	return &Derived{
		UserID:   userID,
		RunID:    uuid.NewString(),
		IssuedAt: time.Now().UTC(),
	}
}

// newDerivedWS mints a context for a WebSocket connection, issuing a
// connection id that outlives individual messages on the socket
func newDerivedWS(userID string) *Derived {
	d := newDerived(userID)
	d.ConnectionID = uuid.NewString()
	return d
}
