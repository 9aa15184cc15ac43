package notify

import (
	"context"
	"time"

	"github.com/groupeclinic/clinic-scheduling/internal/directory"
)

// Event types mirror the wire values the clinic frontend listens for.
const (
	EventNewRendezvous    = "NEW_RDV"
	EventConflictDetected = "CONFLICT_DETECTED"
	EventConfirmed        = "RDV_CONFIRMED"
	EventCompleted        = "RDV_COMPLETED"
	EventCancelled        = "RDV_CANCELLED"
	EventReminder         = "RDV_REMINDER"
)

// Event is an ephemeral domain event emitted on appointment state changes.
// It is never persisted; the dispatcher fans it out and it is gone.
type Event struct {
	Type          string         `json:"type"`
	Message       string         `json:"message"`
	AppointmentID *int64         `json:"rendezvousId,omitempty"`
	RecipientRole directory.Role `json:"recipientRole"`
	// RecipientID is nil for broadcast events (e.g. alerting every secretary).
	RecipientID *int64    `json:"recipientId,omitempty"`
	Timestamp   time.Time `json:"timestamp"`

	// RecipientEmail, when set, additionally routes the event through the
	// email channel. Not part of the push payload.
	RecipientEmail string `json:"-"`
	EmailSubject   string `json:"-"`
}

// Dispatcher consumes domain events, fire-and-forget. Implementations must
// never fail the calling operation: delivery errors are logged and dropped.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event)
}
