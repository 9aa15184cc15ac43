// Package audit records who did what to the clinic data. Every mutating
// lifecycle operation receives an explicit Principal; there is no ambient
// security context to fish identities out of.
package audit

import (
	"context"
	"time"

	"github.com/groupeclinic/clinic-scheduling/internal/directory"
)

// Principal identifies the authenticated actor behind an operation.
type Principal struct {
	Email string
	Role  directory.Role
	IP    string
}

// Entry is one persisted audit record.
type Entry struct {
	ID         int64
	Action     string
	ActorEmail string
	ActorRole  directory.Role
	Details    string
	IP         string
	OccurredAt time.Time
}

// Recorder persists audit entries. Implementations must be safe to call from
// request handlers; a recording failure is the caller's to log, not to
// propagate.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
}

// Action names, matching the values the admin audit screen filters on.
const (
	ActionCreateRendezvous       = "CREATE_RDV"
	ActionUpdateRendezvous       = "UPDATE_RDV"
	ActionUpdateRendezvousStatus = "UPDATE_RDV_STATUS"
	ActionCancelRendezvous       = "CANCEL_RDV"
	ActionDeleteRendezvous       = "DELETE_RDV"
)

// NewEntry builds an entry attributed to the given principal.
func NewEntry(p Principal, action, details string) Entry {
	return Entry{
		Action:     action,
		ActorEmail: p.Email,
		ActorRole:  p.Role,
		Details:    details,
		IP:         p.IP,
		OccurredAt: time.Now(),
	}
}
