package audit

import "time"

// Entry is an immutable, append-only audit record.
//
// Invariants:
// - Entries are never updated or deleted.
// - Entries describing a mutation are written in the same unit of work as the mutation.
// - The only exception is the compensating client delete after a failed intake,
//   which is recorded best-effort after rollback.
type Entry struct {
	ID string `json:"id" db:"id"`

	// ActorID is the internal user who caused the change.
	ActorID string `json:"actor_id" db:"actor_id"`

	Action Action `json:"action" db:"action"`

	// Entity is the kind of record touched (Client, Consultation, ...).
	Entity string `json:"entity" db:"entity"`

	// Description is a short human-readable summary for clinic coordinators.
	Description string `json:"description" db:"description"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Action string

const (
	ActionInsert Action = "INSERT"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

func (a Action) Valid() bool {
	switch a {
	case ActionInsert, ActionUpdate, ActionDelete:
		return true
	default:
		return false
	}
}
