/*
store.go - Persistence interface for the chore engine

PURPOSE:
  Defines the interface between the domain logic and the database.
  Different implementations can use SQLite or in-memory storage.

CHECK-AND-SET CONTRACT:
  Every assignment state transition goes through SwapAssignment with a
  Guard naming the required prior state. Implementations must make the
  check and the write atomic (conditional UPDATE, or a single mutex
  section) so that concurrent approve/reject or pool-claim races have
  exactly one winner. A failed guard returns ErrStaleState; the service
  translates that into the operation-specific conflict error. A
  read-then-write sequence is NOT an acceptable implementation.

APPEND-ONLY CONTRACT:
  Adjustments and payouts expose Append and List only. No Update or
  Delete methods exist for them.

IMPLEMENTATIONS:
  - chore/store/memory.go: in-memory, for tests and development
  - store/sqlite/sqlite.go: production SQLite

SEE ALSO:
  - service.go: The only caller of SwapAssignment
*/
package chore

import "context"

// =============================================================================
// GUARD - Required prior state for a conditional swap
// =============================================================================

// Guard names the state an assignment row must still be in for a swap to
// apply. RequireUnclaimed additionally requires the row to have no
// assignee (pool claims).
type Guard struct {
	State            AssignmentState
	RequireUnclaimed bool
}

// =============================================================================
// STORE INTERFACES
// =============================================================================

type MemberStore interface {
	PutMember(ctx context.Context, m Member) error
	GetMember(ctx context.Context, id MemberID) (*Member, error)
	// ListFamily returns the parent and all of their children.
	ListFamily(ctx context.Context, parentID MemberID) ([]Member, error)
}

type TemplateStore interface {
	PutTemplate(ctx context.Context, t ChoreTemplate) error
	GetTemplate(ctx context.Context, id TemplateID) (*ChoreTemplate, error)
	ListTemplates(ctx context.Context, parentID MemberID) ([]ChoreTemplate, error)
	// DeleteTemplate removes a template with no assignment history.
	// Returns ErrTemplateHasHistory if assignments reference it.
	DeleteTemplate(ctx context.Context, id TemplateID) error
}

type AssignmentStore interface {
	PutAssignment(ctx context.Context, a Assignment) error
	GetAssignment(ctx context.Context, id AssignmentID) (*Assignment, error)
	ListAssignmentsByTemplate(ctx context.Context, id TemplateID) ([]Assignment, error)
	ListAssignmentsByAssignee(ctx context.Context, child MemberID) ([]Assignment, error)
	// ListAssignmentsByFamily returns every assignment whose template is
	// owned by the given parent, including unclaimed pool slots.
	ListAssignmentsByFamily(ctx context.Context, parentID MemberID) ([]Assignment, error)

	// SwapAssignment persists updated only if the stored row still
	// satisfies the guard. Returns ErrStaleState on a failed guard and
	// ErrAssignmentNotFound for an unknown ID. The check and the write
	// are atomic.
	SwapAssignment(ctx context.Context, updated Assignment, guard Guard) error
}

type AdjustmentStore interface {
	AppendAdjustment(ctx context.Context, a Adjustment) error
	ListAdjustments(ctx context.Context, child MemberID) ([]Adjustment, error)
}

type PayoutStore interface {
	AppendPayout(ctx context.Context, p Payout) error
	ListPayouts(ctx context.Context, child MemberID) ([]Payout, error)
}

// Store is everything the engine needs from persistence.
type Store interface {
	MemberStore
	TemplateStore
	AssignmentStore
	AdjustmentStore
	PayoutStore
}
