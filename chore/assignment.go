/*
assignment.go - Per-child chore tracking records

PURPOSE:
  An Assignment is one trackable instance of a chore for one child (or an
  unclaimed pool slot). It carries completion/approval state and, once
  approved, becomes a permanent historical ledger row that is never
  mutated again.

STATE MODEL:
  available ──complete──▶ pending_approval ──approve──▶ approved (terminal)
      ▲                          │
      └────────── reject ────────┘

  A disabled template overlays "available": the assignment keeps its state
  and history but cannot be completed while the template is disabled.

INVARIANTS:
  - approved implies completed
  - ApprovalReward is set if and only if the assignment is approved
  - RejectionReason is set only after a rejection and is cleared by the
    next completion
  - exactly one state holds at any time

SEE ALSO:
  - service.go: The transitions and their guards
  - store.go: SwapAssignment, the conditional update behind every transition
*/
package chore

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ASSIGNMENT STATE
// =============================================================================

type AssignmentState string

const (
	StateAvailable       AssignmentState = "available"
	StatePendingApproval AssignmentState = "pending_approval"
	StateApproved        AssignmentState = "approved"
)

// =============================================================================
// ASSIGNMENT
// =============================================================================

type Assignment struct {
	ID         AssignmentID
	TemplateID TemplateID
	AssigneeID *MemberID // nil while an unclaimed pool slot

	State       AssignmentState
	CompletedAt *time.Time
	ApprovedAt  *time.Time
	ApprovedBy  *MemberID

	// The actually-credited amount. Set exactly once, on approval.
	ApprovalReward *decimal.Decimal

	// Retained for display until the next completion clears it.
	RejectionReason *string

	// For recurring templates: the moment the chore may be completed.
	// Nil means available immediately.
	NextAvailableAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a Assignment) IsCompleted() bool { return a.State != StateAvailable }
func (a Assignment) IsApproved() bool  { return a.State == StateApproved }

// IsUnclaimed reports whether this is a pool slot no child has taken yet.
func (a Assignment) IsUnclaimed() bool { return a.AssigneeID == nil }

// AvailableTo reports whether the given child could complete this
// assignment at the given time, ignoring template disablement (the
// service checks that against the template).
func (a Assignment) AvailableTo(child MemberID, now time.Time) bool {
	if a.State != StateAvailable {
		return false
	}
	if a.AssigneeID != nil && *a.AssigneeID != child {
		return false
	}
	if a.NextAvailableAt != nil && now.Before(*a.NextAvailableAt) {
		return false
	}
	return true
}

// =============================================================================
// MATERIALIZATION - Template to assignment records
// =============================================================================

// Materialize derives the assignment records a template produces at
// creation time: one per target child for single/assigned/multiIndependent
// modes, or one unclaimed slot for pool mode. Disabled templates produce
// nothing.
func Materialize(t ChoreTemplate, now time.Time) []Assignment {
	if t.IsDisabled {
		return nil
	}

	newAssignment := func(assignee *MemberID) Assignment {
		return Assignment{
			ID:         AssignmentID(NewID()),
			TemplateID: t.ID,
			AssigneeID: assignee,
			State:      StateAvailable,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}

	if t.Mode == ModePool {
		return []Assignment{newAssignment(nil)}
	}

	targets := t.AssigneeIDs
	if t.Mode == ModeSingle || t.Mode == ModeAssigned {
		targets = targets[:1]
	}

	out := make([]Assignment, 0, len(targets))
	for _, id := range targets {
		child := id
		out = append(out, newAssignment(&child))
	}
	return out
}

// materializeNext builds the successor of an approved recurring
// assignment: same assignee, fresh instance, gated by the cooldown.
func materializeNext(t ChoreTemplate, prev Assignment, approvedAt time.Time) Assignment {
	next := Assignment{
		ID:              AssignmentID(NewID()),
		TemplateID:      t.ID,
		AssigneeID:      prev.AssigneeID,
		State:           StateAvailable,
		NextAvailableAt: NextAvailable(t, approvedAt),
		CreatedAt:       approvedAt,
		UpdatedAt:       approvedAt,
	}
	// A regenerated pool chore opens back up to the whole family.
	if t.Mode == ModePool {
		next.AssigneeID = nil
	}
	return next
}

// =============================================================================
// LIST FILTERING - Read-side projection of the state machine
// =============================================================================

// ListFilter selects assignments by state for list views. The predicates
// mirror the state machine exactly so the UI and the engine never disagree
// about what "pending" means.
type ListFilter string

const (
	FilterAll       ListFilter = ""
	FilterAvailable ListFilter = "available"
	FilterPending   ListFilter = "pending"
	FilterApproved  ListFilter = "approved"
)

func (f ListFilter) Matches(a Assignment) bool {
	switch f {
	case FilterAvailable:
		return a.State == StateAvailable
	case FilterPending:
		return a.State == StatePendingApproval
	case FilterApproved:
		return a.State == StateApproved
	default:
		return true
	}
}
