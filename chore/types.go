/*
Package chore provides the core chore-and-allowance engine.

PURPOSE:
  This package contains the domain model and algorithms for turning a
  parent-authored chore template into trackable assignments, moving those
  assignments through completion/approval/rejection, and computing each
  child's balance from the resulting ledger of earned rewards, manual
  adjustments, and payouts.

KEY CONCEPTS IN THIS FILE (types.go):
  - Actor: the authenticated family member performing an operation
  - Typed IDs: MemberID, TemplateID, AssignmentID prevent mixing identifiers
  - Member: a parent or child belonging to one family unit

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere money appears - never float64
  2. Derived balance: balances are recomputed from source rows, never cached
  3. Immutability: approved assignments, adjustments, and payouts are
     append-only ledger rows that are never mutated after creation
  4. Type Safety: strong typing for IDs prevents cross-entity mixups

AUTHENTICATION:
  The engine consumes actors, it does not produce them. Session/token
  mechanics live in an external collaborator; this package only cares
  about {id, role, parent-of record}.

SEE ALSO:
  - template.go: Chore template definition and validation
  - assignment.go: Per-child tracking records and the state predicates
  - service.go: The approval state machine and all entry points
  - balance.go: Balance computation from ledger rows
*/
package chore

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type MemberID string
type TemplateID string
type AssignmentID string
type AdjustmentID string
type PayoutID string

// NewID returns a fresh unique identifier. All entity IDs share the same
// underlying format; the typed wrappers keep them from being mixed up.
func NewID() string { return uuid.NewString() }

// =============================================================================
// ROLES AND ACTORS
// =============================================================================

type Role string

const (
	RoleParent Role = "parent"
	RoleChild  Role = "child"
)

// Actor is the authenticated family member performing an operation.
// It is supplied by the authentication collaborator, never constructed
// from request data inside the engine.
type Actor struct {
	ID       MemberID
	Role     Role
	ParentID MemberID // set for children: the owning parent
}

func (a Actor) IsParent() bool { return a.Role == RoleParent }
func (a Actor) IsChild() bool  { return a.Role == RoleChild }

// FamilyID returns the parent ID anchoring the actor's family unit.
// A parent anchors their own family; a child belongs to their parent's.
func (a Actor) FamilyID() MemberID {
	if a.Role == RoleChild {
		return a.ParentID
	}
	return a.ID
}

// =============================================================================
// MEMBER - Persisted family member record
// =============================================================================

// Member is the stored record behind an Actor. The engine persists members
// so the API layer can resolve an acting member by ID; everything else
// about identity (credentials, sessions) is out of scope.
type Member struct {
	ID        MemberID
	Name      string
	Role      Role
	ParentID  MemberID // empty for parents
	CreatedAt time.Time
}

// Actor converts a stored member into the actor shape the engine consumes.
func (m Member) Actor() Actor {
	return Actor{ID: m.ID, Role: m.Role, ParentID: m.ParentID}
}

// =============================================================================
// MONEY HELPERS
// =============================================================================

// MaxAdjustment bounds a single manual adjustment (either sign).
var MaxAdjustment = decimal.RequireFromString("999.99")

// MustParseDecimal parses s, returning zero on malformed input.
// For literals in tests and seeds, not for user input.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
