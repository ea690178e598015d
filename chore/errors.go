/*
errors.go - Centralized error types for the chore engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers match with errors.Is() and use the category helpers to decide
  how to surface a failure.

ERROR CATEGORIES:
  1. Validation errors - caller input problems; correct and resubmit
  2. Authorization errors - never retried; must not reveal whether the
     resource exists beyond "not authorized"
  3. State-conflict errors - expected outcomes of races or stale client
     state; the caller should refresh and reconsider, not blindly retry
  4. Not-found errors - missing entity references

USAGE:
  if errors.Is(err, chore.ErrNotPendingApproval) {
      // another approver won the race; refresh the view
  }

SEE ALSO:
  - service.go: Produces these errors
  - api/handlers.go: Maps categories to HTTP status codes
*/
package chore

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// Validation

	// ErrInvalidRewardAmount is returned when a reward policy is malformed or
	// an approval amount falls outside the policy's allowed values.
	ErrInvalidRewardAmount = errors.New("invalid reward amount")

	// ErrInvalidCooldown is returned when a recurring template carries a
	// negative cooldown. Caught at template creation, never at scheduling.
	ErrInvalidCooldown = errors.New("invalid cooldown")

	// ErrEmptyTitle is returned when a template has no title.
	ErrEmptyTitle = errors.New("template title is required")

	// ErrNoAssignees is returned when a non-pool template names no children.
	ErrNoAssignees = errors.New("template requires at least one assignee")

	// ErrZeroAmount is returned for an adjustment of exactly zero.
	ErrZeroAmount = errors.New("adjustment amount must be non-zero")

	// ErrAmountOutOfBounds is returned when an amount exceeds the allowed bound.
	ErrAmountOutOfBounds = errors.New("amount out of bounds")

	// ErrReasonTooShort is returned when an adjustment reason is missing or
	// too short to be meaningful.
	ErrReasonTooShort = errors.New("reason too short")

	// ErrEmptyReason is returned when a rejection carries no reason.
	ErrEmptyReason = errors.New("rejection reason is required")

	// Authorization

	// ErrNotAuthorized is returned for any cross-family access or
	// role violation. Deliberately uninformative.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrNotAssignee is returned when a family child who is not the
	// assignee tries to complete an assignment.
	ErrNotAssignee = errors.New("not the assignee")

	// State conflicts

	// ErrAlreadyCompleted is returned when completing an assignment that is
	// already pending approval or approved.
	ErrAlreadyCompleted = errors.New("assignment already completed")

	// ErrNotPendingApproval is returned when approving or rejecting an
	// assignment that is not pending. The loser of a concurrent
	// approve/reject race sees this.
	ErrNotPendingApproval = errors.New("assignment not pending approval")

	// ErrAlreadyClaimed is returned to the loser of a pool-claim race.
	ErrAlreadyClaimed = errors.New("pool chore already claimed")

	// ErrNotYetAvailable is returned when a recurring chore's cooldown has
	// not elapsed.
	ErrNotYetAvailable = errors.New("chore not yet available")

	// ErrTemplateDisabled is returned when completing an assignment whose
	// template is disabled.
	ErrTemplateDisabled = errors.New("chore template is disabled")

	// ErrTemplateHasHistory is returned when hard-deleting a template that
	// assignments still reference. Disable is the deletion path then.
	ErrTemplateHasHistory = errors.New("template has assignment history")

	// ErrStaleState is returned by stores when a conditional update finds
	// the row no longer in the expected state. Services translate this to
	// the operation-specific conflict error.
	ErrStaleState = errors.New("stale state: conditional update failed")

	// Not found

	ErrMemberNotFound     = errors.New("member not found")
	ErrTemplateNotFound   = errors.New("template not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RewardOutOfRangeError reports an approval amount outside a range policy.
type RewardOutOfRangeError struct {
	Proposed decimal.Decimal
	Min      decimal.Decimal
	Max      decimal.Decimal
}

func (e *RewardOutOfRangeError) Error() string {
	return fmt.Sprintf("reward %s outside allowed range [%s, %s]",
		e.Proposed, e.Min, e.Max)
}

func (e *RewardOutOfRangeError) Unwrap() error { return ErrInvalidRewardAmount }

// RewardMismatchError reports a proposed amount that contradicts a fixed
// policy. The mismatch is surfaced, not silently overwritten.
type RewardMismatchError struct {
	Proposed decimal.Decimal
	Fixed    decimal.Decimal
}

func (e *RewardMismatchError) Error() string {
	return fmt.Sprintf("proposed reward %s does not match fixed reward %s",
		e.Proposed, e.Fixed)
}

func (e *RewardMismatchError) Unwrap() error { return ErrInvalidRewardAmount }

// NotYetAvailableError reports when the chore becomes completable again.
type NotYetAvailableError struct {
	AvailableAt time.Time
}

func (e *NotYetAvailableError) Error() string {
	return fmt.Sprintf("chore not available until %s", e.AvailableAt.Format(time.RFC3339))
}

func (e *NotYetAvailableError) Unwrap() error { return ErrNotYetAvailable }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation returns true for caller-input problems.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidRewardAmount) ||
		errors.Is(err, ErrInvalidCooldown) ||
		errors.Is(err, ErrEmptyTitle) ||
		errors.Is(err, ErrNoAssignees) ||
		errors.Is(err, ErrZeroAmount) ||
		errors.Is(err, ErrAmountOutOfBounds) ||
		errors.Is(err, ErrReasonTooShort) ||
		errors.Is(err, ErrEmptyReason)
}

// IsAuthorization returns true for role or family ownership violations.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrNotAuthorized) ||
		errors.Is(err, ErrNotAssignee)
}

// IsStateConflict returns true for expected outcomes of races or stale
// client state. Callers should refresh before deciding to retry.
func IsStateConflict(err error) bool {
	return errors.Is(err, ErrAlreadyCompleted) ||
		errors.Is(err, ErrNotPendingApproval) ||
		errors.Is(err, ErrAlreadyClaimed) ||
		errors.Is(err, ErrNotYetAvailable) ||
		errors.Is(err, ErrTemplateDisabled) ||
		errors.Is(err, ErrTemplateHasHistory) ||
		errors.Is(err, ErrStaleState)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMemberNotFound) ||
		errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrAssignmentNotFound)
}
