/*
ledger.go - Append-only adjustment and payout rows

PURPOSE:
  Besides approved chores, a child's balance moves through two kinds of
  manual ledger rows: Adjustments (bonuses and deductions a parent enters)
  and Payouts (amounts actually handed over). Both are append-only - no
  edit, no delete. A mistaken adjustment is corrected by entering a
  counter-adjustment, so history is preserved.

WHY APPEND-ONLY?
  - The balance is recomputed from these rows on every read; mutable rows
    would reintroduce the drift bugs a derived balance exists to prevent.
  - Concurrent creation never conflicts: the rows are commutative under
    summation, so there is nothing to lock.

VALIDATION:
  Adjustment: amount non-zero, |amount| bounded by MaxAdjustment,
  reason between 3 and 200 characters.
  Payout: amount strictly positive, bounded by MaxAdjustment.

SEE ALSO:
  - balance.go: Sums these rows into a BalanceSnapshot
  - service.go: Authorization (parent-only, own children only)
*/
package chore

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ADJUSTMENT - Manual bonus or deduction
// =============================================================================

type Adjustment struct {
	ID       AdjustmentID
	ChildID  MemberID
	ParentID MemberID // who entered it

	// Signed: bonuses positive, deductions negative. Never zero.
	Amount decimal.Decimal

	Reason    string
	CreatedAt time.Time
}

const (
	minReasonLen = 3
	maxReasonLen = 200
)

func validateAdjustment(amount decimal.Decimal, reason string) error {
	if amount.IsZero() {
		return ErrZeroAmount
	}
	if amount.Abs().GreaterThan(MaxAdjustment) {
		return ErrAmountOutOfBounds
	}
	reason = strings.TrimSpace(reason)
	if len(reason) < minReasonLen || len(reason) > maxReasonLen {
		return ErrReasonTooShort
	}
	return nil
}

// =============================================================================
// PAYOUT - Amount actually paid to a child
// =============================================================================

type Payout struct {
	ID       PayoutID
	ChildID  MemberID
	ParentID MemberID

	// Always positive; payouts reduce the balance due.
	Amount decimal.Decimal

	Note      string
	CreatedAt time.Time
}

func validatePayout(amount decimal.Decimal) error {
	if amount.IsZero() || amount.IsNegative() {
		return ErrZeroAmount
	}
	if amount.GreaterThan(MaxAdjustment) {
		return ErrAmountOutOfBounds
	}
	return nil
}
