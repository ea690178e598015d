/*
balance.go - Derived per-child balance

PURPOSE:
  Computes a child's balance by summing source rows: approved assignments
  (earned), adjustments (signed), and payouts (paid out). The balance is
  derived on every read - there is no separately-mutable cached total that
  could drift from the ledger.

BALANCE COMPONENTS:
  TotalEarned:      sum of ApprovalReward over approved assignments
  TotalAdjustments: sum of adjustment amounts (signed)
  TotalPaidOut:     sum of payout amounts
  PendingMin/Max:   the resolvable estimate of rewards still awaiting
                    approval, as an interval. Informational only - NEVER
                    part of BalanceDue, since the approval amount for a
                    range policy is not yet known.

  BalanceDue = TotalEarned + TotalAdjustments - TotalPaidOut

GUARANTEES:
  Idempotent and side-effect free. Two calls with no intervening writes
  yield identical snapshots. Safe without locking: every row summed here
  is immutable once written.

SEE ALSO:
  - ledger.go: The adjustment and payout rows
  - service.go: ComputeBalance and FamilyBalances entry points
*/
package chore

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BALANCE SNAPSHOT
// =============================================================================

type BalanceSnapshot struct {
	ChildID MemberID

	TotalEarned      decimal.Decimal
	TotalAdjustments decimal.Decimal
	TotalPaidOut     decimal.Decimal

	// Pending rewards, as an interval. Display the minimum when a single
	// figure is needed.
	PendingMin decimal.Decimal
	PendingMax decimal.Decimal

	BalanceDue decimal.Decimal
}

// =============================================================================
// BALANCE CALCULATOR
// =============================================================================

// BalanceCalculator recomputes balances from source rows.
type BalanceCalculator struct {
	Store Store
}

// Compute builds the balance snapshot for one child.
func (bc *BalanceCalculator) Compute(ctx context.Context, childID MemberID) (BalanceSnapshot, error) {
	snap := BalanceSnapshot{
		ChildID:          childID,
		TotalEarned:      decimal.Zero,
		TotalAdjustments: decimal.Zero,
		TotalPaidOut:     decimal.Zero,
		PendingMin:       decimal.Zero,
		PendingMax:       decimal.Zero,
	}

	assignments, err := bc.Store.ListAssignmentsByAssignee(ctx, childID)
	if err != nil {
		return BalanceSnapshot{}, err
	}

	// Templates are needed to estimate pending rewards.
	templates := make(map[TemplateID]ChoreTemplate)

	for _, a := range assignments {
		switch a.State {
		case StateApproved:
			if a.ApprovalReward != nil {
				snap.TotalEarned = snap.TotalEarned.Add(*a.ApprovalReward)
			}
		case StatePendingApproval:
			t, ok := templates[a.TemplateID]
			if !ok {
				got, err := bc.Store.GetTemplate(ctx, a.TemplateID)
				if err != nil {
					return BalanceSnapshot{}, err
				}
				if got == nil {
					return BalanceSnapshot{}, ErrTemplateNotFound
				}
				t = *got
				templates[a.TemplateID] = t
			}
			min, max := t.Reward.Estimate()
			snap.PendingMin = snap.PendingMin.Add(min)
			snap.PendingMax = snap.PendingMax.Add(max)
		}
	}

	adjustments, err := bc.Store.ListAdjustments(ctx, childID)
	if err != nil {
		return BalanceSnapshot{}, err
	}
	for _, adj := range adjustments {
		snap.TotalAdjustments = snap.TotalAdjustments.Add(adj.Amount)
	}

	payouts, err := bc.Store.ListPayouts(ctx, childID)
	if err != nil {
		return BalanceSnapshot{}, err
	}
	for _, p := range payouts {
		snap.TotalPaidOut = snap.TotalPaidOut.Add(p.Amount)
	}

	snap.BalanceDue = snap.TotalEarned.Add(snap.TotalAdjustments).Sub(snap.TotalPaidOut)
	return snap, nil
}
