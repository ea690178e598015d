/*
reward.go - Reward policy resolution

PURPOSE:
  A chore template carries a reward policy: either a fixed amount or a
  min/max range the approving parent picks from. This file resolves the
  amount actually credited at approval time.

POLICY KINDS:
  Fixed(amount):    always credits the configured amount
  Range(min, max):  requires an explicit approver amount in [min, max]

RESOLUTION RULES:
  - Fixed + no proposed amount: the fixed amount
  - Fixed + matching proposed amount: the fixed amount
  - Fixed + different proposed amount: RewardMismatchError. The contradiction
    is a data-integrity signal and is reported, never silently overwritten.
  - Range + proposed amount in [min, max] inclusive: the proposed amount
  - Range + out-of-range or missing amount: error. The range is
    informational until the approver commits to a figure; it is never
    auto-resolved.

SIDE EFFECTS: none. Resolution is a pure function.

SEE ALSO:
  - service.go: Calls Resolve during Approve
  - balance.go: Uses Estimate for pending-value display
*/
package chore

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// REWARD POLICY
// =============================================================================

type PolicyKind string

const (
	PolicyFixed PolicyKind = "fixed"
	PolicyRange PolicyKind = "range"
)

// RewardPolicy determines how much an approved assignment credits.
type RewardPolicy struct {
	Kind   PolicyKind
	Amount decimal.Decimal // fixed policies
	Min    decimal.Decimal // range policies
	Max    decimal.Decimal // range policies
}

// FixedReward builds a fixed-amount policy.
func FixedReward(amount decimal.Decimal) RewardPolicy {
	return RewardPolicy{Kind: PolicyFixed, Amount: amount}
}

// RangeReward builds a min/max policy.
func RangeReward(min, max decimal.Decimal) RewardPolicy {
	return RewardPolicy{Kind: PolicyRange, Min: min, Max: max}
}

// Validate checks the policy configuration. Called at template creation.
func (p RewardPolicy) Validate() error {
	switch p.Kind {
	case PolicyFixed:
		if p.Amount.IsNegative() {
			return ErrInvalidRewardAmount
		}
		return nil
	case PolicyRange:
		if p.Min.IsNegative() || p.Max.IsNegative() {
			return ErrInvalidRewardAmount
		}
		if !p.Min.LessThan(p.Max) {
			return ErrInvalidRewardAmount
		}
		return nil
	default:
		return ErrInvalidRewardAmount
	}
}

// Resolve yields the amount to credit for an approval. proposed is the
// approver-supplied amount, nil when none was given.
func (p RewardPolicy) Resolve(proposed *decimal.Decimal) (decimal.Decimal, error) {
	switch p.Kind {
	case PolicyFixed:
		if proposed != nil && !proposed.Equal(p.Amount) {
			return decimal.Zero, &RewardMismatchError{Proposed: *proposed, Fixed: p.Amount}
		}
		return p.Amount, nil
	case PolicyRange:
		if proposed == nil {
			return decimal.Zero, ErrInvalidRewardAmount
		}
		if proposed.LessThan(p.Min) || proposed.GreaterThan(p.Max) {
			return decimal.Zero, &RewardOutOfRangeError{Proposed: *proposed, Min: p.Min, Max: p.Max}
		}
		return *proposed, nil
	default:
		return decimal.Zero, ErrInvalidRewardAmount
	}
}

// Estimate returns the [min, max] interval of the eventual reward for an
// assignment that is still pending approval. Fixed policies collapse to a
// single point. For a single display figure, use the minimum - the approval
// amount is not yet known and must never be assumed at the maximum.
func (p RewardPolicy) Estimate() (min, max decimal.Decimal) {
	if p.Kind == PolicyFixed {
		return p.Amount, p.Amount
	}
	return p.Min, p.Max
}
