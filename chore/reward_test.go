package chore_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/warp/allowance-engine/chore"
)

func dec(s string) decimal.Decimal {
	return chore.MustParseDecimal(s)
}

func decPtr(s string) *decimal.Decimal {
	d := chore.MustParseDecimal(s)
	return &d
}

// =============================================================================
// POLICY VALIDATION
// =============================================================================

func TestRewardPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  chore.RewardPolicy
		wantErr bool
	}{
		{"fixed positive", chore.FixedReward(dec("5.00")), false},
		{"fixed zero", chore.FixedReward(decimal.Zero), false},
		{"fixed negative", chore.FixedReward(dec("-1")), true},
		{"range valid", chore.RangeReward(dec("5.00"), dec("15.00")), false},
		{"range min equals max", chore.RangeReward(dec("5"), dec("5")), true},
		{"range min above max", chore.RangeReward(dec("10"), dec("5")), true},
		{"range negative min", chore.RangeReward(dec("-1"), dec("5")), true},
		{"unknown kind", chore.RewardPolicy{Kind: "mystery"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.wantErr && !errors.Is(err, chore.ErrInvalidRewardAmount) {
				t.Errorf("expected ErrInvalidRewardAmount, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

// =============================================================================
// RESOLUTION
// =============================================================================

func TestRewardPolicy_Resolve_Fixed(t *testing.T) {
	policy := chore.FixedReward(dec("5.00"))

	// No proposed amount: the fixed amount wins.
	got, err := policy.Resolve(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(dec("5.00")) {
		t.Errorf("expected 5.00, got %s", got)
	}

	// Matching proposed amount is fine.
	got, err = policy.Resolve(decPtr("5.00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(dec("5.00")) {
		t.Errorf("expected 5.00, got %s", got)
	}

	// A contradicting amount is a data-integrity error, never overwritten.
	_, err = policy.Resolve(decPtr("7.00"))
	if !errors.Is(err, chore.ErrInvalidRewardAmount) {
		t.Errorf("expected ErrInvalidRewardAmount, got %v", err)
	}
	var mismatch *chore.RewardMismatchError
	if !errors.As(err, &mismatch) {
		t.Errorf("expected RewardMismatchError, got %T", err)
	}
}

func TestRewardPolicy_Resolve_Range(t *testing.T) {
	policy := chore.RangeReward(dec("5.00"), dec("15.00"))

	tests := []struct {
		name     string
		proposed *decimal.Decimal
		want     string
		wantErr  bool
	}{
		{"within range", decPtr("10.00"), "10.00", false},
		{"at min", decPtr("5.00"), "5.00", false},
		{"at max", decPtr("15.00"), "15.00", false},
		{"above max", decPtr("20.00"), "", true},
		{"below min", decPtr("4.99"), "", true},
		{"missing amount", nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := policy.Resolve(tt.proposed)
			if tt.wantErr {
				if !errors.Is(err, chore.ErrInvalidRewardAmount) {
					t.Errorf("expected ErrInvalidRewardAmount, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(dec(tt.want)) {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestRewardPolicy_Estimate(t *testing.T) {
	min, max := chore.FixedReward(dec("5.00")).Estimate()
	if !min.Equal(dec("5.00")) || !max.Equal(dec("5.00")) {
		t.Errorf("fixed estimate should collapse to a point, got [%s, %s]", min, max)
	}

	min, max = chore.RangeReward(dec("5.00"), dec("15.00")).Estimate()
	if !min.Equal(dec("5.00")) || !max.Equal(dec("15.00")) {
		t.Errorf("expected [5.00, 15.00], got [%s, %s]", min, max)
	}
}
