/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing field
  renaming and version evolution without breaking clients.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Amounts cross the wire as decimal strings ("5.00"), never floats, so
  clients round-trip exactly what the engine computed.

VALIDATION:
  Structural validation (parseable decimals, known modes) happens here;
  business validation lives in the chore package.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/allowance-engine/chore"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// MemberDTO represents a family member in API responses.
type MemberDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	ParentID  string `json:"parent_id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateMemberRequest creates a parent or (for a parent actor) a child.
type CreateMemberRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// RewardPolicyDTO carries a reward policy in both directions.
type RewardPolicyDTO struct {
	Kind   string `json:"kind"` // "fixed" or "range"
	Amount string `json:"amount,omitempty"`
	Min    string `json:"min,omitempty"`
	Max    string `json:"max,omitempty"`
}

// TemplateDTO represents a chore template.
type TemplateDTO struct {
	ID           string          `json:"id"`
	ParentID     string          `json:"parent_id"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	Reward       RewardPolicyDTO `json:"reward"`
	IsRecurring  bool            `json:"is_recurring"`
	CooldownDays int             `json:"cooldown_days"`
	Mode         string          `json:"mode"`
	AssigneeIDs  []string        `json:"assignee_ids,omitempty"`
	IsDisabled   bool            `json:"is_disabled"`
	CreatedAt    string          `json:"created_at,omitempty"`
}

// CreateTemplateRequest is the request to author a template.
type CreateTemplateRequest struct {
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	Reward       RewardPolicyDTO `json:"reward"`
	IsRecurring  bool            `json:"is_recurring"`
	CooldownDays int             `json:"cooldown_days"`
	Mode         string          `json:"mode"`
	AssigneeIDs  []string        `json:"assignee_ids,omitempty"`
}

// UpdateTemplateRequest carries editable fields; omitted fields are unchanged.
type UpdateTemplateRequest struct {
	Title        *string          `json:"title,omitempty"`
	Description  *string          `json:"description,omitempty"`
	Reward       *RewardPolicyDTO `json:"reward,omitempty"`
	IsRecurring  *bool            `json:"is_recurring,omitempty"`
	CooldownDays *int             `json:"cooldown_days,omitempty"`
}

// AssignmentDTO represents one trackable chore instance.
type AssignmentDTO struct {
	ID              string  `json:"id"`
	TemplateID      string  `json:"template_id"`
	AssigneeID      *string `json:"assignee_id,omitempty"`
	State           string  `json:"state"`
	CompletedAt     *string `json:"completed_at,omitempty"`
	ApprovedAt      *string `json:"approved_at,omitempty"`
	ApprovalReward  *string `json:"approval_reward,omitempty"`
	RejectionReason *string `json:"rejection_reason,omitempty"`
	NextAvailableAt *string `json:"next_available_at,omitempty"`
	CreatedAt       string  `json:"created_at,omitempty"`
}

// ApproveRequest optionally carries the approver-chosen amount.
type ApproveRequest struct {
	Amount *string `json:"amount,omitempty"`
}

// RejectRequest carries the required rejection reason.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// AdjustmentRequest creates a manual bonus or deduction.
type AdjustmentRequest struct {
	ChildID string `json:"child_id"`
	Amount  string `json:"amount"`
	Reason  string `json:"reason"`
}

// AdjustmentDTO represents one ledger adjustment row.
type AdjustmentDTO struct {
	ID        string `json:"id"`
	ChildID   string `json:"child_id"`
	ParentID  string `json:"parent_id"`
	Amount    string `json:"amount"`
	Reason    string `json:"reason"`
	CreatedAt string `json:"created_at"`
}

// PayoutRequest records an amount paid to a child.
type PayoutRequest struct {
	ChildID string `json:"child_id"`
	Amount  string `json:"amount"`
	Note    string `json:"note,omitempty"`
}

// PayoutDTO represents one payout row.
type PayoutDTO struct {
	ID        string `json:"id"`
	ChildID   string `json:"child_id"`
	ParentID  string `json:"parent_id"`
	Amount    string `json:"amount"`
	Note      string `json:"note,omitempty"`
	CreatedAt string `json:"created_at"`
}

// BalanceDTO is the derived balance snapshot for one child.
type BalanceDTO struct {
	ChildID          string `json:"child_id"`
	TotalEarned      string `json:"total_earned"`
	TotalAdjustments string `json:"total_adjustments"`
	TotalPaidOut     string `json:"total_paid_out"`
	PendingMin       string `json:"pending_min"`
	PendingMax       string `json:"pending_max"`
	BalanceDue       string `json:"balance_due"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toMemberDTO(m chore.Member) MemberDTO {
	return MemberDTO{
		ID:        string(m.ID),
		Name:      m.Name,
		Role:      string(m.Role),
		ParentID:  string(m.ParentID),
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}

func toRewardPolicyDTO(p chore.RewardPolicy) RewardPolicyDTO {
	dto := RewardPolicyDTO{Kind: string(p.Kind)}
	if p.Kind == chore.PolicyFixed {
		dto.Amount = p.Amount.String()
	} else {
		dto.Min = p.Min.String()
		dto.Max = p.Max.String()
	}
	return dto
}

func fromRewardPolicyDTO(dto RewardPolicyDTO) (chore.RewardPolicy, error) {
	switch chore.PolicyKind(dto.Kind) {
	case chore.PolicyFixed:
		amount, err := decimal.NewFromString(dto.Amount)
		if err != nil {
			return chore.RewardPolicy{}, chore.ErrInvalidRewardAmount
		}
		return chore.FixedReward(amount), nil
	case chore.PolicyRange:
		min, err := decimal.NewFromString(dto.Min)
		if err != nil {
			return chore.RewardPolicy{}, chore.ErrInvalidRewardAmount
		}
		max, err := decimal.NewFromString(dto.Max)
		if err != nil {
			return chore.RewardPolicy{}, chore.ErrInvalidRewardAmount
		}
		return chore.RangeReward(min, max), nil
	default:
		return chore.RewardPolicy{}, chore.ErrInvalidRewardAmount
	}
}

func toTemplateDTO(t chore.ChoreTemplate) TemplateDTO {
	assignees := make([]string, len(t.AssigneeIDs))
	for i, id := range t.AssigneeIDs {
		assignees[i] = string(id)
	}
	return TemplateDTO{
		ID:           string(t.ID),
		ParentID:     string(t.ParentID),
		Title:        t.Title,
		Description:  t.Description,
		Reward:       toRewardPolicyDTO(t.Reward),
		IsRecurring:  t.IsRecurring,
		CooldownDays: t.CooldownDays,
		Mode:         string(t.Mode),
		AssigneeIDs:  assignees,
		IsDisabled:   t.IsDisabled,
		CreatedAt:    t.CreatedAt.Format(time.RFC3339),
	}
}

func toAssignmentDTO(a chore.Assignment) AssignmentDTO {
	dto := AssignmentDTO{
		ID:         string(a.ID),
		TemplateID: string(a.TemplateID),
		State:      string(a.State),
		CreatedAt:  a.CreatedAt.Format(time.RFC3339),
	}
	if a.AssigneeID != nil {
		s := string(*a.AssigneeID)
		dto.AssigneeID = &s
	}
	if a.CompletedAt != nil {
		s := a.CompletedAt.Format(time.RFC3339)
		dto.CompletedAt = &s
	}
	if a.ApprovedAt != nil {
		s := a.ApprovedAt.Format(time.RFC3339)
		dto.ApprovedAt = &s
	}
	if a.ApprovalReward != nil {
		s := a.ApprovalReward.String()
		dto.ApprovalReward = &s
	}
	if a.RejectionReason != nil {
		dto.RejectionReason = a.RejectionReason
	}
	if a.NextAvailableAt != nil {
		s := a.NextAvailableAt.Format(time.RFC3339)
		dto.NextAvailableAt = &s
	}
	return dto
}

func toAssignmentDTOs(as []chore.Assignment) []AssignmentDTO {
	dtos := make([]AssignmentDTO, len(as))
	for i, a := range as {
		dtos[i] = toAssignmentDTO(a)
	}
	return dtos
}

func toAdjustmentDTO(a chore.Adjustment) AdjustmentDTO {
	return AdjustmentDTO{
		ID:        string(a.ID),
		ChildID:   string(a.ChildID),
		ParentID:  string(a.ParentID),
		Amount:    a.Amount.String(),
		Reason:    a.Reason,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
}

func toPayoutDTO(p chore.Payout) PayoutDTO {
	return PayoutDTO{
		ID:        string(p.ID),
		ChildID:   string(p.ChildID),
		ParentID:  string(p.ParentID),
		Amount:    p.Amount.String(),
		Note:      p.Note,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

func toBalanceDTO(b chore.BalanceSnapshot) BalanceDTO {
	return BalanceDTO{
		ChildID:          string(b.ChildID),
		TotalEarned:      b.TotalEarned.String(),
		TotalAdjustments: b.TotalAdjustments.String(),
		TotalPaidOut:     b.TotalPaidOut.String(),
		PendingMin:       b.PendingMin.String(),
		PendingMax:       b.PendingMax.String(),
		BalanceDue:       b.BalanceDue.String(),
	}
}
