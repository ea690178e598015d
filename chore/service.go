/*
service.go - Engine entry points and the approval state machine

PURPOSE:
  The Service orchestrates every operation the engine exposes: template
  authoring, the complete/approve/reject lifecycle, manual adjustments,
  payouts, and balance reads. Authorization (family ownership, roles) is
  enforced here at every operation.

STATE MACHINE:
  ┌─────────────────────────────────────────────────────────────┐
  │                                                             │
  │   available ──complete──▶ pending_approval                  │
  │       ▲                        │        │                   │
  │       │                     approve   reject                │
  │       │                        │        │                   │
  │       │                        ▼        │                   │
  │       │                    approved     │                   │
  │       │                    (terminal)   │                   │
  │       └──────────◀─────────────────────-┘                   │
  │                                                             │
  │   approved + recurring template ──▶ fresh available         │
  │   assignment for the same assignee, gated by cooldown       │
  │                                                             │
  └─────────────────────────────────────────────────────────────┘

CONCURRENCY:
  Approve and reject are mutually exclusive outcomes of the same pending
  assignment; pool claims have exactly one winner. Both are guaranteed by
  SwapAssignment's conditional update, keyed on the pre-transition state.
  The service never does a read-then-write transition.

AUTHORIZATION RULES:
  - Cross-family access fails with ErrNotAuthorized and reveals nothing
    about the resource beyond that.
  - Only the owning parent mutates templates, approves, rejects, adjusts,
    and records payouts - and only for their own children.
  - Only the assignee (or, for pool chores, any family child claiming
    atomically) completes an assignment.

SEE ALSO:
  - store.go: The SwapAssignment contract the transitions rely on
  - balance.go: The derived balance the approved rows feed
*/
package chore

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Store   Store
	Balance *BalanceCalculator

	// Now is the clock; overridable in tests.
	Now func() time.Time
}

func NewService(store Store) *Service {
	return &Service{
		Store:   store,
		Balance: &BalanceCalculator{Store: store},
		Now:     time.Now,
	}
}

// =============================================================================
// FAMILY MEMBERS
// =============================================================================

// RegisterParent creates a new parent member anchoring a family unit.
func (s *Service) RegisterParent(ctx context.Context, name string) (*Member, error) {
	m := Member{
		ID:        MemberID(NewID()),
		Name:      name,
		Role:      RoleParent,
		CreatedAt: s.Now().UTC(),
	}
	if err := s.Store.PutMember(ctx, m); err != nil {
		return nil, err
	}
	return &m, nil
}

// RegisterChild creates a child belonging to the acting parent.
func (s *Service) RegisterChild(ctx context.Context, actor Actor, name string) (*Member, error) {
	if !actor.IsParent() {
		return nil, ErrNotAuthorized
	}
	m := Member{
		ID:        MemberID(NewID()),
		Name:      name,
		Role:      RoleChild,
		ParentID:  actor.ID,
		CreatedAt: s.Now().UTC(),
	}
	if err := s.Store.PutMember(ctx, m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ResolveActor looks up the acting member by ID. This is the seam where an
// external authentication collaborator plugs in.
func (s *Service) ResolveActor(ctx context.Context, id MemberID) (Actor, error) {
	m, err := s.Store.GetMember(ctx, id)
	if err != nil {
		return Actor{}, err
	}
	if m == nil {
		return Actor{}, ErrMemberNotFound
	}
	return m.Actor(), nil
}

// ownChild verifies the target child exists and belongs to the acting parent.
func (s *Service) ownChild(ctx context.Context, actor Actor, childID MemberID) (*Member, error) {
	if !actor.IsParent() {
		return nil, ErrNotAuthorized
	}
	child, err := s.Store.GetMember(ctx, childID)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, ErrMemberNotFound
	}
	if child.Role != RoleChild || child.ParentID != actor.ID {
		return nil, ErrNotAuthorized
	}
	return child, nil
}

// =============================================================================
// TEMPLATE AUTHORING
// =============================================================================

// CreateTemplate authors a new chore template and materializes its
// assignments.
func (s *Service) CreateTemplate(ctx context.Context, actor Actor, spec TemplateSpec) (*ChoreTemplate, []Assignment, error) {
	if !actor.IsParent() {
		return nil, nil, ErrNotAuthorized
	}

	now := s.Now().UTC()
	t := ChoreTemplate{
		ID:           TemplateID(NewID()),
		ParentID:     actor.ID,
		Title:        spec.Title,
		Description:  spec.Description,
		Reward:       spec.Reward,
		IsRecurring:  spec.IsRecurring,
		CooldownDays: spec.CooldownDays,
		Mode:         spec.Mode,
		AssigneeIDs:  spec.AssigneeIDs,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := t.Validate(); err != nil {
		return nil, nil, err
	}

	// Every named assignee must be one of the parent's own children.
	for _, childID := range t.AssigneeIDs {
		if _, err := s.ownChild(ctx, actor, childID); err != nil {
			return nil, nil, err
		}
	}

	if err := s.Store.PutTemplate(ctx, t); err != nil {
		return nil, nil, err
	}

	assignments := Materialize(t, now)
	for _, a := range assignments {
		if err := s.Store.PutAssignment(ctx, a); err != nil {
			return nil, nil, err
		}
	}
	return &t, assignments, nil
}

// ownedTemplate loads a template and verifies the actor's parent owns it.
func (s *Service) ownedTemplate(ctx context.Context, actor Actor, id TemplateID) (*ChoreTemplate, error) {
	t, err := s.Store.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTemplateNotFound
	}
	if t.ParentID != actor.FamilyID() {
		return nil, ErrNotAuthorized
	}
	return t, nil
}

// UpdateTemplate edits a template. Owning parent only.
func (s *Service) UpdateTemplate(ctx context.Context, actor Actor, id TemplateID, update TemplateUpdate) (*ChoreTemplate, error) {
	if !actor.IsParent() {
		return nil, ErrNotAuthorized
	}
	t, err := s.ownedTemplate(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	updated := t.applied(update)
	updated.UpdatedAt = s.Now().UTC()
	if err := updated.Validate(); err != nil {
		return nil, err
	}
	if err := s.Store.PutTemplate(ctx, updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// SetTemplateDisabled toggles the disabled overlay. Disabled templates keep
// their assignments and history but cannot be completed.
func (s *Service) SetTemplateDisabled(ctx context.Context, actor Actor, id TemplateID, disabled bool) (*ChoreTemplate, error) {
	if !actor.IsParent() {
		return nil, ErrNotAuthorized
	}
	t, err := s.ownedTemplate(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	t.IsDisabled = disabled
	t.UpdatedAt = s.Now().UTC()
	if err := s.Store.PutTemplate(ctx, *t); err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTemplate destroys a template with no assignment history. Templates
// with history cannot be hard-deleted; disable them instead.
func (s *Service) DeleteTemplate(ctx context.Context, actor Actor, id TemplateID) error {
	if !actor.IsParent() {
		return ErrNotAuthorized
	}
	if _, err := s.ownedTemplate(ctx, actor, id); err != nil {
		return err
	}
	return s.Store.DeleteTemplate(ctx, id)
}

// GetTemplate returns a template visible to the actor's family.
func (s *Service) GetTemplate(ctx context.Context, actor Actor, id TemplateID) (*ChoreTemplate, error) {
	return s.ownedTemplate(ctx, actor, id)
}

// ListTemplates returns the family's templates.
func (s *Service) ListTemplates(ctx context.Context, actor Actor) ([]ChoreTemplate, error) {
	return s.Store.ListTemplates(ctx, actor.FamilyID())
}

// =============================================================================
// STATE TRANSITIONS
// =============================================================================

// Complete moves an assignment from available to pending approval.
// For an unclaimed pool chore, the calling child is adopted as assignee
// atomically with the transition.
func (s *Service) Complete(ctx context.Context, actor Actor, id AssignmentID) (*Assignment, error) {
	a, err := s.Store.GetAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrAssignmentNotFound
	}

	t, err := s.Store.GetTemplate(ctx, a.TemplateID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTemplateNotFound
	}
	if t.ParentID != actor.FamilyID() {
		return nil, ErrNotAuthorized
	}
	if !actor.IsChild() {
		return nil, ErrNotAssignee
	}
	if t.IsDisabled {
		return nil, ErrTemplateDisabled
	}
	// A pool chore another child has taken stays theirs for this instance.
	if t.Mode == ModePool && a.AssigneeID != nil && *a.AssigneeID != actor.ID {
		return nil, ErrAlreadyClaimed
	}
	if a.State != StateAvailable {
		return nil, ErrAlreadyCompleted
	}

	claiming := a.IsUnclaimed()
	if !claiming && *a.AssigneeID != actor.ID {
		return nil, ErrNotAssignee
	}

	now := s.Now().UTC()
	if a.NextAvailableAt != nil && now.Before(*a.NextAvailableAt) {
		return nil, &NotYetAvailableError{AvailableAt: *a.NextAvailableAt}
	}

	updated := *a
	child := actor.ID
	updated.AssigneeID = &child
	updated.State = StatePendingApproval
	updated.CompletedAt = &now
	updated.RejectionReason = nil
	updated.UpdatedAt = now

	guard := Guard{State: StateAvailable, RequireUnclaimed: claiming}
	if err := s.Store.SwapAssignment(ctx, updated, guard); err != nil {
		if errors.Is(err, ErrStaleState) {
			if claiming {
				return nil, ErrAlreadyClaimed
			}
			return nil, ErrAlreadyCompleted
		}
		return nil, err
	}
	return &updated, nil
}

// Approve moves a pending assignment to approved and credits the resolved
// reward. This is the sole point where ledger-visible earnings are created.
// For recurring templates, a fresh assignment is materialized for the same
// assignee, gated by the cooldown.
func (s *Service) Approve(ctx context.Context, actor Actor, id AssignmentID, proposed *decimal.Decimal) (*Assignment, error) {
	a, t, err := s.pendingForParent(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	reward, err := t.Reward.Resolve(proposed)
	if err != nil {
		return nil, err
	}

	now := s.Now().UTC()
	updated := *a
	updated.State = StateApproved
	updated.ApprovedAt = &now
	approver := actor.ID
	updated.ApprovedBy = &approver
	updated.ApprovalReward = &reward
	updated.UpdatedAt = now

	if err := s.Store.SwapAssignment(ctx, updated, Guard{State: StatePendingApproval}); err != nil {
		if errors.Is(err, ErrStaleState) {
			return nil, ErrNotPendingApproval
		}
		return nil, err
	}

	// Recurrence regeneration happens only for the race winner, after the
	// swap has committed.
	if t.IsRecurring && !t.IsDisabled {
		next := materializeNext(*t, updated, now)
		if err := s.Store.PutAssignment(ctx, next); err != nil {
			return nil, err
		}
	}
	return &updated, nil
}

// Reject returns a pending assignment to available with the reason
// retained for display. The child may re-complete the same assignment;
// no cooldown penalty applies.
func (s *Service) Reject(ctx context.Context, actor Actor, id AssignmentID, reason string) (*Assignment, error) {
	if reason == "" {
		return nil, ErrEmptyReason
	}

	a, _, err := s.pendingForParent(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	now := s.Now().UTC()
	updated := *a
	updated.State = StateAvailable
	updated.CompletedAt = nil
	updated.RejectionReason = &reason
	updated.UpdatedAt = now

	if err := s.Store.SwapAssignment(ctx, updated, Guard{State: StatePendingApproval}); err != nil {
		if errors.Is(err, ErrStaleState) {
			return nil, ErrNotPendingApproval
		}
		return nil, err
	}
	return &updated, nil
}

// pendingForParent loads an assignment and template, verifying the actor
// is the owning parent and the assignment is pending approval.
func (s *Service) pendingForParent(ctx context.Context, actor Actor, id AssignmentID) (*Assignment, *ChoreTemplate, error) {
	a, err := s.Store.GetAssignment(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if a == nil {
		return nil, nil, ErrAssignmentNotFound
	}

	t, err := s.Store.GetTemplate(ctx, a.TemplateID)
	if err != nil {
		return nil, nil, err
	}
	if t == nil {
		return nil, nil, ErrTemplateNotFound
	}
	if !actor.IsParent() || t.ParentID != actor.ID {
		return nil, nil, ErrNotAuthorized
	}
	if a.State != StatePendingApproval {
		return nil, nil, ErrNotPendingApproval
	}
	return a, t, nil
}

// =============================================================================
// LEDGER OPERATIONS
// =============================================================================

// CreateAdjustment appends a manual bonus or deduction for a child.
func (s *Service) CreateAdjustment(ctx context.Context, actor Actor, childID MemberID, amount decimal.Decimal, reason string) (*Adjustment, error) {
	if _, err := s.ownChild(ctx, actor, childID); err != nil {
		return nil, err
	}
	if err := validateAdjustment(amount, reason); err != nil {
		return nil, err
	}

	adj := Adjustment{
		ID:        AdjustmentID(NewID()),
		ChildID:   childID,
		ParentID:  actor.ID,
		Amount:    amount,
		Reason:    reason,
		CreatedAt: s.Now().UTC(),
	}
	if err := s.Store.AppendAdjustment(ctx, adj); err != nil {
		return nil, err
	}
	return &adj, nil
}

// RecordPayout appends a payout, reducing the child's balance due.
func (s *Service) RecordPayout(ctx context.Context, actor Actor, childID MemberID, amount decimal.Decimal, note string) (*Payout, error) {
	if _, err := s.ownChild(ctx, actor, childID); err != nil {
		return nil, err
	}
	if err := validatePayout(amount); err != nil {
		return nil, err
	}

	p := Payout{
		ID:        PayoutID(NewID()),
		ChildID:   childID,
		ParentID:  actor.ID,
		Amount:    amount,
		Note:      note,
		CreatedAt: s.Now().UTC(),
	}
	if err := s.Store.AppendPayout(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListAdjustments returns a child's adjustment history.
func (s *Service) ListAdjustments(ctx context.Context, actor Actor, childID MemberID) ([]Adjustment, error) {
	if err := s.authorizeChildRead(ctx, actor, childID); err != nil {
		return nil, err
	}
	return s.Store.ListAdjustments(ctx, childID)
}

// ListPayouts returns a child's payout history.
func (s *Service) ListPayouts(ctx context.Context, actor Actor, childID MemberID) ([]Payout, error) {
	if err := s.authorizeChildRead(ctx, actor, childID); err != nil {
		return nil, err
	}
	return s.Store.ListPayouts(ctx, childID)
}

// =============================================================================
// BALANCE READS
// =============================================================================

// ComputeBalance returns the derived balance snapshot for one child.
// A child may read their own; a parent may read their children's.
func (s *Service) ComputeBalance(ctx context.Context, actor Actor, childID MemberID) (BalanceSnapshot, error) {
	if err := s.authorizeChildRead(ctx, actor, childID); err != nil {
		return BalanceSnapshot{}, err
	}
	return s.Balance.Compute(ctx, childID)
}

// FamilyBalances returns a snapshot per child for the acting parent.
// The rollup is plain per-child aggregation.
func (s *Service) FamilyBalances(ctx context.Context, actor Actor) ([]BalanceSnapshot, error) {
	if !actor.IsParent() {
		return nil, ErrNotAuthorized
	}
	family, err := s.Store.ListFamily(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	var snaps []BalanceSnapshot
	for _, m := range family {
		if m.Role != RoleChild {
			continue
		}
		snap, err := s.Balance.Compute(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

func (s *Service) authorizeChildRead(ctx context.Context, actor Actor, childID MemberID) error {
	if actor.IsChild() {
		if actor.ID != childID {
			return ErrNotAuthorized
		}
		return nil
	}
	_, err := s.ownChild(ctx, actor, childID)
	return err
}

// =============================================================================
// LIST PROJECTION
// =============================================================================

// ListAssignments returns the assignments visible to the actor, filtered
// by state. Children see their own assignments plus the family's unclaimed
// pool slots; parents see the whole family, optionally narrowed to one
// child.
func (s *Service) ListAssignments(ctx context.Context, actor Actor, filter ListFilter, forChild *MemberID) ([]Assignment, error) {
	all, err := s.Store.ListAssignmentsByFamily(ctx, actor.FamilyID())
	if err != nil {
		return nil, err
	}

	var out []Assignment
	for _, a := range all {
		if !filter.Matches(a) {
			continue
		}
		switch {
		case actor.IsChild():
			mine := a.AssigneeID != nil && *a.AssigneeID == actor.ID
			claimable := a.IsUnclaimed() && a.State == StateAvailable
			if !mine && !claimable {
				continue
			}
		case forChild != nil:
			if a.AssigneeID == nil || *a.AssigneeID != *forChild {
				continue
			}
		}
		out = append(out, a)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
