/*
template.go - Parent-authored chore definitions

PURPOSE:
  A ChoreTemplate is what a parent authors: title, reward policy,
  recurrence, and how the chore is handed to children. Templates never
  carry completion state themselves - they are materialized into
  Assignment records (assignment.go) that do.

ASSIGNMENT MODES:
  single:           one assignment for one designated child
  assigned:         synonym lifecycle to single - a designated child
  pool:             one unclaimed slot; first child to complete claims it
  multiIndependent: one independent assignment per designated child

  Mode only affects who may legally complete and whether claiming is part
  of that call. The rest of the state machine is mode-independent.

LIFECYCLE:
  Created by a parent. Mutated (edited, enabled/disabled) only by the
  owning parent. Never hard-deleted while assignments reference it:
  soft-disable is the deletion path for templates with history; templates
  with no history may be destroyed.

SEE ALSO:
  - assignment.go: Materialization of templates into assignments
  - schedule.go: Cooldown handling for recurring templates
*/
package chore

import (
	"strings"
	"time"
)

// =============================================================================
// ASSIGNMENT MODE
// =============================================================================

type AssignmentMode string

const (
	ModeSingle           AssignmentMode = "single"
	ModeAssigned         AssignmentMode = "assigned"
	ModePool             AssignmentMode = "pool"
	ModeMultiIndependent AssignmentMode = "multi_independent"
)

func (m AssignmentMode) valid() bool {
	switch m {
	case ModeSingle, ModeAssigned, ModePool, ModeMultiIndependent:
		return true
	}
	return false
}

// =============================================================================
// CHORE TEMPLATE
// =============================================================================

type ChoreTemplate struct {
	ID          TemplateID
	ParentID    MemberID // owning parent; anchors the family unit
	Title       string
	Description string
	Reward      RewardPolicy

	IsRecurring  bool
	CooldownDays int // meaningful only when recurring

	Mode        AssignmentMode
	AssigneeIDs []MemberID // target children; empty for pool mode

	IsDisabled bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate checks the template configuration. Called on create and update.
func (t ChoreTemplate) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if err := t.Reward.Validate(); err != nil {
		return err
	}
	if t.IsRecurring && t.CooldownDays < 0 {
		return ErrInvalidCooldown
	}
	if !t.Mode.valid() {
		return ErrNoAssignees
	}
	if t.Mode != ModePool && len(t.AssigneeIDs) == 0 {
		return ErrNoAssignees
	}
	return nil
}

// TemplateSpec is the caller-supplied shape for creating a template.
type TemplateSpec struct {
	Title        string
	Description  string
	Reward       RewardPolicy
	IsRecurring  bool
	CooldownDays int
	Mode         AssignmentMode
	AssigneeIDs  []MemberID
}

// TemplateUpdate carries the editable fields of a template. Nil fields are
// left unchanged. Mode and assignees are fixed after creation; changing who
// does a chore means disabling the template and authoring a new one.
type TemplateUpdate struct {
	Title        *string
	Description  *string
	Reward       *RewardPolicy
	IsRecurring  *bool
	CooldownDays *int
}

func (t ChoreTemplate) applied(u TemplateUpdate) ChoreTemplate {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Reward != nil {
		t.Reward = *u.Reward
	}
	if u.IsRecurring != nil {
		t.IsRecurring = *u.IsRecurring
	}
	if u.CooldownDays != nil {
		t.CooldownDays = *u.CooldownDays
	}
	return t
}
