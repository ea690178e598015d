package chore_test

import (
	"errors"
	"testing"
	"time"

	"github.com/warp/allowance-engine/chore"
)

func TestChoreTemplate_Validate(t *testing.T) {
	child := chore.MemberID("child-1")
	valid := chore.ChoreTemplate{
		Title:       "Dishes",
		Reward:      chore.FixedReward(dec("5.00")),
		Mode:        chore.ModeSingle,
		AssigneeIDs: []chore.MemberID{child},
	}

	tests := []struct {
		name    string
		mutate  func(*chore.ChoreTemplate)
		wantErr error
	}{
		{"valid", func(*chore.ChoreTemplate) {}, nil},
		{"whitespace title", func(c *chore.ChoreTemplate) { c.Title = "   " }, chore.ErrEmptyTitle},
		{"negative reward", func(c *chore.ChoreTemplate) { c.Reward = chore.FixedReward(dec("-1")) }, chore.ErrInvalidRewardAmount},
		{"recurring negative cooldown", func(c *chore.ChoreTemplate) {
			c.IsRecurring = true
			c.CooldownDays = -3
		}, chore.ErrInvalidCooldown},
		{"unknown mode", func(c *chore.ChoreTemplate) { c.Mode = "committee" }, chore.ErrNoAssignees},
		{"single without assignee", func(c *chore.ChoreTemplate) { c.AssigneeIDs = nil }, chore.ErrNoAssignees},
		{"pool without assignees", func(c *chore.ChoreTemplate) {
			c.Mode = chore.ModePool
			c.AssigneeIDs = nil
		}, nil},
		// Cooldown on a non-recurring template is inert config, not an error.
		{"non-recurring negative cooldown", func(c *chore.ChoreTemplate) { c.CooldownDays = -3 }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			template := valid
			tt.mutate(&template)
			err := template.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestMaterialize(t *testing.T) {
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	alice := chore.MemberID("alice")
	bob := chore.MemberID("bob")

	base := chore.ChoreTemplate{
		ID:     chore.TemplateID("tmpl-1"),
		Title:  "Dishes",
		Reward: chore.FixedReward(dec("5.00")),
	}

	t.Run("pool produces one unclaimed slot", func(t *testing.T) {
		template := base
		template.Mode = chore.ModePool
		got := chore.Materialize(template, now)
		if len(got) != 1 {
			t.Fatalf("expected 1 assignment, got %d", len(got))
		}
		if !got[0].IsUnclaimed() {
			t.Error("pool slot must start unclaimed")
		}
		if got[0].State != chore.StateAvailable {
			t.Errorf("expected available, got %s", got[0].State)
		}
	})

	t.Run("single takes only the first target", func(t *testing.T) {
		template := base
		template.Mode = chore.ModeSingle
		template.AssigneeIDs = []chore.MemberID{alice, bob}
		got := chore.Materialize(template, now)
		if len(got) != 1 {
			t.Fatalf("expected 1 assignment, got %d", len(got))
		}
		if got[0].AssigneeID == nil || *got[0].AssigneeID != alice {
			t.Errorf("expected alice, got %v", got[0].AssigneeID)
		}
	})

	t.Run("multi independent produces one per child", func(t *testing.T) {
		template := base
		template.Mode = chore.ModeMultiIndependent
		template.AssigneeIDs = []chore.MemberID{alice, bob}
		got := chore.Materialize(template, now)
		if len(got) != 2 {
			t.Fatalf("expected 2 assignments, got %d", len(got))
		}
		if got[0].ID == got[1].ID {
			t.Error("assignments must be distinct instances")
		}
	})

	t.Run("disabled produces nothing", func(t *testing.T) {
		template := base
		template.Mode = chore.ModePool
		template.IsDisabled = true
		if got := chore.Materialize(template, now); got != nil {
			t.Errorf("disabled template must produce no assignments, got %d", len(got))
		}
	})
}

func TestAssignment_AvailableTo(t *testing.T) {
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	alice := chore.MemberID("alice")
	bob := chore.MemberID("bob")
	later := now.Add(24 * time.Hour)

	tests := []struct {
		name string
		a    chore.Assignment
		want bool
	}{
		{"own available", chore.Assignment{State: chore.StateAvailable, AssigneeID: &alice}, true},
		{"someone else's", chore.Assignment{State: chore.StateAvailable, AssigneeID: &bob}, false},
		{"unclaimed pool slot", chore.Assignment{State: chore.StateAvailable}, true},
		{"pending", chore.Assignment{State: chore.StatePendingApproval, AssigneeID: &alice}, false},
		{"cooling down", chore.Assignment{State: chore.StateAvailable, AssigneeID: &alice, NextAvailableAt: &later}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.AvailableTo(alice, now); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestUpdateTemplate_EditableFieldsOnly(t *testing.T) {
	f := newFixture(t)
	a := f.fixedChore("5.00")

	newTitle := "Dishes and counters"
	reward := chore.RangeReward(dec("4.00"), dec("8.00"))
	updated, err := f.svc.UpdateTemplate(f.ctx, f.parent, a.TemplateID, chore.TemplateUpdate{
		Title:  &newTitle,
		Reward: &reward,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != newTitle {
		t.Errorf("expected title updated, got %q", updated.Title)
	}
	if updated.Reward.Kind != chore.PolicyRange {
		t.Errorf("expected range policy, got %s", updated.Reward.Kind)
	}
	// Mode and assignees survive untouched.
	if updated.Mode != chore.ModeSingle || len(updated.AssigneeIDs) != 1 {
		t.Errorf("mode and assignees must be immutable, got %s / %v",
			updated.Mode, updated.AssigneeIDs)
	}

	// An update that breaks validation is refused whole.
	empty := " "
	if _, err := f.svc.UpdateTemplate(f.ctx, f.parent, a.TemplateID, chore.TemplateUpdate{Title: &empty}); !errors.Is(err, chore.ErrEmptyTitle) {
		t.Errorf("expected ErrEmptyTitle, got %v", err)
	}
}
