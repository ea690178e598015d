package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/warp/allowance-engine/chore"
	"github.com/warp/allowance-engine/chore/store"
)

func seedAssignment(t *testing.T, m *store.Memory, state chore.AssignmentState, assignee *chore.MemberID) chore.Assignment {
	t.Helper()
	a := chore.Assignment{
		ID:         chore.AssignmentID(chore.NewID()),
		TemplateID: chore.TemplateID("tmpl-1"),
		AssigneeID: assignee,
		State:      state,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	if err := m.PutAssignment(context.Background(), a); err != nil {
		t.Fatalf("put assignment: %v", err)
	}
	return a
}

func TestSwapAssignment_GuardMatches(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	child := chore.MemberID("alice")
	a := seedAssignment(t, m, chore.StateAvailable, &child)

	updated := a
	updated.State = chore.StatePendingApproval
	err := m.SwapAssignment(ctx, updated, chore.Guard{State: chore.StateAvailable})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := m.GetAssignment(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.State != chore.StatePendingApproval {
		t.Errorf("expected swap to land, got %s", got.State)
	}
}

func TestSwapAssignment_StaleState(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	child := chore.MemberID("alice")
	a := seedAssignment(t, m, chore.StateApproved, &child)

	updated := a
	updated.State = chore.StatePendingApproval
	err := m.SwapAssignment(ctx, updated, chore.Guard{State: chore.StateAvailable})
	if !errors.Is(err, chore.ErrStaleState) {
		t.Errorf("expected ErrStaleState, got %v", err)
	}

	// The stored row is untouched by the failed swap.
	got, _ := m.GetAssignment(ctx, a.ID)
	if got.State != chore.StateApproved {
		t.Errorf("failed swap must not write, got %s", got.State)
	}
}

func TestSwapAssignment_RequireUnclaimed(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	alice := chore.MemberID("alice")
	a := seedAssignment(t, m, chore.StateAvailable, &alice)

	// The slot is already claimed, so a claiming swap loses.
	bob := chore.MemberID("bob")
	updated := a
	updated.AssigneeID = &bob
	updated.State = chore.StatePendingApproval
	err := m.SwapAssignment(ctx, updated, chore.Guard{State: chore.StateAvailable, RequireUnclaimed: true})
	if !errors.Is(err, chore.ErrStaleState) {
		t.Errorf("expected ErrStaleState on claimed slot, got %v", err)
	}

	// An unclaimed slot lets the claim through.
	open := seedAssignment(t, m, chore.StateAvailable, nil)
	claimed := open
	claimed.AssigneeID = &bob
	claimed.State = chore.StatePendingApproval
	if err := m.SwapAssignment(ctx, claimed, chore.Guard{State: chore.StateAvailable, RequireUnclaimed: true}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSwapAssignment_NotFound(t *testing.T) {
	m := store.NewMemory()
	phantom := chore.Assignment{ID: chore.AssignmentID("missing")}
	err := m.SwapAssignment(context.Background(), phantom, chore.Guard{State: chore.StateAvailable})
	if !errors.Is(err, chore.ErrAssignmentNotFound) {
		t.Errorf("expected ErrAssignmentNotFound, got %v", err)
	}
}

func TestDeleteTemplate_History(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	tmpl := chore.ChoreTemplate{ID: chore.TemplateID("tmpl-1"), ParentID: chore.MemberID("pat")}
	if err := m.PutTemplate(ctx, tmpl); err != nil {
		t.Fatalf("put template: %v", err)
	}
	seedAssignment(t, m, chore.StateAvailable, nil)

	if err := m.DeleteTemplate(ctx, tmpl.ID); !errors.Is(err, chore.ErrTemplateHasHistory) {
		t.Errorf("expected ErrTemplateHasHistory, got %v", err)
	}

	fresh := chore.ChoreTemplate{ID: chore.TemplateID("tmpl-2"), ParentID: chore.MemberID("pat")}
	if err := m.PutTemplate(ctx, fresh); err != nil {
		t.Fatalf("put template: %v", err)
	}
	if err := m.DeleteTemplate(ctx, fresh.ID); err != nil {
		t.Errorf("expected delete of history-free template, got %v", err)
	}
	if err := m.DeleteTemplate(ctx, fresh.ID); !errors.Is(err, chore.ErrTemplateNotFound) {
		t.Errorf("expected ErrTemplateNotFound after delete, got %v", err)
	}
}
