// Package store provides chore.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/allowance-engine/chore"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	members     map[chore.MemberID]chore.Member
	templates   map[chore.TemplateID]chore.ChoreTemplate
	assignments map[chore.AssignmentID]chore.Assignment
	adjustments map[chore.MemberID][]chore.Adjustment
	payouts     map[chore.MemberID][]chore.Payout
}

func NewMemory() *Memory {
	return &Memory{
		members:     make(map[chore.MemberID]chore.Member),
		templates:   make(map[chore.TemplateID]chore.ChoreTemplate),
		assignments: make(map[chore.AssignmentID]chore.Assignment),
		adjustments: make(map[chore.MemberID][]chore.Adjustment),
		payouts:     make(map[chore.MemberID][]chore.Payout),
	}
}

var _ chore.Store = (*Memory)(nil)

// =============================================================================
// MEMBERS
// =============================================================================

func (m *Memory) PutMember(_ context.Context, member chore.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[member.ID] = member
	return nil
}

func (m *Memory) GetMember(_ context.Context, id chore.MemberID) (*chore.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	member, ok := m.members[id]
	if !ok {
		return nil, nil
	}
	return &member, nil
}

func (m *Memory) ListFamily(_ context.Context, parentID chore.MemberID) ([]chore.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []chore.Member
	for _, member := range m.members {
		if member.ID == parentID || member.ParentID == parentID {
			out = append(out, member)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// =============================================================================
// TEMPLATES
// =============================================================================

func (m *Memory) PutTemplate(_ context.Context, t chore.ChoreTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[t.ID] = t
	return nil
}

func (m *Memory) GetTemplate(_ context.Context, id chore.TemplateID) (*chore.ChoreTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *Memory) ListTemplates(_ context.Context, parentID chore.MemberID) ([]chore.ChoreTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []chore.ChoreTemplate
	for _, t := range m.templates {
		if t.ParentID == parentID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) DeleteTemplate(_ context.Context, id chore.TemplateID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.templates[id]; !ok {
		return chore.ErrTemplateNotFound
	}
	for _, a := range m.assignments {
		if a.TemplateID == id {
			return chore.ErrTemplateHasHistory
		}
	}
	delete(m.templates, id)
	return nil
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

func (m *Memory) PutAssignment(_ context.Context, a chore.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments[a.ID] = a
	return nil
}

func (m *Memory) GetAssignment(_ context.Context, id chore.AssignmentID) (*chore.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assignments[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *Memory) ListAssignmentsByTemplate(_ context.Context, id chore.TemplateID) ([]chore.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []chore.Assignment
	for _, a := range m.assignments {
		if a.TemplateID == id {
			out = append(out, a)
		}
	}
	sortAssignments(out)
	return out, nil
}

func (m *Memory) ListAssignmentsByAssignee(_ context.Context, child chore.MemberID) ([]chore.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []chore.Assignment
	for _, a := range m.assignments {
		if a.AssigneeID != nil && *a.AssigneeID == child {
			out = append(out, a)
		}
	}
	sortAssignments(out)
	return out, nil
}

func (m *Memory) ListAssignmentsByFamily(_ context.Context, parentID chore.MemberID) ([]chore.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []chore.Assignment
	for _, a := range m.assignments {
		t, ok := m.templates[a.TemplateID]
		if ok && t.ParentID == parentID {
			out = append(out, a)
		}
	}
	sortAssignments(out)
	return out, nil
}

// SwapAssignment applies the update only if the stored row still satisfies
// the guard. The check and the write share one critical section, which is
// what makes concurrent approve/reject and pool-claim races single-winner.
func (m *Memory) SwapAssignment(_ context.Context, updated chore.Assignment, guard chore.Guard) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.assignments[updated.ID]
	if !ok {
		return chore.ErrAssignmentNotFound
	}
	if current.State != guard.State {
		return chore.ErrStaleState
	}
	if guard.RequireUnclaimed && current.AssigneeID != nil {
		return chore.ErrStaleState
	}
	m.assignments[updated.ID] = updated
	return nil
}

// =============================================================================
// ADJUSTMENTS AND PAYOUTS (append-only)
// =============================================================================

func (m *Memory) AppendAdjustment(_ context.Context, a chore.Adjustment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adjustments[a.ChildID] = append(m.adjustments[a.ChildID], a)
	return nil
}

func (m *Memory) ListAdjustments(_ context.Context, child chore.MemberID) ([]chore.Adjustment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]chore.Adjustment, len(m.adjustments[child]))
	copy(out, m.adjustments[child])
	return out, nil
}

func (m *Memory) AppendPayout(_ context.Context, p chore.Payout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payouts[p.ChildID] = append(m.payouts[p.ChildID], p)
	return nil
}

func (m *Memory) ListPayouts(_ context.Context, child chore.MemberID) ([]chore.Payout, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]chore.Payout, len(m.payouts[child]))
	copy(out, m.payouts[child])
	return out, nil
}

func sortAssignments(as []chore.Assignment) {
	sort.Slice(as, func(i, j int) bool {
		if as[i].CreatedAt.Equal(as[j].CreatedAt) {
			return as[i].ID < as[j].ID
		}
		return as[i].CreatedAt.Before(as[j].CreatedAt)
	})
}
