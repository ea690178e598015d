/*
Package sqlite provides a SQLite-backed implementation of chore.Store.

PURPOSE:
  Implements persistence for the chore engine using SQLite. In production,
  the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

CHECK-AND-SET ENFORCEMENT:
  Assignment transitions use conditional UPDATEs:

    UPDATE assignments SET ... WHERE id = ? AND state = ?

  (plus AND assignee_id IS NULL for pool claims). RowsAffected == 0 means
  the guard failed and ErrStaleState is returned. This is what makes
  concurrent approve/reject and claim races single-winner even across
  processes.

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statements exist for the adjustments and payouts
  tables. Corrections are entered as counter-adjustments.

KEY TABLES:
  members:      family members (parents and children)
  templates:    chore template definitions
  assignments:  per-child tracking records with state
  adjustments:  immutable manual bonus/deduction rows
  payouts:      immutable payout rows

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block, single writer at a time.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - chore/store.go: Interface definitions and the SwapAssignment contract
  - chore/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/allowance-engine/chore"
)

// Store implements chore.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

var _ chore.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Family members (parents and children)
	CREATE TABLE IF NOT EXISTS members (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		parent_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_members_parent
		ON members(parent_id);

	-- Chore templates
	CREATE TABLE IF NOT EXISTS templates (
		id TEXT PRIMARY KEY,
		parent_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		reward_kind TEXT NOT NULL,
		reward_amount TEXT,
		reward_min TEXT,
		reward_max TEXT,
		is_recurring BOOLEAN NOT NULL DEFAULT FALSE,
		cooldown_days INTEGER NOT NULL DEFAULT 0,
		mode TEXT NOT NULL,
		assignee_ids_json TEXT,
		is_disabled BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_templates_parent
		ON templates(parent_id);

	-- Assignments (state machine rows)
	CREATE TABLE IF NOT EXISTS assignments (
		id TEXT PRIMARY KEY,
		template_id TEXT NOT NULL,
		assignee_id TEXT,
		state TEXT NOT NULL,
		completed_at TEXT,
		approved_at TEXT,
		approved_by TEXT,
		approval_reward TEXT,
		rejection_reason TEXT,
		next_available_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_template
		ON assignments(template_id);
	CREATE INDEX IF NOT EXISTS idx_assignments_assignee
		ON assignments(assignee_id);
	CREATE INDEX IF NOT EXISTS idx_assignments_state
		ON assignments(state);

	-- Adjustments (append-only ledger)
	CREATE TABLE IF NOT EXISTS adjustments (
		id TEXT PRIMARY KEY,
		child_id TEXT NOT NULL,
		parent_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		reason TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_adjustments_child
		ON adjustments(child_id, created_at);

	-- Payouts (append-only ledger)
	CREATE TABLE IF NOT EXISTS payouts (
		id TEXT PRIMARY KEY,
		child_id TEXT NOT NULL,
		parent_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		note TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payouts_child
		ON payouts(child_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// MEMBERS
// =============================================================================

func (s *Store) PutMember(ctx context.Context, m chore.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO members (id, name, role, parent_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		m.ID, m.Name, m.Role, nullString(string(m.ParentID)),
		m.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *Store) GetMember(ctx context.Context, id chore.MemberID) (*chore.Member, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, role, parent_id, created_at
		FROM members WHERE id = ?`, id)
	return scanMember(row)
}

func (s *Store) ListFamily(ctx context.Context, parentID chore.MemberID) ([]chore.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, role, parent_id, created_at
		FROM members
		WHERE id = ? OR parent_id = ?
		ORDER BY created_at`, parentID, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []chore.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanMember(row scannable) (*chore.Member, error) {
	var (
		m         chore.Member
		parentID  sql.NullString
		createdAt string
	)
	err := row.Scan(&m.ID, &m.Name, &m.Role, &parentID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.ParentID = chore.MemberID(parentID.String)
	m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &m, nil
}

// =============================================================================
// TEMPLATES
// =============================================================================

func (s *Store) PutTemplate(ctx context.Context, t chore.ChoreTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	assigneesJSON, err := json.Marshal(t.AssigneeIDs)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO templates
		(id, parent_id, title, description, reward_kind, reward_amount,
		 reward_min, reward_max, is_recurring, cooldown_days, mode,
		 assignee_ids_json, is_disabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			reward_kind = excluded.reward_kind,
			reward_amount = excluded.reward_amount,
			reward_min = excluded.reward_min,
			reward_max = excluded.reward_max,
			is_recurring = excluded.is_recurring,
			cooldown_days = excluded.cooldown_days,
			is_disabled = excluded.is_disabled,
			updated_at = excluded.updated_at`,
		t.ID, t.ParentID, t.Title, t.Description,
		t.Reward.Kind, t.Reward.Amount.String(), t.Reward.Min.String(), t.Reward.Max.String(),
		t.IsRecurring, t.CooldownDays, t.Mode,
		string(assigneesJSON), t.IsDisabled,
		t.CreatedAt.UTC().Format(time.RFC3339Nano),
		t.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *Store) GetTemplate(ctx context.Context, id chore.TemplateID) (*chore.ChoreTemplate, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, parent_id, title, description, reward_kind, reward_amount,
		       reward_min, reward_max, is_recurring, cooldown_days, mode,
		       assignee_ids_json, is_disabled, created_at, updated_at
		FROM templates WHERE id = ?`, id)
	return scanTemplate(row)
}

func (s *Store) ListTemplates(ctx context.Context, parentID chore.MemberID) ([]chore.ChoreTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, parent_id, title, description, reward_kind, reward_amount,
		       reward_min, reward_max, is_recurring, cooldown_days, mode,
		       assignee_ids_json, is_disabled, created_at, updated_at
		FROM templates WHERE parent_id = ? ORDER BY created_at`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []chore.ChoreTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *Store) DeleteTemplate(ctx context.Context, id chore.TemplateID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var refs int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM assignments WHERE template_id = ?`, id).Scan(&refs)
	if err != nil {
		return err
	}
	if refs > 0 {
		return chore.ErrTemplateHasHistory
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return chore.ErrTemplateNotFound
	}
	return nil
}

func scanTemplate(row scannable) (*chore.ChoreTemplate, error) {
	var (
		t                                  chore.ChoreTemplate
		description, assigneesJSON         sql.NullString
		rewardAmount, rewardMin, rewardMax sql.NullString
		createdAt, updatedAt               string
	)
	err := row.Scan(&t.ID, &t.ParentID, &t.Title, &description,
		&t.Reward.Kind, &rewardAmount, &rewardMin, &rewardMax,
		&t.IsRecurring, &t.CooldownDays, &t.Mode,
		&assigneesJSON, &t.IsDisabled, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	t.Description = description.String
	t.Reward.Amount = parseDecimal(rewardAmount)
	t.Reward.Min = parseDecimal(rewardMin)
	t.Reward.Max = parseDecimal(rewardMax)
	if assigneesJSON.Valid && assigneesJSON.String != "" {
		if err := json.Unmarshal([]byte(assigneesJSON.String), &t.AssigneeIDs); err != nil {
			return nil, err
		}
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	t.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &t, nil
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

const assignmentColumns = `id, template_id, assignee_id, state, completed_at,
	approved_at, approved_by, approval_reward, rejection_reason,
	next_available_at, created_at, updated_at`

func (s *Store) PutAssignment(ctx context.Context, a chore.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assignments
		(id, template_id, assignee_id, state, completed_at, approved_at,
		 approved_by, approval_reward, rejection_reason, next_available_at,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.TemplateID, memberIDOrNil(a.AssigneeID), a.State,
		timeOrNil(a.CompletedAt), timeOrNil(a.ApprovedAt),
		memberIDOrNil(a.ApprovedBy), decimalOrNil(a.ApprovalReward),
		stringOrNil(a.RejectionReason), timeOrNil(a.NextAvailableAt),
		a.CreatedAt.UTC().Format(time.RFC3339Nano),
		a.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *Store) GetAssignment(ctx context.Context, id chore.AssignmentID) (*chore.Assignment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE id = ?`, id)
	return scanAssignment(row)
}

func (s *Store) ListAssignmentsByTemplate(ctx context.Context, id chore.TemplateID) ([]chore.Assignment, error) {
	return s.queryAssignments(ctx,
		`SELECT `+assignmentColumns+` FROM assignments
		 WHERE template_id = ? ORDER BY created_at, id`, id)
}

func (s *Store) ListAssignmentsByAssignee(ctx context.Context, child chore.MemberID) ([]chore.Assignment, error) {
	return s.queryAssignments(ctx,
		`SELECT `+assignmentColumns+` FROM assignments
		 WHERE assignee_id = ? ORDER BY created_at, id`, child)
}

func (s *Store) ListAssignmentsByFamily(ctx context.Context, parentID chore.MemberID) ([]chore.Assignment, error) {
	return s.queryAssignments(ctx,
		`SELECT a.id, a.template_id, a.assignee_id, a.state, a.completed_at,
		        a.approved_at, a.approved_by, a.approval_reward,
		        a.rejection_reason, a.next_available_at, a.created_at, a.updated_at
		 FROM assignments a
		 JOIN templates t ON t.id = a.template_id
		 WHERE t.parent_id = ?
		 ORDER BY a.created_at, a.id`, parentID)
}

// SwapAssignment applies the update via a conditional UPDATE keyed on the
// guard. Zero rows affected means another writer got there first.
func (s *Store) SwapAssignment(ctx context.Context, updated chore.Assignment, guard chore.Guard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE assignments SET
			assignee_id = ?, state = ?, completed_at = ?, approved_at = ?,
			approved_by = ?, approval_reward = ?, rejection_reason = ?,
			next_available_at = ?, updated_at = ?
		WHERE id = ? AND state = ?`
	args := []any{
		memberIDOrNil(updated.AssigneeID), updated.State,
		timeOrNil(updated.CompletedAt), timeOrNil(updated.ApprovedAt),
		memberIDOrNil(updated.ApprovedBy), decimalOrNil(updated.ApprovalReward),
		stringOrNil(updated.RejectionReason), timeOrNil(updated.NextAvailableAt),
		updated.UpdatedAt.UTC().Format(time.RFC3339Nano),
		updated.ID, guard.State,
	}
	if guard.RequireUnclaimed {
		query += ` AND assignee_id IS NULL`
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM assignments WHERE id = ?`, updated.ID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return chore.ErrAssignmentNotFound
		}
		return chore.ErrStaleState
	}
	return nil
}

func (s *Store) queryAssignments(ctx context.Context, query string, args ...any) ([]chore.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []chore.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanAssignment(row scannable) (*chore.Assignment, error) {
	var (
		a                                     chore.Assignment
		assigneeID, approvedBy                sql.NullString
		completedAt, approvedAt               sql.NullString
		approvalReward, rejectionReason       sql.NullString
		nextAvailableAt, createdAt, updatedAt sql.NullString
	)
	err := row.Scan(&a.ID, &a.TemplateID, &assigneeID, &a.State,
		&completedAt, &approvedAt, &approvedBy, &approvalReward,
		&rejectionReason, &nextAvailableAt, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if assigneeID.Valid {
		id := chore.MemberID(assigneeID.String)
		a.AssigneeID = &id
	}
	if approvedBy.Valid {
		id := chore.MemberID(approvedBy.String)
		a.ApprovedBy = &id
	}
	a.CompletedAt = parseTimePtr(completedAt)
	a.ApprovedAt = parseTimePtr(approvedAt)
	a.NextAvailableAt = parseTimePtr(nextAvailableAt)
	if approvalReward.Valid {
		d := parseDecimal(approvalReward)
		a.ApprovalReward = &d
	}
	if rejectionReason.Valid {
		r := rejectionReason.String
		a.RejectionReason = &r
	}
	if createdAt.Valid {
		a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt.String)
	}
	if updatedAt.Valid {
		a.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt.String)
	}
	return &a, nil
}

// =============================================================================
// ADJUSTMENTS AND PAYOUTS (append-only: INSERT and SELECT only)
// =============================================================================

func (s *Store) AppendAdjustment(ctx context.Context, a chore.Adjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO adjustments (id, child_id, parent_id, amount, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.ChildID, a.ParentID, a.Amount.String(), a.Reason,
		a.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *Store) ListAdjustments(ctx context.Context, child chore.MemberID) ([]chore.Adjustment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, child_id, parent_id, amount, reason, created_at
		FROM adjustments WHERE child_id = ? ORDER BY created_at, id`, child)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []chore.Adjustment
	for rows.Next() {
		var (
			a         chore.Adjustment
			amount    string
			createdAt string
		)
		if err := rows.Scan(&a.ID, &a.ChildID, &a.ParentID, &amount, &a.Reason, &createdAt); err != nil {
			return nil, err
		}
		a.Amount = chore.MustParseDecimal(amount)
		a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) AppendPayout(ctx context.Context, p chore.Payout) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payouts (id, child_id, parent_id, amount, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.ChildID, p.ParentID, p.Amount.String(), p.Note,
		p.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *Store) ListPayouts(ctx context.Context, child chore.MemberID) ([]chore.Payout, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, child_id, parent_id, amount, note, created_at
		FROM payouts WHERE child_id = ? ORDER BY created_at, id`, child)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []chore.Payout
	for rows.Next() {
		var (
			p         chore.Payout
			amount    string
			note      sql.NullString
			createdAt string
		)
		if err := rows.Scan(&p.ID, &p.ChildID, &p.ParentID, &amount, &note, &createdAt); err != nil {
			return nil, err
		}
		p.Amount = chore.MustParseDecimal(amount)
		p.Note = note.String
		p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

// =============================================================================
// NULLABLE HELPERS
// =============================================================================

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func memberIDOrNil(id *chore.MemberID) any {
	if id == nil {
		return nil
	}
	return string(*id)
}

func stringOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func decimalOrNil(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseDecimal(s sql.NullString) decimal.Decimal {
	if !s.Valid || s.String == "" {
		return decimal.Zero
	}
	return chore.MustParseDecimal(s.String)
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}
