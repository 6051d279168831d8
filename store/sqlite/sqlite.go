/*
Package sqlite provides the SQLite-backed implementation of the finance
storage interfaces.

PURPOSE:
  Implements finance.AssignmentStore and finance.Directory plus the thin
  persistence the API needs for projects, phases, and compensation profiles.
  The same patterns apply to PostgreSQL - only SQL dialect differences.

UNIQUENESS ENFORCEMENT:
  The (user_id, phase_id) pair on resource_assignments carries a UNIQUE
  index. Duplicate inserts - including concurrent ones - fail at the
  database, and the constraint violation is mapped onto
  *finance.ConflictError. There is deliberately NO application-level
  check-then-write, which would be racy.

SNAPSHOT COLUMNS:
  billing_rate is written once at insert and there is no UPDATE statement
  for resource_assignments at all: re-assignment is delete-then-insert.

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block,
  single writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/finance.db")
  ledger := finance.NewLedger(store, store)

SEE ALSO:
  - finance/ledger.go: interface definitions
  - finance/store/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/studiobooks/finance-engine/finance"
)

// Store implements the finance storage interfaces using SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps the in-memory database coherent across
	// goroutines and serializes writers, which SQLite requires anyway.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		client_name TEXT,
		total_fee TEXT NOT NULL,
		target_profit_margin TEXT NOT NULL,
		stage TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS phases (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id),
		phase_number INTEGER NOT NULL,
		stage TEXT NOT NULL,
		budget_share TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_phases_project
		ON phases(project_id, phase_number);

	CREATE TABLE IF NOT EXISTS compensation_profiles (
		user_id TEXT PRIMARY KEY,
		monthly_salary TEXT NOT NULL,
		typical_hours_per_month INTEGER NOT NULL DEFAULT 160,
		overhead_multiplier TEXT NOT NULL DEFAULT '2.5',
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS resource_assignments (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		phase_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		planned_hours INTEGER NOT NULL CHECK (planned_hours > 0),
		billing_rate TEXT NOT NULL,
		start_date TEXT,
		end_date TEXT,
		created_at TEXT NOT NULL
	);

	-- CRITICAL: one assignment per (user, phase). Concurrent creates for the
	-- same pair must resolve to one success and one conflict.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_assignment_user_phase
		ON resource_assignments(user_id, phase_id);

	-- Burn calculation (per project)
	CREATE INDEX IF NOT EXISTS idx_assignments_project
		ON resource_assignments(project_id);

	-- Cross-project utilization window query (per user)
	CREATE INDEX IF NOT EXISTS idx_assignments_user_window
		ON resource_assignments(user_id, start_date, end_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ASSIGNMENT STORE (finance.AssignmentStore interface)
// =============================================================================

// Insert persists an assignment. The unique index decides conflicts.
func (s *Store) Insert(ctx context.Context, a finance.ResourceAssignment) error {
	query := `
		INSERT INTO resource_assignments
		(id, user_id, phase_id, project_id, planned_hours, billing_rate, start_date, end_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		string(a.ID),
		string(a.UserID),
		string(a.PhaseID),
		string(a.ProjectID),
		a.PlannedHours,
		a.BillingRate.String(),
		nullDate(a.StartDate),
		nullDate(a.EndDate),
		a.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &finance.ConflictError{UserID: a.UserID, PhaseID: a.PhaseID}
		}
		return fmt.Errorf("failed to insert assignment: %w", err)
	}
	return nil
}

// Delete removes the assignment for a (user, phase) pair.
func (s *Store) Delete(ctx context.Context, userID finance.UserID, phaseID finance.PhaseID) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM resource_assignments WHERE user_id = ? AND phase_id = ?",
		string(userID), string(phaseID),
	)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &finance.NotFoundError{Kind: "assignment", ID: string(userID) + "/" + string(phaseID)}
	}
	return nil
}

// ListByProject returns all assignments across all phases of a project.
func (s *Store) ListByProject(ctx context.Context, projectID finance.ProjectID) ([]finance.ResourceAssignment, error) {
	query := `
		SELECT id, user_id, phase_id, project_id, planned_hours, billing_rate, start_date, end_date, created_at
		FROM resource_assignments
		WHERE project_id = ?
		ORDER BY phase_id, user_id
	`
	return s.queryAssignments(ctx, query, string(projectID))
}

// ListActiveForUser is the cross-project utilization query: all assignments
// for a user, anywhere, whose date range overlaps [weekStart, weekEnd].
// NULL dates are open ends and always overlap.
func (s *Store) ListActiveForUser(ctx context.Context, userID finance.UserID, weekStart, weekEnd finance.Date) ([]finance.ResourceAssignment, error) {
	query := `
		SELECT id, user_id, phase_id, project_id, planned_hours, billing_rate, start_date, end_date, created_at
		FROM resource_assignments
		WHERE user_id = ?
		  AND (start_date IS NULL OR start_date <= ?)
		  AND (end_date IS NULL OR end_date >= ?)
		ORDER BY phase_id
	`
	return s.queryAssignments(ctx, query, string(userID), weekEnd.String(), weekStart.String())
}

func (s *Store) queryAssignments(ctx context.Context, query string, args ...any) ([]finance.ResourceAssignment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []finance.ResourceAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

func scanAssignment(rows *sql.Rows) (finance.ResourceAssignment, error) {
	var (
		a           finance.ResourceAssignment
		id          string
		userID      string
		phaseID     string
		projectID   string
		billingRate string
		startDate   sql.NullString
		endDate     sql.NullString
		createdAt   string
	)

	err := rows.Scan(&id, &userID, &phaseID, &projectID, &a.PlannedHours,
		&billingRate, &startDate, &endDate, &createdAt)
	if err != nil {
		return a, fmt.Errorf("failed to scan assignment: %w", err)
	}

	a.ID = finance.AssignmentID(id)
	a.UserID = finance.UserID(userID)
	a.PhaseID = finance.PhaseID(phaseID)
	a.ProjectID = finance.ProjectID(projectID)
	a.BillingRate = mustDecimal(billingRate)
	a.StartDate = parseNullDate(startDate)
	a.EndDate = parseNullDate(endDate)
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return a, nil
}

// =============================================================================
// PROJECT STORE (finance.Directory interface + API persistence)
// =============================================================================

// SaveProject inserts or updates a project.
func (s *Store) SaveProject(ctx context.Context, p finance.Project) error {
	query := `
		INSERT INTO projects (id, name, client_name, total_fee, target_profit_margin, stage, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			client_name = excluded.client_name,
			total_fee = excluded.total_fee,
			target_profit_margin = excluded.target_profit_margin,
			stage = excluded.stage,
			active = excluded.active
	`

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, query,
		string(p.ID), p.Name, p.ClientName,
		p.TotalFee.String(), p.TargetProfitMargin.String(),
		string(p.Stage), boolToInt(p.Active),
		createdAt.Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetProject(ctx context.Context, id finance.ProjectID) (*finance.Project, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, client_name, total_fee, target_profit_margin, stage, active, created_at FROM projects WHERE id = ?",
		string(id),
	)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListProjects returns all projects, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]finance.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, client_name, total_fee, target_profit_margin, stage, active, created_at FROM projects ORDER BY created_at DESC, id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []finance.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*finance.Project, error) {
	var (
		p            finance.Project
		pid          string
		clientName   sql.NullString
		totalFee     string
		targetMargin string
		stage        string
		active       int
		createdAt    string
	)

	err := row.Scan(&pid, &p.Name, &clientName, &totalFee, &targetMargin, &stage, &active, &createdAt)
	if err != nil {
		return nil, err
	}

	p.ID = finance.ProjectID(pid)
	p.ClientName = clientName.String
	p.TotalFee = mustDecimal(totalFee)
	p.TargetProfitMargin = mustDecimal(targetMargin)
	p.Stage = finance.ProjectStage(stage)
	p.Active = active != 0
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

// =============================================================================
// PHASE STORE
// =============================================================================

func (s *Store) SavePhase(ctx context.Context, p finance.Phase) error {
	query := `
		INSERT INTO phases (id, project_id, phase_number, stage, budget_share, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			phase_number = excluded.phase_number,
			stage = excluded.stage,
			budget_share = excluded.budget_share
	`

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var share sql.NullString
	if p.BudgetShare != nil {
		share = sql.NullString{String: p.BudgetShare.String(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		string(p.ID), string(p.ProjectID), p.PhaseNumber,
		string(p.Stage), share, createdAt.Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetPhase(ctx context.Context, id finance.PhaseID) (*finance.Phase, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, project_id, phase_number, stage, budget_share, created_at FROM phases WHERE id = ?",
		string(id),
	)
	p, err := scanPhase(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPhases returns a project's phases in lifecycle order.
func (s *Store) ListPhases(ctx context.Context, projectID finance.ProjectID) ([]finance.Phase, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, project_id, phase_number, stage, budget_share, created_at FROM phases WHERE project_id = ? ORDER BY phase_number",
		string(projectID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var phases []finance.Phase
	for rows.Next() {
		p, err := scanPhase(rows)
		if err != nil {
			return nil, err
		}
		phases = append(phases, *p)
	}
	return phases, rows.Err()
}

func scanPhase(row rowScanner) (*finance.Phase, error) {
	var (
		p         finance.Phase
		pid       string
		projectID string
		stage     string
		share     sql.NullString
		createdAt string
	)

	err := row.Scan(&pid, &projectID, &p.PhaseNumber, &stage, &share, &createdAt)
	if err != nil {
		return nil, err
	}

	p.ID = finance.PhaseID(pid)
	p.ProjectID = finance.ProjectID(projectID)
	p.Stage = finance.ProjectStage(stage)
	if share.Valid {
		d := mustDecimal(share.String)
		p.BudgetShare = &d
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

// =============================================================================
// COMPENSATION PROFILE STORE
// =============================================================================

func (s *Store) SaveProfile(ctx context.Context, p finance.CompensationProfile) error {
	query := `
		INSERT INTO compensation_profiles (user_id, monthly_salary, typical_hours_per_month, overhead_multiplier, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			monthly_salary = excluded.monthly_salary,
			typical_hours_per_month = excluded.typical_hours_per_month,
			overhead_multiplier = excluded.overhead_multiplier,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		string(p.UserID), p.MonthlySalary.String(),
		p.TypicalHoursPerMonth, p.OverheadMultiplier.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetProfile(ctx context.Context, id finance.UserID) (*finance.CompensationProfile, error) {
	var (
		p          finance.CompensationProfile
		userID     string
		salary     string
		multiplier string
	)

	err := s.db.QueryRowContext(ctx,
		"SELECT user_id, monthly_salary, typical_hours_per_month, overhead_multiplier FROM compensation_profiles WHERE user_id = ?",
		string(id),
	).Scan(&userID, &salary, &p.TypicalHoursPerMonth, &multiplier)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.UserID = finance.UserID(userID)
	p.MonthlySalary = mustDecimal(salary)
	p.OverheadMultiplier = mustDecimal(multiplier)
	return &p, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullDate(d *finance.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDate(s sql.NullString) *finance.Date {
	if !s.Valid || s.String == "" {
		return nil
	}
	d, err := finance.ParseDate(s.String)
	if err != nil {
		return nil
	}
	return &d
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
