/*
Package sqlite provides the SQLite-backed planner.Store implementation.

PURPOSE:
  Persists the whole plan: team members, projects with their phases,
  assignments with schedule entries and allocation cells, user-added
  holidays, and audit runs. In production, the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  team_members:     Who can be planned
  projects, phases: Project definitions (phases replaced on save)
  assignments:      One member on one project, with its Seq priority
  schedule_entries: The resolved phase timeline per assignment
  allocations:      Per-month cells with locked flags and phase detail
  holidays:         User-added closures (rule tables live in code)
  audit_runs:       Append-only log of background ledger audits

NUMBERS AND DATES:
  MD amounts are stored as decimal strings, never floats; allocation
  arithmetic must survive a round trip exactly. Dates are "2006-01-02"
  strings, audit timestamps RFC3339.

SEQ ASSIGNMENT:
  New assignments get MAX(seq)+1 inside the save transaction. Rows that
  already exist keep their seq and created_at, so re-planning never
  changes capacity priority. Imported assignments keep the seq they
  bring along.

CONCURRENCY:
  sync.RWMutex plus a single pooled connection. One connection keeps
  ":memory:" databases coherent across the database/sql pool and avoids
  SQLITE_BUSY under concurrent writes.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency
  and crash recovery.

USAGE:
  store, err := sqlite.New("./data/capacity.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - planner/store.go: Interface definition
  - planner/store/memory.go: In-memory implementation for testing
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

	"github.com/warp/capacity-engine/planner"
	"github.com/warp/capacity-engine/schedule"
)

// Store implements planner.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ planner.Store = (*Store)(nil)

// New creates a SQLite store at the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

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
	CREATE TABLE IF NOT EXISTS team_members (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		start_date TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT ''
	);

	-- Phases belong to their project and are replaced wholesale on save.
	CREATE TABLE IF NOT EXISTS phases (
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		man_days TEXT NOT NULL,
		sort_order INTEGER NOT NULL,
		effort_json TEXT NOT NULL DEFAULT '{}',
		PRIMARY KEY (project_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_phases_project
		ON phases(project_id);

	-- member_id and project_id carry no foreign keys: imported plans may
	-- reference entities the document does not contain, and the
	-- consistency check reports those instead of the store rejecting them.
	CREATE TABLE IF NOT EXISTS assignments (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT '',
		total_mds TEXT NOT NULL,
		seq INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_member
		ON assignments(member_id);
	CREATE INDEX IF NOT EXISTS idx_assignments_project
		ON assignments(project_id);
	CREATE INDEX IF NOT EXISTS idx_assignments_seq
		ON assignments(seq);

	CREATE TABLE IF NOT EXISTS schedule_entries (
		assignment_id TEXT NOT NULL REFERENCES assignments(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		phase_id TEXT NOT NULL,
		phase_name TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		estimated_mds TEXT NOT NULL,
		PRIMARY KEY (assignment_id, position)
	);

	-- One row per month cell. detail_json keeps the per-phase baseline
	-- split; planned_mds is the current value including overrides.
	CREATE TABLE IF NOT EXISTS allocations (
		assignment_id TEXT NOT NULL REFERENCES assignments(id) ON DELETE CASCADE,
		month TEXT NOT NULL,
		planned_mds TEXT NOT NULL,
		locked BOOLEAN NOT NULL DEFAULT FALSE,
		detail_json TEXT NOT NULL DEFAULT '[]',
		PRIMARY KEY (assignment_id, month)
	);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		country TEXT NOT NULL,
		date TEXT NOT NULL,
		name TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_country_date
		ON holidays(country, date);

	CREATE TABLE IF NOT EXISTS audit_runs (
		id TEXT PRIMARY KEY,
		run_at TEXT NOT NULL,
		member_count INTEGER NOT NULL,
		assignment_count INTEGER NOT NULL,
		overflow_cells INTEGER NOT NULL,
		note TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_audit_runs_at
		ON audit_runs(run_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// MEMBERS
// =============================================================================

// SaveMember inserts or updates a team member.
func (s *Store) SaveMember(ctx context.Context, m planner.TeamMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO team_members (id, name, role, country)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			country = excluded.country
	`

	_, err := s.db.ExecContext(ctx, query, m.ID, m.Name, m.Role, m.Country)
	return err
}

// Member retrieves a team member by ID.
func (s *Store) Member(ctx context.Context, id schedule.MemberID) (planner.TeamMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var m planner.TeamMember
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, role, country FROM team_members WHERE id = ?", id,
	).Scan(&m.ID, &m.Name, &m.Role, &m.Country)

	if err == sql.ErrNoRows {
		return planner.TeamMember{}, fmt.Errorf("member %s: %w", id, planner.ErrNotFound)
	}
	if err != nil {
		return planner.TeamMember{}, err
	}
	return m, nil
}

// Members returns all team members ordered by ID.
func (s *Store) Members(ctx context.Context) ([]planner.TeamMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, role, country FROM team_members ORDER BY id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []planner.TeamMember
	for rows.Next() {
		var m planner.TeamMember
		if err := rows.Scan(&m.ID, &m.Name, &m.Role, &m.Country); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// DeleteMember removes a team member.
func (s *Store) DeleteMember(ctx context.Context, id schedule.MemberID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM team_members WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("member %s: %w", id, planner.ErrNotFound)
	}
	return nil
}

// =============================================================================
// PROJECTS
// =============================================================================

// SaveProject inserts or updates a project and replaces its phases.
func (s *Store) SaveProject(ctx context.Context, p planner.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	startDate := ""
	if !p.Start.IsZero() {
		startDate = p.Start.String()
	}

	query := `
		INSERT INTO projects (id, name, start_date, country)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			start_date = excluded.start_date,
			country = excluded.country
	`
	if _, err := tx.ExecContext(ctx, query, p.ID, p.Name, startDate, p.Country); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM phases WHERE project_id = ?", p.ID); err != nil {
		return err
	}
	for _, ph := range p.Phases {
		effortJSON, err := marshalEffort(ph.Effort)
		if err != nil {
			return fmt.Errorf("phase %s: %w", ph.ID, err)
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO phases (project_id, id, name, man_days, sort_order, effort_json) VALUES (?, ?, ?, ?, ?, ?)",
			p.ID, ph.ID, ph.Name, ph.TotalMDs.Value.String(), ph.Order, effortJSON,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Project retrieves a project with its phases.
func (s *Store) Project(ctx context.Context, id schedule.ProjectID) (planner.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p planner.Project
	var startDate string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, start_date, country FROM projects WHERE id = ?", id,
	).Scan(&p.ID, &p.Name, &startDate, &p.Country)

	if err == sql.ErrNoRows {
		return planner.Project{}, fmt.Errorf("project %s: %w", id, planner.ErrNotFound)
	}
	if err != nil {
		return planner.Project{}, err
	}

	if p.Start, err = parseDate(startDate); err != nil {
		return planner.Project{}, fmt.Errorf("project %s: %w", id, err)
	}
	if p.Phases, err = s.loadPhases(ctx, p.ID); err != nil {
		return planner.Project{}, err
	}
	return p, nil
}

// Projects returns all projects with their phases, ordered by ID.
func (s *Store) Projects(ctx context.Context) ([]planner.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, start_date, country FROM projects ORDER BY id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []planner.Project
	for rows.Next() {
		var p planner.Project
		var startDate string
		if err := rows.Scan(&p.ID, &p.Name, &startDate, &p.Country); err != nil {
			return nil, err
		}
		if p.Start, err = parseDate(startDate); err != nil {
			return nil, fmt.Errorf("project %s: %w", p.ID, err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range projects {
		if projects[i].Phases, err = s.loadPhases(ctx, projects[i].ID); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

// DeleteProject removes a project; its phases cascade.
func (s *Store) DeleteProject(ctx context.Context, id schedule.ProjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %s: %w", id, planner.ErrNotFound)
	}
	return nil
}

func (s *Store) loadPhases(ctx context.Context, projectID schedule.ProjectID) ([]schedule.Phase, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, man_days, sort_order, effort_json FROM phases WHERE project_id = ? ORDER BY sort_order, id",
		projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var phases []schedule.Phase
	for rows.Next() {
		var ph schedule.Phase
		var manDays, effortJSON string
		if err := rows.Scan(&ph.ID, &ph.Name, &manDays, &ph.Order, &effortJSON); err != nil {
			return nil, err
		}
		if ph.TotalMDs, err = parseMDs(manDays); err != nil {
			return nil, fmt.Errorf("phase %s: %w", ph.ID, err)
		}
		if ph.Effort, err = unmarshalEffort(effortJSON); err != nil {
			return nil, fmt.Errorf("phase %s: %w", ph.ID, err)
		}
		phases = append(phases, ph)
	}
	return phases, rows.Err()
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

// SaveAssignment inserts or updates an assignment with its schedule
// entries and allocation cells. New assignments get the next sequence
// number; existing ones keep seq and created_at.
func (s *Store) SaveAssignment(ctx context.Context, a *planner.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	var createdAt string
	err = tx.QueryRowContext(ctx,
		"SELECT seq, created_at FROM assignments WHERE id = ?", a.ID,
	).Scan(&seq, &createdAt)

	switch {
	case err == sql.ErrNoRows:
		if a.Seq == 0 {
			if err := tx.QueryRowContext(ctx,
				"SELECT COALESCE(MAX(seq), 0) + 1 FROM assignments",
			).Scan(&a.Seq); err != nil {
				return fmt.Errorf("failed to assign sequence: %w", err)
			}
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = time.Now().UTC()
		}
	case err != nil:
		return err
	default:
		a.Seq = seq
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	}

	query := `
		INSERT INTO assignments (id, member_id, project_id, role, total_mds, seq, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			member_id = excluded.member_id,
			project_id = excluded.project_id,
			role = excluded.role,
			total_mds = excluded.total_mds
	`
	_, err = tx.ExecContext(ctx, query,
		a.ID, a.MemberID, a.ProjectID, a.Role,
		a.TotalMDs.Value.String(), a.Seq,
		a.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}

	if err := s.saveScheduleEntries(ctx, tx, a); err != nil {
		return err
	}
	if err := s.saveAllocations(ctx, tx, a); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) saveScheduleEntries(ctx context.Context, tx *sql.Tx, a *planner.Assignment) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM schedule_entries WHERE assignment_id = ?", a.ID); err != nil {
		return err
	}
	for i, e := range a.Schedule {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO schedule_entries (assignment_id, position, phase_id, phase_name, start_date, end_date, estimated_mds) VALUES (?, ?, ?, ?, ?, ?, ?)",
			a.ID, i, e.PhaseID, e.PhaseName, e.Start.String(), e.End.String(), e.EstimatedMDs.Value.String(),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) saveAllocations(ctx context.Context, tx *sql.Tx, a *planner.Assignment) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM allocations WHERE assignment_id = ?", a.ID); err != nil {
		return err
	}
	if a.Allocations == nil {
		return nil
	}
	for _, cell := range a.Allocations.Cells() {
		detailJSON, err := marshalDetail(a.Detail[cell.Month])
		if err != nil {
			return fmt.Errorf("month %s: %w", cell.Month, err)
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO allocations (assignment_id, month, planned_mds, locked, detail_json) VALUES (?, ?, ?, ?, ?)",
			a.ID, cell.Month.String(), cell.PlannedMDs.Value.String(), cell.Locked, detailJSON,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// Assignment retrieves an assignment with its schedule and cells.
func (s *Store) Assignment(ctx context.Context, id schedule.AssignmentID) (*planner.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out, err := s.queryAssignments(ctx,
		baseAssignmentQuery+" WHERE id = ?", id,
	)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("assignment %s: %w", id, planner.ErrNotFound)
	}
	return out[0], nil
}

// Assignments returns all assignments in Seq order.
func (s *Store) Assignments(ctx context.Context) ([]*planner.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryAssignments(ctx, baseAssignmentQuery+" ORDER BY seq")
}

// AssignmentsByMember returns a member's assignments in Seq order.
func (s *Store) AssignmentsByMember(ctx context.Context, id schedule.MemberID) ([]*planner.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryAssignments(ctx, baseAssignmentQuery+" WHERE member_id = ? ORDER BY seq", id)
}

// AssignmentsByProject returns a project's assignments in Seq order.
func (s *Store) AssignmentsByProject(ctx context.Context, id schedule.ProjectID) ([]*planner.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryAssignments(ctx, baseAssignmentQuery+" WHERE project_id = ? ORDER BY seq", id)
}

// DeleteAssignment removes an assignment; entries and cells cascade.
func (s *Store) DeleteAssignment(ctx context.Context, id schedule.AssignmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM assignments WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("assignment %s: %w", id, planner.ErrNotFound)
	}
	return nil
}

const baseAssignmentQuery = "SELECT id, member_id, project_id, role, total_mds, seq, created_at FROM assignments"

func (s *Store) queryAssignments(ctx context.Context, query string, args ...any) ([]*planner.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var out []*planner.Assignment
	for rows.Next() {
		var a planner.Assignment
		var totalMDs, createdAt string
		if err := rows.Scan(&a.ID, &a.MemberID, &a.ProjectID, &a.Role, &totalMDs, &a.Seq, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		if a.TotalMDs, err = parseMDs(totalMDs); err != nil {
			return nil, fmt.Errorf("assignment %s: %w", a.ID, err)
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Entries and cells load after the cursor is drained; with one pooled
	// connection interleaved queries would contend.
	for _, a := range out {
		if err := s.loadScheduleEntries(ctx, a); err != nil {
			return nil, err
		}
		if err := s.loadAllocations(ctx, a); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) loadScheduleEntries(ctx context.Context, a *planner.Assignment) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT phase_id, phase_name, start_date, end_date, estimated_mds FROM schedule_entries WHERE assignment_id = ? ORDER BY position",
		a.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var e schedule.ScheduleEntry
		var start, end, estimated string
		if err := rows.Scan(&e.PhaseID, &e.PhaseName, &start, &end, &estimated); err != nil {
			return err
		}
		if e.Start, err = parseDate(start); err != nil {
			return fmt.Errorf("assignment %s: %w", a.ID, err)
		}
		if e.End, err = parseDate(end); err != nil {
			return fmt.Errorf("assignment %s: %w", a.ID, err)
		}
		if e.EstimatedMDs, err = parseMDs(estimated); err != nil {
			return fmt.Errorf("assignment %s: %w", a.ID, err)
		}
		e.Months = schedule.MonthsSpanned(e.Start, e.End)
		a.Schedule = append(a.Schedule, e)
	}
	return rows.Err()
}

// loadAllocations rebuilds the allocation set. Geometry comes from the
// schedule entries; stored cells are written back as computed or locked
// values, which restores the post-override state without a replay.
func (s *Store) loadAllocations(ctx context.Context, a *planner.Assignment) error {
	start, end := scheduleBounds(a.Schedule)
	set := schedule.NewAllocationSet(a.ID, a.TotalMDs, start, end)

	rows, err := s.db.QueryContext(ctx,
		"SELECT month, planned_mds, locked, detail_json FROM allocations WHERE assignment_id = ? ORDER BY month",
		a.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var monthStr, planned, detailJSON string
		var locked bool
		if err := rows.Scan(&monthStr, &planned, &locked, &detailJSON); err != nil {
			return err
		}
		month, err := schedule.ParseMonth(monthStr)
		if err != nil {
			return fmt.Errorf("assignment %s: %w", a.ID, err)
		}
		mds, err := parseMDs(planned)
		if err != nil {
			return fmt.Errorf("assignment %s month %s: %w", a.ID, month, err)
		}

		if locked {
			err = set.SetLocked(month, mds)
		} else {
			err = set.SetComputed(month, mds)
		}
		if err != nil {
			return fmt.Errorf("assignment %s: allocation row outside schedule: %w", a.ID, err)
		}

		detail, err := unmarshalDetail(detailJSON)
		if err != nil {
			return fmt.Errorf("assignment %s month %s: %w", a.ID, month, err)
		}
		if len(detail) > 0 {
			if a.Detail == nil {
				a.Detail = make(map[schedule.Month][]planner.PhaseAllocation)
			}
			a.Detail[month] = detail
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	a.Allocations = set
	return nil
}

// scheduleBounds derives the allocation window. No entries means an
// empty window and therefore no month cells.
func scheduleBounds(entries []schedule.ScheduleEntry) (schedule.Date, schedule.Date) {
	if len(entries) == 0 {
		var zero schedule.Date
		return zero, zero.AddDays(-1)
	}
	return entries[0].Start, entries[len(entries)-1].End
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// SaveHoliday inserts or updates a user-added holiday.
func (s *Store) SaveHoliday(ctx context.Context, h schedule.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO holidays (id, country, date, name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			country = excluded.country,
			date = excluded.date,
			name = excluded.name
	`

	_, err := s.db.ExecContext(ctx, query, h.ID, h.Country, h.Date.String(), h.Name)
	return err
}

// Holidays returns a country's holidays in a given year, date order.
func (s *Store) Holidays(ctx context.Context, country schedule.Country, year int) ([]schedule.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, country, date, name FROM holidays
		WHERE country = ? AND strftime('%Y', date) = ?
		ORDER BY date
	`
	return s.queryHolidays(ctx, query, country, fmt.Sprintf("%d", year))
}

// AllHolidays returns every stored holiday ordered by country, then date.
func (s *Store) AllHolidays(ctx context.Context) ([]schedule.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryHolidays(ctx,
		"SELECT id, country, date, name FROM holidays ORDER BY country, date",
	)
}

// DeleteHoliday removes a holiday by ID.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("holiday %s: %w", id, planner.ErrNotFound)
	}
	return nil
}

func (s *Store) queryHolidays(ctx context.Context, query string, args ...any) ([]schedule.Holiday, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []schedule.Holiday
	for rows.Next() {
		var h schedule.Holiday
		var date string
		if err := rows.Scan(&h.ID, &h.Country, &date, &h.Name); err != nil {
			return nil, err
		}
		if h.Date, err = parseDate(date); err != nil {
			return nil, fmt.Errorf("holiday %s: %w", h.ID, err)
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// =============================================================================
// AUDIT RUNS
// =============================================================================

// RecordAuditRun appends an audit run. Runs are never updated.
func (s *Store) RecordAuditRun(ctx context.Context, run planner.AuditRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO audit_runs (id, run_at, member_count, assignment_count, overflow_cells, note) VALUES (?, ?, ?, ?, ?, ?)",
		run.ID, run.At.UTC().Format(time.RFC3339),
		run.Members, run.Assignments, run.OverflowCells, run.Note,
	)
	return err
}

// AuditRuns returns recorded runs newest first. A non-positive limit
// returns all of them.
func (s *Store) AuditRuns(ctx context.Context, limit int) ([]planner.AuditRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as no limit
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, run_at, member_count, assignment_count, overflow_cells, note FROM audit_runs ORDER BY run_at DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []planner.AuditRun
	for rows.Next() {
		var run planner.AuditRun
		var runAt string
		if err := rows.Scan(&run.ID, &runAt, &run.Members, &run.Assignments, &run.OverflowCells, &run.Note); err != nil {
			return nil, err
		}
		run.At, _ = time.Parse(time.RFC3339, runAt)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// =============================================================================
// RESET
// =============================================================================

// Reset deletes all rows from every table. Child tables go first so the
// foreign keys never complain mid-way.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"allocations",
		"schedule_entries",
		"assignments",
		"phases",
		"projects",
		"team_members",
		"holidays",
		"audit_runs",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func parseDate(s string) (schedule.Date, error) {
	if s == "" {
		return schedule.Date{}, nil
	}
	return schedule.ParseDate(s)
}

func parseMDs(s string) (schedule.ManDays, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return schedule.ManDays{}, fmt.Errorf("bad MD amount %q: %w", s, err)
	}
	return schedule.ManDays{Value: v}, nil
}

func marshalEffort(effort map[schedule.Role]decimal.Decimal) (string, error) {
	out := make(map[string]string, len(effort))
	for role, pct := range effort {
		out[string(role)] = pct.String()
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to encode effort: %w", err)
	}
	return string(data), nil
}

func unmarshalEffort(data string) (map[schedule.Role]decimal.Decimal, error) {
	var raw map[string]string
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode effort: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	effort := make(map[schedule.Role]decimal.Decimal, len(raw))
	for role, pct := range raw {
		v, err := decimal.NewFromString(pct)
		if err != nil {
			return nil, fmt.Errorf("bad effort percent %q: %w", pct, err)
		}
		effort[schedule.Role(role)] = v
	}
	return effort, nil
}

type detailRow struct {
	PhaseID string `json:"phaseId"`
	MDs     string `json:"mds"`
}

func marshalDetail(rows []planner.PhaseAllocation) (string, error) {
	out := make([]detailRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, detailRow{PhaseID: string(r.Phase), MDs: r.MDs.Value.String()})
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to encode detail: %w", err)
	}
	return string(data), nil
}

func unmarshalDetail(data string) ([]planner.PhaseAllocation, error) {
	var raw []detailRow
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode detail: %w", err)
	}
	out := make([]planner.PhaseAllocation, 0, len(raw))
	for _, r := range raw {
		v, err := decimal.NewFromString(r.MDs)
		if err != nil {
			return nil, fmt.Errorf("bad detail amount %q: %w", r.MDs, err)
		}
		out = append(out, planner.PhaseAllocation{Phase: schedule.PhaseID(r.PhaseID), MDs: schedule.ManDays{Value: v}})
	}
	return out, nil
}
