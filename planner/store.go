/*
store.go - Persistence interface between the planner and its databases

PURPOSE:
  Everything the api and cmd layers need persisted: members, projects
  with their phases, assignments with schedule entries and allocation
  cells (locked flags included), user-added holidays, and audit runs.
  Implementations exist for SQLite (production) and in-memory maps
  (tests, demo scenarios).

ORDERING CONTRACT:
  Assignments(ctx) returns assignments in Seq order. Seq is assigned by
  the store on first save and never changes; ledger rebuilds replay in
  that order, so capacity priority is stable across restarts.

NOT-FOUND:
  Lookups for absent IDs return ErrNotFound (wrapped with the ID). The
  api layer maps it to 404.

IMPLEMENTATIONS:
  - planner/store: In-memory maps behind an RWMutex
  - store/sqlite: go-sqlite3 with WAL and foreign keys

SEE ALSO:
  - types.go: The persisted entities
  - planfile/: Whole-plan import/export built on top of this
*/
package planner

import (
	"context"
	"errors"

	"github.com/warp/capacity-engine/schedule"
)

// ErrNotFound is returned for lookups of absent IDs.
var ErrNotFound = errors.New("not found")

// Store persists the planning domain. All methods are safe for
// concurrent use.
type Store interface {
	// Members
	SaveMember(ctx context.Context, m TeamMember) error
	Member(ctx context.Context, id schedule.MemberID) (TeamMember, error)
	Members(ctx context.Context) ([]TeamMember, error)
	DeleteMember(ctx context.Context, id schedule.MemberID) error

	// Projects (phases included)
	SaveProject(ctx context.Context, p Project) error
	Project(ctx context.Context, id schedule.ProjectID) (Project, error)
	Projects(ctx context.Context) ([]Project, error)
	DeleteProject(ctx context.Context, id schedule.ProjectID) error

	// Assignments (schedule entries, cells, detail included).
	// SaveAssignment assigns Seq on first save and upserts afterwards.
	SaveAssignment(ctx context.Context, a *Assignment) error
	Assignment(ctx context.Context, id schedule.AssignmentID) (*Assignment, error)
	Assignments(ctx context.Context) ([]*Assignment, error)
	AssignmentsByMember(ctx context.Context, id schedule.MemberID) ([]*Assignment, error)
	AssignmentsByProject(ctx context.Context, id schedule.ProjectID) ([]*Assignment, error)
	DeleteAssignment(ctx context.Context, id schedule.AssignmentID) error

	// User-added holidays (built-in tables are code, not rows)
	SaveHoliday(ctx context.Context, h schedule.Holiday) error
	Holidays(ctx context.Context, country schedule.Country, year int) ([]schedule.Holiday, error)
	AllHolidays(ctx context.Context) ([]schedule.Holiday, error)
	DeleteHoliday(ctx context.Context, id string) error

	// Audit runs (append-only)
	RecordAuditRun(ctx context.Context, run AuditRun) error
	AuditRuns(ctx context.Context, limit int) ([]AuditRun, error)

	// Reset deletes everything, including audit history and the Seq
	// counter. Scenario loading and whole-plan import start from here.
	Reset(ctx context.Context) error

	Close() error
}
