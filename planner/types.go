/*
types.go - Domain model for team capacity planning

PURPOSE:
  The entities the planner works with: team members, projects with their
  phase lists, and assignments binding a member to a project with a
  month-by-month MD schedule. The schedule package stays generic; these
  types give its values a home in the planning domain.

LIFECYCLE:
  TeamMember and Project are reference data, edited by the host and read
  during planning. An Assignment is created by Planner.Plan, carries the
  computed timeline and allocation cells, and is destroyed on explicit
  unassignment.

SEE ALSO:
  - planner.go: Operations producing and mutating Assignments
  - store.go: Persistence interface for all of these
*/
package planner

import (
	"time"

	"github.com/warp/capacity-engine/schedule"
)

// Conventional role codes. Effort maps may carry any role string; these
// are the ones the shipped scenarios and UI use.
const (
	RoleDeveloper schedule.Role = "developer"
	RoleDesigner  schedule.Role = "designer"
	RoleQA        schedule.Role = "qa"
	RolePM        schedule.Role = "pm"
)

// TeamMember is one plannable person. Country selects the holiday table
// that defines the member's monthly capacity.
type TeamMember struct {
	ID      schedule.MemberID
	Name    string
	Role    schedule.Role
	Country schedule.Country
}

// Project is a phased body of work. Phases are stored in business
// priority order via their Order field; Country drives the project's
// working-day calendar.
type Project struct {
	ID      schedule.ProjectID
	Name    string
	Start   schedule.Date
	Country schedule.Country
	Phases  []schedule.Phase
}

// Phase returns the project's phase with the given ID.
func (p Project) Phase(id schedule.PhaseID) (schedule.Phase, bool) {
	for _, ph := range p.Phases {
		if ph.ID == id {
			return ph, true
		}
	}
	return schedule.Phase{}, false
}

// TotalMDs sums the project's phase budgets.
func (p Project) TotalMDs() schedule.ManDays {
	total := schedule.ZeroManDays()
	for _, ph := range p.Phases {
		total = total.Add(ph.TotalMDs)
	}
	return total
}

// PhaseAllocation is one phase's share of a month's allocation, the row
// format of the plan document's per-month breakdown.
type PhaseAllocation struct {
	Phase schedule.PhaseID
	MDs   schedule.ManDays
}

// Assignment binds a member to a project for one role. Schedule holds the
// role-filtered phase timeline; Allocations the per-month cells including
// user pins; Detail the computed per-phase split behind each month.
//
// Detail is the distributor's output and is NOT updated by overrides:
// a pinned cell changes the month total while the underlying per-phase
// baseline stays visible for comparison.
type Assignment struct {
	ID        schedule.AssignmentID
	MemberID  schedule.MemberID
	ProjectID schedule.ProjectID
	Role      schedule.Role
	TotalMDs  schedule.ManDays

	Schedule    []schedule.ScheduleEntry
	Allocations *schedule.AllocationSet
	Detail      map[schedule.Month][]PhaseAllocation

	// Seq is the creation sequence assigned by the store. Ledger rebuilds
	// replay assignments in Seq order so first-come priority is stable.
	Seq       int64
	CreatedAt time.Time
}

// MonthTotal returns the assignment's planned MDs for a month.
func (a *Assignment) MonthTotal(m schedule.Month) schedule.ManDays {
	if a.Allocations == nil {
		return schedule.ZeroManDays()
	}
	return a.Allocations.Planned(m)
}

// Clone returns a deep copy safe to mutate independently of the
// original. Stores hand out clones so callers cannot alias their state.
func (a *Assignment) Clone() *Assignment {
	out := *a
	out.Schedule = make([]schedule.ScheduleEntry, len(a.Schedule))
	for i, e := range a.Schedule {
		e.Months = append([]schedule.Month(nil), e.Months...)
		out.Schedule[i] = e
	}
	if a.Allocations != nil {
		out.Allocations = a.Allocations.Clone()
	}
	if a.Detail != nil {
		out.Detail = make(map[schedule.Month][]PhaseAllocation, len(a.Detail))
		for m, rows := range a.Detail {
			out.Detail[m] = append([]PhaseAllocation(nil), rows...)
		}
	}
	return &out
}

// Months returns the assignment's months in order.
func (a *Assignment) Months() []schedule.Month {
	if a.Allocations == nil {
		return nil
	}
	return a.Allocations.Months()
}

// AuditRun is one recorded pass of the background ledger audit.
type AuditRun struct {
	ID            string
	At            time.Time
	Members       int
	Assignments   int
	OverflowCells int
	Note          string
}
