/*
planner.go - Orchestration of the scheduling engine over domain entities

PURPOSE:
  Drives the schedule package end to end for one assignment: build the
  role-filtered phase timeline, spread each phase's MDs over its months,
  fold the per-phase amounts into the assignment's allocation cells, and
  record the month totals into the member's capacity ledger.

FLOW:
  Plan:          timeline -> per-phase distribution -> cells -> ledger
  Replan:        ledger release + full rebuild (project edits; pins are
                 cleared because the month geometry may have changed)
  Unassign:      ledger release only
  Override:      pin one cell, reflow the months after it, re-record
  ResetOverride: unpin, recompute from that month forward, re-record
  Rebuild:       wipe the ledger and replay every assignment in creation
                 order (store-driven recovery and the background audit)

ORDERING:
  Within one member, ledger contents depend on recording order. All entry
  points here record an assignment's months atomically in month order,
  and Rebuild replays assignments by their store sequence, so results are
  deterministic for a given store state.

CONCURRENCY:
  Not safe for concurrent use; the api layer serializes calls behind its
  handler mutex.

SEE ALSO:
  - schedule/timeline.go, distribute.go, override.go: The machinery
  - check.go: Structural validation of loaded plans
*/
package planner

import (
	"fmt"

	"github.com/warp/capacity-engine/schedule"
)

// =============================================================================
// PLANNER
// =============================================================================

// Planner owns the calendar and the shared capacity ledger and turns
// domain entities into scheduled assignments.
type Planner struct {
	Calendar *schedule.Calendar
	Ledger   *schedule.CapacityLedger
}

// New creates a planner over the given calendar. defaultCountry is the
// capacity fallback for members without a country of their own.
func New(cal *schedule.Calendar, defaultCountry schedule.Country) *Planner {
	return &Planner{
		Calendar: cal,
		Ledger:   schedule.NewCapacityLedger(cal, defaultCountry),
	}
}

// Plan schedules one member on one project for one role and records the
// result in the ledger. The assignment ID is caller-supplied so imports
// can preserve identity.
func (p *Planner) Plan(id schedule.AssignmentID, member TeamMember, project Project, role schedule.Role) (*Assignment, error) {
	builder := schedule.TimelineBuilder{Calendar: p.Calendar, Country: project.Country}
	entries, err := builder.BuildRoleTimeline(project.Phases, project.Start, role)
	if err != nil {
		return nil, fmt.Errorf("timeline for project %s: %w", project.ID, err)
	}

	a := &Assignment{
		ID:        id,
		MemberID:  member.ID,
		ProjectID: project.ID,
		Role:      role,
		Schedule:  entries,
		Detail:    make(map[schedule.Month][]PhaseAllocation),
	}

	total := schedule.ZeroManDays()
	for _, e := range entries {
		total = total.Add(e.EstimatedMDs)
	}
	a.TotalMDs = total

	// The allocation cells span the assignment's full date range. With no
	// scheduled entries (no phases, or none with MDs) the range is empty
	// and the set has no months.
	start, end := project.Start, project.Start.AddDays(-1)
	if len(entries) > 0 {
		start, end = entries[0].Start, entries[len(entries)-1].End
	}
	a.Allocations = schedule.NewAllocationSet(id, total, start, end)

	dist := schedule.Distributor{Calendar: p.Calendar, Country: project.Country}
	monthTotals := make(map[schedule.Month]schedule.ManDays)
	for _, e := range entries {
		if e.EstimatedMDs.IsZero() {
			continue // occupies its slot, contributes nothing to this role
		}
		byMonth, err := dist.Distribute(e.EstimatedMDs, e.Start, e.End)
		if err != nil {
			return nil, fmt.Errorf("distributing phase %s: %w", e.PhaseID, err)
		}
		for m, v := range byMonth {
			monthTotals[m] = monthTotals[m].Add(v)
			a.Detail[m] = append(a.Detail[m], PhaseAllocation{Phase: e.PhaseID, MDs: v})
		}
	}

	for m, v := range monthTotals {
		if err := a.Allocations.SetComputed(m, v); err != nil {
			return nil, fmt.Errorf("folding month %s: %w", m, err)
		}
	}

	p.Ledger.SetMemberCountry(member.ID, member.Country)
	p.recordAssignment(a)
	return a, nil
}

// Replan rebuilds an existing assignment after a project edit. The old
// ledger contributions are released first. Manual overrides are cleared:
// an edited project invalidates the month geometry they were pinned to.
func (p *Planner) Replan(a *Assignment, member TeamMember, project Project) (*Assignment, error) {
	p.Ledger.Release(a.MemberID, a.ID)
	rebuilt, err := p.Plan(a.ID, member, project, a.Role)
	if err != nil {
		return nil, err
	}
	rebuilt.Seq = a.Seq
	rebuilt.CreatedAt = a.CreatedAt
	return rebuilt, nil
}

// Unassign removes the assignment's contributions from the ledger.
func (p *Planner) Unassign(a *Assignment) {
	p.Ledger.Release(a.MemberID, a.ID)
}

// Override pins one month of the assignment to value, reflows the months
// after it, and refreshes the ledger. An UnallocatableRemainder error is
// advisory: the pin has taken effect and the ledger reflects it.
func (p *Planner) Override(a *Assignment, country schedule.Country, month schedule.Month, value schedule.ManDays) error {
	r := schedule.Redistributor{
		Distributor: schedule.Distributor{Calendar: p.Calendar, Country: country},
	}
	err := r.ApplyOverride(a.Allocations, month, value)
	if err != nil && !schedule.IsAdvisory(err) {
		return err
	}
	p.recordAssignment(a)
	return err
}

// ResetOverride returns a pinned cell to its computed value and reflows
// from that month forward.
func (p *Planner) ResetOverride(a *Assignment, country schedule.Country, month schedule.Month) error {
	r := schedule.Redistributor{
		Distributor: schedule.Distributor{Calendar: p.Calendar, Country: country},
	}
	err := r.Reset(a.Allocations, month)
	if err != nil && !schedule.IsAdvisory(err) {
		return err
	}
	p.recordAssignment(a)
	return err
}

// Preview projects a member's monthly load if the proposed amounts were
// added, without touching the ledger.
func (p *Planner) Preview(member schedule.MemberID, proposed map[schedule.Month]schedule.ManDays) []schedule.MonthProjection {
	engine := schedule.ProjectionEngine{Ledger: p.Ledger}
	return engine.Preview(member, proposed)
}

// Rebuild wipes the ledger and replays every assignment in Seq order.
// Callers pass assignments already sorted by the store.
func (p *Planner) Rebuild(members []TeamMember, assignments []*Assignment) {
	p.Ledger.Reset()
	for _, m := range members {
		p.Ledger.SetMemberCountry(m.ID, m.Country)
	}
	for _, a := range assignments {
		p.recordAssignment(a)
	}
}

// recordAssignment upserts all of the assignment's months into the
// ledger. Months are written in set order; Record is idempotent, so
// re-recording after an override simply replaces the contributions.
func (p *Planner) recordAssignment(a *Assignment) {
	if a.Allocations == nil {
		return
	}
	for _, m := range a.Allocations.Months() {
		p.Ledger.Record(a.MemberID, m, a.ID, a.Allocations.Planned(m))
	}
}
