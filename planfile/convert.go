/*
convert.go - Document to domain conversion and back

PURPOSE:
  Bridges the JSON plan document and the planner's domain types. Loading
  rebuilds each assignment's allocation set from the stored baseline and
  then replays the manual overrides in month order; redistribution is
  deterministic, so the replay lands on exactly the state the file was
  saved from. Structural problems surface as issues alongside the loaded
  plan, never as silent repairs.

ERRORS VS ISSUES:
  Malformed dates and month keys are hard errors: the document cannot be
  trusted. Everything else (dangling references, allocations outside the
  schedule, overrides that no longer fit) loads as far as possible and is
  reported as an issue.
*/
package planfile

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/capacity-engine/planner"
	"github.com/warp/capacity-engine/schedule"
)

// Plan is the fully converted content of a document.
type Plan struct {
	Members     []planner.TeamMember
	Projects    []planner.Project
	Assignments []*planner.Assignment
}

// =============================================================================
// DOCUMENT -> DOMAIN
// =============================================================================

// ToDomain converts a parsed document into domain values. The calendar
// drives the override replay; issues collect everything a caller should
// show the user, structural findings first.
func ToDomain(d *Document, cal *schedule.Calendar) (*Plan, []planner.Issue, error) {
	plan := &Plan{}

	for _, m := range d.TeamMembers {
		plan.Members = append(plan.Members, planner.TeamMember{
			ID:      schedule.MemberID(m.ID),
			Name:    m.Name,
			Role:    schedule.Role(m.Role),
			Country: schedule.Country(m.Country),
		})
	}

	projects := make(map[schedule.ProjectID]planner.Project, len(d.Projects))
	for _, p := range d.Projects {
		proj, err := projectToDomain(p)
		if err != nil {
			return nil, nil, err
		}
		plan.Projects = append(plan.Projects, proj)
		projects[proj.ID] = proj
	}

	var replayIssues []planner.Issue
	for _, aj := range d.ManualAssignments {
		a, issues, err := assignmentToDomain(aj, projects, cal)
		if err != nil {
			return nil, nil, err
		}
		replayIssues = append(replayIssues, issues...)
		plan.Assignments = append(plan.Assignments, a)
	}

	issues := planner.Check(plan.Members, plan.Projects, plan.Assignments)
	issues = append(issues, replayIssues...)
	return plan, issues, nil
}

func projectToDomain(p ProjectJSON) (planner.Project, error) {
	proj := planner.Project{
		ID:      schedule.ProjectID(p.ID),
		Name:    p.Name,
		Country: schedule.Country(p.Country),
	}
	if p.StartDate != "" {
		start, err := schedule.ParseDate(p.StartDate)
		if err != nil {
			return planner.Project{}, fmt.Errorf("project %s: bad startDate: %w", p.ID, err)
		}
		proj.Start = start
	}
	for _, ph := range p.Phases {
		phase := schedule.Phase{
			ID:       schedule.PhaseID(ph.ID),
			Name:     ph.Name,
			TotalMDs: schedule.NewManDays(ph.ManDays),
			Order:    ph.Order,
		}
		if len(ph.Effort) > 0 {
			phase.Effort = make(map[schedule.Role]decimal.Decimal, len(ph.Effort))
			for role, pct := range ph.Effort {
				phase.Effort[schedule.Role(role)] = decimal.NewFromFloat(pct)
			}
		}
		proj.Phases = append(proj.Phases, phase)
	}
	return proj, nil
}

func assignmentToDomain(aj AssignmentJSON, projects map[schedule.ProjectID]planner.Project, cal *schedule.Calendar) (*planner.Assignment, []planner.Issue, error) {
	a := &planner.Assignment{
		ID:        schedule.AssignmentID(aj.ID),
		MemberID:  schedule.MemberID(aj.TeamMemberID),
		ProjectID: schedule.ProjectID(aj.ProjectID),
		Role:      schedule.Role(aj.Role),
		Seq:       aj.Seq,
	}

	for i, ej := range aj.PhaseSchedule {
		start, err := schedule.ParseDate(ej.StartDate)
		if err != nil {
			return nil, nil, fmt.Errorf("assignment %s: phaseSchedule[%d]: bad startDate: %w", aj.ID, i, err)
		}
		end, err := schedule.ParseDate(ej.EndDate)
		if err != nil {
			return nil, nil, fmt.Errorf("assignment %s: phaseSchedule[%d]: bad endDate: %w", aj.ID, i, err)
		}
		a.Schedule = append(a.Schedule, schedule.ScheduleEntry{
			PhaseID:      schedule.PhaseID(ej.PhaseID),
			PhaseName:    ej.PhaseName,
			Start:        start,
			End:          end,
			Months:       schedule.MonthsSpanned(start, end),
			EstimatedMDs: schedule.NewManDays(ej.EstimatedMDs),
		})
	}

	a.TotalMDs = schedule.NewManDays(aj.TotalMDs)
	if a.TotalMDs.IsZero() {
		for _, e := range a.Schedule {
			a.TotalMDs = a.TotalMDs.Add(e.EstimatedMDs)
		}
	}

	start, end := scheduleBounds(a.Schedule, projects[a.ProjectID])
	set := schedule.NewAllocationSet(a.ID, a.TotalMDs, start, end)

	issues, err := restoreBaseline(aj, a, set)
	if err != nil {
		return nil, nil, err
	}

	overrideIssues, err := replayOverrides(aj, a, set, projects, cal)
	if err != nil {
		return nil, nil, err
	}
	issues = append(issues, overrideIssues...)

	a.Allocations = set
	return a, issues, nil
}

// scheduleBounds derives the allocation geometry. An assignment without
// schedule entries gets an empty range so its set carries no months.
func scheduleBounds(entries []schedule.ScheduleEntry, proj planner.Project) (schedule.Date, schedule.Date) {
	if len(entries) == 0 {
		return proj.Start, proj.Start.AddDays(-1)
	}
	return entries[0].Start, entries[len(entries)-1].End
}

// restoreBaseline writes the stored per-month distribution back into the
// set as computed cells and rebuilds the per-phase detail rows.
func restoreBaseline(aj AssignmentJSON, a *planner.Assignment, set *schedule.AllocationSet) ([]planner.Issue, error) {
	months := make([]schedule.Month, 0, len(aj.CalculatedAllocation))
	byMonth := make(map[schedule.Month][]PhaseShareJSON, len(aj.CalculatedAllocation))
	for key, shares := range aj.CalculatedAllocation {
		month, err := schedule.ParseMonth(key)
		if err != nil {
			return nil, fmt.Errorf("assignment %s: bad allocation month %q: %w", aj.ID, key, err)
		}
		months = append(months, month)
		byMonth[month] = shares
	}
	schedule.SortMonths(months)

	var issues []planner.Issue
	for _, month := range months {
		total := schedule.ZeroManDays()
		rows := make([]planner.PhaseAllocation, 0, len(byMonth[month]))
		for _, share := range byMonth[month] {
			mds := schedule.NewManDays(share.AllocatedMDs)
			total = total.Add(mds)
			rows = append(rows, planner.PhaseAllocation{Phase: schedule.PhaseID(share.PhaseID), MDs: mds})
		}
		if err := set.SetComputed(month, total); err != nil {
			issues = append(issues, planner.Issue{
				Severity: planner.SeverityWarning,
				Code:     "allocation-outside-schedule",
				Ref:      string(a.ID),
				Message:  fmt.Sprintf("month %s is outside the scheduled range, dropped", month),
			})
			continue
		}
		if a.Detail == nil {
			a.Detail = make(map[schedule.Month][]planner.PhaseAllocation)
		}
		a.Detail[month] = rows
	}
	return issues, nil
}

// replayOverrides re-applies the saved pins in month order. Advisory
// remainder errors keep the pin and become warnings, matching live
// override behavior.
func replayOverrides(aj AssignmentJSON, a *planner.Assignment, set *schedule.AllocationSet, projects map[schedule.ProjectID]planner.Project, cal *schedule.Calendar) ([]planner.Issue, error) {
	if len(aj.ManualOverrides) == 0 {
		return nil, nil
	}

	pins := make([]schedule.Month, 0, len(aj.ManualOverrides))
	values := make(map[schedule.Month]schedule.ManDays, len(aj.ManualOverrides))
	for key, v := range aj.ManualOverrides {
		month, err := schedule.ParseMonth(key)
		if err != nil {
			return nil, fmt.Errorf("assignment %s: bad override month %q: %w", aj.ID, key, err)
		}
		pins = append(pins, month)
		values[month] = schedule.NewManDays(v)
	}
	schedule.SortMonths(pins)

	r := schedule.Redistributor{Distributor: schedule.Distributor{
		Calendar: cal,
		Country:  projects[a.ProjectID].Country,
	}}

	var issues []planner.Issue
	for _, month := range pins {
		if err := r.ApplyOverride(set, month, values[month]); err != nil {
			code := "override-dropped"
			if schedule.IsAdvisory(err) {
				code = "override-remainder"
			}
			issues = append(issues, planner.Issue{
				Severity: planner.SeverityWarning,
				Code:     code,
				Ref:      string(a.ID),
				Message:  fmt.Sprintf("override %s=%s: %v", month, values[month], err),
			})
		}
	}
	return issues, nil
}

// =============================================================================
// DOMAIN -> DOCUMENT
// =============================================================================

// FromDomain renders the current plan state as a document. Locked cells
// land in manualOverrides; calculatedAllocation always carries the
// pre-override baseline so a reload can replay from scratch.
func FromDomain(members []planner.TeamMember, projects []planner.Project, assignments []*planner.Assignment) *Document {
	d := &Document{
		TeamMembers:       make([]MemberJSON, 0, len(members)),
		Projects:          make([]ProjectJSON, 0, len(projects)),
		ManualAssignments: make([]AssignmentJSON, 0, len(assignments)),
	}

	for _, m := range members {
		d.TeamMembers = append(d.TeamMembers, MemberJSON{
			ID:      string(m.ID),
			Name:    m.Name,
			Role:    string(m.Role),
			Country: string(m.Country),
		})
	}

	for _, p := range projects {
		pj := ProjectJSON{ID: string(p.ID), Name: p.Name, Country: string(p.Country)}
		if !p.Start.IsZero() {
			pj.StartDate = p.Start.String()
		}
		for _, ph := range p.Phases {
			phj := PhaseJSON{
				ID:      string(ph.ID),
				Name:    ph.Name,
				ManDays: jsonMDs(ph.TotalMDs),
				Order:   ph.Order,
			}
			if len(ph.Effort) > 0 {
				phj.Effort = make(map[string]float64, len(ph.Effort))
				for role, pct := range ph.Effort {
					f, _ := pct.Float64()
					phj.Effort[string(role)] = f
				}
			}
			pj.Phases = append(pj.Phases, phj)
		}
		d.Projects = append(d.Projects, pj)
	}

	for _, a := range assignments {
		d.ManualAssignments = append(d.ManualAssignments, assignmentFromDomain(a))
	}

	return d
}

func assignmentFromDomain(a *planner.Assignment) AssignmentJSON {
	aj := AssignmentJSON{
		ID:           string(a.ID),
		TeamMemberID: string(a.MemberID),
		ProjectID:    string(a.ProjectID),
		Role:         string(a.Role),
		TotalMDs:     jsonMDs(a.TotalMDs),
		Seq:          a.Seq,
	}

	for _, e := range a.Schedule {
		aj.PhaseSchedule = append(aj.PhaseSchedule, ScheduleEntryJSON{
			PhaseID:      string(e.PhaseID),
			PhaseName:    e.PhaseName,
			StartDate:    e.Start.String(),
			EndDate:      e.End.String(),
			EstimatedMDs: jsonMDs(e.EstimatedMDs),
		})
	}

	aj.CalculatedAllocation = make(map[string][]PhaseShareJSON, len(a.Detail))
	for month, rows := range a.Detail {
		shares := make([]PhaseShareJSON, 0, len(rows))
		for _, row := range rows {
			shares = append(shares, PhaseShareJSON{
				PhaseID:      string(row.Phase),
				AllocatedMDs: jsonMDs(row.MDs),
			})
		}
		aj.CalculatedAllocation[month.String()] = shares
	}

	if a.Allocations != nil {
		for _, cell := range a.Allocations.Cells() {
			if !cell.Locked {
				continue
			}
			if aj.ManualOverrides == nil {
				aj.ManualOverrides = make(map[string]float64)
			}
			aj.ManualOverrides[cell.Month.String()] = jsonMDs(cell.PlannedMDs)
		}
	}

	return aj
}

// jsonMDs rounds an MD amount to the two decimals the file format
// carries. Engine-internal precision stays higher; the document is a
// presentation boundary.
func jsonMDs(m schedule.ManDays) float64 {
	f, _ := m.Value.Round(2).Float64()
	return f
}
