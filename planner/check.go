/*
check.go - Structural validation of a loaded plan

PURPOSE:
  A plan document arrives from disk or an import endpoint and may be
  internally inconsistent: assignments pointing at deleted members,
  phases with negative budgets, allocation totals that drifted from the
  assignment budget. Check walks the whole plan and reports everything it
  finds as issues, never refusing the load. That mirrors the overflow
  philosophy: surface problems, let the user decide.

SEVERITIES:
  error   - The entity cannot be planned as-is (dangling reference,
            inverted dates, negative budget).
  warning - Planning works but the data looks off (duplicate order,
            effort percent out of range, drifted totals).
*/
package planner

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/capacity-engine/schedule"
)

// =============================================================================
// ISSUES
// =============================================================================

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding from a plan check.
type Issue struct {
	Severity Severity
	Code     string
	Ref      string // offending entity ID
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s [%s] %s: %s", i.Severity, i.Code, i.Ref, i.Message)
}

// HasErrors reports whether any issue is of error severity.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// =============================================================================
// CHECK
// =============================================================================

// totalTolerance is the rounding drift the allocation invariant allows
// between an assignment's cells and its budget.
var totalTolerance = decimal.NewFromFloat(0.5)

// Check validates a plan's structural integrity. It returns all findings;
// an empty slice means the plan is clean.
func Check(members []TeamMember, projects []Project, assignments []*Assignment) []Issue {
	var issues []Issue

	memberIDs := make(map[schedule.MemberID]bool, len(members))
	for _, m := range members {
		if memberIDs[m.ID] {
			issues = append(issues, Issue{
				Severity: SeverityError, Code: "duplicate-member", Ref: string(m.ID),
				Message: "member ID appears more than once",
			})
		}
		memberIDs[m.ID] = true
		if m.Name == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning, Code: "unnamed-member", Ref: string(m.ID),
				Message: "member has no name",
			})
		}
	}

	projectIDs := make(map[schedule.ProjectID]bool, len(projects))
	for _, p := range projects {
		if projectIDs[p.ID] {
			issues = append(issues, Issue{
				Severity: SeverityError, Code: "duplicate-project", Ref: string(p.ID),
				Message: "project ID appears more than once",
			})
		}
		projectIDs[p.ID] = true
		issues = append(issues, checkProject(p)...)
	}

	for _, a := range assignments {
		issues = append(issues, checkAssignment(a, memberIDs, projectIDs)...)
	}

	return issues
}

func checkProject(p Project) []Issue {
	var issues []Issue

	if p.Start.IsZero() && len(p.Phases) > 0 {
		issues = append(issues, Issue{
			Severity: SeverityError, Code: "missing-start", Ref: string(p.ID),
			Message: "project has phases but no start date",
		})
	}

	orders := make(map[int]schedule.PhaseID, len(p.Phases))
	for _, ph := range p.Phases {
		if ph.TotalMDs.IsNegative() {
			issues = append(issues, Issue{
				Severity: SeverityError, Code: "negative-budget", Ref: string(ph.ID),
				Message: fmt.Sprintf("phase budget is %s MDs", ph.TotalMDs),
			})
		}
		if prev, taken := orders[ph.Order]; taken {
			issues = append(issues, Issue{
				Severity: SeverityWarning, Code: "duplicate-order", Ref: string(ph.ID),
				Message: fmt.Sprintf("order %d already used by phase %s", ph.Order, prev),
			})
		}
		orders[ph.Order] = ph.ID

		for role, pct := range ph.Effort {
			if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
				issues = append(issues, Issue{
					Severity: SeverityWarning, Code: "effort-out-of-range", Ref: string(ph.ID),
					Message: fmt.Sprintf("%s effort is %s%%", role, pct),
				})
			}
		}
	}

	return issues
}

func checkAssignment(a *Assignment, members map[schedule.MemberID]bool, projects map[schedule.ProjectID]bool) []Issue {
	var issues []Issue

	if !members[a.MemberID] {
		issues = append(issues, Issue{
			Severity: SeverityError, Code: "dangling-member", Ref: string(a.ID),
			Message: fmt.Sprintf("assignment references unknown member %s", a.MemberID),
		})
	}
	if !projects[a.ProjectID] {
		issues = append(issues, Issue{
			Severity: SeverityError, Code: "dangling-project", Ref: string(a.ID),
			Message: fmt.Sprintf("assignment references unknown project %s", a.ProjectID),
		})
	}

	for _, e := range a.Schedule {
		if e.End.Before(e.Start) {
			issues = append(issues, Issue{
				Severity: SeverityError, Code: "inverted-dates", Ref: string(a.ID),
				Message: fmt.Sprintf("phase %s ends %s before it starts %s", e.PhaseID, e.End, e.Start),
			})
		}
	}

	if a.Allocations != nil {
		drift := a.Allocations.Total().Sub(a.TotalMDs)
		if drift.Value.Abs().GreaterThan(totalTolerance) {
			issues = append(issues, Issue{
				Severity: SeverityWarning, Code: "drifted-total", Ref: string(a.ID),
				Message: fmt.Sprintf("cells sum to %s, budget is %s", a.Allocations.Total(), a.TotalMDs),
			})
		}
	}

	return issues
}
