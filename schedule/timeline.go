/*
timeline.go - Sequential phase timeline building

PURPOSE:
  Turns an ordered list of phases into concrete, non-overlapping start and
  end dates. Phases run strictly one after another: each starts on the
  first working day after its predecessor ends, so the timeline is gap-free
  at working-day granularity.

ALGORITHM:
  Keep a cursor, initialized to the project start date. For each phase
  with a positive MD budget, the end date is the cursor advanced by the
  budget's working-day span (the cursor itself counts when it is a working
  day). Zero-MD phases are skipped and consume no time slot. The phase
  Order field is a business priority, so phases are consumed in that
  stored order, never re-sorted by date.

ROLE SPLIT:
  Timeline footprint is driven by the phase's TOTAL budget. A role's MD
  share (TotalMDs * percent / 100) is a separate pass: a phase with 0% for
  a role still occupies its slot and pushes later phases out, it just
  contributes no effort for that role.

SEE ALSO:
  - calendar.go: AddWorkingDays / NextWorkingDay used by the cursor
  - distribute.go: Spreads each entry's MDs over its months
*/
package schedule

import (
	"sort"
)

// =============================================================================
// SCHEDULE ENTRY - One phase resolved onto the calendar
// =============================================================================

// ScheduleEntry is a phase with resolved dates. EstimatedMDs is the effort
// being scheduled for this entry: the full phase budget from BuildTimeline,
// or one role's share from BuildRoleTimeline.
type ScheduleEntry struct {
	PhaseID      PhaseID
	PhaseName    string
	Start        Date
	End          Date
	Months       []Month
	EstimatedMDs ManDays
}

// =============================================================================
// TIMELINE BUILDER
// =============================================================================

// TimelineBuilder lays phases out sequentially on the working-day calendar
// of one country. Stateless; safe to reuse across projects.
type TimelineBuilder struct {
	Calendar *Calendar
	Country  Country
}

// BuildTimeline resolves the phases into sequential schedule entries
// starting at projectStart. Entries carry the full phase budget.
func (b TimelineBuilder) BuildTimeline(phases []Phase, projectStart Date) ([]ScheduleEntry, error) {
	if projectStart.IsZero() {
		return nil, &DateRangeError{Start: projectStart, End: projectStart}
	}

	ordered := make([]Phase, len(phases))
	copy(ordered, phases)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	var entries []ScheduleEntry
	cursor := projectStart
	for _, phase := range ordered {
		if !phase.TotalMDs.IsPositive() {
			// Zero-MD phases consume no timeline slot.
			continue
		}

		span := workingDaySpan(phase.TotalMDs)
		end, err := b.Calendar.AddWorkingDays(cursor, span, b.Country)
		if err != nil {
			return nil, err
		}

		entries = append(entries, ScheduleEntry{
			PhaseID:      phase.ID,
			PhaseName:    phase.Name,
			Start:        cursor,
			End:          end,
			Months:       MonthsSpanned(cursor, end),
			EstimatedMDs: phase.TotalMDs,
		})

		cursor = b.Calendar.NextWorkingDay(end, b.Country)
	}

	return entries, nil
}

// BuildRoleTimeline resolves the phases as BuildTimeline does, then
// replaces each entry's EstimatedMDs with the role's share of the phase
// budget. Dates are identical to BuildTimeline: the role split never moves
// a phase.
func (b TimelineBuilder) BuildRoleTimeline(phases []Phase, projectStart Date, role Role) ([]ScheduleEntry, error) {
	entries, err := b.BuildTimeline(phases, projectStart)
	if err != nil {
		return nil, err
	}

	byID := make(map[PhaseID]Phase, len(phases))
	for _, p := range phases {
		byID[p.ID] = p
	}

	for i := range entries {
		entries[i].EstimatedMDs = byID[entries[i].PhaseID].RoleManDays(role)
	}
	return entries, nil
}

// workingDaySpan converts an MD budget into the number of working days the
// phase occupies. Fractional budgets round up: half a day still blocks the
// whole day on the timeline.
func workingDaySpan(mds ManDays) int {
	return int(mds.Value.Ceil().IntPart())
}
