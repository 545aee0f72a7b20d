/*
override.go - Manual override redistribution over an assignment's months

PURPOSE:
  When a user hand-edits one monthly cell of an assignment, that cell is
  pinned (locked) and the rest of the assignment's budget reflows over the
  unlocked months strictly AFTER the edit. Months before the edit and
  every locked month keep their values verbatim. This mirrors how a
  sequential plan behaves: edits propagate forward, never backward.

CELL STATE MACHINE:
  computed (distributor output, locked=false)
      -> locked (user edit, value preserved by any later redistribution)
      -> computed again via an explicit reset, which recomputes the cell
         as if it had never been locked and reflows the months after it.

REMAINDER ACCOUNTING:
  The budget reflowed over the unlocked window is the assignment total
  minus everything OUTSIDE the window (locked months, months at or before
  the edit). The sum over all months therefore equals the assignment total
  again after every successful reflow. When the window is empty, or has no
  working days, and the remainder is non-zero, the operation reports
  UnallocatableRemainder; the edited value has already taken effect and
  the caller decides how loudly to warn.

SEE ALSO:
  - distribute.go: DistributeOver does the proportional reflow
  - ledger.go: Callers re-record affected months after a reflow
*/
package schedule

import (
	"errors"
	"fmt"
)

// =============================================================================
// MONTHLY ALLOCATION - One cell of the allocation table
// =============================================================================

// MonthlyAllocation is one (assignment, month) cell. Locked cells were set
// by the user and survive redistribution untouched.
type MonthlyAllocation struct {
	Assignment AssignmentID
	Month      Month
	PlannedMDs ManDays
	Locked     bool
}

// =============================================================================
// ALLOCATION SET - An assignment's month map plus its date geometry
// =============================================================================

// AllocationSet holds an assignment's monthly cells together with the
// per-month date spans redistribution needs. Months cover the
// assignment's full date range in order; cells start at zero.
type AllocationSet struct {
	Assignment AssignmentID
	TotalMDs   ManDays

	months []Month
	spans  map[Month]MonthSpan
	cells  map[Month]*MonthlyAllocation
}

// NewAllocationSet creates the cell set for an assignment spanning
// [start, end] with the given total budget. All cells begin computed and
// zero; the planner folds distributor output in via SetComputed.
func NewAllocationSet(assignment AssignmentID, totalMDs ManDays, start, end Date) *AllocationSet {
	set := &AllocationSet{
		Assignment: assignment,
		TotalMDs:   totalMDs,
		spans:      make(map[Month]MonthSpan),
		cells:      make(map[Month]*MonthlyAllocation),
	}
	for _, span := range SpansByMonth(start, end) {
		set.months = append(set.months, span.Month)
		set.spans[span.Month] = span
		set.cells[span.Month] = &MonthlyAllocation{
			Assignment: assignment,
			Month:      span.Month,
			PlannedMDs: ZeroManDays(),
		}
	}
	return set
}

// Months returns the assignment's months in order.
func (s *AllocationSet) Months() []Month {
	out := make([]Month, len(s.months))
	copy(out, s.months)
	return out
}

// Contains reports whether the month is part of the assignment's span.
func (s *AllocationSet) Contains(month Month) bool {
	_, ok := s.cells[month]
	return ok
}

// Planned returns the cell value for a month, zero for unknown months.
func (s *AllocationSet) Planned(month Month) ManDays {
	if cell, ok := s.cells[month]; ok {
		return cell.PlannedMDs
	}
	return ZeroManDays()
}

// IsLocked reports whether the month's cell is pinned by a user edit.
func (s *AllocationSet) IsLocked(month Month) bool {
	cell, ok := s.cells[month]
	return ok && cell.Locked
}

// Span returns the month's date slice of the assignment range.
func (s *AllocationSet) Span(month Month) (MonthSpan, bool) {
	span, ok := s.spans[month]
	return span, ok
}

// Cells returns copies of all cells in month order.
func (s *AllocationSet) Cells() []MonthlyAllocation {
	out := make([]MonthlyAllocation, 0, len(s.months))
	for _, m := range s.months {
		out = append(out, *s.cells[m])
	}
	return out
}

// Total sums the planned MDs over all months.
func (s *AllocationSet) Total() ManDays {
	total := ZeroManDays()
	for _, m := range s.months {
		total = total.Add(s.cells[m].PlannedMDs)
	}
	return total
}

// Clone returns an independent copy of the set.
func (s *AllocationSet) Clone() *AllocationSet {
	out := &AllocationSet{
		Assignment: s.Assignment,
		TotalMDs:   s.TotalMDs,
		months:     append([]Month(nil), s.months...),
		spans:      make(map[Month]MonthSpan, len(s.spans)),
		cells:      make(map[Month]*MonthlyAllocation, len(s.cells)),
	}
	for m, span := range s.spans {
		out.spans[m] = span
	}
	for m, cell := range s.cells {
		c := *cell
		out.cells[m] = &c
	}
	return out
}

// SetComputed writes a distributor-produced value into a cell, clearing
// any lock. Unknown months are rejected.
func (s *AllocationSet) SetComputed(month Month, mds ManDays) error {
	cell, ok := s.cells[month]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMonth, month)
	}
	cell.PlannedMDs = mds
	cell.Locked = false
	return nil
}

// SetLocked restores a user pin without triggering redistribution. Used
// when loading a persisted plan whose overrides were saved.
func (s *AllocationSet) SetLocked(month Month, mds ManDays) error {
	cell, ok := s.cells[month]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMonth, month)
	}
	cell.PlannedMDs = mds
	cell.Locked = true
	return nil
}

// after returns the unlocked months strictly after the given month.
func (s *AllocationSet) after(month Month) []Month {
	var window []Month
	for _, m := range s.months {
		if m.After(month) && !s.cells[m].Locked {
			window = append(window, m)
		}
	}
	return window
}

// from returns the unlocked months at or after the given month.
func (s *AllocationSet) from(month Month) []Month {
	var window []Month
	for _, m := range s.months {
		if !m.Before(month) && !s.cells[m].Locked {
			window = append(window, m)
		}
	}
	return window
}

// plannedOutside sums the cells NOT in the window.
func (s *AllocationSet) plannedOutside(window []Month) ManDays {
	in := make(map[Month]bool, len(window))
	for _, m := range window {
		in[m] = true
	}
	total := ZeroManDays()
	for _, m := range s.months {
		if !in[m] {
			total = total.Add(s.cells[m].PlannedMDs)
		}
	}
	return total
}

// =============================================================================
// REDISTRIBUTOR
// =============================================================================

// Redistributor applies manual overrides to an AllocationSet and reflows
// the remaining budget forward.
type Redistributor struct {
	Distributor Distributor
}

// ApplyOverride pins the edited month to value and reflows the remaining
// budget over the unlocked months after it. The pin always takes effect,
// even when the reflow fails with UnallocatableRemainder; callers surface
// that error as a warning, not a rollback.
func (r Redistributor) ApplyOverride(set *AllocationSet, month Month, value ManDays) error {
	cell, ok := set.cells[month]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMonth, month)
	}

	cell.PlannedMDs = value
	cell.Locked = true

	return r.reflow(set, set.after(month), month)
}

// Reset returns a pinned cell to computed state: the lock is cleared and
// the window from the edited month (inclusive) forward is recomputed as if
// the pin had never happened. Later locked cells keep their pins.
func (r Redistributor) Reset(set *AllocationSet, month Month) error {
	cell, ok := set.cells[month]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMonth, month)
	}

	cell.Locked = false

	return r.reflow(set, set.from(month), month)
}

// reflow distributes (total - everything outside the window) over the
// window months, proportional to working days, last month absorbing the
// rounding remainder.
func (r Redistributor) reflow(set *AllocationSet, window []Month, edited Month) error {
	remainder := set.TotalMDs.Sub(set.plannedOutside(window))

	if len(window) == 0 {
		if remainder.IsZero() {
			return nil
		}
		return &RemainderError{Assignment: set.Assignment, Month: edited, Remainder: remainder}
	}

	spans := make([]MonthSpan, 0, len(window))
	for _, m := range window {
		spans = append(spans, set.spans[m])
	}

	byMonth, err := r.Distributor.DistributeOver(remainder, spans)
	if err != nil {
		if errors.Is(err, ErrEmptyWorkingDaySpan) {
			// Window exists but has no working days to weight by. Zero the
			// window; any leftover budget is unallocatable.
			for _, m := range window {
				set.cells[m].PlannedMDs = ZeroManDays()
			}
			if remainder.IsZero() {
				return nil
			}
			return &RemainderError{Assignment: set.Assignment, Month: edited, Remainder: remainder}
		}
		return err
	}

	for _, m := range window {
		if mds, ok := byMonth[m]; ok {
			set.cells[m].PlannedMDs = mds
		} else {
			set.cells[m].PlannedMDs = ZeroManDays()
		}
	}
	return nil
}
