/*
ledger.go - Per-member, per-month capacity bookkeeping

PURPOSE:
  The single source of truth for "how much is this person already
  committed to". Every assignment's monthly distribution is recorded here,
  keyed by (member, month, assignment), so the same assignment can be
  re-recorded idempotently after a recompute or an override.

CAPACITY AND OVERFLOW:
  A month's capacity is its real working-day count in the member's
  country. Overflow is max(0, allocated - capacity). Overflow is a FLAG,
  not a constraint: the ledger never refuses to record, it measures the
  excess so the UI can alert. Available capacity is clamped to zero, a
  booked-over member simply has nothing left.

ORDERING:
  Within one member, assignments must be recorded in a stable,
  caller-chosen order (creation order in practice) because available
  capacity depends on what is already booked. The ledger does not impose
  the order.

CONCURRENCY:
  Not safe for concurrent writers. The ledger is a synchronous accumulator
  the host drives; a multi-threaded host serializes access (the HTTP layer
  holds a mutex around every mutation).

SEE ALSO:
  - distribute.go: Produces the month amounts recorded here
  - projection.go: What-if load preview over a ledger
*/
package schedule

import (
	"sort"
)

// =============================================================================
// LEDGER ENTRIES
// =============================================================================

// LedgerEntry is one member-month cell of the ledger, fully derived.
type LedgerEntry struct {
	Member    MemberID
	Month     Month
	Allocated ManDays
	Capacity  ManDays
	Overflow  ManDays
}

// OverflowEntry is one over-capacity month in a member's overflow report.
type OverflowEntry struct {
	Month    Month
	Overflow ManDays
}

// =============================================================================
// CAPACITY LEDGER
// =============================================================================

// CapacityLedger accumulates planned MDs per member and month across all
// assignments. Recomputed state, never hand-edited: every cell is
// derivable from the assignments recorded into it.
type CapacityLedger struct {
	calendar       *Calendar
	defaultCountry Country

	// member country overrides; capacity follows the member's calendar
	countries map[MemberID]Country

	// member -> month -> assignment -> planned MDs
	entries map[MemberID]map[Month]map[AssignmentID]ManDays
}

// NewCapacityLedger creates an empty ledger. Capacity lookups use
// defaultCountry unless SetMemberCountry installs a member-specific one.
func NewCapacityLedger(cal *Calendar, defaultCountry Country) *CapacityLedger {
	return &CapacityLedger{
		calendar:       cal,
		defaultCountry: defaultCountry,
		countries:      make(map[MemberID]Country),
		entries:        make(map[MemberID]map[Month]map[AssignmentID]ManDays),
	}
}

// SetMemberCountry pins the holiday country used for a member's capacity.
func (l *CapacityLedger) SetMemberCountry(member MemberID, country Country) {
	if country == "" {
		delete(l.countries, member)
		return
	}
	l.countries[member] = country
}

func (l *CapacityLedger) countryFor(member MemberID) Country {
	if c, ok := l.countries[member]; ok {
		return c
	}
	return l.defaultCountry
}

// Record upserts one assignment's contribution to a member-month cell.
// Calling it again for the same (member, month, assignment) replaces the
// previous value, so recomputes and overrides are idempotent.
func (l *CapacityLedger) Record(member MemberID, month Month, assignment AssignmentID, mds ManDays) {
	months, ok := l.entries[member]
	if !ok {
		months = make(map[Month]map[AssignmentID]ManDays)
		l.entries[member] = months
	}
	cell, ok := months[month]
	if !ok {
		cell = make(map[AssignmentID]ManDays)
		months[month] = cell
	}
	cell[assignment] = mds
}

// Release removes every contribution of an assignment for the member,
// across all months. Used on unassignment and before a full replan.
func (l *CapacityLedger) Release(member MemberID, assignment AssignmentID) {
	months, ok := l.entries[member]
	if !ok {
		return
	}
	for month, cell := range months {
		delete(cell, assignment)
		if len(cell) == 0 {
			delete(months, month)
		}
	}
	if len(months) == 0 {
		delete(l.entries, member)
	}
}

// Reset clears the whole ledger. Used before rebuilding from the store.
func (l *CapacityLedger) Reset() {
	l.entries = make(map[MemberID]map[Month]map[AssignmentID]ManDays)
}

// Contribution returns one assignment's recorded share of a member-month
// cell, zero when nothing is recorded.
func (l *CapacityLedger) Contribution(member MemberID, month Month, assignment AssignmentID) ManDays {
	if cell, ok := l.entries[member][month]; ok {
		if mds, ok := cell[assignment]; ok {
			return mds
		}
	}
	return ZeroManDays()
}

// Allocated returns the member's total booked MDs for the month across
// all recorded assignments.
func (l *CapacityLedger) Allocated(member MemberID, month Month) ManDays {
	total := ZeroManDays()
	for _, mds := range l.entries[member][month] {
		total = total.Add(mds)
	}
	return total
}

// Capacity returns the month's real working-day count in the member's
// country, as MDs.
func (l *CapacityLedger) Capacity(member MemberID, month Month) ManDays {
	days := l.calendar.WorkingDaysInMonth(month, l.countryFor(member))
	return ManDaysFromInt(days)
}

// AvailableCapacity returns capacity minus everything already booked,
// clamped to zero. Never negative.
func (l *CapacityLedger) AvailableCapacity(member MemberID, month Month) ManDays {
	return l.Capacity(member, month).Sub(l.Allocated(member, month)).Clamp()
}

// Overflow returns max(0, allocated - capacity) for the member-month.
func (l *CapacityLedger) Overflow(member MemberID, month Month) ManDays {
	return l.Allocated(member, month).Sub(l.Capacity(member, month)).Clamp()
}

// OverflowReport lists the member's over-capacity months, chronological.
// Drives the UI's alert banners.
func (l *CapacityLedger) OverflowReport(member MemberID) []OverflowEntry {
	var report []OverflowEntry
	for _, month := range l.MonthsBooked(member) {
		over := l.Overflow(member, month)
		if over.IsPositive() {
			report = append(report, OverflowEntry{Month: month, Overflow: over})
		}
	}
	return report
}

// MonthsBooked returns every month with a recorded contribution for the
// member, chronological.
func (l *CapacityLedger) MonthsBooked(member MemberID) []Month {
	months := make([]Month, 0, len(l.entries[member]))
	for m := range l.entries[member] {
		months = append(months, m)
	}
	SortMonths(months)
	return months
}

// Members returns every member with at least one recorded contribution,
// sorted by ID.
func (l *CapacityLedger) Members() []MemberID {
	members := make([]MemberID, 0, len(l.entries))
	for m := range l.entries {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	return members
}

// Snapshot dumps every member-month cell, sorted by member then month.
// Used by the audit scheduler and the admin API.
func (l *CapacityLedger) Snapshot() []LedgerEntry {
	var entries []LedgerEntry
	for _, member := range l.Members() {
		for _, month := range l.MonthsBooked(member) {
			entries = append(entries, LedgerEntry{
				Member:    member,
				Month:     month,
				Allocated: l.Allocated(member, month),
				Capacity:  l.Capacity(member, month),
				Overflow:  l.Overflow(member, month),
			})
		}
	}
	return entries
}
