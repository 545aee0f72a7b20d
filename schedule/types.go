/*
Package schedule provides the core capacity allocation engine.

PURPOSE:
  This package contains the pure calculation components for planning
  project effort over calendar time: working-day arithmetic, sequential
  phase timelines, proportional monthly distribution, per-member capacity
  bookkeeping, and manual-override redistribution. Nothing in this package
  performs I/O; every input is handed in by the caller.

KEY CONCEPTS IN THIS FILE (types.go):
  - ManDays: An effort quantity (one person, one working day)
  - Phase: A stage of project work with an MD budget and role effort split
  - Member/Project/Phase/Assignment IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Purity: calculators are stateless and always safe to re-run
  2. Precision: decimal.Decimal for all MD math, no float drift
  3. Type Safety: strong ID types prevent mixing member/project IDs
  4. Flags over constraints: overbooking is recorded, never rejected

USAGE:
  cal := schedule.NewCalendar(provider)
  dist := schedule.Distributor{Calendar: cal, Country: "DE"}
  byMonth, err := dist.Distribute(schedule.NewManDays(10), start, end)

SEE ALSO:
  - calendar.go: Working-day calendar over holiday tables
  - timeline.go: Sequential phase timeline building
  - distribute.go: Proportional monthly distribution
  - ledger.go: Per-member capacity ledger
  - override.go: Manual override redistribution
*/
package schedule

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MAN-DAYS - Effort quantity (the only unit in this system)
// =============================================================================

// ManDays is an amount of effort, denominated in working days of one person.
// Values may be fractional (half days from percentage splits) and, in
// redistribution intermediates, negative.
type ManDays struct {
	Value decimal.Decimal
}

func NewManDays(value float64) ManDays {
	return ManDays{Value: decimal.NewFromFloat(value)}
}

func ManDaysFromInt(value int) ManDays {
	return ManDays{Value: decimal.NewFromInt(int64(value))}
}

func ZeroManDays() ManDays {
	return ManDays{Value: decimal.Zero}
}

func MustParseManDays(s string) ManDays {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ManDays{Value: decimal.Zero}
	}
	return ManDays{Value: d}
}

func (m ManDays) Add(o ManDays) ManDays          { return ManDays{Value: m.Value.Add(o.Value)} }
func (m ManDays) Sub(o ManDays) ManDays          { return ManDays{Value: m.Value.Sub(o.Value)} }
func (m ManDays) Mul(s decimal.Decimal) ManDays  { return ManDays{Value: m.Value.Mul(s)} }
func (m ManDays) Div(s decimal.Decimal) ManDays  { return ManDays{Value: m.Value.Div(s)} }
func (m ManDays) Neg() ManDays                   { return ManDays{Value: m.Value.Neg()} }
func (m ManDays) IsZero() bool                   { return m.Value.IsZero() }
func (m ManDays) IsNegative() bool               { return m.Value.IsNegative() }
func (m ManDays) IsPositive() bool               { return m.Value.IsPositive() }
func (m ManDays) Equal(o ManDays) bool           { return m.Value.Equal(o.Value) }
func (m ManDays) GreaterThan(o ManDays) bool     { return m.Value.GreaterThan(o.Value) }
func (m ManDays) LessThan(o ManDays) bool        { return m.Value.LessThan(o.Value) }
func (m ManDays) Min(o ManDays) ManDays          { if m.LessThan(o) { return m }; return o }
func (m ManDays) Max(o ManDays) ManDays          { if m.GreaterThan(o) { return m }; return o }

// Round rounds to whole man-days, half away from zero. Used for every
// non-final month of a distribution; the final month takes the exact
// remainder instead.
func (m ManDays) Round() ManDays { return ManDays{Value: m.Value.Round(0)} }

// Clamp returns m, or zero when m is negative.
func (m ManDays) Clamp() ManDays {
	if m.IsNegative() {
		return ZeroManDays()
	}
	return m
}

func (m ManDays) Float64() float64 {
	f, _ := m.Value.Float64()
	return f
}

func (m ManDays) String() string { return m.Value.String() }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type MemberID string
type ProjectID string
type PhaseID string
type AssignmentID string

// Role is a job function code (developer, designer, qa, ...). Role codes
// are open strings; callers define their own vocabulary.
type Role string

// Country is an ISO 3166-1 alpha-2 code selecting a holiday table.
// An unrecognized code degrades to weekday-only calculation.
type Country string

// =============================================================================
// PHASE - Input unit of project work
// =============================================================================

// Phase is one stage of a project: a total MD budget, a priority order,
// and the percentage of that budget each role carries. Percentages are
// independent per role and need not sum to 100.
type Phase struct {
	ID       PhaseID
	Name     string
	TotalMDs ManDays
	Order    int
	Effort   map[Role]decimal.Decimal // role -> percent, 0..100
}

// EffortPercent returns the effort percentage for a role, zero when the
// role is not listed.
func (p Phase) EffortPercent(role Role) decimal.Decimal {
	pct, ok := p.Effort[role]
	if !ok {
		return decimal.Zero
	}
	return pct
}

// RoleManDays computes the role-specific share of the phase budget:
// TotalMDs * percent / 100, kept exact. Rounding happens per month during
// distribution, never per phase.
func (p Phase) RoleManDays(role Role) ManDays {
	pct := p.EffortPercent(role)
	if pct.IsZero() {
		return ZeroManDays()
	}
	return p.TotalMDs.Mul(pct).Div(decimal.NewFromInt(100))
}
