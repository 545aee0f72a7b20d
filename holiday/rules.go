/*
rules.go - Holiday rule kinds that resolve to concrete dates per year

PURPOSE:
  Public holidays follow three recurrence patterns, and every national
  table in countries.go is built from them:

  FixedDate:
    - Same month and day every year (Christmas, Labour Day)

  NthWeekday:
    - Nth weekday of a month, counted from the start or the end
      (Thanksgiving: 4th Thursday of November,
       Memorial Day: last Monday of May)

  EasterOffset:
    - A day offset from Easter Sunday (Good Friday: -2,
      Ascension Day: +39, Whit Monday: +50)

EASTER:
  easterSunday implements the anonymous Gregorian computus. It is exact
  for all Gregorian years, which is the only range the engine plans in.

EXAMPLE:
  rule := EasterOffset{Days: 50, Label: "Whit Monday"}
  rule.Resolve(2025)   // 2025-06-09

SEE ALSO:
  - countries.go: National tables composed from these rules
  - provider.go: Resolves tables into per-year date sets
*/
package holiday

import (
	"time"

	"github.com/warp/capacity-engine/schedule"
)

// =============================================================================
// RULE INTERFACE
// =============================================================================

// Rule yields one holiday date for a given year.
type Rule interface {
	// Resolve returns the holiday's date in the given year.
	Resolve(year int) schedule.Date

	// Name returns the holiday's display name.
	Name() string
}

// =============================================================================
// FIXED DATE
// =============================================================================

// FixedDate is a holiday that falls on the same calendar day every year.
type FixedDate struct {
	Month time.Month
	Day   int
	Label string
}

func (r FixedDate) Resolve(year int) schedule.Date {
	return schedule.NewDate(year, r.Month, r.Day)
}

func (r FixedDate) Name() string { return r.Label }

// =============================================================================
// NTH WEEKDAY
// =============================================================================

// NthWeekday is a holiday on the Nth occurrence of a weekday in a month.
// Nth counts from the start of the month; a negative Nth counts from the
// end, so -1 means the last occurrence.
type NthWeekday struct {
	Month   time.Month
	Weekday time.Weekday
	Nth     int
	Label   string
}

func (r NthWeekday) Resolve(year int) schedule.Date {
	if r.Nth > 0 {
		first := time.Date(year, r.Month, 1, 0, 0, 0, 0, time.UTC)
		offset := (int(r.Weekday) - int(first.Weekday()) + 7) % 7
		return schedule.NewDate(year, r.Month, 1+offset+(r.Nth-1)*7)
	}

	// Day 0 of the following month is the last day of this one.
	last := time.Date(year, r.Month+1, 0, 0, 0, 0, 0, time.UTC)
	offset := (int(last.Weekday()) - int(r.Weekday) + 7) % 7
	return schedule.NewDate(year, r.Month, last.Day()-offset-(-r.Nth-1)*7)
}

func (r NthWeekday) Name() string { return r.Label }

// =============================================================================
// EASTER OFFSET
// =============================================================================

// EasterOffset is a holiday a fixed number of days from Easter Sunday.
type EasterOffset struct {
	Days  int
	Label string
}

func (r EasterOffset) Resolve(year int) schedule.Date {
	return easterSunday(year).AddDays(r.Days)
}

func (r EasterOffset) Name() string { return r.Label }

// easterSunday computes Easter Sunday for a Gregorian year using the
// anonymous computus (Meeus/Jones/Butcher form).
func easterSunday(year int) schedule.Date {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451

	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1

	return schedule.NewDate(year, time.Month(month), day)
}
