/*
calendar.go - Working-day calendar over country holiday tables

PURPOSE:
  The single source of truth for "is this date a working day". Every other
  component (timeline builder, distributor, capacity ledger) asks this
  calendar instead of inspecting dates itself.

RULES:
  - Saturday and Sunday are never working days.
  - A date listed in the holiday table for the requested country is not a
    working day.
  - An unknown country code degrades to the weekday rule alone. Holiday
    data is an enrichment, not a correctness requirement, so lookups never
    fail.

USAGE:
  cal := schedule.NewCalendar(provider)
  if cal.IsWorkingDay(d, "DE") { ... }
  n := cal.WorkingDaysBetween(start, end, "DE")

SEE ALSO:
  - holiday/: Built-in country tables implementing HolidayProvider
  - distribute.go: Uses WorkingDaysBetween as distribution weights
*/
package schedule

// =============================================================================
// HOLIDAY PROVIDER - Country-specific non-working days
// =============================================================================

// Holiday is one non-working date in a country's table.
type Holiday struct {
	ID      string
	Country Country
	Date    Date
	Name    string
}

// HolidayProvider supplies holiday lookups per country. Implementations
// must be safe for concurrent reads; the engine never mutates holiday
// data through this interface.
type HolidayProvider interface {
	// IsHoliday reports whether the date is a holiday in the country.
	IsHoliday(country Country, date Date) bool

	// Holidays returns the country's holidays for a year, in date order.
	Holidays(country Country, year int) []Holiday

	// Known reports whether the provider carries a table for the country.
	// Unknown countries degrade to weekday-only calculation.
	Known(country Country) bool
}

// NoHolidays is the provider used when holiday data is absent: every
// weekday is a working day.
type NoHolidays struct{}

func (NoHolidays) IsHoliday(Country, Date) bool      { return false }
func (NoHolidays) Holidays(Country, int) []Holiday   { return nil }
func (NoHolidays) Known(Country) bool                { return false }

// =============================================================================
// CALENDAR - Working-day arithmetic
// =============================================================================

// Calendar answers working-day questions for any country the provider
// knows. It is stateless apart from the injected provider and safe to
// share across goroutines as long as the provider is.
type Calendar struct {
	holidays HolidayProvider
}

// NewCalendar builds a calendar over the given provider. A nil provider
// means weekday-only calculation everywhere.
func NewCalendar(p HolidayProvider) *Calendar {
	if p == nil {
		p = NoHolidays{}
	}
	return &Calendar{holidays: p}
}

// Provider returns the injected holiday provider.
func (c *Calendar) Provider() HolidayProvider { return c.holidays }

// IsWorkingDay reports whether d is a working day in the country:
// not a weekend, not a listed holiday.
func (c *Calendar) IsWorkingDay(d Date, country Country) bool {
	if d.IsWeekend() {
		return false
	}
	return !c.holidays.IsHoliday(country, d)
}

// WorkingDaysBetween counts working days in the inclusive range
// [start, end]. Returns 0 when end < start.
func (c *Calendar) WorkingDaysBetween(start, end Date, country Country) int {
	if end.Before(start) {
		return 0
	}
	count := 0
	for d := start; d.BeforeOrEqual(end); d = d.AddDays(1) {
		if c.IsWorkingDay(d, country) {
			count++
		}
	}
	return count
}

// AddWorkingDays advances from start until n working days have been
// consumed and returns the nth one. A working start date counts as the
// first consumed day, so a 1-day phase starting Monday ends that Monday.
func (c *Calendar) AddWorkingDays(start Date, n int, country Country) (Date, error) {
	if n <= 0 {
		return Date{}, &DateRangeError{Start: start, End: start}
	}
	consumed := 0
	for d := start; ; d = d.AddDays(1) {
		if c.IsWorkingDay(d, country) {
			consumed++
			if consumed == n {
				return d, nil
			}
		}
	}
}

// NextWorkingDay returns the smallest working day strictly after d.
func (c *Calendar) NextWorkingDay(d Date, country Country) Date {
	next := d.AddDays(1)
	for !c.IsWorkingDay(next, country) {
		next = next.AddDays(1)
	}
	return next
}

// WorkingDaysInMonth is the month's real capacity in the country.
func (c *Calendar) WorkingDaysInMonth(m Month, country Country) int {
	return c.WorkingDaysBetween(m.Start(), m.End(), country)
}
