package schedule

import (
	"fmt"
	"sort"
	"time"
)

// =============================================================================
// MONTH - The allocation bucket for planned effort
// =============================================================================

// Month is one calendar month. Planned MDs are always bucketed by Month;
// the string form "YYYY-MM" is the key used at every external boundary
// (JSON documents, API responses, the database).
type Month struct {
	Year  int
	Month time.Month
}

func MonthOf(d Date) Month {
	return Month{Year: d.Year(), Month: d.Month()}
}

// ParseMonth parses "2006-01".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q (use YYYY-MM): %w", s, err)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// MustParseMonth is ParseMonth for literals in tests and fixtures.
func MustParseMonth(s string) Month {
	m, err := ParseMonth(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Start returns the first day of the month.
func (m Month) Start() Date { return NewDate(m.Year, m.Month, 1) }

// End returns the last day of the month.
func (m Month) End() Date {
	t := time.Date(m.Year, m.Month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	return DateOf(t)
}

func (m Month) Next() Month {
	t := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return Month{Year: t.Year(), Month: t.Month()}
}

func (m Month) Prev() Month {
	t := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	return Month{Year: t.Year(), Month: t.Month()}
}

// Comparison
func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

func (m Month) After(other Month) bool { return other.Before(m) }

func (m Month) Equal(other Month) bool { return m == other }

// Contains returns true if the date falls inside this month.
func (m Month) Contains(d Date) bool {
	return d.Year() == m.Year && d.Month() == m.Month
}

// =============================================================================
// MONTH SPANS - A date range clipped to its months
// =============================================================================

// MonthSpan is the slice of a date range that falls inside one month.
// Distribution weights each span by its working-day count.
type MonthSpan struct {
	Month Month
	Start Date
	End   Date
}

// MonthsSpanned returns the months touched by [start, end] in
// chronological order. Empty when end < start.
func MonthsSpanned(start, end Date) []Month {
	if end.Before(start) {
		return nil
	}
	var months []Month
	m := MonthOf(start)
	last := MonthOf(end)
	for {
		months = append(months, m)
		if m == last {
			return months
		}
		m = m.Next()
	}
}

// SpansByMonth clips [start, end] to per-month spans, chronological.
// Empty when end < start.
func SpansByMonth(start, end Date) []MonthSpan {
	var spans []MonthSpan
	for _, m := range MonthsSpanned(start, end) {
		spans = append(spans, MonthSpan{
			Month: m,
			Start: MaxDate(m.Start(), start),
			End:   MinDate(m.End(), end),
		})
	}
	return spans
}

// SortMonths orders months chronologically in place.
func SortMonths(months []Month) {
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
}
