/*
distribute.go - Proportional monthly distribution of an MD budget

PURPOSE:
  Spreads one amount of effort across the months a date range touches,
  weighted by each month's working days inside the range. This is the
  calculation behind every cell of the allocation table.

THE ROUNDING RULE:
  Every month except the last is rounded to whole MDs, half away from
  zero. The LAST month takes the exact remainder (amount minus everything
  already placed) instead of being rounded independently. The sum therefore
  equals the input amount exactly, whatever rounding drift the earlier
  months accumulated. The last month can look slightly disproportionate;
  that is the accepted trade-off for an auditable, drift-free total.

  Months whose overlap with the range has zero working days are omitted
  entirely, they never appear as zero-weight keys.

NEGATIVE AMOUNTS:
  Redistribution after a large manual override can push the remaining
  budget negative. The same proportional rule applies unchanged; nothing
  here clamps. Negative cells are data for the UI, like overflow.

SEE ALSO:
  - calendar.go: Working-day counts used as weights
  - override.go: Re-runs this distribution over unlocked month windows
*/
package schedule

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// DISTRIBUTOR
// =============================================================================

// Distributor spreads MD amounts over months proportionally to working
// days. Stateless; safe to reuse and share.
type Distributor struct {
	Calendar *Calendar
	Country  Country
}

// Distribute spreads amount over the inclusive range [start, end].
// Returns InvalidDateRange when end < start and EmptyWorkingDaySpan when
// the range contains no working day at all; the caller decides whether an
// empty span is fatal or benign.
func (d Distributor) Distribute(amount ManDays, start, end Date) (map[Month]ManDays, error) {
	if end.Before(start) {
		return nil, &DateRangeError{Start: start, End: end}
	}
	return d.DistributeOver(amount, SpansByMonth(start, end))
}

// DistributeOver spreads amount over explicit month spans. The spans need
// not be contiguous: override redistribution passes only the unlocked
// months of an assignment, skipping locked ones in between.
func (d Distributor) DistributeOver(amount ManDays, spans []MonthSpan) (map[Month]ManDays, error) {
	type weightedSpan struct {
		month Month
		days  int
	}

	var (
		weighted []weightedSpan
		total    int
	)
	for _, s := range spans {
		days := d.Calendar.WorkingDaysBetween(s.Start, s.End, d.Country)
		if days == 0 {
			continue
		}
		weighted = append(weighted, weightedSpan{month: s.Month, days: days})
		total += days
	}

	if total == 0 {
		err := &EmptySpanError{Country: d.Country}
		if len(spans) > 0 {
			err.Start = spans[0].Start
			err.End = spans[len(spans)-1].End
		}
		return nil, err
	}

	totalDays := decimal.NewFromInt(int64(total))
	result := make(map[Month]ManDays, len(weighted))
	placed := ZeroManDays()

	for i, ws := range weighted {
		if i == len(weighted)-1 {
			// Last month absorbs the remainder exactly.
			result[ws.month] = amount.Sub(placed)
			break
		}
		share := amount.Mul(decimal.NewFromInt(int64(ws.days))).Div(totalDays).Round()
		result[ws.month] = share
		placed = placed.Add(share)
	}

	return result, nil
}
