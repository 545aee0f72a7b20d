/*
projection.go - What-if load preview before committing an assignment

PURPOSE:
  Answers "what would this member's months look like if we booked this?"
  WITHOUT touching the ledger. The UI shows the projection next to the
  assignment dialog so planners see looming overflow before they commit.

PROJECTION vs RECORDING:
  The projection engine never mutates anything. An accepted proposal goes
  through the normal planning flow, which records into the ledger; a
  rejected one is simply discarded.

EXAMPLE:
  engine := &ProjectionEngine{Ledger: ledger}
  rows := engine.Preview("member-1", proposal)
  for _, row := range rows {
      if row.Overflow.IsPositive() {
          fmt.Println("would overbook", row.Month)
      }
  }

SEE ALSO:
  - ledger.go: The booked state projected against
*/
package schedule

// =============================================================================
// PROJECTION ENGINE
// =============================================================================

// ProjectionEngine previews member load against the current ledger state.
type ProjectionEngine struct {
	Ledger *CapacityLedger
}

// MonthProjection is one month of a what-if preview.
type MonthProjection struct {
	Month     Month
	Capacity  ManDays
	Booked    ManDays // already recorded in the ledger
	Proposed  ManDays // the addition being previewed
	Projected ManDays // booked + proposed
	Overflow  ManDays // max(0, projected - capacity)
}

// Preview overlays a proposed month map on the member's current bookings.
// Months come back chronological; the ledger is left untouched.
func (e *ProjectionEngine) Preview(member MemberID, proposed map[Month]ManDays) []MonthProjection {
	months := make([]Month, 0, len(proposed))
	for m := range proposed {
		months = append(months, m)
	}
	SortMonths(months)

	rows := make([]MonthProjection, 0, len(months))
	for _, month := range months {
		booked := e.Ledger.Allocated(member, month)
		capacity := e.Ledger.Capacity(member, month)
		projected := booked.Add(proposed[month])
		rows = append(rows, MonthProjection{
			Month:     month,
			Capacity:  capacity,
			Booked:    booked,
			Proposed:  proposed[month],
			Projected: projected,
			Overflow:  projected.Sub(capacity).Clamp(),
		})
	}
	return rows
}
