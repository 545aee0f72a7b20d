package schedule_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/capacity-engine/schedule"
)

func sumAllocations(m map[schedule.Month]schedule.ManDays) schedule.ManDays {
	total := schedule.ZeroManDays()
	for _, v := range m {
		total = total.Add(v)
	}
	return total
}

func TestDistribute_EvenSplitAcrossTwoMonths(t *testing.T) {
	// GIVEN 10 MDs over two weeks straddling a month boundary,
	// five working days on each side
	dist := schedule.Distributor{Calendar: schedule.NewCalendar(nil), Country: "DE"}

	// WHEN distributing Mon 2025-05-26 .. Fri 2025-06-06
	got, err := dist.Distribute(mds(10), date("2025-05-26"), date("2025-06-06"))
	require.NoError(t, err)

	// THEN the split is proportional: 5 and 5
	require.Len(t, got, 2)
	assert.True(t, got[month("2025-05")].Equal(mds(5)), "May got %s", got[month("2025-05")])
	assert.True(t, got[month("2025-06")].Equal(mds(5)), "June got %s", got[month("2025-06")])
}

func TestDistribute_HolidayShiftsProportionLastMonthAbsorbs(t *testing.T) {
	// GIVEN the same two weeks with a holiday on the second Tuesday
	holidays := newTestHolidays().add("DE", "2025-06-03", "Test Holiday")
	dist := schedule.Distributor{Calendar: schedule.NewCalendar(holidays), Country: "DE"}

	got, err := dist.Distribute(mds(10), date("2025-05-26"), date("2025-06-06"))
	require.NoError(t, err)

	// THEN weights become 5 vs 4 working days: round(10*5/9)=6 for May,
	// and June absorbs the remainder of 4
	assert.True(t, got[month("2025-05")].Equal(mds(6)), "May got %s", got[month("2025-05")])
	assert.True(t, got[month("2025-06")].Equal(mds(4)), "June got %s", got[month("2025-06")])
	assert.True(t, sumAllocations(got).Equal(mds(10)))
}

func TestDistribute_SumEqualsInputExactly(t *testing.T) {
	dist := schedule.Distributor{Calendar: schedule.NewCalendar(nil), Country: "DE"}

	// An awkward amount over three months still sums exactly.
	got, err := dist.Distribute(mds(17.35), date("2025-01-15"), date("2025-03-20"))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, sumAllocations(got).Equal(mds(17.35)), "sum %s", sumAllocations(got))

	// Non-final months are whole MDs.
	assert.True(t, got[month("2025-01")].Equal(got[month("2025-01")].Round()))
	assert.True(t, got[month("2025-02")].Equal(got[month("2025-02")].Round()))
}

func TestDistribute_EndBeforeStartRejected(t *testing.T) {
	dist := schedule.Distributor{Calendar: schedule.NewCalendar(nil), Country: "DE"}

	_, err := dist.Distribute(mds(10), date("2025-06-06"), date("2025-06-02"))
	assert.ErrorIs(t, err, schedule.ErrInvalidDateRange)
}

func TestDistribute_WeekendOnlySpanIsEmptyWorkingDaySpan(t *testing.T) {
	dist := schedule.Distributor{Calendar: schedule.NewCalendar(nil), Country: "DE"}

	// WHEN the whole range is a weekend
	got, err := dist.Distribute(mds(10), date("2025-06-07"), date("2025-06-08"))

	// THEN nothing is silently dropped: the caller gets an explicit error
	assert.Nil(t, got)
	assert.ErrorIs(t, err, schedule.ErrEmptyWorkingDaySpan)
}

func TestDistribute_MonthWithoutOverlapOmitted(t *testing.T) {
	// GIVEN a range whose June part is weekend only
	dist := schedule.Distributor{Calendar: schedule.NewCalendar(nil), Country: "DE"}

	got, err := dist.Distribute(mds(5), date("2025-05-28"), date("2025-06-01"))
	require.NoError(t, err)

	// May 28-30 are the only working days; June 1 is a Sunday.
	require.Len(t, got, 1)
	assert.True(t, got[month("2025-05")].Equal(mds(5)))
	_, ok := got[month("2025-06")]
	assert.False(t, ok, "zero-overlap month must not appear")
}

func TestDistribute_SingleMonthTakesEverything(t *testing.T) {
	dist := schedule.Distributor{Calendar: schedule.NewCalendar(nil), Country: "DE"}

	got, err := dist.Distribute(mds(12.5), date("2025-06-02"), date("2025-06-20"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[month("2025-06")].Equal(mds(12.5)))
}

func TestDistribute_NegativeAmountFlowsThrough(t *testing.T) {
	// Redistribution can hand a negative budget to the distributor; the
	// proportional rule applies unchanged.
	dist := schedule.Distributor{Calendar: schedule.NewCalendar(nil), Country: "DE"}

	got, err := dist.Distribute(mds(-8), date("2025-05-26"), date("2025-06-06"))
	require.NoError(t, err)
	assert.True(t, got[month("2025-05")].Equal(mds(-4)))
	assert.True(t, got[month("2025-06")].Equal(mds(-4)))
	assert.True(t, sumAllocations(got).Equal(mds(-8)))
}

func TestDistributeOver_SkipsLockedGapMonths(t *testing.T) {
	// GIVEN non-contiguous spans (February missing, as after a lock)
	dist := schedule.Distributor{Calendar: schedule.NewCalendar(nil), Country: "DE"}
	spans := []schedule.MonthSpan{
		{Month: month("2025-01"), Start: date("2025-01-01"), End: date("2025-01-31")},
		{Month: month("2025-03"), Start: date("2025-03-01"), End: date("2025-03-31")},
	}

	got, err := dist.DistributeOver(mds(10), spans)
	require.NoError(t, err)

	// Jan 23 wd, Mar 21 wd: round(10*23/44)=5, March absorbs 5.
	require.Len(t, got, 2)
	assert.True(t, got[month("2025-01")].Equal(mds(5)))
	assert.True(t, got[month("2025-03")].Equal(mds(5)))
}
