package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/capacity-engine/planner"
	"github.com/warp/capacity-engine/planner/store"
	"github.com/warp/capacity-engine/schedule"
)

func date(s string) schedule.Date    { return schedule.MustParseDate(s) }
func month(s string) schedule.Month  { return schedule.MustParseMonth(s) }
func mds(v float64) schedule.ManDays { return schedule.NewManDays(v) }

func seededAssignment(id schedule.AssignmentID) *planner.Assignment {
	set := schedule.NewAllocationSet(id, mds(10), date("2025-06-02"), date("2025-06-27"))
	_ = set.SetComputed(month("2025-06"), mds(10))
	return &planner.Assignment{
		ID:          id,
		MemberID:    "anna",
		ProjectID:   "website",
		Role:        planner.RoleDeveloper,
		TotalMDs:    mds(10),
		Allocations: set,
	}
}

func TestMemory_MemberRoundTrip(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, s.SaveMember(ctx, planner.TeamMember{ID: "anna", Name: "Anna", Country: "DE"}))
	require.NoError(t, s.SaveMember(ctx, planner.TeamMember{ID: "bernd", Name: "Bernd", Country: "DE"}))

	m, err := s.Member(ctx, "anna")
	require.NoError(t, err)
	assert.Equal(t, "Anna", m.Name)

	all, err := s.Members(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, schedule.MemberID("anna"), all[0].ID, "sorted by ID")

	_, err = s.Member(ctx, "ghost")
	assert.ErrorIs(t, err, planner.ErrNotFound)

	require.NoError(t, s.DeleteMember(ctx, "anna"))
	assert.ErrorIs(t, s.DeleteMember(ctx, "anna"), planner.ErrNotFound)
}

func TestMemory_ProjectPhasesIsolated(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	project := planner.Project{
		ID: "website", Name: "Website", Start: date("2025-06-02"), Country: "DE",
		Phases: []schedule.Phase{{ID: "design", Name: "Design", TotalMDs: mds(5), Order: 1}},
	}
	require.NoError(t, s.SaveProject(ctx, project))

	// Mutating the loaded copy must not leak back into the store.
	loaded, err := s.Project(ctx, "website")
	require.NoError(t, err)
	loaded.Phases[0].Name = "Mutated"

	again, err := s.Project(ctx, "website")
	require.NoError(t, err)
	assert.Equal(t, "Design", again.Phases[0].Name)
}

func TestMemory_AssignmentSequenceAndOrdering(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	a := seededAssignment("a1")
	b := seededAssignment("b1")
	b.MemberID = "bernd"
	require.NoError(t, s.SaveAssignment(ctx, a))
	require.NoError(t, s.SaveAssignment(ctx, b))

	assert.Equal(t, int64(1), a.Seq)
	assert.Equal(t, int64(2), b.Seq)

	// Re-saving keeps the original sequence.
	a.TotalMDs = mds(12)
	require.NoError(t, s.SaveAssignment(ctx, a))
	assert.Equal(t, int64(1), a.Seq)

	all, err := s.Assignments(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, schedule.AssignmentID("a1"), all[0].ID, "Seq order")
	assert.True(t, all[0].TotalMDs.Equal(mds(12)), "upsert took effect")

	mine, err := s.AssignmentsByMember(ctx, "anna")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, schedule.AssignmentID("a1"), mine[0].ID)
}

func TestMemory_ImportedSequencePreserved(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	imported := seededAssignment("imported")
	imported.Seq = 7
	require.NoError(t, s.SaveAssignment(ctx, imported))

	fresh := seededAssignment("fresh")
	require.NoError(t, s.SaveAssignment(ctx, fresh))

	assert.Equal(t, int64(7), imported.Seq)
	assert.Equal(t, int64(8), fresh.Seq, "new sequence continues after the import")
}

func TestMemory_AssignmentClonedOnRead(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, s.SaveAssignment(ctx, seededAssignment("a1")))

	loaded, err := s.Assignment(ctx, "a1")
	require.NoError(t, err)
	require.NoError(t, loaded.Allocations.SetLocked(month("2025-06"), mds(3)))

	again, err := s.Assignment(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, again.Allocations.IsLocked(month("2025-06")), "stored copy untouched")
	assert.True(t, again.Allocations.Planned(month("2025-06")).Equal(mds(10)))
}

func TestMemory_HolidayFilters(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, s.SaveHoliday(ctx, schedule.Holiday{ID: "h1", Country: "DE", Date: date("2025-12-24"), Name: "Closure"}))
	require.NoError(t, s.SaveHoliday(ctx, schedule.Holiday{ID: "h2", Country: "DE", Date: date("2026-12-24"), Name: "Closure"}))
	require.NoError(t, s.SaveHoliday(ctx, schedule.Holiday{ID: "h3", Country: "US", Date: date("2025-11-28"), Name: "Day after Thanksgiving"}))

	de2025, err := s.Holidays(ctx, "DE", 2025)
	require.NoError(t, err)
	require.Len(t, de2025, 1)
	assert.Equal(t, "h1", de2025[0].ID)

	all, err := s.AllHolidays(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "h1", all[0].ID, "country then date order")

	require.NoError(t, s.DeleteHoliday(ctx, "h1"))
	assert.ErrorIs(t, s.DeleteHoliday(ctx, "h1"), planner.ErrNotFound)
}

func TestMemory_AuditRunsNewestFirstWithLimit(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	for i, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, s.RecordAuditRun(ctx, planner.AuditRun{
			ID: id, At: time.Date(2025, 6, 1+i, 0, 0, 0, 0, time.UTC),
		}))
	}

	runs, err := s.AuditRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r3", runs[0].ID)
	assert.Equal(t, "r2", runs[1].ID)
}

func TestMemory_ResetClearsEverythingAndRestartsSeq(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, s.SaveMember(ctx, planner.TeamMember{ID: "anna", Name: "Anna"}))
	require.NoError(t, s.SaveAssignment(ctx, seededAssignment("a1")))
	require.NoError(t, s.SaveAssignment(ctx, seededAssignment("a2")))
	require.NoError(t, s.RecordAuditRun(ctx, planner.AuditRun{ID: "r1", At: time.Now()}))

	require.NoError(t, s.Reset(ctx))

	members, err := s.Members(ctx)
	require.NoError(t, err)
	assert.Empty(t, members)
	runs, err := s.AuditRuns(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)

	// Seq restarts from 1 after a reset.
	fresh := seededAssignment("a3")
	require.NoError(t, s.SaveAssignment(ctx, fresh))
	got, err := s.Assignment(ctx, "a3")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Seq)
}
