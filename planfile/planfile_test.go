package planfile_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/capacity-engine/planfile"
	"github.com/warp/capacity-engine/planner"
	"github.com/warp/capacity-engine/schedule"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(s string) schedule.Date    { return schedule.MustParseDate(s) }
func month(s string) schedule.Month  { return schedule.MustParseMonth(s) }
func mds(v float64) schedule.ManDays { return schedule.NewManDays(v) }
func percent(v int) decimal.Decimal  { return decimal.NewFromInt(int64(v)) }

func anna() planner.TeamMember {
	return planner.TeamMember{ID: "anna", Name: "Anna", Role: planner.RoleDeveloper, Country: "DE"}
}

// platformProject starts Monday May 19 2025. With no holidays the build
// phase runs May 29 to Jun 27, splitting the developer's 22 MDs into
// 2 (May) and 20 (June).
func platformProject() planner.Project {
	return planner.Project{
		ID:      "platform",
		Name:    "Platform Rebuild",
		Start:   date("2025-05-19"),
		Country: "DE",
		Phases: []schedule.Phase{
			{ID: "concept", Name: "Concept", TotalMDs: mds(8), Order: 1,
				Effort: map[schedule.Role]decimal.Decimal{planner.RolePM: percent(50)}},
			{ID: "build", Name: "Build", TotalMDs: mds(22), Order: 2,
				Effort: map[schedule.Role]decimal.Decimal{planner.RoleDeveloper: percent(100)}},
		},
	}
}

func calendar() *schedule.Calendar { return schedule.NewCalendar(nil) }

// overriddenSession plans Anna on the platform project and pins May to
// 6 MDs, reflowing June to 16.
func overriddenSession(t *testing.T) *planner.Assignment {
	t.Helper()
	p := planner.New(calendar(), "DE")
	a, err := p.Plan("a1", anna(), platformProject(), planner.RoleDeveloper)
	require.NoError(t, err)
	require.NoError(t, p.Override(a, "DE", month("2025-05"), mds(6)))
	a.Seq = 3
	return a
}

// =============================================================================
// ROUND TRIP
// =============================================================================

func TestRoundTrip_OverriddenPlanSurvivesSaveAndLoad(t *testing.T) {
	// GIVEN: A session with a pinned May cell (6 locked, June reflowed to 16)
	// WHEN: Exporting to a document, encoding, parsing and loading again
	// THEN: The loaded assignment reproduces the session cell for cell

	live := overriddenSession(t)
	doc := planfile.FromDomain([]planner.TeamMember{anna()}, []planner.Project{platformProject()}, []*planner.Assignment{live})

	data, err := doc.Encode()
	require.NoError(t, err)

	parsed, err := planfile.Parse(data)
	require.NoError(t, err)

	plan, issues, err := planfile.ToDomain(parsed, calendar())
	require.NoError(t, err)
	assert.Empty(t, issues)

	require.Len(t, plan.Members, 1)
	assert.Equal(t, anna(), plan.Members[0])
	require.Len(t, plan.Projects, 1)
	assert.Equal(t, schedule.ProjectID("platform"), plan.Projects[0].ID)
	require.Len(t, plan.Projects[0].Phases, 2)

	require.Len(t, plan.Assignments, 1)
	loaded := plan.Assignments[0]
	assert.Equal(t, schedule.AssignmentID("a1"), loaded.ID)
	assert.Equal(t, int64(3), loaded.Seq)
	assert.Equal(t, planner.RoleDeveloper, loaded.Role)
	assert.True(t, loaded.TotalMDs.Equal(mds(22)))

	require.Len(t, loaded.Schedule, 2)
	assert.Equal(t, date("2025-05-19"), loaded.Schedule[0].Start)
	assert.Equal(t, date("2025-06-27"), loaded.Schedule[1].End)

	set := loaded.Allocations
	require.NotNil(t, set)
	assert.True(t, set.Planned(month("2025-05")).Equal(mds(6)), "pinned May should reload as 6, got %s", set.Planned(month("2025-05")))
	assert.True(t, set.IsLocked(month("2025-05")))
	assert.True(t, set.Planned(month("2025-06")).Equal(mds(16)), "reflowed June should reload as 16, got %s", set.Planned(month("2025-06")))
	assert.False(t, set.IsLocked(month("2025-06")))

	// The per-phase baseline stays the pre-override distribution.
	require.Len(t, loaded.Detail[month("2025-05")], 1)
	assert.True(t, loaded.Detail[month("2025-05")][0].MDs.Equal(mds(2)))
	require.Len(t, loaded.Detail[month("2025-06")], 1)
	assert.True(t, loaded.Detail[month("2025-06")][0].MDs.Equal(mds(20)))
}

func TestFromDomain_SeparatesBaselineAndOverrides(t *testing.T) {
	// GIVEN: A session with May pinned to 6
	// WHEN: Exporting
	// THEN: manualOverrides carries the pin while calculatedAllocation keeps
	//       the computed 2/20 split

	live := overriddenSession(t)
	doc := planfile.FromDomain(nil, nil, []*planner.Assignment{live})

	require.Len(t, doc.ManualAssignments, 1)
	aj := doc.ManualAssignments[0]

	assert.Equal(t, map[string]float64{"2025-05": 6}, aj.ManualOverrides)

	mayShares := aj.CalculatedAllocation["2025-05"]
	require.Len(t, mayShares, 1)
	assert.Equal(t, "build", mayShares[0].PhaseID)
	assert.Equal(t, 2.0, mayShares[0].AllocatedMDs)

	juneShares := aj.CalculatedAllocation["2025-06"]
	require.Len(t, juneShares, 1)
	assert.Equal(t, 20.0, juneShares[0].AllocatedMDs)
}

// =============================================================================
// PARSE VALIDATION
// =============================================================================

func TestParse_RejectsBrokenDocuments(t *testing.T) {
	// GIVEN: Documents with broken JSON or missing identifiers
	// WHEN: Parsing
	// THEN: Each is rejected with a pointed error

	cases := []struct {
		name string
		data string
		want string
	}{
		{"malformed JSON", `{"teamMembers": [`, "failed to parse plan document"},
		{"member without id", `{"teamMembers": [{"name": "Anna"}]}`, "teamMembers[0]: missing id"},
		{"phase without id", `{"projects": [{"id": "p", "phases": [{"name": "Build"}]}]}`, "phases[0]: missing id"},
		{"assignment without refs", `{"manualAssignments": [{"id": "a1"}]}`, "missing teamMemberId or projectId"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := planfile.Parse([]byte(tc.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestToDomain_RejectsMalformedDatesAndMonths(t *testing.T) {
	// GIVEN: Documents with unparseable dates or month keys
	// WHEN: Converting
	// THEN: Conversion fails outright instead of guessing

	badStart := &planfile.Document{
		Projects: []planfile.ProjectJSON{{ID: "p", StartDate: "not-a-date"}},
	}
	_, _, err := planfile.ToDomain(badStart, calendar())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad startDate")

	badOverride := &planfile.Document{
		ManualAssignments: []planfile.AssignmentJSON{{
			ID: "a1", TeamMemberID: "anna", ProjectID: "p",
			ManualOverrides: map[string]float64{"junk": 1},
		}},
	}
	_, _, err = planfile.ToDomain(badOverride, calendar())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad override month")
}

// =============================================================================
// ISSUE REPORTING
// =============================================================================

func TestToDomain_ReportsDanglingReferences(t *testing.T) {
	// GIVEN: An assignment pointing at a member and project the document
	//        does not contain
	// WHEN: Converting
	// THEN: The assignment loads anyway and both references are flagged

	doc := &planfile.Document{
		ManualAssignments: []planfile.AssignmentJSON{{
			ID: "ghost", TeamMemberID: "nobody", ProjectID: "nothing",
			PhaseSchedule: []planfile.ScheduleEntryJSON{
				{PhaseID: "p", PhaseName: "Phase", StartDate: "2025-06-02", EndDate: "2025-06-06", EstimatedMDs: 5},
			},
			CalculatedAllocation: map[string][]planfile.PhaseShareJSON{
				"2025-06": {{PhaseID: "p", AllocatedMDs: 5}},
			},
		}},
	}

	plan, issues, err := planfile.ToDomain(doc, calendar())
	require.NoError(t, err)

	require.Len(t, plan.Assignments, 1)
	assert.True(t, plan.Assignments[0].TotalMDs.Equal(mds(5)), "total should fall back to the schedule sum")
	assert.True(t, plan.Assignments[0].Allocations.Planned(month("2025-06")).Equal(mds(5)))

	codes := make([]string, 0, len(issues))
	for _, i := range issues {
		codes = append(codes, i.Code)
	}
	assert.Contains(t, codes, "dangling-member")
	assert.Contains(t, codes, "dangling-project")
}

func TestToDomain_OverrideOutsideScheduleBecomesIssue(t *testing.T) {
	// GIVEN: A saved plan whose override month no longer exists in the
	//        schedule (the project was rescheduled around it)
	// WHEN: Converting
	// THEN: The baseline loads untouched and the stale pin is reported

	live := overriddenSession(t)
	doc := planfile.FromDomain([]planner.TeamMember{anna()}, []planner.Project{platformProject()}, []*planner.Assignment{live})
	doc.ManualAssignments[0].ManualOverrides = map[string]float64{"2025-12": 3}

	plan, issues, err := planfile.ToDomain(doc, calendar())
	require.NoError(t, err)

	set := plan.Assignments[0].Allocations
	assert.True(t, set.Planned(month("2025-05")).Equal(mds(2)), "baseline May survives, got %s", set.Planned(month("2025-05")))
	assert.True(t, set.Planned(month("2025-06")).Equal(mds(20)))
	assert.False(t, set.IsLocked(month("2025-05")))

	require.Len(t, issues, 1)
	assert.Equal(t, "override-dropped", issues[0].Code)
	assert.Equal(t, planner.SeverityWarning, issues[0].Severity)
}

func TestToDomain_RemainderOnReplayIsAdvisory(t *testing.T) {
	// GIVEN: A saved pin on the final month that leaves budget unplaced
	// WHEN: Converting
	// THEN: The pin takes effect and the leftover is a warning, mirroring
	//       the live override path

	live := overriddenSession(t)
	doc := planfile.FromDomain([]planner.TeamMember{anna()}, []planner.Project{platformProject()}, []*planner.Assignment{live})
	doc.ManualAssignments[0].ManualOverrides = map[string]float64{"2025-06": 12}

	plan, issues, err := planfile.ToDomain(doc, calendar())
	require.NoError(t, err)

	set := plan.Assignments[0].Allocations
	assert.True(t, set.Planned(month("2025-06")).Equal(mds(12)))
	assert.True(t, set.IsLocked(month("2025-06")))

	codes := make([]string, 0, len(issues))
	for _, i := range issues {
		codes = append(codes, i.Code)
	}
	assert.Contains(t, codes, "override-remainder")
	assert.Contains(t, codes, "drifted-total", "the structural check should notice the unplaced budget")
}

// =============================================================================
// ENCODING
// =============================================================================

func TestEncode_ProducesStableDocumentShape(t *testing.T) {
	// GIVEN: An exported plan
	// WHEN: Encoding
	// THEN: The JSON carries the document's top-level sections and the
	//       camelCase field names the host expects

	live := overriddenSession(t)
	doc := planfile.FromDomain([]planner.TeamMember{anna()}, []planner.Project{platformProject()}, []*planner.Assignment{live})

	data, err := doc.Encode()
	require.NoError(t, err)

	text := string(data)
	for _, key := range []string{
		`"teamMembers"`, `"projects"`, `"manualAssignments"`,
		`"phaseSchedule"`, `"calculatedAllocation"`, `"manualOverrides"`,
		`"teamMemberId"`, `"estimatedMDs"`, `"startDate"`,
	} {
		assert.Contains(t, text, key)
	}
}
