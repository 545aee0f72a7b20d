/*
handlers_test.go - Unit tests for API handlers

Tests run against the real router with a sqlite :memory: store, so they
cover routing, JSON shapes, and the handler/planner/store interplay:
- Member CRUD and the capacity/overflow views
- Assignment planning, overrides, previews
- Project replace-and-replan
- Plan export/import round trip
- Holiday management
- Manual recompute and audit history
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/warp/capacity-engine/holiday"
	"github.com/warp/capacity-engine/planner"
	"github.com/warp/capacity-engine/schedule"
	"github.com/warp/capacity-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func setupTestHandler(t *testing.T) *Handler {
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	provider := holiday.Defaults()
	return NewHandler(store, planner.New(schedule.NewCalendar(provider), "DE"), provider)
}

func setupTestRouter(t *testing.T) (*Handler, http.Handler) {
	h := setupTestHandler(t)
	return h, NewRouter(h, "")
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("Failed to decode response: %v (body: %s)", err, rec.Body.String())
	}
}

// createFixtureMember creates developer "m1" in Germany via the API.
func createFixtureMember(t *testing.T, router http.Handler) {
	t.Helper()
	rec := doJSON(t, router, "POST", "/api/members", CreateMemberRequest{
		ID: "m1", Name: "Mara Klein", Role: "developer", Country: "DE",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Failed to create member: %d %s", rec.Code, rec.Body.String())
	}
}

// createFixtureProject creates "p1": a single 30 MD build phase starting
// Monday 2026-05-04 on the German calendar. May 2026 has 18 working days
// in DE (21 weekdays minus May 1, Ascension, Whit Monday), so the phase
// runs 18 days in May and 12 in June.
func createFixtureProject(t *testing.T, router http.Handler) {
	t.Helper()
	rec := doJSON(t, router, "POST", "/api/projects", SaveProjectRequest{
		ID: "p1", Name: "Orion Rollout", StartDate: "2026-05-04", Country: "DE",
		Phases: []PhaseDTO{
			{ID: "build", Name: "Build", ManDays: 30, Order: 1, Effort: map[string]float64{"developer": 100}},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Failed to create project: %d %s", rec.Code, rec.Body.String())
	}
}

func createFixtureAssignment(t *testing.T, router http.Handler) AssignmentDTO {
	t.Helper()
	rec := doJSON(t, router, "POST", "/api/assignments", CreateAssignmentRequest{
		ID: "a1", TeamMemberID: "m1", ProjectID: "p1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Failed to create assignment: %d %s", rec.Code, rec.Body.String())
	}
	var dto AssignmentDTO
	decodeBody(t, rec, &dto)
	return dto
}

func cellFor(dto AssignmentDTO, month string) (AllocationCellDTO, bool) {
	for _, c := range dto.Allocation {
		if c.Month == month {
			return c, true
		}
	}
	return AllocationCellDTO{}, false
}

// =============================================================================
// MEMBER TESTS
// =============================================================================

func TestCreateMember_GeneratesID(t *testing.T) {
	// GIVEN: A create request without an ID
	// WHEN: Posting it
	// THEN: The member is created with a server-generated ID

	_, router := setupTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/members", CreateMemberRequest{Name: "No ID"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var dto MemberDTO
	decodeBody(t, rec, &dto)
	if dto.ID == "" {
		t.Error("Expected a generated ID, got empty string")
	}
	if dto.Name != "No ID" {
		t.Errorf("Expected name 'No ID', got '%s'", dto.Name)
	}
}

func TestCreateMember_RequiresName(t *testing.T) {
	_, router := setupTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/members", CreateMemberRequest{ID: "nameless"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing name, got %d", rec.Code)
	}
}

func TestGetMember_NotFound(t *testing.T) {
	_, router := setupTestRouter(t)

	rec := doJSON(t, router, "GET", "/api/members/ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown member, got %d", rec.Code)
	}
}

func TestDeleteMember_CascadesToAssignments(t *testing.T) {
	// GIVEN: A member with a planned assignment
	// WHEN: Deleting the member
	// THEN: The assignment is gone and the booked capacity is released

	h, router := setupTestRouter(t)
	createFixtureMember(t, router)
	createFixtureProject(t, router)
	createFixtureAssignment(t, router)

	rec := doJSON(t, router, "DELETE", "/api/members/m1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, "GET", "/api/assignments/a1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for assignment after member delete, got %d", rec.Code)
	}

	if booked := h.Planner.Ledger.MonthsBooked("m1"); len(booked) != 0 {
		t.Errorf("Expected no booked months after delete, got %v", booked)
	}
}

// =============================================================================
// CAPACITY AND OVERFLOW TESTS
// =============================================================================

func TestMemberCapacity_ShowsBookedMonths(t *testing.T) {
	// GIVEN: m1 assigned to p1 (30 MDs: 18 in May, 12 in June 2026)
	// WHEN: Fetching the capacity table without a window
	// THEN: The booked months appear with the right load

	_, router := setupTestRouter(t)
	createFixtureMember(t, router)
	createFixtureProject(t, router)
	createFixtureAssignment(t, router)

	rec := doJSON(t, router, "GET", "/api/members/m1/capacity", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var rows []CapacityRowDTO
	decodeBody(t, rec, &rows)
	if len(rows) != 2 {
		t.Fatalf("Expected 2 booked months, got %d: %+v", len(rows), rows)
	}
	may := rows[0]
	if may.Month != "2026-05" {
		t.Errorf("Expected first row 2026-05, got %s", may.Month)
	}
	if may.Capacity != 18 {
		t.Errorf("Expected May capacity 18 (DE), got %v", may.Capacity)
	}
	if may.Allocated != 18 {
		t.Errorf("Expected May allocated 18, got %v", may.Allocated)
	}
	if may.Available != 0 {
		t.Errorf("Expected May available 0, got %v", may.Available)
	}
	if may.Overbooked {
		t.Error("May should not be overbooked")
	}
	if rows[1].Month != "2026-06" || rows[1].Allocated != 12 {
		t.Errorf("Expected June allocated 12, got %+v", rows[1])
	}
}

func TestMemberCapacity_ExplicitWindow(t *testing.T) {
	_, router := setupTestRouter(t)
	createFixtureMember(t, router)

	// A window over unbooked months still reports full capacity
	rec := doJSON(t, router, "GET", "/api/members/m1/capacity?from=2026-05&to=2026-06", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var rows []CapacityRowDTO
	decodeBody(t, rec, &rows)
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows for a 2-month window, got %d", len(rows))
	}
	if rows[0].Allocated != 0 || rows[0].Capacity != 18 {
		t.Errorf("Expected empty May with capacity 18, got %+v", rows[0])
	}

	// Malformed and inverted windows are rejected
	rec = doJSON(t, router, "GET", "/api/members/m1/capacity?from=May&to=2026-06", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed month, got %d", rec.Code)
	}
	rec = doJSON(t, router, "GET", "/api/members/m1/capacity?from=2026-06&to=2026-05", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for inverted window, got %d", rec.Code)
	}
	rec = doJSON(t, router, "GET", "/api/members/m1/capacity?from=2026-05", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for from without to, got %d", rec.Code)
	}
}

func TestMemberOverflow_ReportsOverbookedMonths(t *testing.T) {
	// GIVEN: Two 100%-developer projects overlapping in May/June 2026
	// WHEN: Both are assigned to the same member
	// THEN: The overflow feed lists the overbooked months

	_, router := setupTestRouter(t)
	createFixtureMember(t, router)
	createFixtureProject(t, router)
	createFixtureAssignment(t, router)

	rec := doJSON(t, router, "POST", "/api/projects", SaveProjectRequest{
		ID: "p2", Name: "Second Rollout", StartDate: "2026-05-04", Country: "DE",
		Phases: []PhaseDTO{
			{ID: "build2", Name: "Build", ManDays: 30, Order: 1, Effort: map[string]float64{"developer": 100}},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Failed to create second project: %d", rec.Code)
	}
	rec = doJSON(t, router, "POST", "/api/assignments", CreateAssignmentRequest{
		ID: "a2", TeamMemberID: "m1", ProjectID: "p2",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Failed to create second assignment: %d", rec.Code)
	}

	rec = doJSON(t, router, "GET", "/api/members/m1/overflow", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var entries []OverflowEntryDTO
	decodeBody(t, rec, &entries)
	if len(entries) != 2 {
		t.Fatalf("Expected overflow in May and June, got %+v", entries)
	}
	// Both assignments book 18 MDs into an 18-day May and 12 into a
	// 22-day June: May overflows by 18, June by 2.
	if entries[0].Month != "2026-05" || entries[0].Overflow != 18 {
		t.Errorf("Expected May overflow 18, got %+v", entries[0])
	}
	if entries[1].Month != "2026-06" || entries[1].Overflow != 2 {
		t.Errorf("Expected June overflow 2, got %+v", entries[1])
	}
}

// =============================================================================
// ASSIGNMENT TESTS
// =============================================================================

func TestCreateAssignment_PlansAndBooks(t *testing.T) {
	// GIVEN: A member and a project
	// WHEN: Creating an assignment
	// THEN: The response carries the computed schedule and month map

	_, router := setupTestRouter(t)
	createFixtureMember(t, router)
	createFixtureProject(t, router)
	dto := createFixtureAssignment(t, router)

	if dto.TotalMDs != 30 {
		t.Errorf("Expected total 30 MDs, got %v", dto.TotalMDs)
	}
	if dto.Role != "developer" {
		t.Errorf("Expected role defaulted to 'developer', got '%s'", dto.Role)
	}
	if dto.Seq == 0 {
		t.Error("Expected a Seq from the store, got 0")
	}
	if len(dto.Schedule) != 1 {
		t.Fatalf("Expected 1 schedule slot, got %d", len(dto.Schedule))
	}
	if dto.Schedule[0].StartDate != "2026-05-04" {
		t.Errorf("Expected phase start 2026-05-04, got %s", dto.Schedule[0].StartDate)
	}

	may, ok := cellFor(dto, "2026-05")
	if !ok || may.PlannedMDs != 18 {
		t.Errorf("Expected May cell 18, got %+v", may)
	}
	june, ok := cellFor(dto, "2026-06")
	if !ok || june.PlannedMDs != 12 {
		t.Errorf("Expected June cell 12, got %+v", june)
	}
	if may.Locked || june.Locked {
		t.Error("Fresh cells must not be locked")
	}
}

func TestCreateAssignment_UnknownRefs(t *testing.T) {
	_, router := setupTestRouter(t)
	createFixtureMember(t, router)

	rec := doJSON(t, router, "POST", "/api/assignments", CreateAssignmentRequest{
		TeamMemberID: "m1", ProjectID: "ghost",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown project, got %d", rec.Code)
	}

	rec = doJSON(t, router, "POST", "/api/assignments", CreateAssignmentRequest{ProjectID: "p1"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing member ref, got %d", rec.Code)
	}
}

func TestDeleteAssignment_ReleasesCapacity(t *testing.T) {
	h, router := setupTestRouter(t)
	createFixtureMember(t, router)
	createFixtureProject(t, router)
	createFixtureAssignment(t, router)

	rec := doJSON(t, router, "DELETE", "/api/assignments/a1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	if booked := h.Planner.Ledger.MonthsBooked("m1"); len(booked) != 0 {
		t.Errorf("Expected no booked months after unassign, got %v", booked)
	}
	rec = doJSON(t, router, "GET", "/api/assignments/a1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", rec.Code)
	}
}

// =============================================================================
// OVERRIDE TESTS
// =============================================================================

func TestApplyOverride_PinsAndReflowsForward(t *testing.T) {
	// GIVEN: a1 with May=18, June=12
	// WHEN: Pinning May to 10
	// THEN: May is locked at 10 and June absorbs the remaining 20

	_, router := setupTestRouter(t)
	createFixtureMember(t, router)
	createFixtureProject(t, router)
	createFixtureAssignment(t, router)

	rec := doJSON(t, router, "POST", "/api/assignments/a1/override", OverrideRequest{
		Month: "2026-05", PlannedMDs: 10,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp OverrideResponse
	decodeBody(t, rec, &resp)
	if resp.Warning != "" {
		t.Errorf("Expected no warning, got '%s'", resp.Warning)
	}
	may, _ := cellFor(resp.Assignment, "2026-05")
	if may.PlannedMDs != 10 || !may.Locked {
		t.Errorf("Expected May locked at 10, got %+v", may)
	}
	june, _ := cellFor(resp.Assignment, "2026-06")
	if june.PlannedMDs != 20 || june.Locked {
		t.Errorf("Expected June recomputed to 20, got %+v", june)
	}

	// The edit survives a reload from the store
	rec = doJSON(t, router, "GET", "/api/assignments/a1/allocation", nil)
	var alloc AllocationResponse
	decodeBody(t, rec, &alloc)
	for _, cell := range alloc.Allocation {
		if cell.Month == "2026-05" && (!cell.Locked || cell.PlannedMDs != 10) {
			t.Errorf("Persisted May cell wrong: %+v", cell)
		}
	}
}

func TestApplyOverride_WarnsWhenRemainderStranded(t *testing.T) {
	// GIVEN: A single-month assignment (5 MDs, all in June 2026)
	// WHEN: Pinning that month below the total
	// THEN: 200 with a warning; the pin is kept even though 3 MDs have
	//       nowhere to go

	_, router := setupTestRouter(t)
	createFixtureMember(t, router)
	rec := doJSON(t, router, "POST", "/api/projects", SaveProjectRequest{
		ID: "tiny", Name: "Tiny", StartDate: "2026-06-01", Country: "DE",
		Phases: []PhaseDTO{
			{ID: "sprint", Name: "Sprint", ManDays: 5, Order: 1, Effort: map[string]float64{"developer": 100}},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Failed to create project: %d", rec.Code)
	}
	rec = doJSON(t, router, "POST", "/api/assignments", CreateAssignmentRequest{
		ID: "a-tiny", TeamMemberID: "m1", ProjectID: "tiny",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Failed to create assignment: %d", rec.Code)
	}

	rec = doJSON(t, router, "POST", "/api/assignments/a-tiny/override", OverrideRequest{
		Month: "2026-06", PlannedMDs: 2,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 despite stranded remainder, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp OverrideResponse
	decodeBody(t, rec, &resp)
	if resp.Warning == "" {
		t.Error("Expected a warning about the unallocatable remainder")
	}
	june, _ := cellFor(resp.Assignment, "2026-06")
	if june.PlannedMDs != 2 || !june.Locked {
		t.Errorf("Expected June pinned at 2 regardless of warning, got %+v", june)
	}
}

func TestApplyOverride_UnknownMonth(t *testing.T) {
	_, router := setupTestRouter(t)
	createFixtureMember(t, router)
	createFixtureProject(t, router)
	createFixtureAssignment(t, router)

	rec := doJSON(t, router, "POST", "/api/assignments/a1/override", OverrideRequest{
		Month: "2027-01", PlannedMDs: 5,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a month outside the assignment, got %d", rec.Code)
	}

	rec = doJSON(t, router, "POST", "/api/assignments/a1/override", OverrideRequest{
		Month: "May 2026", PlannedMDs: 5,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed month, got %d", rec.Code)
	}
}

func TestResetOverride_RestoresComputedValues(t *testing.T) {
	// GIVEN: a1 with May pinned to 10 (June reflowed to 20)
	// WHEN: Resetting the May override
	// THEN: The original 18/12 distribution comes back, nothing locked

	_, router := setupTestRouter(t)
	createFixtureMember(t, router)
	createFixtureProject(t, router)
	createFixtureAssignment(t, router)

	rec := doJSON(t, router, "POST", "/api/assignments/a1/override", OverrideRequest{
		Month: "2026-05", PlannedMDs: 10,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Override failed: %d", rec.Code)
	}

	rec = doJSON(t, router, "POST", "/api/assignments/a1/override/reset", ResetOverrideRequest{Month: "2026-05"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp OverrideResponse
	decodeBody(t, rec, &resp)
	may, _ := cellFor(resp.Assignment, "2026-05")
	june, _ := cellFor(resp.Assignment, "2026-06")
	if may.PlannedMDs != 18 || may.Locked {
		t.Errorf("Expected May back at computed 18, got %+v", may)
	}
	if june.PlannedMDs != 12 || june.Locked {
		t.Errorf("Expected June back at computed 12, got %+v", june)
	}
}

// =============================================================================
// PREVIEW TESTS
// =============================================================================

func TestPreviewAssignment_ProjectsWithoutBooking(t *testing.T) {
	// GIVEN: A member and a project, nothing assigned
	// WHEN: Requesting a preview
	// THEN: The projection shows the would-be load but the ledger stays empty

	h, router := setupTestRouter(t)
	createFixtureMember(t, router)
	createFixtureProject(t, router)

	rec := doJSON(t, router, "POST", "/api/assignments/preview", PreviewRequest{
		TeamMemberID: "m1", ProjectID: "p1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp PreviewResponse
	decodeBody(t, rec, &resp)
	if resp.TotalMDs != 30 {
		t.Errorf("Expected total 30, got %v", resp.TotalMDs)
	}
	if len(resp.Projection) != 2 {
		t.Fatalf("Expected 2 projection rows, got %d", len(resp.Projection))
	}
	may := resp.Projection[0]
	if may.Month != "2026-05" || may.Proposed != 18 || may.Projected != 18 || may.Overflow != 0 {
		t.Errorf("Unexpected May projection: %+v", may)
	}

	if booked := h.Planner.Ledger.MonthsBooked("m1"); len(booked) != 0 {
		t.Errorf("Preview must not book capacity, got months %v", booked)
	}
}

// =============================================================================
// PROJECT TESTS
// =============================================================================

func TestUpdateProject_ReplansAssignments(t *testing.T) {
	// GIVEN: a1 planned for the 30 MD version of p1
	// WHEN: Replacing p1 with a 40 MD build
	// THEN: The assignment is replanned against the new size

	_, router := setupTestRouter(t)
	createFixtureMember(t, router)
	createFixtureProject(t, router)
	createFixtureAssignment(t, router)

	rec := doJSON(t, router, "PUT", "/api/projects/p1", SaveProjectRequest{
		Name: "Orion Rollout", StartDate: "2026-05-04", Country: "DE",
		Phases: []PhaseDTO{
			{ID: "build", Name: "Build", ManDays: 40, Order: 1, Effort: map[string]float64{"developer": 100}},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp ReplanResponse
	decodeBody(t, rec, &resp)
	if resp.Replanned != 1 {
		t.Errorf("Expected 1 replanned assignment, got %d", resp.Replanned)
	}
	if resp.Project.TotalMDs != 40 {
		t.Errorf("Expected project total 40, got %v", resp.Project.TotalMDs)
	}

	rec = doJSON(t, router, "GET", "/api/assignments/a1", nil)
	var dto AssignmentDTO
	decodeBody(t, rec, &dto)
	if dto.TotalMDs != 40 {
		t.Errorf("Expected assignment replanned to 40 MDs, got %v", dto.TotalMDs)
	}
}

func TestUpdateProject_RejectsRemovingStartWhileAssigned(t *testing.T) {
	_, router := setupTestRouter(t)
	createFixtureMember(t, router)
	createFixtureProject(t, router)
	createFixtureAssignment(t, router)

	rec := doJSON(t, router, "PUT", "/api/projects/p1", SaveProjectRequest{
		Name: "Orion Rollout", Country: "DE",
		Phases: []PhaseDTO{
			{ID: "build", Name: "Build", ManDays: 40, Order: 1},
		},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 when dropping the start date under assignments, got %d", rec.Code)
	}
}

func TestDeleteProject_CascadesToAssignments(t *testing.T) {
	h, router := setupTestRouter(t)
	createFixtureMember(t, router)
	createFixtureProject(t, router)
	createFixtureAssignment(t, router)

	rec := doJSON(t, router, "DELETE", "/api/projects/p1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	rec = doJSON(t, router, "GET", "/api/assignments/a1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected assignment gone after project delete, got %d", rec.Code)
	}
	if booked := h.Planner.Ledger.MonthsBooked("m1"); len(booked) != 0 {
		t.Errorf("Expected capacity released, got booked months %v", booked)
	}
}

func TestGetProjectTimeline_RoleFilter(t *testing.T) {
	// GIVEN: A project whose build phase splits 80/20 developer/designer
	// WHEN: Fetching the timeline filtered to designer
	// THEN: The dates stay the same but the MDs are the designer share

	_, router := setupTestRouter(t)
	rec := doJSON(t, router, "POST", "/api/projects", SaveProjectRequest{
		ID: "split", Name: "Split", StartDate: "2026-05-04", Country: "DE",
		Phases: []PhaseDTO{
			{ID: "build", Name: "Build", ManDays: 30, Order: 1,
				Effort: map[string]float64{"developer": 80, "designer": 20}},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Failed to create project: %d", rec.Code)
	}

	rec = doJSON(t, router, "GET", "/api/projects/split/timeline", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var full TimelineResponse
	decodeBody(t, rec, &full)
	if full.TotalMDs != 30 {
		t.Errorf("Expected full timeline total 30, got %v", full.TotalMDs)
	}

	rec = doJSON(t, router, "GET", "/api/projects/split/timeline?role=designer", nil)
	var filtered TimelineResponse
	decodeBody(t, rec, &filtered)
	if filtered.TotalMDs != 6 {
		t.Errorf("Expected designer share 6 (20%% of 30), got %v", filtered.TotalMDs)
	}
	if len(filtered.Schedule) != 1 ||
		filtered.Schedule[0].StartDate != full.Schedule[0].StartDate ||
		filtered.Schedule[0].EndDate != full.Schedule[0].EndDate {
		t.Error("Role filter must not change phase dates")
	}
}

// =============================================================================
// PLAN EXPORT/IMPORT TESTS
// =============================================================================

func TestPlanExportImport_RoundTrip(t *testing.T) {
	// GIVEN: A populated plan
	// WHEN: Exporting and re-importing the document
	// THEN: The same entities come back and the ledger is rebuilt

	h, router := setupTestRouter(t)
	createFixtureMember(t, router)
	createFixtureProject(t, router)
	createFixtureAssignment(t, router)

	rec := doJSON(t, router, "GET", "/api/plan", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Export failed: %d", rec.Code)
	}
	doc := rec.Body.Bytes()

	req := httptest.NewRequest("POST", "/api/plan", bytes.NewReader(doc))
	req.Header.Set("Content-Type", "application/json")
	importRec := httptest.NewRecorder()
	router.ServeHTTP(importRec, req)
	if importRec.Code != http.StatusOK {
		t.Fatalf("Import failed: %d %s", importRec.Code, importRec.Body.String())
	}

	var resp ImportResponse
	decodeBody(t, importRec, &resp)
	if resp.Members != 1 || resp.Projects != 1 || resp.Assignments != 1 {
		t.Errorf("Expected 1/1/1 imported, got %+v", resp)
	}
	if len(resp.Issues) != 0 {
		t.Errorf("Expected a clean import, got issues: %+v", resp.Issues)
	}

	// The rebuilt ledger has the same bookings
	may := schedule.MustParseMonth("2026-05")
	if got := h.Planner.Ledger.Allocated("m1", may); !got.Equal(schedule.ManDaysFromInt(18)) {
		t.Errorf("Expected May allocation 18 after import, got %s", got)
	}
}

func TestImportPlan_RejectsGarbage(t *testing.T) {
	_, router := setupTestRouter(t)

	req := httptest.NewRequest("POST", "/api/plan", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unparseable document, got %d", rec.Code)
	}
}

// =============================================================================
// HOLIDAY TESTS
// =============================================================================

func TestHolidays_CreateListDelete(t *testing.T) {
	// GIVEN: A company-specific closure day
	// WHEN: Creating, listing, and deleting it
	// THEN: The calendar and the store stay in sync

	h, router := setupTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/holidays", CreateHolidayRequest{
		Country: "DE", Date: "2026-08-10", Name: "Works Outing",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created HolidayDTO
	decodeBody(t, rec, &created)
	if created.ID != "de-2026-08-10" {
		t.Errorf("Expected derived ID de-2026-08-10, got %s", created.ID)
	}

	// The calendar now treats the date as non-working
	if h.Planner.Calendar.IsWorkingDay(schedule.MustParseDate("2026-08-10"), "DE") {
		t.Error("2026-08-10 should not be a working day after the edit")
	}

	rec = doJSON(t, router, "GET", "/api/holidays?country=DE&year=2026", nil)
	var listed []HolidayDTO
	decodeBody(t, rec, &listed)
	found := false
	for _, hol := range listed {
		if hol.ID == "de-2026-08-10" {
			found = true
		}
	}
	if !found {
		t.Error("Created holiday missing from the DE 2026 list")
	}

	rec = doJSON(t, router, "DELETE", "/api/holidays/de-2026-08-10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !h.Planner.Calendar.IsWorkingDay(schedule.MustParseDate("2026-08-10"), "DE") {
		t.Error("2026-08-10 should be a working day again after deletion")
	}
}

func TestHolidays_CreateValidation(t *testing.T) {
	_, router := setupTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/holidays", CreateHolidayRequest{Country: "DE", Name: "No Date"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing date, got %d", rec.Code)
	}
	rec = doJSON(t, router, "POST", "/api/holidays", CreateHolidayRequest{
		Country: "DE", Date: "08/10/2026", Name: "Bad Format",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad date format, got %d", rec.Code)
	}
}

func TestSeedDefaultHolidays_MaterializesTable(t *testing.T) {
	h, router := setupTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/holidays/defaults", SeedHolidaysRequest{
		Country: "US", FromYear: 2026, ToYear: 2026,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	decodeBody(t, rec, &resp)
	if count, _ := resp["count"].(float64); count == 0 {
		t.Error("Expected seeded holidays, got count 0")
	}

	stored, err := h.Store.AllHolidays(context.Background())
	if err != nil {
		t.Fatalf("Failed to read holidays: %v", err)
	}
	if len(stored) == 0 {
		t.Error("Expected stored holiday rows after seeding")
	}

	rec = doJSON(t, router, "POST", "/api/holidays/defaults", SeedHolidaysRequest{Country: "XX"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown country table, got %d", rec.Code)
	}
}

// =============================================================================
// AUDIT AND ADMIN TESTS
// =============================================================================

func TestRecompute_RecordsAuditRun(t *testing.T) {
	// GIVEN: A plan with one member and one assignment
	// WHEN: Forcing a recompute
	// THEN: An audit run with the counts lands in the history

	_, router := setupTestRouter(t)
	createFixtureMember(t, router)
	createFixtureProject(t, router)
	createFixtureAssignment(t, router)

	rec := doJSON(t, router, "POST", "/api/admin/recompute", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var run AuditRunDTO
	decodeBody(t, rec, &run)
	if run.Members != 1 || run.Assignments != 1 {
		t.Errorf("Expected counts 1/1, got %+v", run)
	}
	if run.OverflowCells != 0 {
		t.Errorf("Expected no overflow cells, got %d", run.OverflowCells)
	}
	if run.Note != "manual recompute" {
		t.Errorf("Expected note 'manual recompute', got '%s'", run.Note)
	}

	rec = doJSON(t, router, "GET", "/api/audit/runs", nil)
	var runs []AuditRunDTO
	decodeBody(t, rec, &runs)
	if len(runs) != 1 {
		t.Errorf("Expected 1 recorded run, got %d", len(runs))
	}
}
