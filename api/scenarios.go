/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates team members,
	projects, and assignments that demonstrate specific engine features.

AVAILABLE SCENARIOS:

	small-team:     Three members, two projects, normal load
	overbooked:     One developer on two overlapping projects (overflow)
	two-countries:  Identical projects planned under DE and US calendars

HOW SCENARIOS WORK:
 1. Reset database (clear all data) and the capacity ledger
 2. Create team members
 3. Create projects with phases and effort splits
 4. Plan assignments through the planner (so the ledger is booked)
 5. Optionally apply manual overrides

USAGE VIA API:

	POST /api/scenarios/load
	{"scenarioId": "overbooked"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo
	environments. All dates are fixed so the numbers in the UI stay
	reproducible.

SEE ALSO:
  - handlers.go: Shared handler plumbing
  - planner/planner.go: The planning operations the loaders call
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/capacity-engine/planner"
	"github.com/warp/capacity-engine/schedule"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "small-team",
		Name:        "Small Team",
		Description: "Three members across two projects, everyone within capacity",
	},
	{
		ID:          "overbooked",
		Name:        "Overbooked Developer",
		Description: "One developer on two overlapping projects, with overflow months",
	},
	{
		ID:          "two-countries",
		Name:        "Two Countries",
		Description: "The same project planned under German and US holiday calendars",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	// Find the scenario details
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	// Scenario ID exists but not in list (shouldn't happen)
	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenarioId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	h.mu.Lock()
	defer h.mu.Unlock()

	// Reset first
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.Planner.Rebuild(nil, nil)
	h.currentScenario = "" // Clear current scenario on reset

	var err error
	switch req.ScenarioID {
	case "small-team":
		err = h.loadSmallTeamScenario(ctx)
	case "overbooked":
		err = h.loadOverbookedScenario(ctx)
	case "two-countries":
		err = h.loadTwoCountriesScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	// Track the loaded scenario
	h.currentScenario = req.ScenarioID

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data and the capacity ledger.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.Planner.Rebuild(nil, nil)
	h.currentScenario = ""

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadSmallTeamScenario(ctx context.Context) error {
	members := []planner.TeamMember{
		{ID: "anna", Name: "Anna Berger", Role: planner.RolePM, Country: "DE"},
		{ID: "ben", Name: "Ben Fischer", Role: planner.RoleDeveloper, Country: "DE"},
		{ID: "clara", Name: "Clara Weber", Role: planner.RoleDesigner, Country: "DE"},
	}
	for _, m := range members {
		if err := h.seedMember(ctx, m); err != nil {
			return err
		}
	}

	// Atlas: a three-phase delivery starting in March
	atlas := planner.Project{
		ID:      "atlas",
		Name:    "Atlas Platform",
		Start:   schedule.NewDate(2026, time.March, 2),
		Country: "DE",
		Phases: []schedule.Phase{
			{
				ID: "discovery", Name: "Discovery", TotalMDs: schedule.ManDaysFromInt(10), Order: 1,
				Effort: map[schedule.Role]decimal.Decimal{
					planner.RolePM:       decimal.NewFromInt(60),
					planner.RoleDesigner: decimal.NewFromInt(40),
				},
			},
			{
				ID: "build", Name: "Build", TotalMDs: schedule.ManDaysFromInt(40), Order: 2,
				Effort: map[schedule.Role]decimal.Decimal{
					planner.RoleDeveloper: decimal.NewFromInt(80),
					planner.RoleDesigner:  decimal.NewFromInt(20),
				},
			},
			{
				ID: "stabilize", Name: "Stabilize", TotalMDs: schedule.ManDaysFromInt(10), Order: 3,
				Effort: map[schedule.Role]decimal.Decimal{
					planner.RoleDeveloper: decimal.NewFromInt(50),
					planner.RoleQA:        decimal.NewFromInt(50),
				},
			},
		},
	}
	if err := h.Store.SaveProject(ctx, atlas); err != nil {
		return err
	}

	// Brook: a smaller project starting a month later
	brook := planner.Project{
		ID:      "brook",
		Name:    "Brook Redesign",
		Start:   schedule.NewDate(2026, time.April, 1),
		Country: "DE",
		Phases: []schedule.Phase{
			{
				ID: "concept", Name: "Concept", TotalMDs: schedule.ManDaysFromInt(8), Order: 1,
				Effort: map[schedule.Role]decimal.Decimal{
					planner.RoleDesigner: decimal.NewFromInt(70),
					planner.RolePM:       decimal.NewFromInt(30),
				},
			},
			{
				ID: "implementation", Name: "Implementation", TotalMDs: schedule.ManDaysFromInt(24), Order: 2,
				Effort: map[schedule.Role]decimal.Decimal{
					planner.RoleDeveloper: decimal.NewFromInt(100),
				},
			},
		},
	}
	if err := h.Store.SaveProject(ctx, brook); err != nil {
		return err
	}

	seeds := []struct {
		id      schedule.AssignmentID
		member  planner.TeamMember
		project planner.Project
		role    schedule.Role
	}{
		{"assign-anna-atlas", members[0], atlas, planner.RolePM},
		{"assign-ben-atlas", members[1], atlas, planner.RoleDeveloper},
		{"assign-clara-atlas", members[2], atlas, planner.RoleDesigner},
		{"assign-anna-brook", members[0], brook, planner.RolePM},
		{"assign-clara-brook", members[2], brook, planner.RoleDesigner},
	}
	for _, s := range seeds {
		if _, err := h.seedAssignment(ctx, s.id, s.member, s.project, s.role); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadOverbookedScenario(ctx context.Context) error {
	dana := planner.TeamMember{ID: "dana", Name: "Dana Vogel", Role: planner.RoleDeveloper, Country: "DE"}
	if err := h.seedMember(ctx, dana); err != nil {
		return err
	}

	// Two dev-heavy projects with overlapping build phases. Together they
	// want more days out of May and June than the calendar has.
	kepler := planner.Project{
		ID:      "kepler",
		Name:    "Kepler Migration",
		Start:   schedule.NewDate(2026, time.May, 4),
		Country: "DE",
		Phases: []schedule.Phase{
			{
				ID: "kepler-build", Name: "Build", TotalMDs: schedule.ManDaysFromInt(60), Order: 1,
				Effort: map[schedule.Role]decimal.Decimal{
					planner.RoleDeveloper: decimal.NewFromInt(100),
				},
			},
		},
	}
	lyra := planner.Project{
		ID:      "lyra",
		Name:    "Lyra Integration",
		Start:   schedule.NewDate(2026, time.May, 18),
		Country: "DE",
		Phases: []schedule.Phase{
			{
				ID: "lyra-build", Name: "Build", TotalMDs: schedule.ManDaysFromInt(45), Order: 1,
				Effort: map[schedule.Role]decimal.Decimal{
					planner.RoleDeveloper: decimal.NewFromInt(100),
				},
			},
		},
	}
	for _, p := range []planner.Project{kepler, lyra} {
		if err := h.Store.SaveProject(ctx, p); err != nil {
			return err
		}
	}

	keplerAssign, err := h.seedAssignment(ctx, "assign-dana-kepler", dana, kepler, planner.RoleDeveloper)
	if err != nil {
		return err
	}
	if _, err := h.seedAssignment(ctx, "assign-dana-lyra", dana, lyra, planner.RoleDeveloper); err != nil {
		return err
	}

	// Pin one month by hand so the demo shows a locked cell too. The
	// remainder reflows into the months after June.
	june := schedule.MustParseMonth("2026-06")
	if err := h.Planner.Override(keplerAssign, kepler.Country, june, schedule.ManDaysFromInt(15)); err != nil && !schedule.IsAdvisory(err) {
		return err
	}
	return h.Store.SaveAssignment(ctx, keplerAssign)
}

func (h *Handler) loadTwoCountriesScenario(ctx context.Context) error {
	emil := planner.TeamMember{ID: "emil", Name: "Emil Krause", Role: planner.RoleDeveloper, Country: "DE"}
	fiona := planner.TeamMember{ID: "fiona", Name: "Fiona Reyes", Role: planner.RoleDeveloper, Country: "US"}
	for _, m := range []planner.TeamMember{emil, fiona} {
		if err := h.seedMember(ctx, m); err != nil {
			return err
		}
	}

	// Same phase geometry, different holiday calendars. May 2026 has
	// different working-day counts in DE and US, so the monthly spread
	// comes out different even though the inputs match.
	build := func(id schedule.PhaseID) []schedule.Phase {
		return []schedule.Phase{
			{
				ID: id, Name: "Build", TotalMDs: schedule.ManDaysFromInt(30), Order: 1,
				Effort: map[schedule.Role]decimal.Decimal{
					planner.RoleDeveloper: decimal.NewFromInt(100),
				},
			},
		}
	}
	novaDE := planner.Project{
		ID:      "nova-de",
		Name:    "Nova (Germany)",
		Start:   schedule.NewDate(2026, time.May, 1),
		Country: "DE",
		Phases:  build("nova-de-build"),
	}
	novaUS := planner.Project{
		ID:      "nova-us",
		Name:    "Nova (US)",
		Start:   schedule.NewDate(2026, time.May, 1),
		Country: "US",
		Phases:  build("nova-us-build"),
	}
	for _, p := range []planner.Project{novaDE, novaUS} {
		if err := h.Store.SaveProject(ctx, p); err != nil {
			return err
		}
	}

	if _, err := h.seedAssignment(ctx, "assign-emil-nova", emil, novaDE, planner.RoleDeveloper); err != nil {
		return err
	}
	if _, err := h.seedAssignment(ctx, "assign-fiona-nova", fiona, novaUS, planner.RoleDeveloper); err != nil {
		return err
	}
	return nil
}

// =============================================================================
// SEED HELPERS
// =============================================================================

func (h *Handler) seedMember(ctx context.Context, m planner.TeamMember) error {
	if err := h.Store.SaveMember(ctx, m); err != nil {
		return err
	}
	h.Planner.Ledger.SetMemberCountry(m.ID, m.Country)
	return nil
}

func (h *Handler) seedAssignment(ctx context.Context, id schedule.AssignmentID, m planner.TeamMember, p planner.Project, role schedule.Role) (*planner.Assignment, error) {
	a, err := h.Planner.Plan(id, m, p, role)
	if err != nil {
		return nil, err
	}
	if err := h.Store.SaveAssignment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
