/*
handlers.go - HTTP API handlers for the capacity allocation engine

PURPOSE:
  Exposes the planning engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Members:
    GET    /api/members                  List all team members
    POST   /api/members                  Create team member
    GET    /api/members/{id}             Get member details
    DELETE /api/members/{id}             Delete member and their assignments
    GET    /api/members/{id}/assignments Member's assignments
    GET    /api/members/{id}/capacity    Per-month load table
    GET    /api/members/{id}/overflow    Overbooked months (alert feed)

  Projects:
    GET    /api/projects                 List all projects
    POST   /api/projects                 Create project
    GET    /api/projects/{id}            Get project details
    PUT    /api/projects/{id}            Replace project, replan assignments
    DELETE /api/projects/{id}            Delete project and its assignments
    GET    /api/projects/{id}/timeline   Computed phase schedule

  Assignments:
    POST   /api/assignments                Plan a member onto a project
    GET    /api/assignments/{id}           Get assignment details
    DELETE /api/assignments/{id}           Unassign
    GET    /api/assignments/{id}/allocation      Month map with locked flags
    POST   /api/assignments/{id}/override        Pin a monthly cell
    POST   /api/assignments/{id}/override/reset  Unpin a monthly cell
    POST   /api/assignments/preview              What-if load projection

  Holidays:
    GET    /api/holidays                 Resolved holidays per country/year
    POST   /api/holidays                 Add a dated holiday
    POST   /api/holidays/defaults        Materialize built-in tables
    DELETE /api/holidays/{id}            Remove a user-added holiday

  Plan:
    GET    /api/plan                     Export the plan document
    POST   /api/plan                     Import a plan document (replaces all)

  Audit:
    GET    /api/audit/runs               Recompute audit history
    POST   /api/admin/recompute          Force a full ledger rebuild now

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - Planner: Calendar, distribution, and the shared capacity ledger
  - HolidayProvider: Mutable holiday tables behind the calendar

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (planner, ledger, planfile)
  4. Serialize response
  5. Handle errors

CONCURRENCY:
  The planner and its ledger are not safe for concurrent use, so every
  handler that touches them takes the handler mutex. Store reads go
  through without it; the stores synchronize themselves.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, unknown months
  - 404: Resource not found
  - 500: Internal errors
  An unallocatable override remainder is NOT an error: the edit has
  taken effect, so the response is 200 with a warning field.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/capacity-engine/holiday"
	"github.com/warp/capacity-engine/planfile"
	"github.com/warp/capacity-engine/planner"
	"github.com/warp/capacity-engine/schedule"
)

// maxCapacityMonths bounds the from/to window of the capacity table.
const maxCapacityMonths = 120

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store           planner.Store
	Planner         *planner.Planner
	HolidayProvider *holiday.TableProvider

	// mu serializes access to the planner and its ledger.
	mu sync.Mutex

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler over the given store and planner.
func NewHandler(store planner.Store, p *planner.Planner, provider *holiday.TableProvider) *Handler {
	return &Handler{
		Store:           store,
		Planner:         p,
		HolidayProvider: provider,
	}
}

// Rebuild reloads the capacity ledger from the store. Called at startup
// and whenever the store may have changed underneath the planner.
func (h *Handler) Rebuild(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reloadLocked(ctx)
}

func (h *Handler) reloadLocked(ctx context.Context) error {
	members, err := h.Store.Members(ctx)
	if err != nil {
		return fmt.Errorf("failed to load members: %w", err)
	}
	assignments, err := h.Store.Assignments(ctx)
	if err != nil {
		return fmt.Errorf("failed to load assignments: %w", err)
	}
	h.Planner.Rebuild(members, assignments)
	return nil
}

// recompute reloads the ledger and records the outcome as an audit run.
// Used by the admin endpoint and the background scheduler.
func (h *Handler) recompute(ctx context.Context, note string) (planner.AuditRun, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, err := h.Store.Members(ctx)
	if err != nil {
		return planner.AuditRun{}, fmt.Errorf("failed to load members: %w", err)
	}
	assignments, err := h.Store.Assignments(ctx)
	if err != nil {
		return planner.AuditRun{}, fmt.Errorf("failed to load assignments: %w", err)
	}
	h.Planner.Rebuild(members, assignments)

	// Walk the ledger's own member list so dangling assignment refs are
	// counted too, not just stored members.
	overflowCells := 0
	for _, id := range h.Planner.Ledger.Members() {
		overflowCells += len(h.Planner.Ledger.OverflowReport(id))
	}

	run := planner.AuditRun{
		ID:            "run-" + uuid.NewString(),
		At:            time.Now().UTC(),
		Members:       len(members),
		Assignments:   len(assignments),
		OverflowCells: overflowCells,
		Note:          note,
	}
	if err := h.Store.RecordAuditRun(ctx, run); err != nil {
		return planner.AuditRun{}, fmt.Errorf("failed to record audit run: %w", err)
	}
	return run, nil
}

// =============================================================================
// MEMBER HANDLERS
// =============================================================================

// ListMembers returns all team members.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.Store.Members(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list members", err)
		return
	}

	dtos := make([]MemberDTO, len(members))
	for i, m := range members {
		dtos[i] = toMemberDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetMember returns a single team member.
func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	id := schedule.MemberID(chi.URLParam(r, "id"))

	m, err := h.Store.Member(r.Context(), id)
	if errors.Is(err, planner.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Team member not found", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get member", err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberDTO(m))
}

// CreateMember creates a new team member.
func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var req CreateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	m := planner.TeamMember{
		ID:      schedule.MemberID(req.ID),
		Name:    req.Name,
		Role:    schedule.Role(req.Role),
		Country: schedule.Country(req.Country),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.SaveMember(r.Context(), m); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create member", err)
		return
	}
	h.Planner.Ledger.SetMemberCountry(m.ID, m.Country)

	writeJSON(w, http.StatusCreated, toMemberDTO(m))
}

// DeleteMember removes a member and unassigns everything they were
// planned on.
func (h *Handler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := schedule.MemberID(chi.URLParam(r, "id"))

	h.mu.Lock()
	defer h.mu.Unlock()

	assignments, err := h.Store.AssignmentsByMember(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load assignments", err)
		return
	}
	for _, a := range assignments {
		h.Planner.Unassign(a)
		if err := h.Store.DeleteAssignment(ctx, a.ID); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to delete assignment", err)
			return
		}
	}

	err = h.Store.DeleteMember(ctx, id)
	if errors.Is(err, planner.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Team member not found", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete member", err)
		return
	}
	h.Planner.Ledger.SetMemberCountry(id, "")

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GetMemberAssignments returns the member's assignments in Seq order.
func (h *Handler) GetMemberAssignments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := schedule.MemberID(chi.URLParam(r, "id"))

	if _, err := h.Store.Member(ctx, id); errors.Is(err, planner.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Team member not found", err)
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get member", err)
		return
	}

	assignments, err := h.Store.AssignmentsByMember(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load assignments", err)
		return
	}

	dtos := make([]AssignmentDTO, len(assignments))
	for i, a := range assignments {
		dtos[i] = toAssignmentDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetMemberCapacity returns the member's per-month load table. With
// ?from=YYYY-MM&to=YYYY-MM the window is explicit; otherwise it covers
// the months the member is booked in.
func (h *Handler) GetMemberCapacity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := schedule.MemberID(chi.URLParam(r, "id"))

	if _, err := h.Store.Member(ctx, id); errors.Is(err, planner.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Team member not found", err)
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get member", err)
		return
	}

	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	if (fromStr == "") != (toStr == "") {
		writeError(w, http.StatusBadRequest, "from and to must be given together", nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var months []schedule.Month
	if fromStr != "" {
		from, err := schedule.ParseMonth(fromStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from month (use YYYY-MM)", err)
			return
		}
		to, err := schedule.ParseMonth(toStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to month (use YYYY-MM)", err)
			return
		}
		if to.Before(from) {
			writeError(w, http.StatusBadRequest, "to month precedes from month", nil)
			return
		}
		for m := from; !m.After(to); m = m.Next() {
			months = append(months, m)
			if len(months) > maxCapacityMonths {
				writeError(w, http.StatusBadRequest, "Month range too large", nil)
				return
			}
		}
	} else {
		months = h.Planner.Ledger.MonthsBooked(id)
	}

	rows := make([]CapacityRowDTO, len(months))
	for i, m := range months {
		overflow := h.Planner.Ledger.Overflow(id, m)
		rows[i] = CapacityRowDTO{
			Month:      m.String(),
			Capacity:   mdsFloat(h.Planner.Ledger.Capacity(id, m)),
			Allocated:  mdsFloat(h.Planner.Ledger.Allocated(id, m)),
			Available:  mdsFloat(h.Planner.Ledger.AvailableCapacity(id, m)),
			Overflow:   mdsFloat(overflow),
			Overbooked: overflow.IsPositive(),
		}
	}
	writeJSON(w, http.StatusOK, rows)
}

// GetMemberOverflow returns the member's overbooked months.
func (h *Handler) GetMemberOverflow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := schedule.MemberID(chi.URLParam(r, "id"))

	if _, err := h.Store.Member(ctx, id); errors.Is(err, planner.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Team member not found", err)
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get member", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	report := h.Planner.Ledger.OverflowReport(id)
	dtos := make([]OverflowEntryDTO, len(report))
	for i, entry := range report {
		dtos[i] = OverflowEntryDTO{
			Month:    entry.Month.String(),
			Overflow: mdsFloat(entry.Overflow),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PROJECT HANDLERS
// =============================================================================

// ListProjects returns all projects.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Store.Projects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list projects", err)
		return
	}

	dtos := make([]ProjectDTO, len(projects))
	for i, p := range projects {
		dtos[i] = toProjectDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetProject returns a single project.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	id := schedule.ProjectID(chi.URLParam(r, "id"))

	p, err := h.Store.Project(r.Context(), id)
	if errors.Is(err, planner.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Project not found", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get project", err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectDTO(p))
}

// CreateProject creates a new project.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req SaveProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	p, err := projectFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	if err := h.Store.SaveProject(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create project", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProjectDTO(p))
}

// UpdateProject replaces a project and replans every assignment on it
// against the new phase geometry. Manual overrides are cleared by the
// replan; the old month layout no longer exists to pin against.
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := schedule.ProjectID(chi.URLParam(r, "id"))

	var req SaveProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.ID = string(id)

	p, err := projectFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	if _, err := h.Store.Project(ctx, id); errors.Is(err, planner.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Project not found", err)
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get project", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	assignments, err := h.Store.AssignmentsByProject(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load assignments", err)
		return
	}
	if len(assignments) > 0 && p.Start.IsZero() && len(p.Phases) > 0 {
		writeError(w, http.StatusBadRequest, "Project needs a start date to replan its assignments", nil)
		return
	}

	if err := h.Store.SaveProject(ctx, p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save project", err)
		return
	}

	replanned := 0
	for _, a := range assignments {
		member, err := h.Store.Member(ctx, a.MemberID)
		if err != nil {
			member = planner.TeamMember{ID: a.MemberID} // dangling ref, default capacity
		}
		rebuilt, err := h.Planner.Replan(a, member, p)
		if err != nil {
			writeEngineError(w, fmt.Sprintf("Failed to replan assignment %s", a.ID), err)
			return
		}
		if err := h.Store.SaveAssignment(ctx, rebuilt); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save assignment", err)
			return
		}
		replanned++
	}

	writeJSON(w, http.StatusOK, ReplanResponse{
		Project:   toProjectDTO(p),
		Replanned: replanned,
	})
}

// DeleteProject removes a project and unassigns everyone planned on it.
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := schedule.ProjectID(chi.URLParam(r, "id"))

	h.mu.Lock()
	defer h.mu.Unlock()

	assignments, err := h.Store.AssignmentsByProject(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load assignments", err)
		return
	}
	for _, a := range assignments {
		h.Planner.Unassign(a)
		if err := h.Store.DeleteAssignment(ctx, a.ID); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to delete assignment", err)
			return
		}
	}

	err = h.Store.DeleteProject(ctx, id)
	if errors.Is(err, planner.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Project not found", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete project", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GetProjectTimeline returns the computed phase schedule, optionally
// filtered to one role via ?role=.
func (h *Handler) GetProjectTimeline(w http.ResponseWriter, r *http.Request) {
	id := schedule.ProjectID(chi.URLParam(r, "id"))
	role := schedule.Role(r.URL.Query().Get("role"))

	p, err := h.Store.Project(r.Context(), id)
	if errors.Is(err, planner.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Project not found", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get project", err)
		return
	}

	builder := schedule.TimelineBuilder{Calendar: h.Planner.Calendar, Country: p.Country}
	var entries []schedule.ScheduleEntry
	if role != "" {
		entries, err = builder.BuildRoleTimeline(p.Phases, p.Start, role)
	} else {
		entries, err = builder.BuildTimeline(p.Phases, p.Start)
	}
	if err != nil {
		writeEngineError(w, "Failed to build timeline", err)
		return
	}

	total := schedule.ZeroManDays()
	for _, e := range entries {
		total = total.Add(e.EstimatedMDs)
	}

	writeJSON(w, http.StatusOK, TimelineResponse{
		ProjectID: string(id),
		Role:      string(role),
		TotalMDs:  mdsFloat(total),
		Schedule:  toScheduleSlotDTOs(entries),
	})
}

// projectFromRequest converts a save request into the domain type.
func projectFromRequest(req SaveProjectRequest) (planner.Project, error) {
	if req.Name == "" {
		return planner.Project{}, fmt.Errorf("name is required")
	}

	p := planner.Project{
		ID:      schedule.ProjectID(req.ID),
		Name:    req.Name,
		Country: schedule.Country(req.Country),
	}
	if req.StartDate != "" {
		start, err := schedule.ParseDate(req.StartDate)
		if err != nil {
			return planner.Project{}, fmt.Errorf("invalid startDate (use YYYY-MM-DD)")
		}
		p.Start = start
	}

	for i, ph := range req.Phases {
		if ph.ID == "" {
			ph.ID = uuid.NewString()
		}
		phase := schedule.Phase{
			ID:       schedule.PhaseID(ph.ID),
			Name:     ph.Name,
			TotalMDs: schedule.NewManDays(ph.ManDays),
			Order:    ph.Order,
		}
		if phase.Order == 0 {
			phase.Order = i + 1
		}
		if len(ph.Effort) > 0 {
			phase.Effort = make(map[schedule.Role]decimal.Decimal, len(ph.Effort))
			for role, pct := range ph.Effort {
				phase.Effort[schedule.Role(role)] = decimal.NewFromFloat(pct)
			}
		}
		p.Phases = append(p.Phases, phase)
	}
	return p, nil
}

// =============================================================================
// ASSIGNMENT HANDLERS
// =============================================================================

// CreateAssignment plans a member onto a project and books the result
// in the capacity ledger.
func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.TeamMemberID == "" || req.ProjectID == "" {
		writeError(w, http.StatusBadRequest, "teamMemberId and projectId are required", nil)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	member, err := h.Store.Member(ctx, schedule.MemberID(req.TeamMemberID))
	if errors.Is(err, planner.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Team member not found", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get member", err)
		return
	}
	project, err := h.Store.Project(ctx, schedule.ProjectID(req.ProjectID))
	if errors.Is(err, planner.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Project not found", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get project", err)
		return
	}

	role := schedule.Role(req.Role)
	if role == "" {
		role = member.Role
	}

	a, err := h.Planner.Plan(schedule.AssignmentID(req.ID), member, project, role)
	if err != nil {
		writeEngineError(w, "Failed to plan assignment", err)
		return
	}
	if err := h.Store.SaveAssignment(ctx, a); err != nil {
		h.Planner.Unassign(a)
		writeError(w, http.StatusInternalServerError, "Failed to save assignment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAssignmentDTO(a))
}

// GetAssignment returns a single assignment.
func (h *Handler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	id := schedule.AssignmentID(chi.URLParam(r, "id"))

	a, err := h.Store.Assignment(r.Context(), id)
	if errors.Is(err, planner.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Assignment not found", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get assignment", err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTO(a))
}

// DeleteAssignment unassigns and releases the booked capacity.
func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := schedule.AssignmentID(chi.URLParam(r, "id"))

	h.mu.Lock()
	defer h.mu.Unlock()

	a, err := h.Store.Assignment(ctx, id)
	if errors.Is(err, planner.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Assignment not found", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get assignment", err)
		return
	}

	h.Planner.Unassign(a)
	if err := h.Store.DeleteAssignment(ctx, id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete assignment", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GetAllocation returns the assignment's month map, locked flags
// included.
func (h *Handler) GetAllocation(w http.ResponseWriter, r *http.Request) {
	id := schedule.AssignmentID(chi.URLParam(r, "id"))

	a, err := h.Store.Assignment(r.Context(), id)
	if errors.Is(err, planner.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Assignment not found", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get assignment", err)
		return
	}

	writeJSON(w, http.StatusOK, AllocationResponse{
		AssignmentID: string(a.ID),
		TotalMDs:     mdsFloat(a.TotalMDs),
		Allocation:   toAllocationCellDTOs(a),
	})
}

// ApplyOverride pins one monthly cell and reflows the months after it.
// An unallocatable remainder is a warning, not a failure: the response
// is still 200 and the edit has been saved.
func (h *Handler) ApplyOverride(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := schedule.AssignmentID(chi.URLParam(r, "id"))

	var req OverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	month, err := schedule.ParseMonth(req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	a, err := h.Store.Assignment(ctx, id)
	if errors.Is(err, planner.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Assignment not found", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get assignment", err)
		return
	}

	overrideErr := h.Planner.Override(a, h.projectCountry(ctx, a.ProjectID), month, schedule.NewManDays(req.PlannedMDs))
	if overrideErr != nil && !schedule.IsAdvisory(overrideErr) {
		writeEngineError(w, "Failed to apply override", overrideErr)
		return
	}

	if err := h.Store.SaveAssignment(ctx, a); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save assignment", err)
		return
	}

	resp := OverrideResponse{Assignment: toAssignmentDTO(a)}
	if overrideErr != nil {
		resp.Warning = overrideErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// ResetOverride unpins a cell and recomputes from that month forward.
func (h *Handler) ResetOverride(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := schedule.AssignmentID(chi.URLParam(r, "id"))

	var req ResetOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	month, err := schedule.ParseMonth(req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	a, err := h.Store.Assignment(ctx, id)
	if errors.Is(err, planner.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Assignment not found", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get assignment", err)
		return
	}

	resetErr := h.Planner.ResetOverride(a, h.projectCountry(ctx, a.ProjectID), month)
	if resetErr != nil && !schedule.IsAdvisory(resetErr) {
		writeEngineError(w, "Failed to reset override", resetErr)
		return
	}

	if err := h.Store.SaveAssignment(ctx, a); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save assignment", err)
		return
	}

	resp := OverrideResponse{Assignment: toAssignmentDTO(a)}
	if resetErr != nil {
		resp.Warning = resetErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// PreviewAssignment projects the member's load as if the proposed
// assignment were booked, without booking it.
func (h *Handler) PreviewAssignment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.TeamMemberID == "" || req.ProjectID == "" {
		writeError(w, http.StatusBadRequest, "teamMemberId and projectId are required", nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	member, err := h.Store.Member(ctx, schedule.MemberID(req.TeamMemberID))
	if errors.Is(err, planner.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Team member not found", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get member", err)
		return
	}
	project, err := h.Store.Project(ctx, schedule.ProjectID(req.ProjectID))
	if errors.Is(err, planner.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Project not found", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get project", err)
		return
	}

	role := schedule.Role(req.Role)
	if role == "" {
		role = member.Role
	}

	// Plan into a throwaway booking, collect the month map, release it
	// again. Under the handler mutex nothing observes the intermediate
	// state, and the projection then runs against the real load only.
	tempID := schedule.AssignmentID("preview-" + uuid.NewString())
	a, err := h.Planner.Plan(tempID, member, project, role)
	if err != nil {
		writeEngineError(w, "Failed to build preview", err)
		return
	}
	proposed := make(map[schedule.Month]schedule.ManDays)
	for _, m := range a.Allocations.Months() {
		proposed[m] = a.Allocations.Planned(m)
	}
	h.Planner.Unassign(a)

	writeJSON(w, http.StatusOK, PreviewResponse{
		TotalMDs:   mdsFloat(a.TotalMDs),
		Schedule:   toScheduleSlotDTOs(a.Schedule),
		Projection: toProjectionRowDTOs(h.Planner.Preview(member.ID, proposed)),
	})
}

// projectCountry returns the project's country for redistribution, the
// neutral calendar when the project is gone.
func (h *Handler) projectCountry(ctx context.Context, id schedule.ProjectID) schedule.Country {
	p, err := h.Store.Project(ctx, id)
	if err != nil {
		return ""
	}
	return p.Country
}

// =============================================================================
// HOLIDAY ENDPOINTS
// =============================================================================

// ListHolidays returns resolved holidays for ?country and ?year. Without
// a country, every known country is listed.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	country := schedule.Country(r.URL.Query().Get("country"))
	year := time.Now().Year()
	if y := r.URL.Query().Get("year"); y != "" {
		parsed, err := strconv.Atoi(y)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = parsed
	}

	var dtos []HolidayDTO
	countries := []schedule.Country{country}
	if country == "" {
		countries = h.HolidayProvider.Countries()
	}
	for _, c := range countries {
		for _, hol := range h.HolidayProvider.Holidays(c, year) {
			dtos = append(dtos, toHolidayDTO(hol))
		}
	}
	if dtos == nil {
		dtos = []HolidayDTO{}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday adds a dated holiday to the provider and persists it.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Country == "" || req.Date == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "country, date and name are required", nil)
		return
	}
	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	hol := schedule.Holiday{
		ID:      req.ID,
		Country: schedule.Country(req.Country),
		Date:    date,
		Name:    req.Name,
	}
	if hol.ID == "" {
		hol.ID = fmt.Sprintf("%s-%s", strings.ToLower(req.Country), date)
	}

	if err := h.HolidayProvider.AddDate(hol); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid holiday", err)
		return
	}
	if err := h.Store.SaveHoliday(ctx, hol); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, toHolidayDTO(hol))
}

// SeedDefaultHolidays materializes the built-in table for a country and
// year range into the store, so exports and external tools see the rows.
func (h *Handler) SeedDefaultHolidays(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SeedHolidaysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Country == "" {
		writeError(w, http.StatusBadRequest, "country is required", nil)
		return
	}
	country := schedule.Country(req.Country)
	if !h.HolidayProvider.Known(country) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("No holiday table for country %s", country), nil)
		return
	}

	if req.FromYear == 0 {
		req.FromYear = time.Now().Year()
	}
	if req.ToYear == 0 {
		req.ToYear = req.FromYear
	}
	if req.ToYear < req.FromYear {
		writeError(w, http.StatusBadRequest, "toYear precedes fromYear", nil)
		return
	}
	if req.ToYear-req.FromYear > 20 {
		writeError(w, http.StatusBadRequest, "Year range too large", nil)
		return
	}

	count := 0
	for year := req.FromYear; year <= req.ToYear; year++ {
		for _, hol := range h.HolidayProvider.Holidays(country, year) {
			if err := h.Store.SaveHoliday(ctx, hol); err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to save holiday", err)
				return
			}
			count++
		}
	}
	writeJSON(w, http.StatusCreated, map[string]any{"status": "created", "count": count})
}

// DeleteHoliday removes a user-added holiday. Rule-derived holidays are
// code, not rows; they only disappear when a stored row shadowing the
// date is absent again.
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	all, err := h.Store.AllHolidays(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load holidays", err)
		return
	}
	var found *schedule.Holiday
	for i := range all {
		if all[i].ID == id {
			found = &all[i]
			break
		}
	}
	if found == nil {
		writeError(w, http.StatusNotFound, "Holiday not found", nil)
		return
	}

	h.HolidayProvider.RemoveDate(found.Country, found.Date)
	if err := h.Store.DeleteHoliday(ctx, id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete holiday", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// PLAN IMPORT/EXPORT
// =============================================================================

// ExportPlan writes the entire plan as a document. The handler mutex
// gives the export a stable snapshot across tables.
func (h *Handler) ExportPlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	h.mu.Lock()
	defer h.mu.Unlock()

	members, err := h.Store.Members(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load members", err)
		return
	}
	projects, err := h.Store.Projects(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load projects", err)
		return
	}
	assignments, err := h.Store.Assignments(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load assignments", err)
		return
	}

	doc := planfile.FromDomain(members, projects, assignments)
	data, err := doc.Encode()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode plan", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ImportPlan replaces the whole plan with a document. Problems inside
// the document come back as issues; only an unreadable document fails.
func (h *Handler) ImportPlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}
	doc, err := planfile.Parse(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid plan document", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	plan, issues, err := planfile.ToDomain(doc, h.Planner.Calendar)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid plan document", err)
		return
	}

	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear store", err)
		return
	}
	for _, m := range plan.Members {
		if err := h.Store.SaveMember(ctx, m); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save member", err)
			return
		}
	}
	for _, p := range plan.Projects {
		if err := h.Store.SaveProject(ctx, p); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save project", err)
			return
		}
	}
	for _, a := range plan.Assignments {
		if err := h.Store.SaveAssignment(ctx, a); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save assignment", err)
			return
		}
	}

	if err := h.reloadLocked(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to rebuild ledger", err)
		return
	}
	h.currentScenario = ""

	writeJSON(w, http.StatusOK, ImportResponse{
		Members:     len(plan.Members),
		Projects:    len(plan.Projects),
		Assignments: len(plan.Assignments),
		Issues:      toIssueDTOs(issues),
	})
}

// =============================================================================
// AUDIT AND ADMIN
// =============================================================================

// ListAuditRuns returns recorded ledger audits, newest first.
func (h *Handler) ListAuditRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = parsed
	}

	runs, err := h.Store.AuditRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load audit runs", err)
		return
	}

	dtos := make([]AuditRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toAuditRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Recompute forces a full ledger rebuild from the store and records it.
func (h *Handler) Recompute(w http.ResponseWriter, r *http.Request) {
	run, err := h.recompute(r.Context(), "manual recompute")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to recompute", err)
		return
	}
	writeJSON(w, http.StatusOK, toAuditRunDTO(run))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps engine errors onto HTTP statuses: bad caller
// input is 400, missing entities 404, everything else 500.
func writeEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, planner.ErrNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case schedule.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
