/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

JSON SHAPE:
  Keys are camelCase with the "MDs" suffix, matching the plan document
  format (planfile package), so exported plans and API payloads read the
  same. Dates are "YYYY-MM-DD" strings, months "YYYY-MM", MD amounts
  plain JSON numbers.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - planfile/document.go: The import/export document shape
*/
package api

import (
	"time"

	"github.com/warp/capacity-engine/planner"
	"github.com/warp/capacity-engine/schedule"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// MemberDTO represents a team member in API responses.
type MemberDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Role    string `json:"role,omitempty"`
	Country string `json:"country,omitempty"`
}

// CreateMemberRequest is the request to create a team member. A missing
// ID is generated server-side.
type CreateMemberRequest struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Role    string `json:"role,omitempty"`
	Country string `json:"country,omitempty"`
}

// PhaseDTO represents one project phase.
type PhaseDTO struct {
	ID      string             `json:"id"`
	Name    string             `json:"name"`
	ManDays float64            `json:"manDays"`
	Order   int                `json:"order"`
	Effort  map[string]float64 `json:"effort,omitempty"`
}

// ProjectDTO represents a project with its phases.
type ProjectDTO struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	StartDate string     `json:"startDate,omitempty"`
	Country   string     `json:"country,omitempty"`
	TotalMDs  float64    `json:"totalMDs"`
	Phases    []PhaseDTO `json:"phases"`
}

// SaveProjectRequest is the request to create or replace a project.
type SaveProjectRequest struct {
	ID        string     `json:"id,omitempty"`
	Name      string     `json:"name"`
	StartDate string     `json:"startDate,omitempty"`
	Country   string     `json:"country,omitempty"`
	Phases    []PhaseDTO `json:"phases,omitempty"`
}

// ReplanResponse wraps a project update with the number of assignments
// that were rebuilt against the new phase geometry.
type ReplanResponse struct {
	Project   ProjectDTO `json:"project"`
	Replanned int        `json:"replanned"`
}

// ScheduleSlotDTO is one phase's slot in an assignment or project timeline.
type ScheduleSlotDTO struct {
	PhaseID      string   `json:"phaseId"`
	PhaseName    string   `json:"phaseName"`
	StartDate    string   `json:"startDate"`
	EndDate      string   `json:"endDate"`
	Months       []string `json:"months"`
	EstimatedMDs float64  `json:"estimatedMDs"`
}

// TimelineResponse is a project's computed phase schedule.
type TimelineResponse struct {
	ProjectID string            `json:"projectId"`
	Role      string            `json:"role,omitempty"`
	TotalMDs  float64           `json:"totalMDs"`
	Schedule  []ScheduleSlotDTO `json:"phaseSchedule"`
}

// PhaseShareDTO is one phase's slice of a monthly allocation cell.
type PhaseShareDTO struct {
	PhaseID      string  `json:"phaseId"`
	AllocatedMDs float64 `json:"allocatedMDs"`
}

// AllocationCellDTO is one month of an assignment's allocation. Locked
// cells are user pins; Detail carries the computed per-phase baseline.
type AllocationCellDTO struct {
	Month      string          `json:"month"`
	PlannedMDs float64         `json:"plannedMDs"`
	Locked     bool            `json:"locked"`
	Detail     []PhaseShareDTO `json:"detail,omitempty"`
}

// AssignmentDTO represents a planned assignment.
type AssignmentDTO struct {
	ID           string              `json:"id"`
	TeamMemberID string              `json:"teamMemberId"`
	ProjectID    string              `json:"projectId"`
	Role         string              `json:"role,omitempty"`
	TotalMDs     float64             `json:"totalMDs"`
	Seq          int64               `json:"seq,omitempty"`
	CreatedAt    string              `json:"createdAt,omitempty"`
	Schedule     []ScheduleSlotDTO   `json:"phaseSchedule"`
	Allocation   []AllocationCellDTO `json:"allocation"`
}

// CreateAssignmentRequest is the request to plan a member onto a project.
type CreateAssignmentRequest struct {
	ID           string `json:"id,omitempty"`
	TeamMemberID string `json:"teamMemberId"`
	ProjectID    string `json:"projectId"`
	Role         string `json:"role,omitempty"` // defaults to the member's role
}

// AllocationResponse is the month map of a single assignment.
type AllocationResponse struct {
	AssignmentID string              `json:"assignmentId"`
	TotalMDs     float64             `json:"totalMDs"`
	Allocation   []AllocationCellDTO `json:"allocation"`
}

// OverrideRequest pins one monthly cell to a hand-edited value.
type OverrideRequest struct {
	Month      string  `json:"month"`
	PlannedMDs float64 `json:"plannedMDs"`
}

// ResetOverrideRequest returns a pinned cell to its computed value.
type ResetOverrideRequest struct {
	Month string `json:"month"`
}

// OverrideResponse returns the assignment after an override. Warning is
// set when the edit took effect but left budget nowhere to go.
type OverrideResponse struct {
	Assignment AssignmentDTO `json:"assignment"`
	Warning    string        `json:"warning,omitempty"`
}

// PreviewRequest asks what a member's load would look like with a
// proposed assignment, without booking anything.
type PreviewRequest struct {
	TeamMemberID string `json:"teamMemberId"`
	ProjectID    string `json:"projectId"`
	Role         string `json:"role,omitempty"`
}

// ProjectionRowDTO is one month of a what-if projection.
type ProjectionRowDTO struct {
	Month     string  `json:"month"`
	Capacity  float64 `json:"capacity"`
	Booked    float64 `json:"booked"`
	Proposed  float64 `json:"proposed"`
	Projected float64 `json:"projected"`
	Overflow  float64 `json:"overflow"`
}

// PreviewResponse carries the would-be schedule and the projected load.
type PreviewResponse struct {
	TotalMDs   float64            `json:"totalMDs"`
	Schedule   []ScheduleSlotDTO  `json:"phaseSchedule"`
	Projection []ProjectionRowDTO `json:"projection"`
}

// CapacityRowDTO is one month of a member's load table.
type CapacityRowDTO struct {
	Month      string  `json:"month"`
	Capacity   float64 `json:"capacity"`
	Allocated  float64 `json:"allocated"`
	Available  float64 `json:"available"`
	Overflow   float64 `json:"overflow"`
	Overbooked bool    `json:"overbooked"`
}

// OverflowEntryDTO is one overbooked month, the alert banner feed.
type OverflowEntryDTO struct {
	Month    string  `json:"month"`
	Overflow float64 `json:"overflow"`
}

// HolidayDTO represents a holiday in API responses.
type HolidayDTO struct {
	ID      string `json:"id"`
	Country string `json:"country"`
	Date    string `json:"date"`
	Name    string `json:"name"`
}

// CreateHolidayRequest is the request to add a dated holiday. A missing
// ID is derived from country and date.
type CreateHolidayRequest struct {
	ID      string `json:"id,omitempty"`
	Country string `json:"country"`
	Date    string `json:"date"`
	Name    string `json:"name"`
}

// SeedHolidaysRequest materializes the built-in holiday table for a
// country and year range into the store.
type SeedHolidaysRequest struct {
	Country  string `json:"country"`
	FromYear int    `json:"fromYear,omitempty"`
	ToYear   int    `json:"toYear,omitempty"`
}

// IssueDTO is one finding from a plan check.
type IssueDTO struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Ref      string `json:"ref,omitempty"`
	Message  string `json:"message"`
}

// ImportResponse summarizes a plan document import.
type ImportResponse struct {
	Members     int        `json:"members"`
	Projects    int        `json:"projects"`
	Assignments int        `json:"assignments"`
	Issues      []IssueDTO `json:"issues"`
}

// AuditRunDTO is one recorded ledger audit.
type AuditRunDTO struct {
	ID            string `json:"id"`
	At            string `json:"at"`
	Members       int    `json:"members"`
	Assignments   int    `json:"assignments"`
	OverflowCells int    `json:"overflowCells"`
	Note          string `json:"note,omitempty"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func mdsFloat(m schedule.ManDays) float64 {
	f, _ := m.Value.Float64()
	return f
}

func toMemberDTO(m planner.TeamMember) MemberDTO {
	return MemberDTO{
		ID:      string(m.ID),
		Name:    m.Name,
		Role:    string(m.Role),
		Country: string(m.Country),
	}
}

func toProjectDTO(p planner.Project) ProjectDTO {
	dto := ProjectDTO{
		ID:       string(p.ID),
		Name:     p.Name,
		Country:  string(p.Country),
		TotalMDs: mdsFloat(p.TotalMDs()),
		Phases:   make([]PhaseDTO, 0, len(p.Phases)),
	}
	if !p.Start.IsZero() {
		dto.StartDate = p.Start.String()
	}
	for _, ph := range p.Phases {
		phase := PhaseDTO{
			ID:      string(ph.ID),
			Name:    ph.Name,
			ManDays: mdsFloat(ph.TotalMDs),
			Order:   ph.Order,
		}
		if len(ph.Effort) > 0 {
			phase.Effort = make(map[string]float64, len(ph.Effort))
			for role, pct := range ph.Effort {
				f, _ := pct.Float64()
				phase.Effort[string(role)] = f
			}
		}
		dto.Phases = append(dto.Phases, phase)
	}
	return dto
}

func toScheduleSlotDTOs(entries []schedule.ScheduleEntry) []ScheduleSlotDTO {
	slots := make([]ScheduleSlotDTO, len(entries))
	for i, e := range entries {
		months := make([]string, len(e.Months))
		for j, m := range e.Months {
			months[j] = m.String()
		}
		slots[i] = ScheduleSlotDTO{
			PhaseID:      string(e.PhaseID),
			PhaseName:    e.PhaseName,
			StartDate:    e.Start.String(),
			EndDate:      e.End.String(),
			Months:       months,
			EstimatedMDs: mdsFloat(e.EstimatedMDs),
		}
	}
	return slots
}

func toAllocationCellDTOs(a *planner.Assignment) []AllocationCellDTO {
	if a.Allocations == nil {
		return []AllocationCellDTO{}
	}
	cells := a.Allocations.Cells()
	dtos := make([]AllocationCellDTO, len(cells))
	for i, cell := range cells {
		dto := AllocationCellDTO{
			Month:      cell.Month.String(),
			PlannedMDs: mdsFloat(cell.PlannedMDs),
			Locked:     cell.Locked,
		}
		for _, share := range a.Detail[cell.Month] {
			dto.Detail = append(dto.Detail, PhaseShareDTO{
				PhaseID:      string(share.Phase),
				AllocatedMDs: mdsFloat(share.MDs),
			})
		}
		dtos[i] = dto
	}
	return dtos
}

func toAssignmentDTO(a *planner.Assignment) AssignmentDTO {
	dto := AssignmentDTO{
		ID:           string(a.ID),
		TeamMemberID: string(a.MemberID),
		ProjectID:    string(a.ProjectID),
		Role:         string(a.Role),
		TotalMDs:     mdsFloat(a.TotalMDs),
		Seq:          a.Seq,
		Schedule:     toScheduleSlotDTOs(a.Schedule),
		Allocation:   toAllocationCellDTOs(a),
	}
	if !a.CreatedAt.IsZero() {
		dto.CreatedAt = a.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toProjectionRowDTOs(rows []schedule.MonthProjection) []ProjectionRowDTO {
	dtos := make([]ProjectionRowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = ProjectionRowDTO{
			Month:     row.Month.String(),
			Capacity:  mdsFloat(row.Capacity),
			Booked:    mdsFloat(row.Booked),
			Proposed:  mdsFloat(row.Proposed),
			Projected: mdsFloat(row.Projected),
			Overflow:  mdsFloat(row.Overflow),
		}
	}
	return dtos
}

func toHolidayDTO(h schedule.Holiday) HolidayDTO {
	return HolidayDTO{
		ID:      h.ID,
		Country: string(h.Country),
		Date:    h.Date.String(),
		Name:    h.Name,
	}
}

func toIssueDTOs(issues []planner.Issue) []IssueDTO {
	dtos := make([]IssueDTO, len(issues))
	for i, issue := range issues {
		dtos[i] = IssueDTO{
			Severity: string(issue.Severity),
			Code:     issue.Code,
			Ref:      issue.Ref,
			Message:  issue.Message,
		}
	}
	return dtos
}

func toAuditRunDTO(run planner.AuditRun) AuditRunDTO {
	return AuditRunDTO{
		ID:            run.ID,
		At:            run.At.Format(time.RFC3339),
		Members:       run.Members,
		Assignments:   run.Assignments,
		OverflowCells: run.OverflowCells,
		Note:          run.Note,
	}
}
