/*
Package planfile reads and writes the plan document, the JSON file the
host application persists and exchanges.

PURPOSE:
  One self-contained document carries the whole plan: team members,
  projects with their phases, and the manual assignments including each
  assignment's resolved phase schedule and per-month allocation
  breakdown. The document is the exchange format of the export/import
  endpoints and the on-disk save format.

JSON SHAPE:
  {
    "teamMembers":  [ {"id", "name", "role", "country"} ],
    "projects":     [ {"id", "name", "startDate", "country",
                       "phases": [ {"id", "name", "manDays", "order",
                                    "effort": {"developer": 100}} ]} ],
    "manualAssignments": [ {
        "id", "teamMemberId", "projectId", "role", "totalMDs", "seq",
        "phaseSchedule": [ {"phaseId", "phaseName", "startDate",
                            "endDate", "estimatedMDs"} ],
        "calculatedAllocation": { "2025-06": [ {"phaseId",
                                                "allocatedMDs"} ] },
        "manualOverrides": { "2025-06": 8 }
    } ]
  }

  calculatedAllocation is the distributor's per-phase baseline.
  manualOverrides lists the user-pinned cells; on load the pins are
  replayed in month order, which reproduces the reflowed state exactly
  because redistribution is deterministic.

DATES AND NUMBERS:
  Dates are "2006-01-02", months "YYYY-MM", MDs plain JSON numbers
  rounded to two decimals at this boundary. Engine arithmetic stays
  decimal; floats exist only in this package and the api DTOs.

SEE ALSO:
  - convert.go: Document <-> domain conversion
  - api/: The /api/plan endpoints built on this package
*/
package planfile

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// Document is the root of the persisted plan file.
type Document struct {
	TeamMembers       []MemberJSON     `json:"teamMembers"`
	Projects          []ProjectJSON    `json:"projects"`
	ManualAssignments []AssignmentJSON `json:"manualAssignments"`
}

// MemberJSON is one team member.
type MemberJSON struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Role    string `json:"role,omitempty"`
	Country string `json:"country,omitempty"`
}

// ProjectJSON is one project with its phase list.
type ProjectJSON struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	StartDate string      `json:"startDate,omitempty"`
	Country   string      `json:"country,omitempty"`
	Phases    []PhaseJSON `json:"phases,omitempty"`
}

// PhaseJSON is one project phase. Effort maps role codes to percentages
// (independent per role, not required to sum to 100).
type PhaseJSON struct {
	ID      string             `json:"id"`
	Name    string             `json:"name"`
	ManDays float64            `json:"manDays"`
	Order   int                `json:"order"`
	Effort  map[string]float64 `json:"effort,omitempty"`
}

// AssignmentJSON is one manual assignment of a member to a project.
type AssignmentJSON struct {
	ID           string `json:"id"`
	TeamMemberID string `json:"teamMemberId"`
	ProjectID    string `json:"projectId"`
	Role         string `json:"role,omitempty"`
	TotalMDs     float64 `json:"totalMDs,omitempty"`
	Seq          int64  `json:"seq,omitempty"`

	PhaseSchedule        []ScheduleEntryJSON         `json:"phaseSchedule"`
	CalculatedAllocation map[string][]PhaseShareJSON `json:"calculatedAllocation"`
	ManualOverrides      map[string]float64          `json:"manualOverrides,omitempty"`
}

// ScheduleEntryJSON is one resolved phase slot of the timeline.
type ScheduleEntryJSON struct {
	PhaseID      string  `json:"phaseId"`
	PhaseName    string  `json:"phaseName"`
	StartDate    string  `json:"startDate"`
	EndDate      string  `json:"endDate"`
	EstimatedMDs float64 `json:"estimatedMDs"`
}

// PhaseShareJSON is one phase's share of a month's allocation.
type PhaseShareJSON struct {
	PhaseID      string  `json:"phaseId"`
	AllocatedMDs float64 `json:"allocatedMDs"`
}

// =============================================================================
// PARSE / ENCODE
// =============================================================================

// Parse decodes a plan document and checks the identifying fields every
// entry must carry. Structural consistency (dangling references, drifted
// totals) is the converter's job, reported as issues rather than errors.
func Parse(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse plan document: %w", err)
	}

	for i, m := range d.TeamMembers {
		if m.ID == "" {
			return nil, fmt.Errorf("teamMembers[%d]: missing id", i)
		}
	}
	for i, p := range d.Projects {
		if p.ID == "" {
			return nil, fmt.Errorf("projects[%d]: missing id", i)
		}
		for j, ph := range p.Phases {
			if ph.ID == "" {
				return nil, fmt.Errorf("projects[%d].phases[%d]: missing id", i, j)
			}
		}
	}
	for i, a := range d.ManualAssignments {
		if a.ID == "" {
			return nil, fmt.Errorf("manualAssignments[%d]: missing id", i)
		}
		if a.TeamMemberID == "" || a.ProjectID == "" {
			return nil, fmt.Errorf("manualAssignments[%d]: missing teamMemberId or projectId", i)
		}
	}

	return &d, nil
}

// Encode renders the document as indented JSON, the format the host
// writes to disk.
func (d *Document) Encode() ([]byte, error) {
	out, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode plan document: %w", err)
	}
	return out, nil
}
