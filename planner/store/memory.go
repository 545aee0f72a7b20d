// Package store provides the in-memory planner.Store implementation,
// used by unit tests and the demo scenarios.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/capacity-engine/planner"
	"github.com/warp/capacity-engine/schedule"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Memory keeps the whole plan in maps behind an RWMutex. Reads hand out
// copies, so callers can mutate results freely.
type Memory struct {
	mu          sync.RWMutex
	members     map[schedule.MemberID]planner.TeamMember
	projects    map[schedule.ProjectID]planner.Project
	assignments map[schedule.AssignmentID]*planner.Assignment
	holidays    map[string]schedule.Holiday
	auditRuns   []planner.AuditRun
	nextSeq     int64
}

var _ planner.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		members:     make(map[schedule.MemberID]planner.TeamMember),
		projects:    make(map[schedule.ProjectID]planner.Project),
		assignments: make(map[schedule.AssignmentID]*planner.Assignment),
		holidays:    make(map[string]schedule.Holiday),
		nextSeq:     1,
	}
}

// =============================================================================
// MEMBERS
// =============================================================================

func (s *Memory) SaveMember(_ context.Context, m planner.TeamMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[m.ID] = m
	return nil
}

func (s *Memory) Member(_ context.Context, id schedule.MemberID) (planner.TeamMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[id]
	if !ok {
		return planner.TeamMember{}, fmt.Errorf("member %s: %w", id, planner.ErrNotFound)
	}
	return m, nil
}

func (s *Memory) Members(_ context.Context) ([]planner.TeamMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]planner.TeamMember, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Memory) DeleteMember(_ context.Context, id schedule.MemberID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[id]; !ok {
		return fmt.Errorf("member %s: %w", id, planner.ErrNotFound)
	}
	delete(s.members, id)
	return nil
}

// =============================================================================
// PROJECTS
// =============================================================================

func (s *Memory) SaveProject(_ context.Context, p planner.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Phases = clonePhases(p.Phases)
	s.projects[p.ID] = p
	return nil
}

func (s *Memory) Project(_ context.Context, id schedule.ProjectID) (planner.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return planner.Project{}, fmt.Errorf("project %s: %w", id, planner.ErrNotFound)
	}
	p.Phases = clonePhases(p.Phases)
	return p, nil
}

func (s *Memory) Projects(_ context.Context) ([]planner.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]planner.Project, 0, len(s.projects))
	for _, p := range s.projects {
		p.Phases = clonePhases(p.Phases)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Memory) DeleteProject(_ context.Context, id schedule.ProjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return fmt.Errorf("project %s: %w", id, planner.ErrNotFound)
	}
	delete(s.projects, id)
	return nil
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

func (s *Memory) SaveAssignment(_ context.Context, a *planner.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.assignments[a.ID]; ok {
		a.Seq = existing.Seq
		a.CreatedAt = existing.CreatedAt
	} else if a.Seq == 0 {
		a.Seq = s.nextSeq
		s.nextSeq++
	} else if a.Seq >= s.nextSeq {
		// Imported assignments keep their sequence; stay ahead of it.
		s.nextSeq = a.Seq + 1
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.assignments[a.ID] = a.Clone()
	return nil
}

func (s *Memory) Assignment(_ context.Context, id schedule.AssignmentID) (*planner.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[id]
	if !ok {
		return nil, fmt.Errorf("assignment %s: %w", id, planner.ErrNotFound)
	}
	return a.Clone(), nil
}

func (s *Memory) Assignments(_ context.Context) ([]*planner.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.assignmentsWhere(func(*planner.Assignment) bool { return true }), nil
}

func (s *Memory) AssignmentsByMember(_ context.Context, id schedule.MemberID) ([]*planner.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.assignmentsWhere(func(a *planner.Assignment) bool { return a.MemberID == id }), nil
}

func (s *Memory) AssignmentsByProject(_ context.Context, id schedule.ProjectID) ([]*planner.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.assignmentsWhere(func(a *planner.Assignment) bool { return a.ProjectID == id }), nil
}

func (s *Memory) DeleteAssignment(_ context.Context, id schedule.AssignmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assignments[id]; !ok {
		return fmt.Errorf("assignment %s: %w", id, planner.ErrNotFound)
	}
	delete(s.assignments, id)
	return nil
}

// assignmentsWhere filters and clones in Seq order. Caller holds a lock.
func (s *Memory) assignmentsWhere(keep func(*planner.Assignment) bool) []*planner.Assignment {
	var out []*planner.Assignment
	for _, a := range s.assignments {
		if keep(a) {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func (s *Memory) SaveHoliday(_ context.Context, h schedule.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holidays[h.ID] = h
	return nil
}

func (s *Memory) Holidays(_ context.Context, country schedule.Country, year int) ([]schedule.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []schedule.Holiday
	for _, h := range s.holidays {
		if h.Country == country && h.Date.Year() == year {
			out = append(out, h)
		}
	}
	sortHolidays(out)
	return out, nil
}

func (s *Memory) AllHolidays(_ context.Context) ([]schedule.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]schedule.Holiday, 0, len(s.holidays))
	for _, h := range s.holidays {
		out = append(out, h)
	}
	sortHolidays(out)
	return out, nil
}

func (s *Memory) DeleteHoliday(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.holidays[id]; !ok {
		return fmt.Errorf("holiday %s: %w", id, planner.ErrNotFound)
	}
	delete(s.holidays, id)
	return nil
}

// =============================================================================
// AUDIT RUNS
// =============================================================================

func (s *Memory) RecordAuditRun(_ context.Context, run planner.AuditRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditRuns = append(s.auditRuns, run)
	return nil
}

func (s *Memory) AuditRuns(_ context.Context, limit int) ([]planner.AuditRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// Newest first.
	out := make([]planner.AuditRun, len(s.auditRuns))
	for i, run := range s.auditRuns {
		out[len(out)-1-i] = run
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Reset drops everything and restarts the Seq counter.
func (s *Memory) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = make(map[schedule.MemberID]planner.TeamMember)
	s.projects = make(map[schedule.ProjectID]planner.Project)
	s.assignments = make(map[schedule.AssignmentID]*planner.Assignment)
	s.holidays = make(map[string]schedule.Holiday)
	s.auditRuns = nil
	s.nextSeq = 1
	return nil
}

func (s *Memory) Close() error { return nil }

// =============================================================================
// HELPERS
// =============================================================================

func clonePhases(phases []schedule.Phase) []schedule.Phase {
	out := make([]schedule.Phase, len(phases))
	for i, ph := range phases {
		if ph.Effort != nil {
			effort := make(map[schedule.Role]decimal.Decimal, len(ph.Effort))
			for r, pct := range ph.Effort {
				effort[r] = pct
			}
			ph.Effort = effort
		}
		out[i] = ph
	}
	return out
}

func sortHolidays(hs []schedule.Holiday) {
	sort.Slice(hs, func(i, j int) bool {
		if hs[i].Country != hs[j].Country {
			return hs[i].Country < hs[j].Country
		}
		return hs[i].Date.Before(hs[j].Date)
	})
}
