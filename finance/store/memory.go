/*
Package store provides an in-memory implementation of the finance storage
interfaces for tests and demos.

The Memory store mirrors the production SQLite store's contract exactly,
including the (user, phase) uniqueness guarantee: Insert holds the write
lock across the existence check and the write, so concurrent creates for
the same pair still yield exactly one success.
*/
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/studiobooks/finance-engine/finance"
)

type pairKey struct {
	userID  finance.UserID
	phaseID finance.PhaseID
}

// Memory implements finance.AssignmentStore and finance.Directory.
type Memory struct {
	mu          sync.RWMutex
	assignments map[pairKey]finance.ResourceAssignment
	projects    map[finance.ProjectID]finance.Project
	phases      map[finance.PhaseID]finance.Phase
	profiles    map[finance.UserID]finance.CompensationProfile
}

func NewMemory() *Memory {
	return &Memory{
		assignments: make(map[pairKey]finance.ResourceAssignment),
		projects:    make(map[finance.ProjectID]finance.Project),
		phases:      make(map[finance.PhaseID]finance.Phase),
		profiles:    make(map[finance.UserID]finance.CompensationProfile),
	}
}

// =============================================================================
// SEED HELPERS
// =============================================================================

func (m *Memory) PutProject(p finance.Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
}

func (m *Memory) PutPhase(p finance.Phase) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phases[p.ID] = p
}

func (m *Memory) PutProfile(p finance.CompensationProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = p
}

// =============================================================================
// finance.AssignmentStore
// =============================================================================

func (m *Memory) Insert(ctx context.Context, a finance.ResourceAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := pairKey{userID: a.UserID, phaseID: a.PhaseID}
	if _, exists := m.assignments[key]; exists {
		return &finance.ConflictError{UserID: a.UserID, PhaseID: a.PhaseID}
	}
	m.assignments[key] = a
	return nil
}

func (m *Memory) Delete(ctx context.Context, userID finance.UserID, phaseID finance.PhaseID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := pairKey{userID: userID, phaseID: phaseID}
	if _, exists := m.assignments[key]; !exists {
		return &finance.NotFoundError{Kind: "assignment", ID: string(userID) + "/" + string(phaseID)}
	}
	delete(m.assignments, key)
	return nil
}

func (m *Memory) ListByProject(ctx context.Context, projectID finance.ProjectID) ([]finance.ResourceAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []finance.ResourceAssignment
	for _, a := range m.assignments {
		if a.ProjectID == projectID {
			out = append(out, a)
		}
	}
	sortAssignments(out)
	return out, nil
}

func (m *Memory) ListActiveForUser(ctx context.Context, userID finance.UserID, weekStart, weekEnd finance.Date) ([]finance.ResourceAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []finance.ResourceAssignment
	for _, a := range m.assignments {
		if a.UserID == userID && a.ActiveDuring(weekStart, weekEnd) {
			out = append(out, a)
		}
	}
	sortAssignments(out)
	return out, nil
}

func sortAssignments(list []finance.ResourceAssignment) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].PhaseID != list[j].PhaseID {
			return list[i].PhaseID < list[j].PhaseID
		}
		return list[i].UserID < list[j].UserID
	})
}

// =============================================================================
// finance.Directory
// =============================================================================

func (m *Memory) GetProject(ctx context.Context, id finance.ProjectID) (*finance.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if p, ok := m.projects[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *Memory) GetPhase(ctx context.Context, id finance.PhaseID) (*finance.Phase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if p, ok := m.phases[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *Memory) GetProfile(ctx context.Context, id finance.UserID) (*finance.CompensationProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if p, ok := m.profiles[id]; ok {
		return &p, nil
	}
	return nil, nil
}
