/*
ledger.go - Assignment Ledger

PURPOSE:
  The Assignment Ledger is the source of truth for planned-hour commitments.
  It owns ResourceAssignment records: created by resourcing actions, removed
  by explicit re-assignment, never updated in place.

CRITICAL INVARIANTS:
  1. At most one assignment per (user, phase). Enforced by a unique
     constraint at the storage layer, NOT an application-level
     check-then-write - concurrent creates for the same pair must yield
     exactly one success and one conflict.
  2. BillingRate is snapshotted from the Compensation Resolver at creation
     and never recomputed afterwards.
  3. The active-assignment query is cross-project by design: a person's
     weekly capacity is a global constraint, so the ledger answers "all
     assignments for this user anywhere that overlap this week" as a single
     indexed range query.

SEE ALSO:
  - store/sqlite: production store with the unique index
  - finance/store: in-memory store for tests
  - utilization.go, burn.go: the two readers of this ledger
*/
package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// STORE INTERFACES
// =============================================================================

// AssignmentStore persists resource assignments.
//
// Insert must enforce (user, phase) uniqueness transactionally and return a
// *ConflictError on violation.
type AssignmentStore interface {
	Insert(ctx context.Context, a ResourceAssignment) error

	// Delete removes the assignment for a (user, phase) pair. Returns a
	// *NotFoundError when no such assignment exists.
	Delete(ctx context.Context, userID UserID, phaseID PhaseID) error

	// ListByProject returns all assignments across all phases of a project.
	ListByProject(ctx context.Context, projectID ProjectID) ([]ResourceAssignment, error)

	// ListActiveForUser returns every assignment for the user across the
	// whole system whose date range overlaps [weekStart, weekEnd].
	// Open-ended assignments always overlap.
	ListActiveForUser(ctx context.Context, userID UserID, weekStart, weekEnd Date) ([]ResourceAssignment, error)
}

// Directory resolves the entities an assignment references. Implemented by
// the same stores that implement AssignmentStore; a nil result with nil
// error means the entity does not exist.
type Directory interface {
	GetProject(ctx context.Context, id ProjectID) (*Project, error)
	GetPhase(ctx context.Context, id PhaseID) (*Phase, error)
	GetProfile(ctx context.Context, id UserID) (*CompensationProfile, error)
}

// =============================================================================
// LEDGER
// =============================================================================

// CreateAssignmentInput is a resourcing request.
type CreateAssignmentInput struct {
	UserID       UserID
	PhaseID      PhaseID
	PlannedHours int
	StartDate    *Date // optional
	EndDate      *Date // optional; nil = open-ended
}

type Ledger struct {
	Assignments AssignmentStore
	Directory   Directory
}

func NewLedger(assignments AssignmentStore, directory Directory) *Ledger {
	return &Ledger{Assignments: assignments, Directory: directory}
}

// CreateAssignment validates the request, snapshots the user's current
// billing rate, and persists the assignment. Fails with *ValidationError on
// bad input, *NotFoundError on missing references, and *ConflictError when
// the (user, phase) pair is already assigned.
func (l *Ledger) CreateAssignment(ctx context.Context, in CreateAssignmentInput) (*ResourceAssignment, error) {
	if in.PlannedHours <= 0 {
		return nil, &ValidationError{Field: "plannedHours", Reason: "must be greater than zero"}
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return nil, &ValidationError{Field: "endDate", Reason: "must not precede startDate"}
	}

	phase, err := l.Directory.GetPhase(ctx, in.PhaseID)
	if err != nil {
		return nil, err
	}
	if phase == nil {
		return nil, &NotFoundError{Kind: "phase", ID: string(in.PhaseID)}
	}

	profile, err := l.Directory.GetProfile(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, &NotFoundError{Kind: "user", ID: string(in.UserID)}
	}

	asg := ResourceAssignment{
		ID:           AssignmentID(uuid.NewString()),
		UserID:       in.UserID,
		PhaseID:      in.PhaseID,
		ProjectID:    phase.ProjectID,
		PlannedHours: in.PlannedHours,
		BillingRate:  ResolveRate(*profile), // snapshot, immutable from here on
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		CreatedAt:    time.Now().UTC(),
	}

	// Uniqueness is decided by the store's constraint, not checked here.
	if err := l.Assignments.Insert(ctx, asg); err != nil {
		return nil, err
	}
	return &asg, nil
}

// RemoveAssignment deletes the assignment for a (user, phase) pair. This is
// the first half of an explicit re-assignment; there is no in-place update.
func (l *Ledger) RemoveAssignment(ctx context.Context, userID UserID, phaseID PhaseID) error {
	return l.Assignments.Delete(ctx, userID, phaseID)
}

// AssignmentsForProject returns all assignments across the project's phases.
func (l *Ledger) AssignmentsForProject(ctx context.Context, projectID ProjectID) ([]ResourceAssignment, error) {
	project, err := l.Directory.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, &NotFoundError{Kind: "project", ID: string(projectID)}
	}
	return l.Assignments.ListByProject(ctx, projectID)
}

// ActiveAssignmentsForUser returns the user's assignments, across every
// project in the system, that overlap the given week window.
func (l *Ledger) ActiveAssignmentsForUser(ctx context.Context, userID UserID, weekStart, weekEnd Date) ([]ResourceAssignment, error) {
	return l.Assignments.ListActiveForUser(ctx, userID, weekStart, weekEnd)
}
