package finance_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiobooks/finance-engine/finance"
	"github.com/studiobooks/finance-engine/finance/store"
)

func seededLedger(t *testing.T) (*finance.Ledger, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()

	mem.PutProject(finance.Project{
		ID:                 "proj-1",
		Name:               "Riverside Residence",
		TotalFee:           decimal.NewFromInt(500000),
		TargetProfitMargin: decimal.NewFromFloat(0.20),
		Stage:              finance.StageConcept,
		Active:             true,
	})
	mem.PutPhase(finance.Phase{
		ID:          "phase-1",
		ProjectID:   "proj-1",
		PhaseNumber: 1,
		Stage:       finance.StageConcept,
	})
	mem.PutPhase(finance.Phase{
		ID:          "phase-2",
		ProjectID:   "proj-1",
		PhaseNumber: 2,
		Stage:       finance.StagePrelim,
	})
	mem.PutProfile(finance.CompensationProfile{
		UserID:               "arch-1",
		MonthlySalary:        decimal.NewFromInt(80000),
		TypicalHoursPerMonth: 160,
		OverheadMultiplier:   decimal.NewFromFloat(2.5),
	})

	return finance.NewLedger(mem, mem), mem
}

func TestCreateAssignment_SnapshotsRate(t *testing.T) {
	ledger, _ := seededLedger(t)
	ctx := context.Background()

	// WHEN a user is assigned to a phase
	asg, err := ledger.CreateAssignment(ctx, finance.CreateAssignmentInput{
		UserID:       "arch-1",
		PhaseID:      "phase-1",
		PlannedHours: 40,
	})
	require.NoError(t, err)

	// THEN the billing rate is snapshotted from the current profile
	assert.True(t, asg.BillingRate.Equal(decimal.NewFromInt(1250)), "got %s", asg.BillingRate)
	assert.Equal(t, finance.ProjectID("proj-1"), asg.ProjectID)
	assert.NotEmpty(t, asg.ID)
}

func TestCreateAssignment_SnapshotSurvivesSalaryChange(t *testing.T) {
	ledger, mem := seededLedger(t)
	ctx := context.Background()

	asg, err := ledger.CreateAssignment(ctx, finance.CreateAssignmentInput{
		UserID:       "arch-1",
		PhaseID:      "phase-1",
		PlannedHours: 40,
	})
	require.NoError(t, err)

	// WHEN the salary doubles after the assignment exists
	mem.PutProfile(finance.CompensationProfile{
		UserID:               "arch-1",
		MonthlySalary:        decimal.NewFromInt(160000),
		TypicalHoursPerMonth: 160,
		OverheadMultiplier:   decimal.NewFromFloat(2.5),
	})

	// THEN the stored assignment keeps the original snapshot
	stored, err := ledger.AssignmentsForProject(ctx, "proj-1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].BillingRate.Equal(asg.BillingRate))

	// AND a new assignment picks up the new rate
	asg2, err := ledger.CreateAssignment(ctx, finance.CreateAssignmentInput{
		UserID:       "arch-1",
		PhaseID:      "phase-2",
		PlannedHours: 10,
	})
	require.NoError(t, err)
	assert.True(t, asg2.BillingRate.Equal(decimal.NewFromInt(2500)), "got %s", asg2.BillingRate)
}

func TestCreateAssignment_DuplicatePairConflicts(t *testing.T) {
	ledger, _ := seededLedger(t)
	ctx := context.Background()

	in := finance.CreateAssignmentInput{UserID: "arch-1", PhaseID: "phase-1", PlannedHours: 20}

	_, err := ledger.CreateAssignment(ctx, in)
	require.NoError(t, err)

	// WHEN the same (user, phase) pair is assigned again
	_, err = ledger.CreateAssignment(ctx, in)

	// THEN the request is rejected, not merged
	require.Error(t, err)
	assert.ErrorIs(t, err, finance.ErrConflict)

	var conflict *finance.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, finance.UserID("arch-1"), conflict.UserID)
	assert.Equal(t, finance.PhaseID("phase-1"), conflict.PhaseID)
}

func TestCreateAssignment_Validation(t *testing.T) {
	ledger, _ := seededLedger(t)
	ctx := context.Background()

	// Zero planned hours
	_, err := ledger.CreateAssignment(ctx, finance.CreateAssignmentInput{
		UserID: "arch-1", PhaseID: "phase-1", PlannedHours: 0,
	})
	assert.ErrorIs(t, err, finance.ErrValidation)

	// Inverted date range
	start := finance.NewDate(2026, time.March, 10)
	end := finance.NewDate(2026, time.March, 1)
	_, err = ledger.CreateAssignment(ctx, finance.CreateAssignmentInput{
		UserID: "arch-1", PhaseID: "phase-1", PlannedHours: 10,
		StartDate: &start, EndDate: &end,
	})
	assert.ErrorIs(t, err, finance.ErrValidation)
}

func TestCreateAssignment_MissingReferences(t *testing.T) {
	ledger, _ := seededLedger(t)
	ctx := context.Background()

	// Unknown phase
	_, err := ledger.CreateAssignment(ctx, finance.CreateAssignmentInput{
		UserID: "arch-1", PhaseID: "no-such-phase", PlannedHours: 10,
	})
	assert.ErrorIs(t, err, finance.ErrNotFound)

	// Unknown user (no compensation profile)
	_, err = ledger.CreateAssignment(ctx, finance.CreateAssignmentInput{
		UserID: "ghost", PhaseID: "phase-1", PlannedHours: 10,
	})
	assert.ErrorIs(t, err, finance.ErrNotFound)
}

func TestRemoveAssignment_EnablesReassignment(t *testing.T) {
	ledger, _ := seededLedger(t)
	ctx := context.Background()

	in := finance.CreateAssignmentInput{UserID: "arch-1", PhaseID: "phase-1", PlannedHours: 20}
	_, err := ledger.CreateAssignment(ctx, in)
	require.NoError(t, err)

	// WHEN the assignment is removed
	require.NoError(t, ledger.RemoveAssignment(ctx, "arch-1", "phase-1"))

	// THEN the pair can be assigned again with different hours
	in.PlannedHours = 35
	asg, err := ledger.CreateAssignment(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 35, asg.PlannedHours)
}

func TestRemoveAssignment_MissingPair(t *testing.T) {
	ledger, _ := seededLedger(t)
	err := ledger.RemoveAssignment(context.Background(), "arch-1", "phase-1")
	assert.ErrorIs(t, err, finance.ErrNotFound)
}

func TestAssignmentsForProject_UnknownProject(t *testing.T) {
	ledger, _ := seededLedger(t)
	_, err := ledger.AssignmentsForProject(context.Background(), "no-such-project")
	assert.ErrorIs(t, err, finance.ErrNotFound)
}
