package finance_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiobooks/finance-engine/finance"
	"github.com/studiobooks/finance-engine/finance/store"
)

func TestClassifyBurn_StepFunction(t *testing.T) {
	cases := []struct {
		pct  string
		want finance.HealthStatus
	}{
		{"0", finance.StatusHealthy},
		{"75", finance.StatusHealthy}, // boundary inclusive
		{"75.01", finance.StatusWarning},
		{"100", finance.StatusWarning}, // boundary inclusive
		{"100.01", finance.StatusCritical},
		{"250", finance.StatusCritical},
	}

	for _, tc := range cases {
		pct := decimal.RequireFromString(tc.pct)
		assert.Equal(t, tc.want, finance.ClassifyBurn(pct), "at %s%%", tc.pct)
	}
}

func TestProductionBudget(t *testing.T) {
	// 100,000 fee at 20% target margin protects an 80,000 production budget
	budget := finance.ProductionBudget(decimal.NewFromInt(100000), decimal.NewFromFloat(0.20))
	assert.True(t, budget.Equal(decimal.NewFromInt(80000)), "got %s", budget)
}

func burnFixture(t *testing.T) (*finance.BurnCalculator, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()

	mem.PutProject(finance.Project{
		ID:                 "proj-1",
		Name:               "Hillside Villa",
		TotalFee:           decimal.NewFromInt(100000),
		TargetProfitMargin: decimal.NewFromFloat(0.20),
		Stage:              finance.StageConcept,
		Active:             true,
	})
	mem.PutPhase(finance.Phase{ID: "phase-1", ProjectID: "proj-1", PhaseNumber: 1, Stage: finance.StageConcept})
	mem.PutPhase(finance.Phase{ID: "phase-2", ProjectID: "proj-1", PhaseNumber: 2, Stage: finance.StagePrelim})

	ledger := finance.NewLedger(mem, mem)
	return finance.NewBurnCalculator(ledger), mem
}

func TestProjectBurn_HealthyAtBoundary(t *testing.T) {
	calc, mem := burnFixture(t)
	ctx := context.Background()

	// GIVEN 60 hours at a snapshotted 1000/hr: burn 60,000 of 80,000 = 75%
	insertAssignment(t, mem, finance.ResourceAssignment{
		ID: "a1", UserID: "arch-1", PhaseID: "phase-1", ProjectID: "proj-1",
		PlannedHours: 60, BillingRate: decimal.NewFromInt(1000),
	})

	snap, err := calc.ProjectBurn(ctx, "proj-1")
	require.NoError(t, err)

	assert.True(t, snap.ProductionBudget.Equal(decimal.NewFromInt(80000)))
	assert.True(t, snap.CurrentBurn.Equal(decimal.NewFromInt(60000)))
	assert.True(t, snap.BurnPercentage.Equal(decimal.NewFromInt(75)), "got %s", snap.BurnPercentage)
	assert.Equal(t, finance.StatusHealthy, snap.Status)
}

func TestProjectBurn_WarningAtFullBudget(t *testing.T) {
	calc, mem := burnFixture(t)

	// Burn exactly equal to the budget is warning, not critical
	insertAssignment(t, mem, finance.ResourceAssignment{
		ID: "a1", UserID: "arch-1", PhaseID: "phase-1", ProjectID: "proj-1",
		PlannedHours: 80, BillingRate: decimal.NewFromInt(1000),
	})

	snap, err := calc.ProjectBurn(context.Background(), "proj-1")
	require.NoError(t, err)

	assert.True(t, snap.BurnPercentage.Equal(decimal.NewFromInt(100)), "got %s", snap.BurnPercentage)
	assert.Equal(t, finance.StatusWarning, snap.Status)
}

func TestProjectBurn_CriticalOverBudget(t *testing.T) {
	calc, mem := burnFixture(t)

	insertAssignment(t, mem, finance.ResourceAssignment{
		ID: "a1", UserID: "arch-1", PhaseID: "phase-1", ProjectID: "proj-1",
		PlannedHours: 50, BillingRate: decimal.NewFromInt(1000),
	})
	insertAssignment(t, mem, finance.ResourceAssignment{
		ID: "a2", UserID: "arch-2", PhaseID: "phase-1", ProjectID: "proj-1",
		PlannedHours: 35, BillingRate: decimal.NewFromInt(1000),
	})

	snap, err := calc.ProjectBurn(context.Background(), "proj-1")
	require.NoError(t, err)

	// 85,000 of 80,000 = 106.25%
	assert.True(t, snap.BurnPercentage.Equal(decimal.RequireFromString("106.25")), "got %s", snap.BurnPercentage)
	assert.Equal(t, finance.StatusCritical, snap.Status)
}

func TestProjectBurn_ZeroBudget(t *testing.T) {
	calc, mem := burnFixture(t)
	ctx := context.Background()

	mem.PutProject(finance.Project{
		ID:                 "proj-free",
		Name:               "Pro Bono Pavilion",
		TotalFee:           decimal.Zero,
		TargetProfitMargin: decimal.NewFromFloat(0.20),
		Stage:              finance.StageConcept,
		Active:             true,
	})
	mem.PutPhase(finance.Phase{ID: "phase-free", ProjectID: "proj-free", PhaseNumber: 1, Stage: finance.StageConcept})

	// No burn yet: percentage pinned at zero, healthy
	snap, err := calc.ProjectBurn(ctx, "proj-free")
	require.NoError(t, err)
	assert.True(t, snap.BurnPercentage.IsZero())
	assert.Equal(t, finance.StatusHealthy, snap.Status)

	// Any burn against a zero budget is immediately critical
	insertAssignment(t, mem, finance.ResourceAssignment{
		ID: "a1", UserID: "arch-1", PhaseID: "phase-free", ProjectID: "proj-free",
		PlannedHours: 1, BillingRate: decimal.NewFromInt(1000),
	})

	snap, err = calc.ProjectBurn(ctx, "proj-free")
	require.NoError(t, err)
	assert.True(t, snap.BurnPercentage.IsZero())
	assert.Equal(t, finance.StatusCritical, snap.Status)
}

func TestPhaseBurn_ScopesToPhase(t *testing.T) {
	calc, mem := burnFixture(t)

	insertAssignment(t, mem, finance.ResourceAssignment{
		ID: "a1", UserID: "arch-1", PhaseID: "phase-1", ProjectID: "proj-1",
		PlannedHours: 30, BillingRate: decimal.NewFromInt(1000),
	})
	insertAssignment(t, mem, finance.ResourceAssignment{
		ID: "a2", UserID: "arch-1", PhaseID: "phase-2", ProjectID: "proj-1",
		PlannedHours: 50, BillingRate: decimal.NewFromInt(1000),
	})

	snap, err := calc.PhaseBurn(context.Background(), "proj-1", "phase-1")
	require.NoError(t, err)

	// Only phase-1's 30,000 counts against the whole-project budget
	assert.True(t, snap.CurrentBurn.Equal(decimal.NewFromInt(30000)), "got %s", snap.CurrentBurn)
	require.NotNil(t, snap.PhaseID)
	assert.Equal(t, finance.PhaseID("phase-1"), *snap.PhaseID)
}

func TestPhaseBurn_BudgetShare(t *testing.T) {
	calc, mem := burnFixture(t)

	// Phase reserves half the production budget: 40,000
	share := decimal.NewFromFloat(0.5)
	mem.PutPhase(finance.Phase{
		ID: "phase-1", ProjectID: "proj-1", PhaseNumber: 1,
		Stage: finance.StageConcept, BudgetShare: &share,
	})

	insertAssignment(t, mem, finance.ResourceAssignment{
		ID: "a1", UserID: "arch-1", PhaseID: "phase-1", ProjectID: "proj-1",
		PlannedHours: 35, BillingRate: decimal.NewFromInt(1000),
	})

	snap, err := calc.PhaseBurn(context.Background(), "proj-1", "phase-1")
	require.NoError(t, err)

	// 35,000 of 40,000 = 87.5% -> warning
	assert.True(t, snap.ProductionBudget.Equal(decimal.NewFromInt(40000)))
	assert.True(t, snap.BurnPercentage.Equal(decimal.RequireFromString("87.5")), "got %s", snap.BurnPercentage)
	assert.Equal(t, finance.StatusWarning, snap.Status)
}

func TestPhaseBurn_PhaseMustBelongToProject(t *testing.T) {
	calc, mem := burnFixture(t)

	mem.PutProject(finance.Project{
		ID: "proj-2", Name: "Other", TotalFee: decimal.NewFromInt(1000),
		TargetProfitMargin: decimal.NewFromFloat(0.20), Stage: finance.StageConcept, Active: true,
	})

	_, err := calc.PhaseBurn(context.Background(), "proj-2", "phase-1")
	assert.ErrorIs(t, err, finance.ErrNotFound)
}

func TestProjectBurn_UnknownProject(t *testing.T) {
	calc, _ := burnFixture(t)
	_, err := calc.ProjectBurn(context.Background(), "no-such")
	assert.ErrorIs(t, err, finance.ErrNotFound)
}

func TestProjectBurn_Deterministic(t *testing.T) {
	calc, mem := burnFixture(t)
	ctx := context.Background()

	insertAssignment(t, mem, finance.ResourceAssignment{
		ID: "a1", UserID: "arch-1", PhaseID: "phase-1", ProjectID: "proj-1",
		PlannedHours: 42, BillingRate: decimal.RequireFromString("1187.50"),
	})

	first, err := calc.ProjectBurn(ctx, "proj-1")
	require.NoError(t, err)
	second, err := calc.ProjectBurn(ctx, "proj-1")
	require.NoError(t, err)

	assert.True(t, first.CurrentBurn.Equal(second.CurrentBurn))
	assert.True(t, first.BurnPercentage.Equal(second.BurnPercentage))
	assert.Equal(t, first.Status, second.Status)
}
