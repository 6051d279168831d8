/*
burn.go - Budget & Burn Calculator

PURPOSE:
  Derives a project's (or phase's) protected production budget and measures
  cumulative planned cost against it:

    productionBudget = totalFee * (1 - targetProfitMargin)
    currentBurn      = sum(billingRate * plannedHours) over assignments
    burnPercentage   = currentBurn / productionBudget * 100

  Burn uses the SNAPSHOTTED rates stored on each assignment, never a live
  recomputation from current salaries.

STATUS BANDS (inclusive at the lower end of each band):
    healthy   burn <= 75%
    warning   75% < burn <= 100%
    critical  burn > 100%

  A zero production budget defines burnPercentage as 0 to keep the view
  renderable; any positive burn against a zero budget is unbounded overage
  and classifies as critical immediately.

PURITY:
  A pure function of its inputs. Recomputed on every read - assignments can
  change between calls, so nothing here is cached.
*/
package finance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

var (
	pctHealthyMax = decimal.NewFromInt(75)
	pctWarningMax = decimal.NewFromInt(100)
)

// ProductionBudget reserves the target margin out of the total fee.
func ProductionBudget(totalFee, targetMargin decimal.Decimal) decimal.Decimal {
	return totalFee.Mul(one.Sub(targetMargin))
}

// ClassifyBurn is the step function over burn percentage.
// {0, 75, 75.01, 100, 100.01} -> {healthy, healthy, warning, warning, critical}
func ClassifyBurn(burnPercentage decimal.Decimal) HealthStatus {
	switch {
	case burnPercentage.LessThanOrEqual(pctHealthyMax):
		return StatusHealthy
	case burnPercentage.LessThanOrEqual(pctWarningMax):
		return StatusWarning
	default:
		return StatusCritical
	}
}

type BurnCalculator struct {
	Ledger *Ledger
}

func NewBurnCalculator(ledger *Ledger) *BurnCalculator {
	return &BurnCalculator{Ledger: ledger}
}

// ProjectBurn computes the burn snapshot for a whole project.
func (c *BurnCalculator) ProjectBurn(ctx context.Context, projectID ProjectID) (*BurnSnapshot, error) {
	return c.snapshot(ctx, projectID, nil)
}

// PhaseBurn computes the burn snapshot scoped to one phase. The budget basis
// is the phase's budget share of the production budget when set, otherwise
// the whole production budget.
func (c *BurnCalculator) PhaseBurn(ctx context.Context, projectID ProjectID, phaseID PhaseID) (*BurnSnapshot, error) {
	return c.snapshot(ctx, projectID, &phaseID)
}

func (c *BurnCalculator) snapshot(ctx context.Context, projectID ProjectID, phaseID *PhaseID) (*BurnSnapshot, error) {
	project, err := c.Ledger.Directory.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, &NotFoundError{Kind: "project", ID: string(projectID)}
	}

	margin := project.Margin()
	budget := ProductionBudget(project.TotalFee, margin)

	if phaseID != nil {
		phase, err := c.Ledger.Directory.GetPhase(ctx, *phaseID)
		if err != nil {
			return nil, err
		}
		if phase == nil || phase.ProjectID != projectID {
			return nil, &NotFoundError{Kind: "phase", ID: string(*phaseID)}
		}
		if phase.BudgetShare != nil {
			budget = budget.Mul(*phase.BudgetShare)
		}
	}

	assignments, err := c.Ledger.Assignments.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	burn := decimal.Zero
	for _, a := range assignments {
		if phaseID != nil && a.PhaseID != *phaseID {
			continue
		}
		burn = burn.Add(a.PlannedCost())
	}

	pct := decimal.Zero
	status := StatusHealthy
	if budget.IsPositive() {
		pct = burn.Div(budget).Mul(hundred)
		status = ClassifyBurn(pct)
	} else if burn.IsPositive() {
		// Any burn against a zero budget is unbounded overage.
		status = StatusCritical
	}

	return &BurnSnapshot{
		ProjectID:        projectID,
		PhaseID:          phaseID,
		TotalFee:         project.TotalFee,
		TargetMargin:     margin,
		ProductionBudget: budget,
		CurrentBurn:      burn,
		BurnPercentage:   pct,
		Status:           status,
		AsOf:             time.Now().UTC(),
	}, nil
}
