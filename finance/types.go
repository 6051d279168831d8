/*
Package finance is the project financial planning engine.

PURPOSE:
  This package contains the domain types and algorithms that turn a project's
  fee, a phase's resource assignments, and each employee's compensation
  profile into derived billing rates, budget burn tracking, weekly
  utilization checks, stage-based invoice amounts, and prorated payroll.

KEY CONCEPTS IN THIS FILE (types.go):
  - Project/Phase: the fee-bearing entities, staged by delivery lifecycle
  - CompensationProfile: salary inputs for rate derivation
  - ResourceAssignment: a planned-hour commitment with a snapshotted rate
  - BurnSnapshot/UtilizationResult: derived values, never persisted

DESIGN PRINCIPLES:
  1. Precision: all money uses decimal.Decimal, never float64
  2. Snapshots: an assignment's billing rate is set once at creation so
     later salary edits never rewrite historical burn
  3. Derivation: burn and utilization are recomputed from stored facts on
     every read; there is no cached figure to go stale

SEE ALSO:
  - rate.go: billing-rate derivation
  - ledger.go: assignment persistence and queries
  - burn.go: budget and burn classification
*/
package finance

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProjectID string
type PhaseID string
type UserID string
type AssignmentID string

// =============================================================================
// DEFAULTS - fixed engine constants, not user data
// =============================================================================

const (
	// DefaultTypicalHoursPerMonth is the divisor fallback when a profile has
	// no typical monthly hours. Guards rate derivation against division by zero.
	DefaultTypicalHoursPerMonth = 160

	// WeeklyCapacityHours is the global per-person commitment ceiling used by
	// the utilization checker. Capacity is cross-project: a person has one
	// 40-hour week regardless of how many projects share it.
	WeeklyCapacityHours = 40
)

var (
	// DefaultOverheadMultiplier converts raw salary cost into a billable rate.
	DefaultOverheadMultiplier = decimal.NewFromFloat(2.5)

	// DefaultTargetProfitMargin is reserved from the total fee before the
	// production budget is derived.
	DefaultTargetProfitMargin = decimal.NewFromFloat(0.20)
)

// =============================================================================
// PROJECT & PHASE
// =============================================================================

// Project is the fee-bearing unit. TotalFee and TargetProfitMargin drive the
// production budget; Stage drives standard invoicing.
type Project struct {
	ID                 ProjectID
	Name               string
	ClientName         string
	TotalFee           decimal.Decimal
	TargetProfitMargin decimal.Decimal // fraction in [0,1)
	Stage              ProjectStage
	Active             bool
	CreatedAt          time.Time
}

// Margin returns the target profit margin, falling back to the default when
// the stored value is zero-valued and unset semantics are wanted by callers
// that created the project without one.
func (p Project) Margin() decimal.Decimal {
	if p.TargetProfitMargin.IsNegative() || p.TargetProfitMargin.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return DefaultTargetProfitMargin
	}
	return p.TargetProfitMargin
}

// Phase belongs to exactly one project and is ordered by PhaseNumber.
// Phases are created alongside the project, one per selected lifecycle stage.
type Phase struct {
	ID          PhaseID
	ProjectID   ProjectID
	PhaseNumber int
	Stage       ProjectStage

	// BudgetShare, when set, is the fraction of the project's production
	// budget reserved for this phase. Nil means the phase is measured
	// against the whole project budget.
	BudgetShare *decimal.Decimal

	CreatedAt time.Time
}

// =============================================================================
// COMPENSATION PROFILE
// =============================================================================

// CompensationProfile holds the salary attributes of a user consumed by rate
// derivation and payroll. The engine reads these, never mutates them.
type CompensationProfile struct {
	UserID               UserID
	MonthlySalary        decimal.Decimal
	TypicalHoursPerMonth int
	OverheadMultiplier   decimal.Decimal
}

// =============================================================================
// RESOURCE ASSIGNMENT
// =============================================================================

// ResourceAssignment commits a user to a phase for PlannedHours over an
// optional date range. At most one assignment may exist per (user, phase).
//
// BillingRate is a snapshot of the resolved rate at creation time. It is
// intentionally NOT recomputed when the salary changes later: historical
// burn must stay auditable.
type ResourceAssignment struct {
	ID           AssignmentID
	UserID       UserID
	PhaseID      PhaseID
	ProjectID    ProjectID
	PlannedHours int
	BillingRate  decimal.Decimal
	StartDate    *Date
	EndDate      *Date // nil = open-ended, always counted as current
	CreatedAt    time.Time
}

// ActiveDuring reports whether the assignment's date range overlaps the
// given window. Open ends are treated as unbounded.
func (a ResourceAssignment) ActiveDuring(from, to Date) bool {
	if a.StartDate != nil && a.StartDate.After(to) {
		return false
	}
	if a.EndDate != nil && a.EndDate.Before(from) {
		return false
	}
	return true
}

// PlannedCost is the assignment's contribution to burn: snapshot rate times
// planned hours.
func (a ResourceAssignment) PlannedCost() decimal.Decimal {
	return a.BillingRate.Mul(decimal.NewFromInt(int64(a.PlannedHours)))
}

// =============================================================================
// DERIVED RESULTS
// =============================================================================

// HealthStatus classifies burn against the production budget.
type HealthStatus string

const (
	StatusHealthy  HealthStatus = "healthy"  // burn <= 75% of budget
	StatusWarning  HealthStatus = "warning"  // 75% < burn <= 100%
	StatusCritical HealthStatus = "critical" // burn > 100%, margin eroded
)

// BurnSnapshot is the derived budget position of a project or phase.
// Recomputed on demand; never cached beyond a single request.
type BurnSnapshot struct {
	ProjectID        ProjectID
	PhaseID          *PhaseID // nil = whole project
	TotalFee         decimal.Decimal
	TargetMargin     decimal.Decimal
	ProductionBudget decimal.Decimal
	CurrentBurn      decimal.Decimal
	BurnPercentage   decimal.Decimal
	Status           HealthStatus
	AsOf             time.Time
}

// UtilizationResult is the advisory outcome of a weekly capacity check.
// It never blocks assignment creation; the caller decides what to do with it.
type UtilizationResult struct {
	UserID            UserID
	WeekStart         Date
	WeekEnd           Date
	TotalHoursPlanned int // existing commitments plus the proposal
	ProposedHours     int
	IsOverUtilized    bool
	HoursOverLimit    int // max(0, TotalHoursPlanned - WeeklyCapacityHours)
}
