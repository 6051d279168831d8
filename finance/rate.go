/*
rate.go - Compensation Resolver

PURPOSE:
  Derives an hourly billing rate from a compensation profile:

    hourlyRate = (monthlySalary / typicalHoursPerMonth) * overheadMultiplier

  The rate is computed fresh whenever displayed, but it is SNAPSHOTTED into
  ResourceAssignment.BillingRate at assignment creation. Later salary edits
  therefore never retroactively change historical burn figures. This is an
  intentional auditability guarantee, not an optimization.

GUARDS:
  - typicalHoursPerMonth <= 0 falls back to DefaultTypicalHoursPerMonth (160)
    instead of dividing by zero
  - a zero or negative overheadMultiplier falls back to the 2.5 default

SEE ALSO:
  - ledger.go: snapshots this rate at assignment creation
  - burn.go: consumes the snapshotted rates, never this function
*/
package finance

import "github.com/shopspring/decimal"

var one = decimal.NewFromInt(1)

// ResolveRate derives the hourly billing rate for a profile. Pure function:
// monotonically increasing in salary and multiplier, decreasing in hours.
func ResolveRate(p CompensationProfile) decimal.Decimal {
	hours := p.TypicalHoursPerMonth
	if hours <= 0 {
		hours = DefaultTypicalHoursPerMonth
	}

	mult := p.OverheadMultiplier
	if mult.LessThan(one) {
		mult = DefaultOverheadMultiplier
	}

	return p.MonthlySalary.Div(decimal.NewFromInt(int64(hours))).Mul(mult)
}
