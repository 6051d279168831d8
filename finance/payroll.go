/*
payroll.go - Payroll Prorator

PURPOSE:
  Computes gross pay proportional to the working weekdays actually covered
  by a pay period:

    grossSalary = monthlySalary * weekdays(period) / weekdays(start month)

  Working days are Monday-Friday only. The divisor is always the weekday
  count of the calendar month containing payPeriodStart - including for
  periods that spill into the next month. That is the billing contract as
  shipped; a day-by-day blended divisor is a known open question with the
  domain owner.

  Net pay applies simple, order-independent linear adjustments:

    netSalary = grossSalary + allowances + bonuses - otherDeductions

GUARDS:
  A zero weekday count in the reference month resolves to zero gross rather
  than an error, keeping the payroll view renderable.
*/
package finance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PayslipInput are the inputs to one payslip computation. Monetary
// adjustments default to zero when left unset.
type PayslipInput struct {
	UserID          UserID
	MonthlySalary   decimal.Decimal
	PeriodStart     Date
	PeriodEnd       Date // inclusive
	Allowances      decimal.Decimal
	Bonuses         decimal.Decimal
	OtherDeductions decimal.Decimal
}

// PayslipComputation is the derived pay breakdown for one period.
type PayslipComputation struct {
	PayslipNumber    string
	UserID           UserID
	PeriodStart      Date
	PeriodEnd        Date
	DaysWorked       int // weekdays in the pay period
	MonthWorkingDays int // weekdays in the start month
	DailySalary      decimal.Decimal
	GrossSalary      decimal.Decimal
	Allowances       decimal.Decimal
	Bonuses          decimal.Decimal
	OtherDeductions  decimal.Decimal
	NetSalary        decimal.Decimal
}

// ComputePayslip prorates the monthly salary over the pay period's working
// weekdays. Pure function; all amounts half-up rounded to 2 places.
func ComputePayslip(in PayslipInput) (*PayslipComputation, error) {
	if in.PeriodStart.IsZero() || in.PeriodEnd.IsZero() {
		return nil, &ValidationError{Field: "payPeriod", Reason: "start and end dates are required"}
	}
	if in.PeriodEnd.Before(in.PeriodStart) {
		return nil, &ValidationError{Field: "payPeriodEnd", Reason: "must not precede payPeriodStart"}
	}
	if in.MonthlySalary.IsNegative() {
		return nil, &ValidationError{Field: "monthlySalary", Reason: "must not be negative"}
	}

	worked := CountWeekdays(in.PeriodStart, in.PeriodEnd)

	monthFirst, monthLast := MonthSpan(in.PeriodStart)
	monthDays := CountWeekdays(monthFirst, monthLast)

	daily := decimal.Zero
	gross := decimal.Zero
	if monthDays > 0 {
		divisor := decimal.NewFromInt(int64(monthDays))
		daily = in.MonthlySalary.Div(divisor).Round(2)
		gross = in.MonthlySalary.
			Mul(decimal.NewFromInt(int64(worked))).
			Div(divisor).
			Round(2)
	}

	net := gross.
		Add(in.Allowances).
		Add(in.Bonuses).
		Sub(in.OtherDeductions).
		Round(2)

	return &PayslipComputation{
		PayslipNumber:    NewPayslipNumber(),
		UserID:           in.UserID,
		PeriodStart:      in.PeriodStart,
		PeriodEnd:        in.PeriodEnd,
		DaysWorked:       worked,
		MonthWorkingDays: monthDays,
		DailySalary:      daily,
		GrossSalary:      gross,
		Allowances:       in.Allowances,
		Bonuses:          in.Bonuses,
		OtherDeductions:  in.OtherDeductions,
		NetSalary:        net,
	}, nil
}

// NewPayslipNumber generates a payslip reference like PSL-1767225600000.
func NewPayslipNumber() string {
	return fmt.Sprintf("PSL-%d", time.Now().UnixMilli())
}
