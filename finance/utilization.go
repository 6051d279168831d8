/*
utilization.go - Weekly over-utilization detection

PURPOSE:
  Answers "if this person takes on N more hours, are they overcommitted this
  week?" by summing planned hours across ALL of their active assignments
  system-wide and comparing against the fixed 40-hour weekly capacity.

ADVISORY, NOT BLOCKING:
  The check returns a warning payload; it never prevents assignment
  creation. The caller surfaces the warning and decides whether to proceed.

  Over-utilization is measured against total committed hours, not conflicts
  between specific assignments: a single 45-hour proposal on an empty week
  is flagged 5 hours over even though it conflicts with nothing.
*/
package finance

import "context"

type UtilizationChecker struct {
	Ledger *Ledger
}

func NewUtilizationChecker(ledger *Ledger) *UtilizationChecker {
	return &UtilizationChecker{Ledger: ledger}
}

// Check evaluates the user's committed hours for the week containing weekOf,
// plus the proposed additional hours, against WeeklyCapacityHours.
func (c *UtilizationChecker) Check(ctx context.Context, userID UserID, proposedHours int, weekOf Date) (*UtilizationResult, error) {
	if proposedHours < 0 {
		return nil, &ValidationError{Field: "proposedHours", Reason: "must not be negative"}
	}
	if weekOf.IsZero() {
		weekOf = Today()
	}

	weekStart, weekEnd := WeekOf(weekOf)

	assignments, err := c.Ledger.ActiveAssignmentsForUser(ctx, userID, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}

	total := proposedHours
	for _, a := range assignments {
		total += a.PlannedHours
	}

	over := total - WeeklyCapacityHours
	if over < 0 {
		over = 0
	}

	return &UtilizationResult{
		UserID:            userID,
		WeekStart:         weekStart,
		WeekEnd:           weekEnd,
		TotalHoursPlanned: total,
		ProposedHours:     proposedHours,
		IsOverUtilized:    over > 0,
		HoursOverLimit:    over,
	}, nil
}
