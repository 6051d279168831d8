package finance

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar date without time-of-day
// =============================================================================

// Date is a calendar date normalized to midnight UTC. Every date the engine
// handles (assignment ranges, pay periods, invoice dates) is a plain
// calendar date; time zones and clock times never enter the model.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time.Time to its calendar date (in UTC).
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) Time() time.Time       { return d.t }

func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Date) IsWorkday() bool { return !d.IsWeekend() }

func (d Date) String() string { return d.t.Format("2006-01-02") }

// =============================================================================
// WEEK & MONTH WINDOWS
// =============================================================================

// WeekOf returns the Monday-to-Sunday window containing d. Utilization is
// always evaluated against this window.
func WeekOf(d Date) (start, end Date) {
	offset := int(d.Weekday()-time.Monday+7) % 7
	start = d.AddDays(-offset)
	end = start.AddDays(6)
	return start, end
}

// MonthSpan returns the first and last day of the calendar month containing d.
func MonthSpan(d Date) (first, last Date) {
	first = NewDate(d.Year(), d.Month(), 1)
	last = first.AddMonths(1).AddDays(-1)
	return first, last
}

// CountWeekdays counts Monday-Friday days in [from, to] inclusive.
// Returns 0 when to precedes from.
func CountWeekdays(from, to Date) int {
	if to.Before(from) {
		return 0
	}
	count := 0
	for d := from; d.BeforeOrEqual(to); d = d.AddDays(1) {
		if d.IsWorkday() {
			count++
		}
	}
	return count
}
