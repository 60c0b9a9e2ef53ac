package domain

import (
	"time"
)

// PeriodType labels the granularity of a reporting period.
type PeriodType string

const (
	PeriodMonth   PeriodType = "month"
	PeriodQuarter PeriodType = "quarter"
	PeriodYear    PeriodType = "year"
	PeriodCustom  PeriodType = "custom"
)

// Period is an inclusive [Start, End] interval supplied by the caller.
type Period struct {
	Start time.Time  `json:"start_date"`
	End   time.Time  `json:"end_date"`
	Type  PeriodType `json:"type"`
}

// Validate rejects empty or inverted periods.
func (p Period) Validate() error {
	if p.Start.IsZero() {
		return NewValidationError("start_date", "is required")
	}
	if p.End.IsZero() {
		return NewValidationError("end_date", "is required")
	}
	if p.End.Before(p.Start) {
		return NewValidationError("end_date", "must not be before start_date")
	}
	return nil
}

// Contains reports whether t falls inside the period, both bounds inclusive.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// Previous returns the adjacent period of the same type immediately before p.
// Month, quarter and year periods step back by calendar units; custom periods
// step back by their own length.
func (p Period) Previous() Period {
	switch p.Type {
	case PeriodMonth:
		return Period{Start: p.Start.AddDate(0, -1, 0), End: p.Start.Add(-time.Nanosecond), Type: p.Type}
	case PeriodQuarter:
		return Period{Start: p.Start.AddDate(0, -3, 0), End: p.Start.Add(-time.Nanosecond), Type: p.Type}
	case PeriodYear:
		return Period{Start: p.Start.AddDate(-1, 0, 0), End: p.Start.Add(-time.Nanosecond), Type: p.Type}
	default:
		length := p.End.Sub(p.Start)
		end := p.Start.Add(-time.Nanosecond)
		return Period{Start: end.Add(-length), End: end, Type: p.Type}
	}
}

// MonthKey buckets a timestamp by calendar month (YYYY-MM, UTC).
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
