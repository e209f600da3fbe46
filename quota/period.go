package quota

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - Calendar month a quota applies to
// =============================================================================

// Period is a calendar month. Quotas, sales and commissions are always
// computed per month.
type Period struct {
	Year  int
	Month time.Month
}

func NewPeriod(year int, month time.Month) Period { return Period{Year: year, Month: month} }

// PeriodOf returns the month containing t.
func PeriodOf(t time.Time) Period { return Period{Year: t.Year(), Month: t.Month()} }

// Valid reports whether the period names a real month.
func (p Period) Valid() bool {
	return p.Year > 0 && p.Month >= time.January && p.Month <= time.December
}

// FirstDay returns the first day of the month at midnight UTC.
func (p Period) FirstDay() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// LastDay returns the last day of the month at midnight UTC.
func (p Period) LastDay() time.Time {
	return time.Date(p.Year, p.Month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

// DaysInMonth returns the number of calendar days in the period.
func (p Period) DaysInMonth() int { return p.LastDay().Day() }

// Contains returns true if t falls on a day within the period.
func (p Period) Contains(t time.Time) bool {
	d := dateOnly(t)
	return !d.Before(p.FirstDay()) && !d.After(p.LastDay())
}

// Next returns the following month.
func (p Period) Next() Period {
	first := p.FirstDay().AddDate(0, 1, 0)
	return PeriodOf(first)
}

// Previous returns the preceding month.
func (p Period) Previous() Period {
	first := p.FirstDay().AddDate(0, -1, 0)
	return PeriodOf(first)
}

func (p Period) String() string { return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month)) }

// ParsePeriod parses "YYYY-MM".
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, &ValidationError{Field: "period", Message: fmt.Sprintf("invalid period %q, expected YYYY-MM", s)}
	}
	return PeriodOf(t), nil
}

// dateOnly normalizes t to midnight UTC of its calendar day.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
