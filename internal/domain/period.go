package domain

import "time"

// Period identifies a trailing statistics window anchored at "now".
type Period string

// Possible period values
const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// Periods lists all valid periods in dashboard order.
var Periods = []Period{PeriodDay, PeriodWeek, PeriodMonth}

// Validate checks if the period is one of the supported values.
func (p Period) Validate() error {
	switch p {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return nil
	default:
		return ErrInvalidPeriod
	}
}

// Start returns the beginning of the period containing the given instant:
// midnight today for day, Monday midnight for week, and the first of the
// month for month. The returned time keeps the location of now.
func (p Period) Start(now time.Time) time.Time {
	switch p {
	case PeriodDay:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case PeriodWeek:
		// time.Weekday numbers Sunday as 0; shift so the week starts Monday.
		offset := (int(now.Weekday()) + 6) % 7
		monday := now.AddDate(0, 0, -offset)
		return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, now.Location())
	case PeriodMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	default:
		return now
	}
}
