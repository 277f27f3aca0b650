package core

import "time"

// Reporting periods, resolved to inclusive date ranges ending today.
const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

type Period string

// ParsePeriod returns the period named by s, defaulting to day for
// anything outside the closed set.
func ParsePeriod(s string) Period {
	switch Period(s) {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return Period(s)
	default:
		return PeriodDay
	}
}

// DateRange is an inclusive calendar date range.
type DateRange struct {
	Start Date
	End   Date
}

// Resolve maps a period to its inclusive date range ending at today.
//
//   - day: start = end = today
//   - week: start = the most recent Monday on or before today
//   - month: start = the same day of month one calendar month earlier,
//     clamped to the last valid day of that month
//   - year: start = the same date one year earlier (Feb 29 clamps to Feb 28)
func (p Period) Resolve(today Date) DateRange {
	end := NewDate(today.Year(), int(today.Time.Month()), today.Time.Day())
	var start Date

	switch p {
	case PeriodWeek:
		// Monday is weekday index 1; Sunday goes six days back.
		back := int(end.Weekday()) - 1
		if end.Weekday() == time.Sunday {
			back = 6
		}
		start = Date{Time: end.AddDate(0, 0, -back)}
	case PeriodMonth:
		start = monthsEarlier(end, 1)
	case PeriodYear:
		y, m, d := end.Year()-1, int(end.Time.Month()), end.Time.Day()
		start = NewDate(y, m, clampDay(y, m, d))
	default:
		start = end
	}
	return DateRange{Start: start, End: end}
}

// monthsEarlier steps back n calendar months, clamping the day of month
// to the last valid day when the target month is shorter. This is the
// documented rollback rule; time.AddDate would normalize Mar 31 - 1mo
// into Mar 3 instead.
func monthsEarlier(d Date, n int) Date {
	y := d.Year()
	m := int(d.Time.Month()) - n
	for m < 1 {
		m += 12
		y--
	}
	return NewDate(y, m, clampDay(y, m, d.Time.Day()))
}

func clampDay(year, month, day int) int {
	last := daysIn(year, month)
	if day > last {
		return last
	}
	return day
}

func daysIn(year, month int) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
