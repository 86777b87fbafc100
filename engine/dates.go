package engine

import "time"

// =============================================================================
// DUE DATE ARITHMETIC
// =============================================================================
//
// Due dates advance from the first-due anchor by whole periods. Month-based
// advances clamp to the end of shorter months instead of overflowing into the
// following month (Jan 31 + 1 month is Feb 28/29, not Mar 3), and each due
// date is derived from the anchor rather than the previous row so a month-end
// anchor stays month-end all the way down the schedule.

// DueDate returns the due date of installment `number` (1-based) for the
// given anchor, frequency and repeat-every multiplier.
func DueDate(anchor time.Time, freq Frequency, every, number int) time.Time {
	if every < 1 {
		every = 1
	}
	steps := (number - 1) * every
	switch freq {
	case FreqDaily:
		return anchor.AddDate(0, 0, steps)
	case FreqWeekly:
		return anchor.AddDate(0, 0, 7*steps)
	case FreqBiweekly:
		return anchor.AddDate(0, 0, 14*steps)
	case FreqMonthly:
		return addMonthsClamped(anchor, steps)
	case FreqQuarterly:
		return addMonthsClamped(anchor, 3*steps)
	case FreqSemiAnnual:
		return addMonthsClamped(anchor, 6*steps)
	case FreqAnnual:
		return addMonthsClamped(anchor, 12*steps)
	}
	return anchor
}

// addMonthsClamped advances by whole months, clamping the day of month to the
// target month's length. time.AddDate would normalize Jan 31 + 1 month into
// March; schedules must not skip a month.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	m := int(month) + months
	year += (m - 1) / 12
	m = (m-1)%12 + 1
	if m <= 0 { // negative month arithmetic wraps into the previous year
		m += 12
		year--
	}
	if max := daysInMonth(year, time.Month(m)); day > max {
		day = max
	}
	return time.Date(year, time.Month(m), day, 0, 0, 0, 0, t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysBetween returns the whole days from one date to another, ignoring the
// time-of-day component. Negative when `to` precedes `from`.
func DaysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}
