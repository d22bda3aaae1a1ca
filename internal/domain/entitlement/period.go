package entitlement

import "time"

// LifetimePeriodKey is the sentinel period key for counters that never reset
const LifetimePeriodKey = "lifetime"

// periodKeyLayout formats a billing cycle start date as a period key
const periodKeyLayout = "2006-01-02"

// CurrentPeriodKey derives the active period key for a counter from the
// period kind, the account's period anchor and the current time. The key is
// a pure function of its inputs: rollover happens implicitly when the clock
// crosses a cycle boundary, no reset job exists.
func CurrentPeriodKey(kind PeriodKind, anchor, now time.Time) string {
	if kind == PeriodLifetime {
		return LifetimePeriodKey
	}
	return CurrentCycleStart(anchor, now).Format(periodKeyLayout)
}

// CurrentCycleStart returns the start (midnight UTC) of the billing cycle
// containing now. Cycles are month-long and anchored to the anchor's
// day-of-month, clamped for months that are too short (an anchor on the
// 31st bills on the 28th/29th/30th where needed).
func CurrentCycleStart(anchor, now time.Time) time.Time {
	anchorDay := startOfDayUTC(anchor)
	now = now.UTC()
	if now.Before(anchorDay) {
		// Clock behind the anchor; stay in the first cycle
		return anchorDay
	}

	months := (now.Year()-anchorDay.Year())*12 + int(now.Month()) - int(anchorDay.Month())
	start := addMonthsClamped(anchorDay, months)
	if start.After(now) {
		start = addMonthsClamped(anchorDay, months-1)
	}
	return start
}

// startOfDayUTC truncates a time to midnight UTC
func startOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// addMonthsClamped advances t by the given number of months, clamping the
// day-of-month to the length of the target month. time.AddDate is not used
// because it normalizes Jan 31 + 1 month to Mar 3.
func addMonthsClamped(t time.Time, months int) time.Time {
	firstOfTarget := time.Date(t.Year(), time.Month(int(t.Month())+months), 1, 0, 0, 0, 0, time.UTC)
	daysInTarget := firstOfTarget.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > daysInTarget {
		day = daysInTarget
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, 0, 0, 0, 0, time.UTC)
}
