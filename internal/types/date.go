package types

import (
	"time"

	ierr "github.com/chronobill/chronobill/internal/errors"
)

// NextOccurrence calculates the earliest occurrence of a plan's cadence that
// is strictly after the given instant. Occurrences are the dates congruent to
// the anchor modulo the cadence, i.e. anchor + n*(interval units) for n >= 0,
// with month-end clamping applied per occurrence.
//
// The computation is closed-form: the occurrence index is derived by dividing
// the elapsed time by the cadence, never by stepping occurrence-by-occurrence.
// A plan left dormant for years therefore resolves in constant time, and
// missed occurrences remain addressable for backfill.
//
// Clamping rules:
// - Monthly cadences anchored on day 29/30/31 clamp to the last day of
//   shorter months and return to the anchor day in longer months.
// - Yearly cadences anchored on Feb 29 clamp to Feb 28 in non-leap years.
// - Daily and weekly cadences are exact additions, no clamping.
func NextOccurrence(frequency BillingFrequency, interval int, anchor, after time.Time) (time.Time, error) {
	if interval <= 0 {
		return time.Time{}, ierr.NewError("billing interval must be a positive integer").
			WithHint("Billing interval must be a positive integer").
			WithReportableDetails(map[string]any{
				"interval": interval,
			}).
			Mark(ierr.ErrValidation)
	}

	// The anchor itself is the first occurrence.
	if after.Before(anchor) {
		return anchor, nil
	}

	switch frequency {
	case BILLING_FREQUENCY_DAILY:
		return nextByDays(anchor, after, interval), nil
	case BILLING_FREQUENCY_WEEKLY:
		return nextByDays(anchor, after, 7*interval), nil
	case BILLING_FREQUENCY_MONTHLY:
		return nextByMonths(anchor, after, interval), nil
	case BILLING_FREQUENCY_YEARLY:
		return nextByYears(anchor, after, interval), nil
	default:
		return time.Time{}, ierr.NewError("invalid billing frequency").
			WithHint("Invalid billing frequency").
			WithReportableDetails(map[string]any{
				"frequency": frequency,
			}).
			Mark(ierr.ErrValidation)
	}
}

// nextByDays handles exact-step cadences. With after >= anchor, the number of
// whole steps already elapsed is floor(elapsed/step); the next occurrence is
// one step beyond that, which is strictly after `after` even when `after`
// falls exactly on an occurrence.
func nextByDays(anchor, after time.Time, stepDays int) time.Time {
	step := time.Duration(stepDays) * 24 * time.Hour
	n := int64(after.Sub(anchor)/step) + 1
	return anchor.AddDate(0, 0, int(n)*stepDays)
}

func nextByMonths(anchor, after time.Time, intervalMonths int) time.Time {
	monthsElapsed := (after.Year()-anchor.Year())*12 + int(after.Month()) - int(anchor.Month())
	n := monthsElapsed / intervalMonths

	// Clamping can move occurrence n to either side of `after` within its
	// month, so try n and n+1; n+1 lands in a strictly later month and is
	// always a valid upper bound.
	candidate := AddClampedDate(anchor, 0, n*intervalMonths, 0)
	if candidate.After(after) {
		return candidate
	}
	return AddClampedDate(anchor, 0, (n+1)*intervalMonths, 0)
}

func nextByYears(anchor, after time.Time, intervalYears int) time.Time {
	yearsElapsed := after.Year() - anchor.Year()
	n := yearsElapsed / intervalYears

	candidate := AddClampedDate(anchor, n*intervalYears, 0, 0)
	if candidate.After(after) {
		return candidate
	}
	return AddClampedDate(anchor, (n+1)*intervalYears, 0, 0)
}

// AddClampedDate adds the given years, months and days to t, clamping the day
// of month to the last valid day of the target month instead of letting it
// roll over. time.AddDate would normalize Jan 31 + 1 month to Mar 2/3; for
// billing we want Feb 28/29.
func AddClampedDate(t time.Time, years, months, days int) time.Time {
	y, m, d := t.Date()
	h, min, sec := t.Clock()

	newY := y + years
	newM := time.Month(int(m) + months)

	// Normalize the month into [1, 12], carrying into the year.
	for newM > 12 {
		newM -= 12
		newY++
	}
	for newM < 1 {
		newM += 12
		newY--
	}

	// Day 0 of the following month normalizes to the last day of the
	// target month, independent of zone or DST.
	lastDay := time.Date(newY, newM+1, 0, 0, 0, 0, 0, time.UTC).Day()

	newD := d + days
	if newD > lastDay {
		newD = lastDay
	}

	return time.Date(newY, newM, newD, h, min, sec, t.Nanosecond(), t.Location())
}
