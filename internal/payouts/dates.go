package payouts

import (
	"time"

	"github.com/harlowmarket/payouts-backend/pkg/enums"
)

// Disbursements always land on a Friday to align with banking cut-offs. The
// helpers below snap recurrence anchors to that rule; all date math is in UTC
// at day granularity.

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func lastFridayOnOrBefore(day time.Time) time.Time {
	offset := (int(day.Weekday()) - int(time.Friday) + 7) % 7
	return day.AddDate(0, 0, -offset)
}

func endOfMonth(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

func endOfQuarter(day time.Time) time.Time {
	quarterEnd := time.Month(((int(day.Month())-1)/3)*3 + 3)
	return time.Date(day.Year(), quarterEnd+1, 0, 0, 0, 0, 0, time.UTC)
}

// initialCandidate computes the first recurrence anchor for today's date:
// the most recent Friday for weekly cadence, or the last Friday on/before
// the current month or quarter end.
func initialCandidate(today time.Time, frequency enums.PayoutFrequency) time.Time {
	switch frequency {
	case enums.PayoutFrequencyMonthly:
		return lastFridayOnOrBefore(endOfMonth(today))
	case enums.PayoutFrequencyQuarterly:
		return lastFridayOnOrBefore(endOfQuarter(today))
	default:
		return lastFridayOnOrBefore(today)
	}
}

// advanceCandidate moves the anchor forward one recurrence step, re-snapped
// to the last Friday of the next period.
func advanceCandidate(candidate time.Time, frequency enums.PayoutFrequency) time.Time {
	switch frequency {
	case enums.PayoutFrequencyMonthly:
		nextEnd := time.Date(candidate.Year(), candidate.Month()+2, 0, 0, 0, 0, 0, time.UTC)
		return lastFridayOnOrBefore(nextEnd)
	case enums.PayoutFrequencyQuarterly:
		nextEnd := endOfQuarter(endOfQuarter(candidate).AddDate(0, 0, 1))
		return lastFridayOnOrBefore(nextEnd)
	default:
		return candidate.AddDate(0, 0, 7)
	}
}
