package ledger

import (
	"time"

	"github.com/harlowmarket/payouts-backend/pkg/enums"
)

// PeriodDateFor buckets a transaction timestamp into the balance period it
// belongs to under the seller's payout frequency. Daily and weekly sellers
// bucket by occurrence date; monthly and quarterly sellers bucket into the
// calendar period, keyed by its last day. All bucketing happens in UTC.
func PeriodDateFor(occurredAt time.Time, frequency enums.PayoutFrequency) time.Time {
	day := truncateToDay(occurredAt)
	switch frequency {
	case enums.PayoutFrequencyMonthly:
		return endOfMonth(day)
	case enums.PayoutFrequencyQuarterly:
		return endOfQuarter(day)
	default:
		return day
	}
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfMonth(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

func endOfQuarter(day time.Time) time.Time {
	quarterEnd := time.Month(((int(day.Month())-1)/3)*3 + 3)
	return time.Date(day.Year(), quarterEnd+1, 0, 0, 0, 0, 0, time.UTC)
}
