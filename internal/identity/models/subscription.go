package models

import (
	"math"
	"time"

	dErrors "github.com/sr13dr31/belyispisok/pkg/domain-errors"
)

// Subscription pricing. Longer commitments earn a flat percentage discount.
const SubscriptionMonthlyPrice = 790

var subscriptionDiscounts = map[int]float64{
	1:  0,
	3:  0.05,
	6:  0.10,
	12: 0.15,
}

// SubscriptionPrice returns the total price for a plan of the given length.
// Only the named tier lengths are sold.
func SubscriptionPrice(months int) (int, error) {
	discount, ok := subscriptionDiscounts[months]
	if !ok {
		return 0, dErrors.Newf(dErrors.CodeInvalidInput, "no subscription plan for %d months", months)
	}
	total := float64(SubscriptionMonthlyPrice*months) * (1 - discount)
	return int(math.Round(total)), nil
}

// SubscriptionPlans lists the sold tier lengths in ascending order.
func SubscriptionPlans() []int {
	return []int{1, 3, 6, 12}
}

// AddMonths advances t by whole calendar months, clamping the day to the
// target month's length so Jan 31 + 1 month is Feb 28/29, not Mar 2/3.
func AddMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	month += time.Month(months)
	first := time.Date(year, month, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
