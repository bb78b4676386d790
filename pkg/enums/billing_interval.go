package enums

import (
	"fmt"
	"time"
)

// BillingInterval defines the cadence of a subscription.
type BillingInterval string

const (
	BillingIntervalMonthly   BillingInterval = "MONTHLY"
	BillingIntervalQuarterly BillingInterval = "QUARTERLY"
	BillingIntervalYearly    BillingInterval = "YEARLY"
)

var validBillingIntervals = []BillingInterval{
	BillingIntervalMonthly,
	BillingIntervalQuarterly,
	BillingIntervalYearly,
}

// BillingIntervals returns all recognized intervals, in display order.
func BillingIntervals() []BillingInterval {
	out := make([]BillingInterval, len(validBillingIntervals))
	copy(out, validBillingIntervals)
	return out
}

// String implements fmt.Stringer.
func (b BillingInterval) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BillingInterval.
func (b BillingInterval) IsValid() bool {
	for _, candidate := range validBillingIntervals {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBillingInterval converts raw input into a BillingInterval.
func ParseBillingInterval(value string) (BillingInterval, error) {
	for _, candidate := range validBillingIntervals {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid billing interval %q", value)
}

func (b BillingInterval) months() int {
	switch b {
	case BillingIntervalMonthly:
		return 1
	case BillingIntervalQuarterly:
		return 3
	case BillingIntervalYearly:
		return 12
	}
	return 0
}

// Advance returns the date exactly one interval after from, using calendar
// month arithmetic. The day of month is clamped to the last day of the
// target month, so Jan 31 + MONTHLY = Feb 28 (Feb 29 in leap years) rather
// than rolling over into March.
func (b BillingInterval) Advance(from time.Time) time.Time {
	months := b.months()
	if months == 0 {
		return from
	}

	year, month, day := from.Date()
	targetFirst := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, from.Location())
	if last := daysInMonth(targetFirst.Year(), targetFirst.Month()); day > last {
		day = last
	}
	return time.Date(targetFirst.Year(), targetFirst.Month(), day, 0, 0, 0, 0, from.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
