package enums

import "fmt"

// UsageCounter names a denormalized per-user aggregate column.
type UsageCounter string

const (
	UsageCounterSubscriptions UsageCounter = "total_subscriptions"
	UsageCounterAlerts        UsageCounter = "total_alerts"
)

var validUsageCounters = []UsageCounter{
	UsageCounterSubscriptions,
	UsageCounterAlerts,
}

// String implements fmt.Stringer.
func (u UsageCounter) String() string {
	return string(u)
}

// IsValid reports whether the value names a known counter column.
func (u UsageCounter) IsValid() bool {
	for _, candidate := range validUsageCounters {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUsageCounter converts raw input into a UsageCounter.
func ParseUsageCounter(value string) (UsageCounter, error) {
	for _, candidate := range validUsageCounters {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid usage counter %q", value)
}
