package recurrence

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Frequency represents supported recurrence intervals.
type Frequency int

const (
	// FrequencyUnspecified indicates the rule frequency is not set.
	FrequencyUnspecified Frequency = iota
	// FrequencyDaily generates occurrences every interval days.
	FrequencyDaily
	// FrequencyWeekly generates occurrences for the selected weekdays.
	FrequencyWeekly
	// FrequencyMonthly generates occurrences on the base day of month.
	FrequencyMonthly
)

// ErrInvalidRecurrence indicates a descriptor could not be built or parsed.
var ErrInvalidRecurrence = errors.New("recurrence: invalid descriptor")

// Descriptor is the canonical, immutable encoding of a repeating schedule
// rule. Exactly zero or one of Until and Count is set; when both are absent
// the series is open ended and callers must always supply a bounded window.
type Descriptor struct {
	Frequency Frequency
	Interval  int
	Weekdays  []time.Weekday
	Until     *time.Time
	Count     int
}

// DescriptorParams captures caller provided rule fields for BuildDescriptor.
type DescriptorParams struct {
	Frequency Frequency
	Interval  int
	Weekdays  []time.Weekday
	Until     *time.Time
	Count     int
}

// BuildDescriptor validates rule parameters and returns a canonical
// descriptor. The interval defaults to 1. Weekday selections are only
// meaningful for weekly rules and are dropped otherwise.
func BuildDescriptor(params DescriptorParams) (Descriptor, error) {
	interval := params.Interval
	if interval == 0 {
		interval = 1
	}
	if interval < 1 {
		return Descriptor{}, fmt.Errorf("%w: interval must be at least 1", ErrInvalidRecurrence)
	}

	switch params.Frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
	default:
		return Descriptor{}, fmt.Errorf("%w: unknown frequency", ErrInvalidRecurrence)
	}

	if params.Until != nil && params.Count > 0 {
		return Descriptor{}, fmt.Errorf("%w: until and count are mutually exclusive", ErrInvalidRecurrence)
	}
	if params.Count < 0 {
		return Descriptor{}, fmt.Errorf("%w: count must be positive", ErrInvalidRecurrence)
	}

	desc := Descriptor{
		Frequency: params.Frequency,
		Interval:  interval,
		Count:     params.Count,
	}

	if params.Frequency == FrequencyWeekly {
		weekdays := normalizeWeekdays(params.Weekdays)
		if len(weekdays) == 0 {
			return Descriptor{}, fmt.Errorf("%w: weekly rules require at least one weekday", ErrInvalidRecurrence)
		}
		desc.Weekdays = weekdays
	}

	if params.Until != nil {
		until := canonicalDate(*params.Until)
		desc.Until = &until
	}

	return desc, nil
}

// normalizeWeekdays deduplicates and orders the weekday selection Sunday first.
func normalizeWeekdays(weekdays []time.Weekday) []time.Weekday {
	seen := make(map[time.Weekday]struct{}, len(weekdays))
	out := make([]time.Weekday, 0, len(weekdays))
	for _, day := range weekdays {
		if day < time.Sunday || day > time.Saturday {
			continue
		}
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		out = append(out, day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// canonicalDate strips the time of day so Until round-trips as a calendar
// date. The calendar date is read in the value's own location.
func canonicalDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
