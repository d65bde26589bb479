package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const untilLayout = "2006-01-02"

var weekdayCodes = map[time.Weekday]string{
	time.Sunday:    "SU",
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
}

var weekdayByCode = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

var frequencyNames = map[Frequency]string{
	FrequencyDaily:   "DAILY",
	FrequencyWeekly:  "WEEKLY",
	FrequencyMonthly: "MONTHLY",
}

var frequencyByName = map[string]Frequency{
	"DAILY":   FrequencyDaily,
	"WEEKLY":  FrequencyWeekly,
	"MONTHLY": FrequencyMonthly,
}

// Encode renders the descriptor in its canonical textual form, suitable for
// storage by an external persistence collaborator. ParseDescriptor(Encode())
// reproduces the descriptor exactly.
func (d Descriptor) Encode() string {
	parts := make([]string, 0, 4)
	parts = append(parts, "FREQ="+frequencyNames[d.Frequency])
	parts = append(parts, "INTERVAL="+strconv.Itoa(d.Interval))
	if len(d.Weekdays) > 0 {
		codes := make([]string, 0, len(d.Weekdays))
		for _, day := range d.Weekdays {
			codes = append(codes, weekdayCodes[day])
		}
		parts = append(parts, "BYDAY="+strings.Join(codes, ","))
	}
	if d.Until != nil {
		parts = append(parts, "UNTIL="+d.Until.Format(untilLayout))
	}
	if d.Count > 0 {
		parts = append(parts, "COUNT="+strconv.Itoa(d.Count))
	}
	return strings.Join(parts, ";")
}

// ParseDescriptor decodes the canonical textual form produced by Encode. A
// malformed value is reported with ErrInvalidRecurrence so callers can choose
// to degrade rather than fail.
func ParseDescriptor(encoded string) (Descriptor, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return Descriptor{}, fmt.Errorf("%w: empty rule", ErrInvalidRecurrence)
	}

	params := DescriptorParams{}
	seen := make(map[string]struct{})

	for _, part := range strings.Split(encoded, ";") {
		key, value, ok := strings.Cut(part, "=")
		if !ok || value == "" {
			return Descriptor{}, fmt.Errorf("%w: malformed component %q", ErrInvalidRecurrence, part)
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		if _, dup := seen[key]; dup {
			return Descriptor{}, fmt.Errorf("%w: duplicate component %q", ErrInvalidRecurrence, key)
		}
		seen[key] = struct{}{}

		switch key {
		case "FREQ":
			freq, ok := frequencyByName[strings.ToUpper(value)]
			if !ok {
				return Descriptor{}, fmt.Errorf("%w: unknown frequency %q", ErrInvalidRecurrence, value)
			}
			params.Frequency = freq
		case "INTERVAL":
			interval, err := strconv.Atoi(value)
			if err != nil {
				return Descriptor{}, fmt.Errorf("%w: interval %q", ErrInvalidRecurrence, value)
			}
			params.Interval = interval
		case "BYDAY":
			for _, code := range strings.Split(value, ",") {
				day, ok := weekdayByCode[strings.ToUpper(strings.TrimSpace(code))]
				if !ok {
					return Descriptor{}, fmt.Errorf("%w: unknown weekday %q", ErrInvalidRecurrence, code)
				}
				params.Weekdays = append(params.Weekdays, day)
			}
		case "UNTIL":
			until, err := time.ParseInLocation(untilLayout, value, time.UTC)
			if err != nil {
				return Descriptor{}, fmt.Errorf("%w: until %q", ErrInvalidRecurrence, value)
			}
			params.Until = &until
		case "COUNT":
			count, err := strconv.Atoi(value)
			if err != nil || count < 1 {
				return Descriptor{}, fmt.Errorf("%w: count %q", ErrInvalidRecurrence, value)
			}
			params.Count = count
		default:
			return Descriptor{}, fmt.Errorf("%w: unknown component %q", ErrInvalidRecurrence, key)
		}
	}

	return BuildDescriptor(params)
}
