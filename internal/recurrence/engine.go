package recurrence

import (
	"errors"
	"math"
	"time"
)

// maxIterations bounds a single generation run so corrupt rules can never
// spin the expansion loop indefinitely.
const maxIterations = 100000

// GenerateOptions defines optional range bounds for occurrence generation.
type GenerateOptions struct {
	RangeStart *time.Time
	RangeEnd   *time.Time
}

// Instance is one concrete start/end pair generated from a descriptor.
type Instance struct {
	Start time.Time
	End   time.Time
}

// Engine expands recurrence descriptors into concrete instances.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that normalizes results to the provided
// location. If loc is nil, UTC is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc}
}

// Location returns the timezone instances are generated in.
func (e *Engine) Location() *time.Location {
	if e == nil || e.location == nil {
		return time.UTC
	}
	return e.location
}

// ErrInvalidWindow indicates the generation window is unbounded.
var ErrInvalidWindow = errors.New("recurrence: generation window requires an end bound")

// ErrInvalidDuration indicates the base schedule duration is invalid.
var ErrInvalidDuration = errors.New("recurrence: base duration must be positive")

// generator walks rule positions in chronological order. emit records one
// position and reports whether generation should continue; exhausted reports
// whether a candidate start is already past every bound without recording it.
type generator struct {
	emit      func(start time.Time) bool
	exhausted func(start time.Time) bool
}

// Generate produces the instances of a descriptor within the requested
// window, ordered by start time ascending.
//
// The engine enforces the following semantics:
//   - All timestamps are normalized to the engine's location.
//   - Every generated instance preserves the base start/end duration.
//   - A Count bound counts rule positions from the series start, so chopping
//     a window into sub-queries never changes the total series.
//   - Open ended descriptors (neither Until nor Count) require a bounded
//     range end.
func (e *Engine) Generate(desc Descriptor, baseStart, baseEnd time.Time, opts GenerateOptions) ([]Instance, error) {
	loc := e.Location()

	baseStart = baseStart.In(loc)
	baseEnd = baseEnd.In(loc)
	if !baseEnd.After(baseStart) {
		return nil, ErrInvalidDuration
	}
	duration := baseEnd.Sub(baseStart)

	if desc.Interval < 1 {
		return nil, ErrInvalidRecurrence
	}

	var rangeStart, rangeEnd time.Time
	if opts.RangeStart != nil {
		rangeStart = opts.RangeStart.In(loc)
	}
	if opts.RangeEnd != nil {
		rangeEnd = opts.RangeEnd.In(loc)
	}

	// The inclusive upper bound for generated start times. Count bounded
	// series terminate on their own; everything else needs a hard stop.
	var upperBound time.Time
	hasUpper := false
	if desc.Until != nil {
		upperBound = endOfDay(*desc.Until, loc)
		hasUpper = true
	}
	if !rangeEnd.IsZero() && desc.Count == 0 {
		if !hasUpper || rangeEnd.Before(upperBound) {
			upperBound = rangeEnd
		}
		hasUpper = true
	}
	if !hasUpper && desc.Count == 0 {
		return nil, ErrInvalidWindow
	}

	instances := make([]Instance, 0)
	generated := 0

	gen := generator{
		emit: func(start time.Time) bool {
			if hasUpper && start.After(upperBound) {
				return false
			}
			generated++
			end := start.Add(duration)
			if instanceInRange(start, end, rangeStart, rangeEnd) {
				instances = append(instances, Instance{Start: start, End: end})
			}
			return desc.Count == 0 || generated < desc.Count
		},
		exhausted: func(start time.Time) bool {
			return hasUpper && start.After(upperBound)
		},
	}

	switch desc.Frequency {
	case FrequencyDaily:
		generateDaily(desc, baseStart, gen)
	case FrequencyWeekly:
		generateWeekly(desc, baseStart, loc, gen)
	case FrequencyMonthly:
		generateMonthly(desc, baseStart, loc, gen)
	default:
		return nil, ErrInvalidRecurrence
	}

	return instances, nil
}

// generateDaily walks forward from the base start in interval-day steps.
func generateDaily(desc Descriptor, baseStart time.Time, gen generator) {
	for i := 0; i < maxIterations; i++ {
		start := baseStart.AddDate(0, 0, i*desc.Interval)
		if !gen.emit(start) {
			return
		}
	}
}

// generateWeekly emits the selected weekdays of every interval-th week. Weeks
// anchor on the Monday-start week containing the base date.
func generateWeekly(desc Descriptor, baseStart time.Time, loc *time.Location, gen generator) {
	selected := make(map[time.Weekday]struct{}, len(desc.Weekdays))
	for _, day := range desc.Weekdays {
		selected[day] = struct{}{}
	}

	anchor := startOfWeek(baseStart, loc)
	for i := 0; i < maxIterations; i++ {
		start := baseStart.AddDate(0, 0, i)
		if _, ok := selected[start.Weekday()]; !ok {
			if gen.exhausted(start) {
				return
			}
			continue
		}
		weeks := daysBetween(anchor, startOfWeek(start, loc)) / 7
		if weeks%desc.Interval != 0 {
			if gen.exhausted(start) {
				return
			}
			continue
		}
		if !gen.emit(start) {
			return
		}
	}
}

// generateMonthly emits the base day of month every interval months. Months
// that do not contain the base day contribute no instance.
func generateMonthly(desc Descriptor, baseStart time.Time, loc *time.Location, gen generator) {
	day := baseStart.Day()
	for i := 0; i < maxIterations; i++ {
		year, month := addMonths(baseStart.Year(), baseStart.Month(), i*desc.Interval)
		if day > daysInMonth(year, month) {
			firstOfMonth := time.Date(year, month, 1, baseStart.Hour(), baseStart.Minute(), baseStart.Second(), baseStart.Nanosecond(), loc)
			if gen.exhausted(firstOfMonth) {
				return
			}
			continue
		}
		start := time.Date(year, month, day, baseStart.Hour(), baseStart.Minute(), baseStart.Second(), baseStart.Nanosecond(), loc)
		if !gen.emit(start) {
			return
		}
	}
}

func instanceInRange(start, end, rangeStart, rangeEnd time.Time) bool {
	if !rangeStart.IsZero() && !end.After(rangeStart) {
		return false
	}
	if !rangeEnd.IsZero() && start.After(rangeEnd) {
		return false
	}
	return true
}

func startOfWeek(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	// Monday starts the week. In Go, Monday == 1 and Sunday == 0.
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// daysBetween counts calendar days from one midnight to another, rounding so
// daylight saving transitions cannot skew the week arithmetic.
func daysBetween(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Hours() / 24))
}

func addMonths(year int, month time.Month, months int) (int, time.Month) {
	total := year*12 + int(month) - 1 + months
	return total / 12, time.Month(total%12 + 1)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func endOfDay(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), loc)
}
