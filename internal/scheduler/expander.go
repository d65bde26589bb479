package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/campus-scheduler/internal/recurrence"
)

// ErrInvalidWindow indicates a query window whose start is after its end.
var ErrInvalidWindow = errors.New("scheduler: window start must not be after window end")

// DegradedRecurrence reports a meeting whose stored recurrence data could not
// be interpreted. The meeting is treated as non-recurring instead of failing
// the query.
type DegradedRecurrence struct {
	MeetingID string
	Reason    string
}

// ExpandResult holds the occurrences produced for one meeting plus an
// optional degradation warning.
type ExpandResult struct {
	Occurrences []Occurrence
	Degraded    *DegradedRecurrence
}

// Expander projects meetings into concrete occurrences for a query window.
type Expander struct {
	engine *recurrence.Engine
}

// NewExpander wraps a recurrence engine. If engine is nil a UTC engine is used.
func NewExpander(engine *recurrence.Engine) *Expander {
	if engine == nil {
		engine = recurrence.NewEngine(nil)
	}
	return &Expander{engine: engine}
}

// Location returns the timezone occurrences are generated in.
func (x *Expander) Location() *time.Location {
	if x == nil || x.engine == nil {
		return time.UTC
	}
	return x.engine.Location()
}

// Expand returns every occurrence of the meeting that intersects the closed
// window [windowStart, windowEnd], ordered by start time ascending.
//
// Non-recurring meetings yield their single base occurrence iff it intersects
// the window. Recurring meetings yield each rule generated occurrence with
// the base duration preserved, minus any occurrence whose calendar date (in
// the expander's location) appears in the exception set. A malformed stored
// recurrence degrades the meeting to non-recurring treatment, reported via
// the result's Degraded field rather than an error.
func (x *Expander) Expand(meeting Meeting, windowStart, windowEnd time.Time) (ExpandResult, error) {
	if windowStart.After(windowEnd) {
		return ExpandResult{}, ErrInvalidWindow
	}

	if !meeting.IsRecurring {
		return ExpandResult{Occurrences: x.baseOccurrence(meeting, windowStart, windowEnd)}, nil
	}

	desc, err := recurrence.ParseDescriptor(meeting.Recurrence)
	if err != nil {
		return x.degrade(meeting, windowStart, windowEnd, fmt.Sprintf("unparseable recurrence rule: %v", err)), nil
	}

	instances, err := x.engine.Generate(desc, meeting.Start, meeting.End, recurrence.GenerateOptions{
		RangeStart: &windowStart,
		RangeEnd:   &windowEnd,
	})
	if err != nil {
		return x.degrade(meeting, windowStart, windowEnd, fmt.Sprintf("recurrence expansion failed: %v", err)), nil
	}

	exceptions := x.exceptionSet(meeting.ExceptionDates)
	occurrences := make([]Occurrence, 0, len(instances))
	for _, inst := range instances {
		if _, skip := exceptions[dateKey(inst.Start)]; skip {
			continue
		}
		occurrences = append(occurrences, Occurrence{
			MeetingID: meeting.ID,
			Start:     inst.Start,
			End:       inst.End,
		})
	}

	return ExpandResult{Occurrences: occurrences}, nil
}

func (x *Expander) degrade(meeting Meeting, windowStart, windowEnd time.Time, reason string) ExpandResult {
	return ExpandResult{
		Occurrences: x.baseOccurrence(meeting, windowStart, windowEnd),
		Degraded: &DegradedRecurrence{
			MeetingID: meeting.ID,
			Reason:    reason,
		},
	}
}

func (x *Expander) baseOccurrence(meeting Meeting, windowStart, windowEnd time.Time) []Occurrence {
	loc := x.Location()
	start := meeting.Start.In(loc)
	end := meeting.End.In(loc)

	if start.After(windowEnd) || !end.After(windowStart) {
		return nil
	}
	return []Occurrence{{MeetingID: meeting.ID, Start: start, End: end}}
}

// exceptionSet keys exception dates by calendar date so adding the same date
// twice, or with a different time of day, suppresses at most one occurrence.
func (x *Expander) exceptionSet(dates []time.Time) map[string]struct{} {
	if len(dates) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(dates))
	for _, date := range dates {
		set[dateKey(date)] = struct{}{}
	}
	return set
}

// dateKey reads the calendar date in the value's own location. Exception
// dates are civil dates; converting them across zones would shift the day.
func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
