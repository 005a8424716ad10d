// Package scheduling holds the pure parts of lesson scheduling: slot
// generation, capacity counting, recurrence filtering and exact-time conflict
// detection. Every stage is an iter.Seq transformation so each rule can be
// tested on its own and the pipeline can be re-run over the same inputs.
package scheduling

import (
	"fmt"
	"iter"
	"time"
)

const (
	DefaultOpenAt          = 7 * time.Hour
	DefaultCloseAt         = 23 * time.Hour
	DefaultStep            = 30 * time.Minute
	DefaultWindowDays      = 7
	DefaultWeekdayCapacity = 5
	DefaultWeekendCapacity = 3
)

// Calendar is the single operating calendar all coaches share.
type Calendar struct {
	Location        *time.Location
	OpenAt          time.Duration
	CloseAt         time.Duration
	Step            time.Duration
	WindowDays      int
	WeekdayCapacity int
	WeekendCapacity int
}

func DefaultCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{
		Location:        loc,
		OpenAt:          DefaultOpenAt,
		CloseAt:         DefaultCloseAt,
		Step:            DefaultStep,
		WindowDays:      DefaultWindowDays,
		WeekdayCapacity: DefaultWeekdayCapacity,
		WeekendCapacity: DefaultWeekendCapacity,
	}
}

// ParseClock turns "HH:MM" into an offset from midnight.
func ParseClock(hhmm string) (time.Duration, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", hhmm, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func (c Calendar) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// StartOfDay returns local midnight of the day containing t.
func (c Calendar) StartOfDay(t time.Time) time.Time {
	t = t.In(c.location())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.location())
}

// WindowStart is the start of the day after now. Today is never offered.
func (c Calendar) WindowStart(now time.Time) time.Time {
	return c.StartOfDay(now).AddDate(0, 0, 1)
}

// Days yields the local midnight of every day in the window.
func (c Calendar) Days(windowStart time.Time) iter.Seq[time.Time] {
	start := c.StartOfDay(windowStart)
	return func(yield func(time.Time) bool) {
		for i := 0; i < c.WindowDays; i++ {
			if !yield(start.AddDate(0, 0, i)) {
				return
			}
		}
	}
}

// Slots yields every candidate start time: one per step boundary inside
// operating hours, for each day of the window. A slot starting before closing
// time is offered even if the lesson would run past it.
func (c Calendar) Slots(windowStart time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		if c.Step <= 0 {
			return
		}
		for day := range c.Days(windowStart) {
			for offset := c.OpenAt; offset < c.CloseAt; offset += c.Step {
				if !yield(c.atClock(day, offset)) {
					return
				}
			}
		}
	}
}

// atClock returns the wall-clock time offset after midnight on day. Adding
// the offset as elapsed time would shift slots on DST transition days.
func (c Calendar) atClock(day time.Time, offset time.Duration) time.Time {
	day = day.In(c.location())
	return time.Date(day.Year(), day.Month(), day.Day(),
		int(offset/time.Hour), int(offset%time.Hour/time.Minute), int(offset%time.Minute/time.Second),
		0, c.location())
}

// CapacityOn is the number of concurrent lessons allowed on the day of t.
func (c Calendar) CapacityOn(t time.Time) int {
	switch t.In(c.location()).Weekday() {
	case time.Saturday, time.Sunday:
		return c.WeekendCapacity
	default:
		return c.WeekdayCapacity
	}
}

// DayKey identifies the local day of t.
func (c Calendar) DayKey(t time.Time) string {
	return t.In(c.location()).Format(time.DateOnly)
}
