package scheduling

import (
	"iter"
	"time"

	"coachbook/pkg/model"
)

var recurringWeekdays = map[int][]time.Weekday{
	1: {time.Monday},
	2: {time.Monday, time.Thursday},
	3: {time.Monday, time.Wednesday, time.Friday},
}

// AllowedWeekdays returns the weekdays a lesson may start on. One-time lessons
// may start on any day. For recurring lessons an unknown frequency allows none.
func AllowedWeekdays(lessonType model.LessonType, frequency int) []time.Weekday {
	switch lessonType {
	case model.LessonTypeOneTime:
		return []time.Weekday{
			time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
			time.Thursday, time.Friday, time.Saturday,
		}
	case model.LessonTypeRecurring:
		return recurringWeekdays[frequency]
	default:
		return nil
	}
}

// ValidFrequency reports whether a recurring lesson can be scheduled with frequency.
func ValidFrequency(frequency int) bool {
	_, ok := recurringWeekdays[frequency]
	return ok
}

func (c Calendar) MatchesRecurrence(t time.Time, lessonType model.LessonType, frequency int) bool {
	weekday := t.In(c.location()).Weekday()
	for _, allowed := range AllowedWeekdays(lessonType, frequency) {
		if weekday == allowed {
			return true
		}
	}
	return false
}

// FilterRecurrence keeps slots on the weekdays allowed for the lesson type and frequency.
func (c Calendar) FilterRecurrence(slots iter.Seq[Slot], lessonType model.LessonType, frequency int) iter.Seq[Slot] {
	return func(yield func(Slot) bool) {
		for slot := range slots {
			if !c.MatchesRecurrence(slot.Start, lessonType, frequency) {
				continue
			}
			if !yield(slot) {
				return
			}
		}
	}
}

// Available composes generation, capacity and recurrence into the slots that
// can be offered for a new lesson.
func (c Calendar) Available(windowStart time.Time, duration time.Duration, booked Snapshot, lessonType model.LessonType, frequency int) iter.Seq[Slot] {
	candidates := c.WithOccupancy(c.Slots(windowStart), duration, booked)
	return c.FilterRecurrence(WithinCapacity(candidates), lessonType, frequency)
}
