package scheduling

import (
	"iter"
	"time"
)

// Interval is the [Start, End) span of an existing active lesson.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Snapshot holds the active lessons of one coach, grouped by Calendar.DayKey.
type Snapshot map[string][]Interval

// Slot is a candidate lesson with the number of existing lessons it collides
// with and the cap for its day.
type Slot struct {
	Start    time.Time
	End      time.Time
	Occupied int
	Capacity int
}

func (s Slot) Available() bool {
	return s.Occupied < s.Capacity
}

// Conflicts reports whether an existing lesson [s, e) counts against the
// candidate [start, end). It only catches existing lessons that cover either
// end of the candidate: a lesson strictly inside the candidate is not counted.
// This mirrors production behaviour and is kept on purpose until product
// decides whether containment should count.
func Conflicts(start, end time.Time, existing Interval) bool {
	s, e := existing.Start, existing.End
	coversStart := !s.After(start) && e.After(start)
	coversEnd := s.Before(end) && !e.Before(end)
	return coversStart || coversEnd
}

// CountConflicts returns how many intervals conflict with [start, end).
func CountConflicts(start, end time.Time, existing []Interval) int {
	n := 0
	for _, iv := range existing {
		if Conflicts(start, end, iv) {
			n++
		}
	}
	return n
}

// WithOccupancy turns candidate start times into slots of the given duration,
// annotated with how many lessons of that day they collide with.
func (c Calendar) WithOccupancy(starts iter.Seq[time.Time], duration time.Duration, booked Snapshot) iter.Seq[Slot] {
	return func(yield func(Slot) bool) {
		for start := range starts {
			end := start.Add(duration)
			slot := Slot{
				Start:    start,
				End:      end,
				Occupied: CountConflicts(start, end, booked[c.DayKey(start)]),
				Capacity: c.CapacityOn(start),
			}
			if !yield(slot) {
				return
			}
		}
	}
}

// WithinCapacity keeps only slots whose occupancy is below their day's cap.
func WithinCapacity(slots iter.Seq[Slot]) iter.Seq[Slot] {
	return func(yield func(Slot) bool) {
		for slot := range slots {
			if !slot.Available() {
				continue
			}
			if !yield(slot) {
				return
			}
		}
	}
}
