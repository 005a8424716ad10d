package scheduling

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"
	_ "time/tzdata"

	lessonserrors "coachbook/internal/lessons/errors"
	"coachbook/pkg/model"
)

var kst = time.FixedZone("KST", 9*60*60)

// 2025-06-02 is a Monday.
func monday(hour, minute int) time.Time {
	return time.Date(2025, time.June, 2, hour, minute, 0, 0, kst)
}

func testCalendar() Calendar {
	return DefaultCalendar(kst)
}

func findSlot(slots []Slot, start time.Time) (Slot, bool) {
	for _, s := range slots {
		if s.Start.Equal(start) {
			return s, true
		}
	}
	return Slot{}, false
}

func TestWindowStart_IsStartOfTomorrow(t *testing.T) {
	cal := testCalendar()
	now := time.Date(2025, time.June, 1, 23, 59, 0, 0, kst)

	got := cal.WindowStart(now)
	if !got.Equal(monday(0, 0)) {
		t.Errorf("expected window start %v, got %v", monday(0, 0), got)
	}
}

func TestWindowStart_ConvertsToCalendarZone(t *testing.T) {
	cal := testCalendar()
	// 2025-06-01 16:00 UTC is already 2025-06-02 01:00 in KST.
	now := time.Date(2025, time.June, 1, 16, 0, 0, 0, time.UTC)

	got := cal.WindowStart(now)
	want := time.Date(2025, time.June, 3, 0, 0, 0, 0, kst)
	if !got.Equal(want) {
		t.Errorf("expected window start %v, got %v", want, got)
	}
}

func TestSlots_Boundaries(t *testing.T) {
	cal := testCalendar()
	var starts []time.Time
	for s := range cal.Slots(monday(0, 0)) {
		starts = append(starts, s)
	}

	// 07:00 through 22:30 every 30 minutes is 32 slots a day.
	if len(starts) != 7*32 {
		t.Fatalf("expected %d slots, got %d", 7*32, len(starts))
	}
	if !starts[0].Equal(monday(7, 0)) {
		t.Errorf("first slot = %v, want 07:00", starts[0])
	}
	if !starts[31].Equal(monday(22, 30)) {
		t.Errorf("last slot of day = %v, want 22:30", starts[31])
	}
	last := starts[len(starts)-1]
	if last.Weekday() != time.Sunday || last.Hour() != 22 || last.Minute() != 30 {
		t.Errorf("last slot = %v, want Sunday 22:30", last)
	}
	for _, s := range starts {
		if s.Hour() < 7 || s.Hour() >= 23 {
			t.Errorf("slot %v outside operating hours", s)
		}
	}
}

func TestSlots_FollowWallClockAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	cal := DefaultCalendar(ny)
	cal.WindowDays = 1

	tests := []struct {
		name string
		day  time.Time
	}{
		{"spring forward", time.Date(2025, time.March, 9, 0, 0, 0, 0, ny)},
		{"fall back", time.Date(2025, time.November, 2, 0, 0, 0, 0, ny)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var starts []time.Time
			for s := range cal.Slots(tt.day) {
				starts = append(starts, s)
			}
			if len(starts) != 32 {
				t.Fatalf("expected 32 slots, got %d", len(starts))
			}
			first, last := starts[0].In(ny), starts[len(starts)-1].In(ny)
			if first.Hour() != 7 || first.Minute() != 0 {
				t.Errorf("first slot = %v, want 07:00 local", first)
			}
			if last.Hour() != 22 || last.Minute() != 30 {
				t.Errorf("last slot = %v, want 22:30 local", last)
			}
		})
	}
}

func TestSlots_IsRestartable(t *testing.T) {
	cal := testCalendar()
	seq := cal.Slots(monday(0, 0))

	first, second := 0, 0
	for range seq {
		first++
	}
	for range seq {
		second++
	}
	if first != second {
		t.Errorf("second pass yielded %d slots, first %d", second, first)
	}
}

func TestSlots_StopsEarly(t *testing.T) {
	cal := testCalendar()
	n := 0
	for range cal.Slots(monday(0, 0)) {
		n++
		if n == 3 {
			break
		}
	}
	if n != 3 {
		t.Errorf("expected to stop after 3, got %d", n)
	}
}

func TestConflicts_Predicate(t *testing.T) {
	existing := Interval{Start: monday(9, 0), End: monday(10, 0)}

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  bool
	}{
		{"same interval", monday(9, 0), monday(10, 0), true},
		{"existing covers candidate start", monday(9, 30), monday(10, 30), true},
		{"existing covers candidate end", monday(8, 30), monday(9, 30), true},
		{"candidate inside existing", monday(9, 15), monday(9, 45), true},
		{"adjacent before", monday(8, 0), monday(9, 0), false},
		{"adjacent after", monday(10, 0), monday(11, 0), false},
		{"disjoint", monday(12, 0), monday(13, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Conflicts(tt.start, tt.end, existing); got != tt.want {
				t.Errorf("Conflicts(%v, %v) = %v, want %v", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestConflicts_CandidateContainingExistingIsNotCounted(t *testing.T) {
	existing := Interval{Start: monday(9, 15), End: monday(9, 45)}

	if Conflicts(monday(9, 0), monday(10, 0), existing) {
		t.Error("a lesson strictly inside the candidate must not be counted")
	}
}

func TestAvailable_JaneScenario(t *testing.T) {
	cal := testCalendar()
	booked := Snapshot{
		cal.DayKey(monday(9, 0)): {{Start: monday(9, 0), End: monday(9, 30)}},
	}

	slots := slices.Collect(cal.Available(monday(0, 0), 30*time.Minute, booked, model.LessonTypeOneTime, 0))

	nine, ok := findSlot(slots, monday(9, 0))
	if !ok {
		t.Fatal("09:00 should be offered, only 1 of 5 places is taken")
	}
	if nine.Occupied != 1 || nine.Capacity != 5 {
		t.Errorf("09:00 occupancy = %d/%d, want 1/5", nine.Occupied, nine.Capacity)
	}

	nineThirty, ok := findSlot(slots, monday(9, 30))
	if !ok {
		t.Fatal("09:30 should be offered")
	}
	if nineThirty.Occupied != 0 {
		t.Errorf("09:30 occupancy = %d, want 0", nineThirty.Occupied)
	}

	eightThirty, _ := findSlot(slots, monday(8, 30))
	if eightThirty.Occupied != 0 {
		t.Errorf("08:30 occupancy = %d, want 0", eightThirty.Occupied)
	}
}

func repeatInterval(iv Interval, n int) []Interval {
	out := make([]Interval, n)
	for i := range out {
		out[i] = iv
	}
	return out
}

func TestWithinCapacity_Caps(t *testing.T) {
	cal := testCalendar()
	saturday := time.Date(2025, time.June, 7, 10, 0, 0, 0, kst)

	tests := []struct {
		name     string
		start    time.Time
		existing int
		offered  bool
	}{
		{"weekday below cap", monday(10, 0), 4, true},
		{"weekday at cap", monday(10, 0), 5, false},
		{"weekend below cap", saturday, 2, true},
		{"weekend at cap", saturday, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iv := Interval{Start: tt.start, End: tt.start.Add(30 * time.Minute)}
			booked := Snapshot{cal.DayKey(tt.start): repeatInterval(iv, tt.existing)}

			slots := slices.Collect(WithinCapacity(cal.WithOccupancy(cal.Slots(monday(0, 0)), 30*time.Minute, booked)))
			_, ok := findSlot(slots, tt.start)
			if ok != tt.offered {
				t.Errorf("slot offered = %v, want %v", ok, tt.offered)
			}
		})
	}
}

func TestWithOccupancy_OnlyCountsSameDay(t *testing.T) {
	cal := testCalendar()
	tuesday := monday(10, 0).AddDate(0, 0, 1)
	booked := Snapshot{
		cal.DayKey(tuesday): repeatInterval(Interval{Start: tuesday, End: tuesday.Add(time.Hour)}, 5),
	}

	slots := slices.Collect(cal.WithOccupancy(cal.Slots(monday(0, 0)), 60*time.Minute, booked))
	mon, _ := findSlot(slots, monday(10, 0))
	tue, _ := findSlot(slots, tuesday)
	if mon.Occupied != 0 {
		t.Errorf("Monday occupancy = %d, want 0", mon.Occupied)
	}
	if tue.Occupied != 5 {
		t.Errorf("Tuesday occupancy = %d, want 5", tue.Occupied)
	}
}

func TestAllowedWeekdays(t *testing.T) {
	tests := []struct {
		name       string
		lessonType model.LessonType
		frequency  int
		want       []time.Weekday
	}{
		{"one-time allows every day", model.LessonTypeOneTime, 0, []time.Weekday{0, 1, 2, 3, 4, 5, 6}},
		{"once a week", model.LessonTypeRecurring, 1, []time.Weekday{time.Monday}},
		{"twice a week", model.LessonTypeRecurring, 2, []time.Weekday{time.Monday, time.Thursday}},
		{"three times a week", model.LessonTypeRecurring, 3, []time.Weekday{time.Monday, time.Wednesday, time.Friday}},
		{"unknown frequency", model.LessonTypeRecurring, 4, nil},
		{"zero frequency", model.LessonTypeRecurring, 0, nil},
		{"unknown type", model.LessonType("weekly"), 1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AllowedWeekdays(tt.lessonType, tt.frequency)
			if !slices.Equal(got, tt.want) {
				t.Errorf("AllowedWeekdays() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAvailable_RecurrenceFiltersWeekdays(t *testing.T) {
	cal := testCalendar()

	slots := slices.Collect(cal.Available(monday(0, 0), 60*time.Minute, nil, model.LessonTypeRecurring, 2))
	if len(slots) != 2*32 {
		t.Fatalf("expected %d slots, got %d", 2*32, len(slots))
	}
	for _, s := range slots {
		if wd := s.Start.Weekday(); wd != time.Monday && wd != time.Thursday {
			t.Errorf("unexpected weekday %v", wd)
		}
	}

	if got := slices.Collect(cal.Available(monday(0, 0), 60*time.Minute, nil, model.LessonTypeRecurring, 5)); len(got) != 0 {
		t.Errorf("unknown frequency should yield nothing, got %d slots", len(got))
	}
}

func TestParseClock(t *testing.T) {
	got, err := ParseClock("07:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 7*time.Hour+30*time.Minute {
		t.Errorf("ParseClock = %v", got)
	}
	if _, err := ParseClock("7am"); err == nil {
		t.Error("expected error for malformed clock")
	}
}

type mockExactTimeLookup struct {
	findFunc func(ctx context.Context, coachID string, t time.Time) (*model.Lesson, error)
	calls    int
}

func (m *mockExactTimeLookup) FindByCoachAtExactTime(ctx context.Context, coachID string, t time.Time) (*model.Lesson, error) {
	m.calls++
	return m.findFunc(ctx, coachID, t)
}

func TestConflictDetector_Check(t *testing.T) {
	taken := monday(10, 0)
	lookup := &mockExactTimeLookup{
		findFunc: func(ctx context.Context, coachID string, at time.Time) (*model.Lesson, error) {
			if at.Equal(taken) {
				return &model.Lesson{ID: "existing", CoachID: coachID, StartTime: at}, nil
			}
			return nil, lessonserrors.ErrNotFound
		},
	}
	detector := NewConflictDetector(lookup)

	if err := detector.Check(context.Background(), "coach-1", []time.Time{monday(9, 0), monday(11, 0)}); err != nil {
		t.Errorf("free times should pass, got %v", err)
	}

	err := detector.Check(context.Background(), "coach-1", []time.Time{monday(9, 0), taken, monday(11, 0)})
	if !errors.Is(err, lessonserrors.ErrTimeConflict) {
		t.Fatalf("expected ErrTimeConflict, got %v", err)
	}
}

func TestConflictDetector_OverlapIsNotExactMatch(t *testing.T) {
	lookup := &mockExactTimeLookup{
		findFunc: func(ctx context.Context, coachID string, at time.Time) (*model.Lesson, error) {
			if at.Equal(monday(10, 0)) {
				return &model.Lesson{ID: "existing"}, nil
			}
			return nil, lessonserrors.ErrNotFound
		},
	}

	if err := NewConflictDetector(lookup).Check(context.Background(), "coach-1", []time.Time{monday(10, 30)}); err != nil {
		t.Errorf("only exact start times conflict, got %v", err)
	}
}

func TestConflictDetector_LookupError(t *testing.T) {
	boom := errors.New("connection reset")
	lookup := &mockExactTimeLookup{
		findFunc: func(ctx context.Context, coachID string, at time.Time) (*model.Lesson, error) {
			return nil, boom
		},
	}

	err := NewConflictDetector(lookup).Check(context.Background(), "coach-1", []time.Time{monday(9, 0), monday(10, 0)})
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped lookup error, got %v", err)
	}
	if lookup.calls != 1 {
		t.Errorf("expected to stop after first failure, got %d calls", lookup.calls)
	}
}
