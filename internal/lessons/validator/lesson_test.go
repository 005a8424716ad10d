package validator

import (
	"errors"
	"testing"
	"time"

	"coachbook/pkg/logger"
	"coachbook/pkg/model"
)

func intPtr(i int) *int { return &i }

func strPtr(s string) *string { return &s }

func validBooking() *model.BookLessonRequest {
	return &model.BookLessonRequest{
		UserName:     "Kim Minsu",
		UserPhone:    "+821012345678",
		CoachName:    "Jane",
		LessonType:   model.LessonTypeRecurring,
		Frequency:    intPtr(2),
		DaysAndTimes: []string{"2025-06-02T09:00:00+09:00", "2025-06-05T09:00:00+09:00"},
		Duration:     30,
	}
}

func TestValidateBooking(t *testing.T) {
	v := NewLessonValidator(logger.Nop())

	tests := []struct {
		name      string
		mutate    func(r *model.BookLessonRequest)
		wantError bool
	}{
		{"valid recurring", func(r *model.BookLessonRequest) {}, false},
		{"valid one-time without frequency", func(r *model.BookLessonRequest) {
			r.LessonType = model.LessonTypeOneTime
			r.Frequency = nil
		}, false},
		{"unknown lesson type", func(r *model.BookLessonRequest) { r.LessonType = "weekly" }, true},
		{"duration 45", func(r *model.BookLessonRequest) { r.Duration = 45 }, true},
		{"recurring without frequency", func(r *model.BookLessonRequest) { r.Frequency = nil }, true},
		{"frequency out of range", func(r *model.BookLessonRequest) { r.Frequency = intPtr(4) }, true},
		{"zero frequency", func(r *model.BookLessonRequest) { r.Frequency = intPtr(0) }, true},
		{"no days and times", func(r *model.BookLessonRequest) { r.DaysAndTimes = nil }, true},
		{"malformed time", func(r *model.BookLessonRequest) { r.DaysAndTimes = []string{"next monday"} }, true},
		{"phone not e164", func(r *model.BookLessonRequest) { r.UserPhone = "010-1234-5678" }, true},
		{"missing coach", func(r *model.BookLessonRequest) { r.CoachName = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validBooking()
			tt.mutate(req)
			_, err := v.ValidateBooking(req)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateBooking() error = %v, wantError %v", err, tt.wantError)
			}
			if err != nil {
				var verrs ValidationErrors
				if !errors.As(err, &verrs) {
					t.Errorf("expected ValidationErrors, got %T", err)
				}
			}
		})
	}
}

func TestValidateBooking_ParsesTimesInOrder(t *testing.T) {
	v := NewLessonValidator(logger.Nop())

	times, err := v.ValidateBooking(validBooking())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(times) != 2 {
		t.Fatalf("expected 2 times, got %d", len(times))
	}
	want := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	if !times[0].Equal(want) {
		t.Errorf("times[0] = %v, want %v", times[0], want)
	}
	if !times[1].After(times[0]) {
		t.Error("order must be preserved")
	}
}

func TestValidateQuery(t *testing.T) {
	v := NewLessonValidator(logger.Nop())

	tests := []struct {
		name      string
		query     model.AvailabilityQuery
		wantError bool
	}{
		{"one-time", model.AvailabilityQuery{CoachName: "Jane", LessonType: model.LessonTypeOneTime, Duration: 30}, false},
		{"recurring", model.AvailabilityQuery{CoachName: "Jane", LessonType: model.LessonTypeRecurring, Frequency: intPtr(3), Duration: 60}, false},
		{"recurring without frequency", model.AvailabilityQuery{CoachName: "Jane", LessonType: model.LessonTypeRecurring, Duration: 60}, true},
		{"bad duration", model.AvailabilityQuery{CoachName: "Jane", LessonType: model.LessonTypeOneTime, Duration: 90}, true},
		{"missing coach", model.AvailabilityQuery{LessonType: model.LessonTypeOneTime, Duration: 30}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateQuery(&tt.query)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateQuery() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestValidateUpdate(t *testing.T) {
	v := NewLessonValidator(logger.Nop())

	tests := []struct {
		name      string
		update    model.LessonUpdate
		wantStart bool
		wantError bool
	}{
		{"empty patch", model.LessonUpdate{}, false, true},
		{"coach only", model.LessonUpdate{CoachName: strPtr("Tom")}, false, false},
		{"any malformed entry fails", model.LessonUpdate{DaysAndTimes: []string{"2025-06-09T10:00:00+09:00", "garbage"}}, true, true},
		{"new start", model.LessonUpdate{DaysAndTimes: []string{"2025-06-09T10:00:00+09:00"}}, true, false},
		{"bad duration", model.LessonUpdate{Duration: intPtr(15)}, false, true},
		{"bad frequency", model.LessonUpdate{FrequencyPerWeek: intPtr(7)}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, err := v.ValidateUpdate(&tt.update)
			if (err != nil) != tt.wantError {
				t.Fatalf("ValidateUpdate() error = %v, wantError %v", err, tt.wantError)
			}
			if err == nil && (start != nil) != tt.wantStart {
				t.Errorf("start = %v, wantStart %v", start, tt.wantStart)
			}
		})
	}
}

func TestValidateCredentials(t *testing.T) {
	v := NewLessonValidator(logger.Nop())

	if err := v.ValidateCredentials(&model.LessonCredentials{LessonID: "id", Password: "pw"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := v.ValidateCredentials(&model.LessonCredentials{LessonID: "id"}); err == nil {
		t.Error("expected error for missing password")
	}
}

func TestValidationErrors_Fields(t *testing.T) {
	errs := ValidationErrors{
		{Field: "Duration", Message: "Duration must be one of: 30 60"},
		{Field: "CoachName", Message: "CoachName is required"},
	}

	fields := errs.Fields()
	if fields["Duration"] != "Duration must be one of: 30 60" || len(fields) != 2 {
		t.Errorf("Fields() = %v", fields)
	}
	if errs.Error() == "" {
		t.Error("Error() should not be empty")
	}
}
