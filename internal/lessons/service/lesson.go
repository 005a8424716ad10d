package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"coachbook/internal/lessons/credential"
	lessonserrors "coachbook/internal/lessons/errors"
	"coachbook/internal/lessons/events"
	"coachbook/internal/lessons/repository"
	"coachbook/internal/lessons/scheduling"
	"coachbook/internal/lessons/validator"
	"coachbook/pkg/config"
	apperrors "coachbook/pkg/errors"
	"coachbook/pkg/model"
	"coachbook/pkg/sanitizer"
)

// credentialFailure is shared by every gate failure so callers cannot tell
// an unknown lesson from a wrong password.
const credentialFailure = "Lesson not found or password does not match"

type LessonService interface {
	GetAvailableTimes(ctx context.Context, query *model.AvailabilityQuery) ([]time.Time, error)
	BookLesson(ctx context.Context, req *model.BookLessonRequest) (*model.BookLessonResult, error)
	GetLessonInfo(ctx context.Context, creds *model.LessonCredentials) (*model.LessonView, error)
	UpdateLesson(ctx context.Context, creds *model.LessonCredentials, update *model.LessonUpdate) error
	CancelLesson(ctx context.Context, creds *model.LessonCredentials) error
}

type lessonService struct {
	repo      repository.LessonRepository
	lockRepo  repository.LessonLockRepository
	coaches   repository.CoachDirectory
	users     repository.UserDirectory
	validator *validator.LessonValidator
	hasher    *credential.SecretHasher
	gate      *credential.Gate
	conflicts *scheduling.ConflictDetector
	calendar  scheduling.Calendar
	publisher events.Publisher
	cfg       *config.Config
	now       func() time.Time
}

func NewLessonService(
	repo repository.LessonRepository,
	lockRepo repository.LessonLockRepository,
	coaches repository.CoachDirectory,
	users repository.UserDirectory,
	validator *validator.LessonValidator,
	hasher *credential.SecretHasher,
	publisher events.Publisher,
	cfg *config.Config,
) LessonService {
	return &lessonService{
		repo:      repo,
		lockRepo:  lockRepo,
		coaches:   coaches,
		users:     users,
		validator: validator,
		hasher:    hasher,
		gate:      credential.NewGate(repo, hasher),
		conflicts: scheduling.NewConflictDetector(repo),
		calendar:  CalendarFromConfig(cfg),
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// CalendarFromConfig falls back to defaults for values Config.Validate would reject.
func CalendarFromConfig(cfg *config.Config) scheduling.Calendar {
	cal := scheduling.DefaultCalendar(cfg.Location)
	if open, err := scheduling.ParseClock(cfg.OpenHour); err == nil {
		cal.OpenAt = open
	}
	if closing, err := scheduling.ParseClock(cfg.CloseHour); err == nil {
		cal.CloseAt = closing
	}
	if cfg.SlotStep > 0 {
		cal.Step = cfg.SlotStep
	}
	if cfg.WindowDays > 0 {
		cal.WindowDays = cfg.WindowDays
	}
	if cfg.WeekdayCapacity > 0 {
		cal.WeekdayCapacity = cfg.WeekdayCapacity
	}
	if cfg.WeekendCapacity > 0 {
		cal.WeekendCapacity = cfg.WeekendCapacity
	}
	return cal
}

func (s *lessonService) GetAvailableTimes(ctx context.Context, query *model.AvailabilityQuery) ([]time.Time, error) {
	query.CoachName = sanitizer.NormalizeName(query.CoachName)
	if err := s.validator.ValidateQuery(query); err != nil {
		return nil, s.validationError("Availability query validation failed", err)
	}

	coach, err := s.resolveCoach(ctx, query.CoachName)
	if err != nil {
		return nil, err
	}

	windowStart := s.calendar.WindowStart(s.now())
	booked, err := s.loadSnapshot(ctx, coach.ID, windowStart)
	if err != nil {
		return nil, err
	}

	frequency := 0
	if query.Frequency != nil {
		frequency = *query.Frequency
	}
	duration := time.Duration(query.Duration) * time.Minute

	var times []time.Time
	for slot := range s.calendar.Available(windowStart, duration, booked, query.LessonType, frequency) {
		times = append(times, slot.Start)
	}

	s.cfg.Log.Debug("Availability computed",
		"coach", coach.Name,
		"lesson_type", query.LessonType,
		"frequency", frequency,
		"duration", query.Duration,
		"window_start", windowStart,
		"count", len(times),
	)
	return times, nil
}

// loadSnapshot reads each day of the window concurrently.
func (s *lessonService) loadSnapshot(ctx context.Context, coachID string, windowStart time.Time) (scheduling.Snapshot, error) {
	days := slices.Collect(s.calendar.Days(windowStart))
	perDay := make([][]*model.Lesson, len(days))
	errs := make([]error, len(days))

	var wg sync.WaitGroup
	wg.Add(len(days))
	for i, day := range days {
		go func() {
			defer wg.Done()
			perDay[i], errs[i] = s.repo.FindOverlapping(ctx, coachID, day, day.AddDate(0, 0, 1))
		}()
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		s.cfg.Log.Error("Failed to load lessons for availability", "coach_id", coachID, "error", err)
		return nil, apperrors.Internal("Failed to load existing lessons", err)
	}

	booked := make(scheduling.Snapshot, len(days))
	for i, day := range days {
		key := s.calendar.DayKey(day)
		for _, lesson := range perDay[i] {
			booked[key] = append(booked[key], scheduling.Interval{Start: lesson.StartTime, End: lesson.EndTime})
		}
	}
	return booked, nil
}

func (s *lessonService) BookLesson(ctx context.Context, req *model.BookLessonRequest) (*model.BookLessonResult, error) {
	s.sanitizeBooking(req)
	times, err := s.validator.ValidateBooking(req)
	if err != nil {
		return nil, s.validationError("Booking validation failed", err)
	}
	if err := s.rejectPast(times); err != nil {
		return nil, err
	}

	user, err := s.users.FindByNameAndPhone(ctx, req.UserName, req.UserPhone)
	if err != nil {
		if errors.Is(err, lessonserrors.ErrUserNotFound) {
			return nil, apperrors.NotFound("User")
		}
		return nil, apperrors.Internal("Failed to look up user", err)
	}
	coach, err := s.resolveCoach(ctx, req.CoachName)
	if err != nil {
		return nil, err
	}

	lockIDs, err := s.acquireSlotLocks(ctx, coach.ID, times)
	if err != nil {
		return nil, err
	}
	defer s.releaseSlotLocks(ctx, lockIDs)

	plain, hash, err := s.hasher.NewSecret()
	if err != nil {
		return nil, apperrors.Internal("Failed to issue lesson password", err)
	}

	start := times[0]
	lesson := &model.Lesson{
		LessonType: req.LessonType,
		Duration:   req.Duration,
		StartTime:  start.UTC(),
		EndTime:    start.Add(time.Duration(req.Duration) * time.Minute).UTC(),
		CoachID:    coach.ID,
		CoachName:  coach.Name,
		UserID:     user.ID,
		SecretHash: hash,
		IsActive:   true,
	}
	if req.LessonType == model.LessonTypeRecurring {
		frequency := *req.Frequency
		lesson.FrequencyPerWeek = &frequency
	}

	err = s.repo.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.conflicts.Check(txCtx, coach.ID, times); err != nil {
			return s.storeError("Failed to check lesson conflicts", err)
		}
		if err := s.repo.Create(txCtx, lesson); err != nil {
			return s.storeError("Failed to create lesson", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Warn("Failed to book lesson",
			"coach", coach.Name,
			"start_time", start,
			"error", err,
		)
		return nil, apperrors.AsAppError(err)
	}

	s.cfg.Log.Info("Lesson booked successfully",
		"id", lesson.ID,
		"coach", coach.Name,
		"lesson_type", lesson.LessonType,
		"start_time", lesson.StartTime,
	)
	s.publish(ctx, events.TypeLessonBooked, lesson)

	return &model.BookLessonResult{
		ID:                  lesson.ID,
		Password:            plain,
		LessonStartDateTime: start.In(s.calendar.Location),
	}, nil
}

func (s *lessonService) GetLessonInfo(ctx context.Context, creds *model.LessonCredentials) (*model.LessonView, error) {
	lesson, err := s.verify(ctx, creds)
	if err != nil {
		return nil, err
	}
	view := lesson.View()
	return &view, nil
}

// UpdateLesson patches a recurring lesson. end_time is left as stored even
// when duration or start time change.
func (s *lessonService) UpdateLesson(ctx context.Context, creds *model.LessonCredentials, update *model.LessonUpdate) error {
	if err := s.validator.ValidateCredentials(creds); err != nil {
		return s.validationError("Lesson credentials are required", err)
	}
	if update.CoachName != nil {
		name := sanitizer.NormalizeName(*update.CoachName)
		update.CoachName = &name
	}
	newStart, err := s.validator.ValidateUpdate(update)
	if err != nil {
		return s.validationError("Invalid update input", err)
	}
	if newStart != nil {
		if err := s.rejectPast([]time.Time{*newStart}); err != nil {
			return err
		}
	}

	// One-time lessons are rejected before the password is checked.
	existing, err := s.repo.FindByID(ctx, creds.LessonID)
	if err != nil {
		if errors.Is(err, lessonserrors.ErrNotFound) || errors.Is(err, lessonserrors.ErrInvalidID) {
			return apperrors.NotFound(credentialFailure)
		}
		return apperrors.Internal("Failed to retrieve lesson", err)
	}
	if !existing.IsRecurring() {
		return apperrors.InvariantViolation("Only recurring lessons can be updated")
	}

	if _, err := s.verify(ctx, creds); err != nil {
		return err
	}

	coachID, coachName := existing.CoachID, existing.CoachName
	if update.CoachName != nil {
		coach, err := s.resolveCoach(ctx, *update.CoachName)
		if err != nil {
			return err
		}
		coachID, coachName = coach.ID, coach.Name
	}

	start := existing.StartTime
	if newStart != nil {
		start = newStart.UTC()
	}

	moved := coachID != existing.CoachID || !start.Equal(existing.StartTime)
	if moved {
		lockIDs, err := s.acquireSlotLocks(ctx, coachID, []time.Time{start})
		if err != nil {
			return err
		}
		defer s.releaseSlotLocks(ctx, lockIDs)
	}

	var updated *model.Lesson
	err = s.repo.WithinTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.repo.FindActiveByID(txCtx, creds.LessonID)
		if err != nil {
			if errors.Is(err, lessonserrors.ErrNotFound) {
				return apperrors.InvariantViolation("Canceled lessons cannot be updated")
			}
			return s.storeError("Failed to retrieve lesson", err)
		}

		if moved {
			if err := s.conflicts.Check(txCtx, coachID, []time.Time{start}); err != nil {
				return s.storeError("Failed to check lesson conflicts", err)
			}
		}

		merged := mergeLessonUpdate(current, update, coachID, coachName, start)
		if err := s.repo.Update(txCtx, current.ID, merged); err != nil {
			return s.storeError("Failed to update lesson", err)
		}
		updated = merged
		return nil
	})
	if err != nil {
		s.cfg.Log.Warn("Failed to update lesson", "id", creds.LessonID, "error", err)
		return apperrors.AsAppError(err)
	}

	s.cfg.Log.Info("Lesson updated successfully", "id", creds.LessonID)
	s.publish(ctx, events.TypeLessonUpdated, updated)
	return nil
}

// CancelLesson is idempotent: canceling a canceled lesson succeeds again.
func (s *lessonService) CancelLesson(ctx context.Context, creds *model.LessonCredentials) error {
	lesson, err := s.verify(ctx, creds)
	if err != nil {
		return err
	}

	if err := s.repo.Deactivate(ctx, lesson.ID); err != nil {
		s.cfg.Log.Error("Failed to cancel lesson", "id", lesson.ID, "error", err)
		return s.storeError("Failed to cancel lesson", err)
	}

	s.cfg.Log.Info("Lesson canceled", "id", lesson.ID, "was_active", lesson.IsActive)
	if lesson.IsActive {
		lesson.IsActive = false
		s.publish(ctx, events.TypeLessonCanceled, lesson)
	}
	return nil
}

// --- Helpers ---

func (s *lessonService) verify(ctx context.Context, creds *model.LessonCredentials) (*model.Lesson, error) {
	if err := s.validator.ValidateCredentials(creds); err != nil {
		return nil, s.validationError("Lesson credentials are required", err)
	}

	lesson, err := s.gate.Verify(ctx, creds.LessonID, creds.Password)
	if err != nil {
		if errors.Is(err, lessonserrors.ErrInvalidCredentials) {
			return nil, apperrors.NotFound(credentialFailure)
		}
		return nil, apperrors.Internal("Failed to retrieve lesson", err)
	}
	return lesson, nil
}

func (s *lessonService) resolveCoach(ctx context.Context, name string) (*model.Coach, error) {
	coach, err := s.coaches.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, lessonserrors.ErrCoachNotFound) {
			return nil, apperrors.NotFound("Coach")
		}
		return nil, apperrors.Internal("Failed to look up coach", err)
	}
	return coach, nil
}

func (s *lessonService) sanitizeBooking(req *model.BookLessonRequest) {
	req.UserName = sanitizer.NormalizeName(req.UserName)
	req.CoachName = sanitizer.NormalizeName(req.CoachName)
	if phone := sanitizer.NormalizePhone(req.UserPhone); phone != "" {
		req.UserPhone = phone
	}
}

func (s *lessonService) rejectPast(times []time.Time) error {
	now := s.now()
	for _, t := range times {
		if !t.After(now) {
			return apperrors.Validation("Lesson times must be in the future", map[string]any{
				"time": t.Format(time.RFC3339),
			})
		}
	}
	return nil
}

func (s *lessonService) validationError(message string, err error) error {
	s.cfg.Log.Warn(message, "error", err)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Fields())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}

// storeError maps repository errors onto the caller-facing error kinds.
func (s *lessonService) storeError(message string, err error) error {
	switch {
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, lessonserrors.ErrTimeConflict):
		return apperrors.Conflict("Coach already has a lesson at the requested time")
	case errors.Is(err, lessonserrors.ErrLockHeld):
		return apperrors.Conflict("This time slot is currently being booked by another request. Please try again.")
	case errors.Is(err, lessonserrors.ErrNotFound), errors.Is(err, lessonserrors.ErrInvalidID):
		return apperrors.NotFound(credentialFailure)
	default:
		return apperrors.Internal(message, err)
	}
}

func mergeLessonUpdate(existing *model.Lesson, update *model.LessonUpdate, coachID, coachName string, start time.Time) *model.Lesson {
	merged := *existing

	merged.CoachID = coachID
	merged.CoachName = coachName
	merged.StartTime = start
	if update.FrequencyPerWeek != nil {
		frequency := *update.FrequencyPerWeek
		merged.FrequencyPerWeek = &frequency
	}
	if update.Duration != nil {
		merged.Duration = *update.Duration
	}

	return &merged
}

func lockID(coachID string, start time.Time) string {
	return fmt.Sprintf("lesson_lock_%s_%d", coachID, start.Unix())
}

// acquireSlotLocks takes one advisory lock per requested start time, in a
// stable order so that overlapping requests cannot deadlock each other.
func (s *lessonService) acquireSlotLocks(ctx context.Context, coachID string, times []time.Time) ([]string, error) {
	ids := make([]string, 0, len(times))
	for _, t := range times {
		ids = append(ids, lockID(coachID, t))
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	acquired := make([]string, 0, len(ids))
	for _, id := range ids {
		lock := &model.LessonLock{
			ID:        id,
			ExpiresAt: s.now().Add(s.cfg.SlotLockTTL),
		}
		if _, err := s.lockRepo.Create(ctx, lock); err != nil {
			s.releaseSlotLocks(ctx, acquired)
			return nil, s.storeError("Failed to acquire lesson lock", err)
		}
		acquired = append(acquired, id)
	}
	return acquired, nil
}

func (s *lessonService) releaseSlotLocks(ctx context.Context, ids []string) {
	// The request context may already be done; locks must still go.
	ctx = context.WithoutCancel(ctx)
	for _, id := range ids {
		if err := s.lockRepo.Delete(ctx, id); err != nil {
			s.cfg.Log.Warn("Failed to release lesson lock", "lock_id", id, "error", err)
		}
	}
}

func (s *lessonService) publish(ctx context.Context, eventType string, lesson *model.Lesson) {
	event := events.NewLessonEvent(eventType, lesson, s.now().UTC())
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.cfg.Log.Warn("Failed to publish lesson event",
			"event_type", eventType,
			"id", lesson.ID,
			"error", err,
		)
	}
}
