package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lessonserrors "coachbook/internal/lessons/errors"
	"coachbook/internal/lessons/events"
	"coachbook/pkg/model"
)

// ────────────────────────────────────────────────
// In-memory lesson store
// ────────────────────────────────────────────────

type memoryLessonRepository struct {
	mu           sync.Mutex
	lessons      map[string]*model.Lesson
	nextID       int
	createErr    error
	overlapCalls atomic.Int32
}

func newMemoryLessonRepository() *memoryLessonRepository {
	return &memoryLessonRepository{lessons: map[string]*model.Lesson{}}
}

func (m *memoryLessonRepository) put(lesson *model.Lesson) *model.Lesson {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lesson.ID == "" {
		m.nextID++
		lesson.ID = fmt.Sprintf("lesson-%d", m.nextID)
	}
	stored := *lesson
	m.lessons[lesson.ID] = &stored
	return lesson
}

func (m *memoryLessonRepository) get(id string) *model.Lesson {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lessons[id]
	if !ok {
		return nil
	}
	out := *l
	return &out
}

func (m *memoryLessonRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lessons)
}

func (m *memoryLessonRepository) Create(ctx context.Context, lesson *model.Lesson) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	for _, l := range m.lessons {
		if l.IsActive && l.CoachID == lesson.CoachID && l.StartTime.Equal(lesson.StartTime) {
			m.mu.Unlock()
			return lessonserrors.ErrTimeConflict
		}
	}
	m.mu.Unlock()
	m.put(lesson)
	return nil
}

func (m *memoryLessonRepository) FindByID(ctx context.Context, id string) (*model.Lesson, error) {
	if l := m.get(id); l != nil {
		return l, nil
	}
	return nil, lessonserrors.ErrNotFound
}

func (m *memoryLessonRepository) FindActiveByID(ctx context.Context, id string) (*model.Lesson, error) {
	if l := m.get(id); l != nil && l.IsActive {
		return l, nil
	}
	return nil, lessonserrors.ErrNotFound
}

func (m *memoryLessonRepository) FindByCoachAtExactTime(ctx context.Context, coachID string, startTime time.Time) (*model.Lesson, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.lessons {
		if l.IsActive && l.CoachID == coachID && l.StartTime.Equal(startTime) {
			out := *l
			return &out, nil
		}
	}
	return nil, lessonserrors.ErrNotFound
}

func (m *memoryLessonRepository) FindOverlapping(ctx context.Context, coachID string, dayStart, dayEnd time.Time) ([]*model.Lesson, error) {
	m.overlapCalls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Lesson
	for _, l := range m.lessons {
		if l.IsActive && l.CoachID == coachID && l.StartTime.Before(dayEnd) && l.EndTime.After(dayStart) {
			copied := *l
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memoryLessonRepository) Update(ctx context.Context, id string, lesson *model.Lesson) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.lessons[id]
	if !ok {
		return lessonserrors.ErrNotFound
	}
	existing.CoachID = lesson.CoachID
	existing.CoachName = lesson.CoachName
	existing.FrequencyPerWeek = lesson.FrequencyPerWeek
	existing.Duration = lesson.Duration
	existing.StartTime = lesson.StartTime
	return nil
}

func (m *memoryLessonRepository) Deactivate(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.lessons[id]
	if !ok {
		return lessonserrors.ErrNotFound
	}
	existing.IsActive = false
	return nil
}

// WithinTransaction rolls the whole map back when fn fails.
func (m *memoryLessonRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	snapshot := make(map[string]model.Lesson, len(m.lessons))
	for id, l := range m.lessons {
		snapshot[id] = *l
	}
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.lessons = make(map[string]*model.Lesson, len(snapshot))
		for id, l := range snapshot {
			restored := l
			m.lessons[id] = &restored
		}
		m.mu.Unlock()
		return err
	}
	return nil
}

// ────────────────────────────────────────────────
// Locks, directories and events
// ────────────────────────────────────────────────

type memoryLockRepository struct {
	mu    sync.Mutex
	locks map[string]*model.LessonLock
}

func newMemoryLockRepository() *memoryLockRepository {
	return &memoryLockRepository{locks: map[string]*model.LessonLock{}}
}

func (m *memoryLockRepository) Create(ctx context.Context, lock *model.LessonLock) (*model.LessonLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[lock.ID]; held {
		return nil, fmt.Errorf("%w: %s", lessonserrors.ErrLockHeld, lock.ID)
	}
	m.locks[lock.ID] = lock
	return lock, nil
}

func (m *memoryLockRepository) Delete(ctx context.Context, lockID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, lockID)
	return nil
}

func (m *memoryLockRepository) held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

type mockCoachDirectory struct {
	coaches map[string]*model.Coach
}

func (m *mockCoachDirectory) FindByName(ctx context.Context, name string) (*model.Coach, error) {
	if c, ok := m.coaches[name]; ok {
		return c, nil
	}
	return nil, lessonserrors.ErrCoachNotFound
}

type mockUserDirectory struct {
	users []*model.User
}

func (m *mockUserDirectory) FindByNameAndPhone(ctx context.Context, name, phone string) (*model.User, error) {
	for _, u := range m.users {
		if u.Name == name && u.PhoneNumber == phone {
			return u, nil
		}
	}
	return nil, lessonserrors.ErrUserNotFound
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.LessonEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.LessonEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
