package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	lessonserrors "coachbook/internal/lessons/errors"
	"coachbook/pkg/model"
)

// ExactTimeLookup finds an active lesson of a coach starting exactly at t.
// It returns lessonserrors.ErrNotFound when there is none.
type ExactTimeLookup interface {
	FindByCoachAtExactTime(ctx context.Context, coachID string, t time.Time) (*model.Lesson, error)
}

type ConflictDetector struct {
	lookup ExactTimeLookup
}

func NewConflictDetector(lookup ExactTimeLookup) *ConflictDetector {
	return &ConflictDetector{lookup: lookup}
}

// Check fails with ErrTimeConflict if any requested start time is already
// taken by the coach. Only exact start times are compared, not overlaps.
func (d *ConflictDetector) Check(ctx context.Context, coachID string, starts []time.Time) error {
	for _, t := range starts {
		existing, err := d.lookup.FindByCoachAtExactTime(ctx, coachID, t)
		if err != nil {
			if errors.Is(err, lessonserrors.ErrNotFound) {
				continue
			}
			return fmt.Errorf("failed to look up lesson at %s: %w", t.Format(time.RFC3339), err)
		}
		if existing != nil {
			return fmt.Errorf("%w: %s", lessonserrors.ErrTimeConflict, t.Format(time.RFC3339))
		}
	}
	return nil
}
