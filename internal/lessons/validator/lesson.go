package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"coachbook/internal/lessons/scheduling"
	"coachbook/pkg/logger"
	"coachbook/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Fields flattens the errors for AppError details.
func (v ValidationErrors) Fields() map[string]any {
	fields := make(map[string]any, len(v))
	for _, err := range v {
		fields[err.Field] = err.Message
	}
	return fields
}

type LessonValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewLessonValidator(log *logger.Logger) *LessonValidator {
	v := validator.New()

	if err := v.RegisterValidation("rfc3339", validateRFC3339); err != nil {
		log.Fatal("Failed to register 'rfc3339' validator",
			"error", err,
		)
	}

	log.Debug("Lesson validator initialized successfully")

	return &LessonValidator{
		validate: v,
		logger:   log,
	}
}

func validateRFC3339(fl validator.FieldLevel) bool {
	_, err := time.Parse(time.RFC3339, fl.Field().String())
	return err == nil
}

// ValidateBooking checks the request and returns the parsed start times in
// request order.
func (v *LessonValidator) ValidateBooking(req *model.BookLessonRequest) ([]time.Time, error) {
	if err := v.structErrors(req); err != nil {
		return nil, err
	}

	if err := validateFrequency(req.LessonType, req.Frequency); err != nil {
		return nil, err
	}

	return parseTimes("DaysAndTimes", req.DaysAndTimes)
}

func (v *LessonValidator) ValidateQuery(query *model.AvailabilityQuery) error {
	if err := v.structErrors(query); err != nil {
		return err
	}
	return validateFrequency(query.LessonType, query.Frequency)
}

// ValidateUpdate returns the new start time when the patch carries one.
func (v *LessonValidator) ValidateUpdate(update *model.LessonUpdate) (*time.Time, error) {
	if update.IsEmpty() {
		return nil, ValidationErrors{
			ValidationError{
				Field:   "LessonUpdate",
				Message: "at least one of coach_name, frequency_per_week, days_and_times or duration is required",
			},
		}
	}

	if err := v.structErrors(update); err != nil {
		return nil, err
	}

	if len(update.DaysAndTimes) == 0 {
		return nil, nil
	}
	times, err := parseTimes("DaysAndTimes", update.DaysAndTimes[:1])
	if err != nil {
		return nil, err
	}
	return &times[0], nil
}

func (v *LessonValidator) ValidateCredentials(creds *model.LessonCredentials) error {
	return v.structErrors(creds)
}

func (v *LessonValidator) structErrors(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

// validateFrequency rejects a recurring lesson without a schedulable
// frequency up front instead of letting availability come back empty.
func validateFrequency(lessonType model.LessonType, frequency *int) error {
	if lessonType != model.LessonTypeRecurring {
		return nil
	}
	if frequency == nil {
		return ValidationErrors{
			ValidationError{
				Field:   "Frequency",
				Message: "Frequency is required for recurring lessons",
			},
		}
	}
	if !scheduling.ValidFrequency(*frequency) {
		return ValidationErrors{
			ValidationError{
				Field:   "Frequency",
				Message: fmt.Sprintf("Frequency must be 1, 2 or 3, got %d", *frequency),
			},
		}
	}
	return nil
}

func parseTimes(field string, values []string) ([]time.Time, error) {
	times := make([]time.Time, 0, len(values))
	for i, value := range values {
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return nil, ValidationErrors{
				ValidationError{
					Field:   fmt.Sprintf("%s[%d]", field, i),
					Message: fmt.Sprintf("%q is not an RFC3339 timestamp", value),
				},
			}
		}
		times = append(times, t)
	}
	return times, nil
}

func (v *LessonValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "e164":
			message = fmt.Sprintf("%s must be in E.164 format (e.g., +821012345678)", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "rfc3339":
			message = fmt.Sprintf("%s must be an RFC3339 timestamp (e.g., 2025-06-02T09:00:00+09:00)", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
