package errors

import "errors"

var (
	ErrNotFound = errors.New("lesson not found")

	ErrInvalidID = errors.New("invalid lesson ID format")

	ErrTimeConflict = errors.New("lesson time conflicts with existing lesson")

	ErrLockHeld = errors.New("lesson slot is locked by another request")

	ErrInvalidCredentials = errors.New("lesson id or password does not match")

	ErrCoachNotFound = errors.New("coach not found")

	ErrUserNotFound = errors.New("user not found")
)
