package lifecycle

import (
	"errors"
	"fmt"
)

// Sentinel errors for lifecycle operations.
var (
	ErrConflict     = errors.New("another task is already active")
	ErrNoActiveTask = errors.New("no active task")
)

// ConflictError reports a start attempted while a different task is active.
type ConflictError struct {
	ActiveID string
	TaskID   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cannot start %s: task %s is already active", e.TaskID, e.ActiveID)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }
