package server

import "errors"

// Sentinel errors for backend operations.
var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrRecordNotFound    = errors.New("record not found")
	ErrInvalidTransition = errors.New("status update failed")
	ErrAnotherActive     = errors.New("another task is already active")
	ErrNoRecords         = errors.New("no records to plan from")
	ErrInvalidInput      = errors.New("invalid input")
)
