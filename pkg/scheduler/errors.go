package scheduler

import "errors"

var (
	ErrJobAlreadyRegistered = errors.New("job already registered")
	ErrNoJobs               = errors.New("scheduler has no jobs")
	ErrInvalidJob           = errors.New("job name, schedule and function are required")
	ErrAlreadyStarted       = errors.New("scheduler already started")
)
