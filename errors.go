package taskq

import (
	"errors"
	"fmt"
)

// ErrInvalidPriority is returned when a task is added with a priority that
// is not one of [Priorities].All.
var ErrInvalidPriority = errors.New("invalid priority")

// PriorityError records the operation and priority that caused a rejection.
type PriorityError struct {
	Op       string
	Priority Priority
	Err      error
}

func (e *PriorityError) Error() string {
	return fmt.Sprintf("taskq.%s: %v: %s", e.Op, e.Err, e.Priority)
}

func (e *PriorityError) Unwrap() error {
	return e.Err
}
