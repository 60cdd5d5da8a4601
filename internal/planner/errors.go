package planner

import (
	"errors"
	"fmt"
)

var (
	// ErrMealNotFound is returned when week/day/slot coordinates do not exist.
	ErrMealNotFound = errors.New("meal not found")
	// ErrIndexOutOfRange is returned for a recipe index outside the meal.
	ErrIndexOutOfRange = errors.New("recipe index out of range")
	// ErrNoPlan is returned by operations that need a generated plan.
	ErrNoPlan = errors.New("no plan generated")
)

// PersistenceError reports a failed load or save. The in-memory plan stays valid.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("plan %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
