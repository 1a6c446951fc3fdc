// Package services implements the business rules of qualiflow on top of the
// gorm persistence layer. Handlers translate the error kinds defined here
// into HTTP statuses.
package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrAlreadyExists       = errors.New("record already exists")
	ErrDuplicateOrder      = errors.New("step order already taken")
	ErrStepNotFound        = errors.New("no process step with that order")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrProcessCancelled    = errors.New("process is cancelled")
	ErrReferentialConflict = errors.New("record is referenced by dependents")
)

// TransitionError carries the offending from/to pair of a rejected status
// change. errors.Is(err, ErrInvalidTransition) matches it.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: invalid transition %s -> %s", e.Entity, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// wrapNotFound converts gorm's record-not-found into ErrNotFound with the
// entity name attached; everything else is passed through untouched.
func wrapNotFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}
