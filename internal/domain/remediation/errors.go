package remediation

import (
	"errors"
	"fmt"
)

var (
	ErrActionNotFound = errors.New("remediation action not found")
	ErrJobNotFound    = errors.New("remediation job not found")

	ErrInvalidStatus     = errors.New("invalid action status")
	ErrInvalidEventType  = errors.New("invalid history event type")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidConfidence = errors.New("confidence must be within [0, 1]")

	ErrNotApplied    = errors.New("action is not applied")
	ErrNotReversible = errors.New("action is not reversible")

	ErrActionIDsRequired       = errors.New("action ids are required")
	ErrPerformedByRequired     = errors.New("performed by is required")
	ErrBatchTooLarge           = errors.New("batch exceeds maximum size")
	ErrRollbackViaStatusUpdate = errors.New("applied actions can only be reverted through rollback")
)

// TransitionError describes a rejected from/to pair.
type TransitionError struct {
	From ActionStatus
	To   ActionStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// ValidateTransition returns a *TransitionError when from cannot reach to.
func ValidateTransition(from, to ActionStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return &TransitionError{From: from, To: to}
}
