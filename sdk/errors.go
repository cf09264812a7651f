package sdk

import (
	"errors"
	"fmt"

	"pooled_fund/contract/fixedpoint"
)

var (
	// ErrPrecondition is the parent of every rejected operation: bad caller,
	// bad argument or a state that doesnt allow the call. Nothing was changed.
	ErrPrecondition = errors.New("precondition failed")

	// ErrCollaborator marks failures reported by custody, ticker or registry.
	ErrCollaborator = errors.New("collaborator call failed")

	ErrInvalidAddress = fmt.Errorf("%w: invalid address", ErrPrecondition)
)

// Preconditionf builds an error wrapping ErrPrecondition with some context.
func Preconditionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}

// IsPrecondition reports whether err means "rejected, state untouched".
// Arithmetic faults count too since they are caught before any write.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrPrecondition) || errors.Is(err, fixedpoint.ErrArithmetic)
}
