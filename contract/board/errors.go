package board

import (
	"fmt"

	"pooled_fund/sdk"
)

// Every error here wraps sdk.ErrPrecondition, nothing was written.
var (
	ErrNotInitialized      = fmt.Errorf("%w: board not initialized", sdk.ErrPrecondition)
	ErrInvalidConfig       = fmt.Errorf("%w: invalid board config", sdk.ErrPrecondition)
	ErrNotDirector         = fmt.Errorf("%w: caller is not a director", sdk.ErrPrecondition)
	ErrNotInitiator        = fmt.Errorf("%w: caller did not initiate the motion", sdk.ErrPrecondition)
	ErrNoSuchMotion        = fmt.Errorf("%w: no such motion", sdk.ErrPrecondition)
	ErrInvalidTransition   = fmt.Errorf("%w: invalid motion status transition", sdk.ErrPrecondition)
	ErrMotionExpired       = fmt.Errorf("%w: motion expired", sdk.ErrPrecondition)
	ErrMotionNotExpired    = fmt.Errorf("%w: motion not expired yet", sdk.ErrPrecondition)
	ErrVotesCast           = fmt.Errorf("%w: motion already has votes", sdk.ErrPrecondition)
	ErrMalformedPayload    = fmt.Errorf("%w: malformed motion payload", sdk.ErrPrecondition)
	ErrUnknownMotionType   = fmt.Errorf("%w: unknown motion type", sdk.ErrPrecondition)
	ErrDescriptionRequired = fmt.Errorf("%w: description required", sdk.ErrPrecondition)
	ErrLastDirector        = fmt.Errorf("%w: board needs at least one director", sdk.ErrPrecondition)
	ErrInvalidAddress      = fmt.Errorf("%w: zero address", sdk.ErrPrecondition)
	ErrAlreadyDirector     = fmt.Errorf("%w: already a director", sdk.ErrPrecondition)
)

func malformed(err error) error {
	return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
}
