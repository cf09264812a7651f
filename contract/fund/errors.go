package fund

import (
	"fmt"

	"pooled_fund/sdk"
)

// Every error here wraps sdk.ErrPrecondition: the call was rejected and no
// state changed.
var (
	ErrUnauthorized         = fmt.Errorf("%w: caller not authorized", sdk.ErrPrecondition)
	ErrNotInitialized       = fmt.Errorf("%w: fund not initialized", sdk.ErrPrecondition)
	ErrInvalidParameters    = fmt.Errorf("%w: invalid parameters", sdk.ErrPrecondition)
	ErrInvalidAddress       = fmt.Errorf("%w: zero address", sdk.ErrPrecondition)
	ErrNotMember            = fmt.Errorf("%w: not a member", sdk.ErrPrecondition)
	ErrAlreadyMember        = fmt.Errorf("%w: already a member", sdk.ErrPrecondition)
	ErrRequestPending       = fmt.Errorf("%w: membership request already pending", sdk.ErrPrecondition)
	ErrNoRequest            = fmt.Errorf("%w: no pending membership request", sdk.ErrPrecondition)
	ErrDurationTooShort     = fmt.Errorf("%w: duration below fund minimum", sdk.ErrPrecondition)
	ErrDurationTooLong      = fmt.Errorf("%w: duration too long", sdk.ErrPrecondition)
	ErrTokenNotApproved     = fmt.Errorf("%w: token not approved", sdk.ErrPrecondition)
	ErrDenominationToken    = fmt.Errorf("%w: denomination token cannot be disapproved", sdk.ErrPrecondition)
	ErrExcessiveShares      = fmt.Errorf("%w: expected shares exceed equivalent shares", sdk.ErrPrecondition)
	ErrNotContributor       = fmt.Errorf("%w: not a permitted contributor", sdk.ErrPrecondition)
	ErrInvalidSchedule      = fmt.Errorf("%w: invalid recurring schedule", sdk.ErrPrecondition)
	ErrNoSchedule           = fmt.Errorf("%w: no recurring schedule", sdk.ErrPrecondition)
	ErrScheduleTerminated   = fmt.Errorf("%w: recurring schedule terminated", sdk.ErrPrecondition)
	ErrAlreadyPaid          = fmt.Errorf("%w: already paid this period", sdk.ErrPrecondition)
	ErrInsufficientUnlocked = fmt.Errorf("%w: not enough unlocked shares", sdk.ErrPrecondition)
	ErrAnnotationRequired   = fmt.Errorf("%w: annotation required", sdk.ErrPrecondition)
	ErrValueAlreadyRecorded = fmt.Errorf("%w: fund value already recorded at or after now", sdk.ErrPrecondition)
	ErrZeroQuantity         = fmt.Errorf("%w: quantity must be positive", sdk.ErrPrecondition)
	ErrCollaborator         = fmt.Errorf("%w: collaborator failure", sdk.ErrPrecondition)
)

// collaborator wraps a failed ticker, custody or registry call so the whole
// operation aborts as a precondition failure.
func collaborator(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrCollaborator, what, err)
}
