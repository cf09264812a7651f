package board

import "pooled_fund/sdk"

// MotionType is the closed set of administrative commands a motion can carry.
type MotionType uint8

const (
	MotionSetManager MotionType = iota
	MotionSetDenominationToken
	MotionSetMinimumLockupDuration
	MotionSetMinimumPayoutDuration
	MotionSetRecomputationDelay
	MotionSetTicker
	MotionSetRegistry
	MotionResetMemberUnlockTime
	MotionSetFundOwner
	MotionApproveTokens
	MotionDisapproveTokens
	MotionAddDirectors
	MotionRemoveDirectors

	numMotionTypes
)

var motionTypeNames = [numMotionTypes]string{
	"set_manager",
	"set_denomination_token",
	"set_minimum_lockup_duration",
	"set_minimum_payout_duration",
	"set_recomputation_delay",
	"set_ticker",
	"set_registry",
	"reset_member_unlock_time",
	"set_fund_owner",
	"approve_tokens",
	"disapprove_tokens",
	"add_directors",
	"remove_directors",
}

func (t MotionType) Valid() bool { return t < numMotionTypes }

func (t MotionType) String() string {
	if !t.Valid() {
		return "unknown"
	}
	return motionTypeNames[t]
}

// Status of a motion. Cancelled, Executed, ExecutionFailed and Expired are final.
type Status uint8

const (
	StatusCancelled Status = iota
	StatusActive
	StatusPassed
	StatusFailed
	StatusExecuted
	StatusExecutionFailed
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusCancelled:
		return "cancelled"
	case StatusActive:
		return "active"
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusExecuted:
		return "executed"
	case StatusExecutionFailed:
		return "execution_failed"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Open is true while votes can still move the motion.
func (s Status) Open() bool {
	return s == StatusActive || s == StatusPassed || s == StatusFailed
}

// Vote is what one director currently has on record for a motion.
type Vote uint8

const (
	VoteAbsent Vote = iota
	VoteAbstain
	VoteYes
	VoteNo
)

func (v Vote) String() string {
	switch v {
	case VoteAbsent:
		return "absent"
	case VoteAbstain:
		return "abstain"
	case VoteYes:
		return "yes"
	case VoteNo:
		return "no"
	default:
		return "unknown"
	}
}

type Motion struct {
	ID           uint64
	Type         MotionType
	Status       Status
	Initiator    sdk.Address
	CreatedAt    int64
	ExpiresAt    int64
	VotesFor     uint64
	VotesAgainst uint64
	Abstentions  uint64
	Description  string
	Payload      []byte
}

// votesCast counts every director that touched the motion, abstentions included.
func (m *Motion) votesCast() uint64 {
	return m.VotesFor + m.VotesAgainst + m.Abstentions
}

// tally derives the open status from the counts for a board of n directors:
// a strict majority for passes, half or more against fails.
func (m *Motion) tally(n uint64) Status {
	switch {
	case m.VotesFor > n/2:
		return StatusPassed
	case m.VotesAgainst >= n/2:
		return StatusFailed
	default:
		return StatusActive
	}
}

// Parameters is the persisted board configuration.
type Parameters struct {
	Address        sdk.Address // identity the board acts under, the fund's owner
	MotionDuration uint64      // seconds a motion stays open
}
