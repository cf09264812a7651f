package fund

import (
	"github.com/holiman/uint256"

	"pooled_fund/sdk"
)

// Parameters is the persisted fund configuration. Owner is normally the board.
type Parameters struct {
	Address               sdk.Address // identity the fund holds tokens under
	Owner                 sdk.Address
	Manager               sdk.Address
	Name                  string
	Symbol                string
	ShareDecimals         uint8
	DenominationToken     sdk.Address
	MinimumLockupDuration uint64 // seconds
	MinimumPayoutDuration uint64 // seconds
	RecomputationDelay    uint64 // seconds
	Ticker                sdk.Address
	Registry              sdk.Address
}

// MemberDetails never gets deleted, members are permanent once admitted.
type MemberDetails struct {
	JoinTime         int64
	UnlockTime       int64
	FinalBenefitTime int64
	TotalUnlockable  *uint256.Int
}

// RecurringRequest is the schedule a candidate proposes with their request.
// The termination is fixed at approval time as approval + Duration.
type RecurringRequest struct {
	Token    sdk.Address
	Quantity *uint256.Int
	Period   uint64
	Duration uint64
}

type MembershipRequest struct {
	LockupDuration      uint64
	PayoutDuration      uint64
	Token               sdk.Address
	InitialContribution *uint256.Int
	ExpectedShares      *uint256.Int
	Recurring           *RecurringRequest
}

// Contribution is an immutable record appended per beneficiary.
type Contribution struct {
	Contributor sdk.Address
	Timestamp   int64
	Token       sdk.Address
	Quantity    *uint256.Int
	Shares      *uint256.Int
}

// RecurringContribution is keyed by (beneficiary, contributor).
type RecurringContribution struct {
	Token                    sdk.Address
	Quantity                 *uint256.Int
	Period                   uint64
	TerminationTime          int64
	PreviousContributionTime int64
}

type FundValue struct {
	Value     *uint256.Int
	Timestamp int64
}

type LogType uint8

const (
	LogWithdrawal LogType = iota
	LogDeposit
	LogApproval
)

func (t LogType) String() string {
	switch t {
	case LogWithdrawal:
		return "withdrawal"
	case LogDeposit:
		return "deposit"
	case LogApproval:
		return "approval"
	default:
		return "unknown"
	}
}

// ResultCode is what a manager token action reports back. A failure is
// still a completed call, it is logged rather than reverted.
type ResultCode uint8

const (
	ResultSuccess ResultCode = 0
	ResultFailure ResultCode = 1
)

func (r ResultCode) String() string {
	if r == ResultSuccess {
		return "success"
	}
	return "failure"
}

// LogEntry is one line of the management audit trail. Account is the
// counterparty: recipient, source or spender depending on the type.
type LogEntry struct {
	Type       LogType
	Timestamp  int64
	Token      sdk.Address
	Quantity   *uint256.Int
	Account    sdk.Address
	Result     ResultCode
	Annotation string
}
