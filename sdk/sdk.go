package sdk

import "github.com/holiman/uint256"

// The fund never holds tokens or prices itself, it drives these collaborators.
// Any returned error means the call had no effect on the collaborator side.

// TokenCustody moves fungible tokens between identities.
type TokenCustody interface {
	BalanceOf(token, owner Address) (*uint256.Int, error)
	Transfer(token, from, to Address, qty *uint256.Int) error
	// TransferFrom moves qty out of from using the allowance granted to spender.
	TransferFrom(token, spender, from, to Address, qty *uint256.Int) error
	Approve(token, owner, spender Address, qty *uint256.Int) error
	Allowance(token, owner, spender Address) (*uint256.Int, error)
	Decimals(token Address) (uint8, error)
}

// Price is a quote in 18 decimal fixed point.
type Price struct {
	Value     *uint256.Int
	Timestamp int64
	Oracle    Address
}

// Ticker values token quantities in the fund's denomination.
type Ticker interface {
	PriceOf(token Address) (Price, error)
	ValueAtRate(token Address, qty *uint256.Int, denomination Address) (*uint256.Int, error)
	ValuesAtRate(tokens []Address, qtys []*uint256.Int, denomination Address) ([]*uint256.Int, error)
}

// Registry is the directory fund membership changes get mirrored to.
type Registry interface {
	AddFund(fund, sponsor Address) error
	UpdateManager(fund, oldManager, newManager Address) error
	ApproveMembershipRequest(fund, candidate Address) error
	DenyMembershipRequest(fund, candidate Address) error
	FeeToken() Address
	UserRegistrationFee() *uint256.Int
}

// Directory resolves the ticker and registry addresses stored in fund
// parameters to live implementations.
type Directory interface {
	Ticker(addr Address) (Ticker, error)
	Registry(addr Address) (Registry, error)
}
