package fund

import (
	"github.com/holiman/uint256"

	"pooled_fund/sdk"
)

// Read only accessors. They run on a txn that is never committed.

func (f *Fund) Parameters() (Parameters, error) {
	var p Parameters
	err := f.view(func(op *operation) error {
		p = *op.params
		return nil
	})
	return p, err
}

// FundValue values the current holdings without recording anything.
func (f *Fund) FundValue() (*uint256.Int, error) {
	var v *uint256.Int
	err := f.view(func(op *operation) (err error) {
		v, err = f.fundValue(op)
		return err
	})
	return v, err
}

// LastFundValue returns the newest snapshot, ok is false before the first one.
func (f *Fund) LastFundValue() (FundValue, bool, error) {
	var (
		fv FundValue
		ok bool
	)
	err := f.view(func(op *operation) error {
		last, found, err := f.lastFundValue(op)
		if err != nil || !found {
			return err
		}
		fv, ok = *last, true
		return nil
	})
	return fv, ok, err
}

func (f *Fund) FundValues() ([]FundValue, error) {
	var out []FundValue
	err := f.view(func(op *operation) error {
		all, err := f.values.All(op.tx)
		if err != nil {
			return err
		}
		for _, data := range all {
			v, err := decodeFundValue(data)
			if err != nil {
				return err
			}
			out = append(out, *v)
		}
		return nil
	})
	return out, err
}

func (f *Fund) EquivalentShares(token sdk.Address, qty *uint256.Int) (*uint256.Int, error) {
	var v *uint256.Int
	err := f.view(func(op *operation) (err error) {
		v, err = f.equivalentShares(op, token, zeroIfNil(qty))
		return err
	})
	return v, err
}

func (f *Fund) ShareValue(qty *uint256.Int) (*uint256.Int, error) {
	var v *uint256.Int
	err := f.view(func(op *operation) (err error) {
		v, err = f.shareValue(op, zeroIfNil(qty))
		return err
	})
	return v, err
}

func (f *Fund) LockedBenefits(member sdk.Address) (*uint256.Int, error) {
	var v *uint256.Int
	err := f.view(func(op *operation) error {
		d, err := f.requireMember(op, member)
		if err != nil {
			return err
		}
		v, err = f.lockedBenefits(op, d)
		return err
	})
	return v, err
}

func (f *Fund) UnlockedBenefits(member sdk.Address) (*uint256.Int, error) {
	var v *uint256.Int
	err := f.view(func(op *operation) error {
		d, err := f.requireMember(op, member)
		if err != nil {
			return err
		}
		v, err = f.unlockedBenefits(op, member, d)
		return err
	})
	return v, err
}

func (f *Fund) MemberDetails(member sdk.Address) (MemberDetails, error) {
	var d MemberDetails
	err := f.view(func(op *operation) error {
		m, err := f.requireMember(op, member)
		if err != nil {
			return err
		}
		d = *m
		return nil
	})
	return d, err
}

func (f *Fund) IsMember(a sdk.Address) (bool, error) {
	var ok bool
	err := f.view(func(op *operation) (err error) {
		ok, err = f.members.Contains(op.tx, a)
		return err
	})
	return ok, err
}

func (f *Fund) Members() ([]sdk.Address, error) {
	var out []sdk.Address
	err := f.view(func(op *operation) (err error) {
		out, err = f.members.Items(op.tx)
		return err
	})
	return out, err
}

func (f *Fund) NumMembers() (uint64, error) {
	var n uint64
	err := f.view(func(op *operation) (err error) {
		n, err = f.members.Len(op.tx)
		return err
	})
	return n, err
}

// Contributions lists what was paid in for member, oldest first.
func (f *Fund) Contributions(member sdk.Address) ([]Contribution, error) {
	var out []Contribution
	err := f.view(func(op *operation) error {
		all, err := f.contributions(member).All(op.tx)
		if err != nil {
			return err
		}
		for _, data := range all {
			c, err := decodeContribution(data)
			if err != nil {
				return err
			}
			out = append(out, *c)
		}
		return nil
	})
	return out, err
}

func (f *Fund) ManagementLog() ([]LogEntry, error) {
	var out []LogEntry
	err := f.view(func(op *operation) error {
		all, err := f.mgmtLog.All(op.tx)
		if err != nil {
			return err
		}
		for _, data := range all {
			e, err := decodeLogEntry(data)
			if err != nil {
				return err
			}
			out = append(out, *e)
		}
		return nil
	})
	return out, err
}

func (f *Fund) ApprovedTokens() ([]sdk.Address, error) {
	var out []sdk.Address
	err := f.view(func(op *operation) (err error) {
		out, err = f.approved.Items(op.tx)
		return err
	})
	return out, err
}

func (f *Fund) OwnedTokens() ([]sdk.Address, error) {
	var out []sdk.Address
	err := f.view(func(op *operation) (err error) {
		out, err = f.owned.Items(op.tx)
		return err
	})
	return out, err
}

func (f *Fund) IsApproved(token sdk.Address) (bool, error) {
	var ok bool
	err := f.view(func(op *operation) (err error) {
		ok, err = f.approved.Contains(op.tx, token)
		return err
	})
	return ok, err
}

// BalanceOfToken is the fund's custody balance of token.
func (f *Fund) BalanceOfToken(token sdk.Address) (*uint256.Int, error) {
	var v *uint256.Int
	err := f.view(func(op *operation) (err error) {
		v, err = op.balanceOf(token)
		return err
	})
	return v, err
}

func (f *Fund) ShareBalance(holder sdk.Address) (*uint256.Int, error) {
	var v *uint256.Int
	err := f.view(func(op *operation) (err error) {
		v, err = f.shares.BalanceOf(op.tx, holder)
		return err
	})
	return v, err
}

func (f *Fund) TotalShares() (*uint256.Int, error) {
	var v *uint256.Int
	err := f.view(func(op *operation) (err error) {
		v, err = f.shares.TotalSupply(op.tx)
		return err
	})
	return v, err
}

func (f *Fund) PendingRequest(candidate sdk.Address) (MembershipRequest, bool, error) {
	var (
		q  MembershipRequest
		ok bool
	)
	err := f.view(func(op *operation) error {
		req, found, err := f.loadRequest(op, candidate)
		if err != nil || !found {
			return err
		}
		q, ok = *req, true
		return nil
	})
	return q, ok, err
}

func (f *Fund) RecurringContribution(beneficiary, contributor sdk.Address) (RecurringContribution, bool, error) {
	var (
		s  RecurringContribution
		ok bool
	)
	err := f.view(func(op *operation) error {
		sched, found, err := f.loadSchedule(op, beneficiary, contributor)
		if err != nil || !found {
			return err
		}
		s, ok = *sched, true
		return nil
	})
	return s, ok, err
}

func (f *Fund) IsContributor(member, contributor sdk.Address) (bool, error) {
	var ok bool
	err := f.view(func(op *operation) (err error) {
		ok, err = f.isContributor(op, member, contributor)
		return err
	})
	return ok, err
}

// MembershipFee is what the registry charges a candidate for registering.
func (f *Fund) MembershipFee() (sdk.Address, *uint256.Int, error) {
	var (
		token sdk.Address
		fee   *uint256.Int
	)
	err := f.view(func(op *operation) error {
		r, err := op.registry()
		if err != nil {
			return err
		}
		token, fee = r.FeeToken(), r.UserRegistrationFee()
		return nil
	})
	return token, fee, err
}
