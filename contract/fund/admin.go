package fund

import (
	"fmt"
	"strconv"

	"pooled_fund/sdk"
)

// Owner only setters. These are what the board's motions execute.

func (f *Fund) SetManager(caller, manager sdk.Address) error {
	return f.update(caller, func(op *operation) error {
		if err := op.requireOwner(); err != nil {
			return err
		}
		if !sdk.IsValid(manager) {
			return fmt.Errorf("%w: manager", ErrInvalidAddress)
		}
		old := op.params.Manager
		if old == manager {
			return nil
		}
		registry, err := op.registry()
		if err != nil {
			return err
		}
		op.params.Manager = manager
		op.saveParams()
		fund := op.params.Address
		op.effect("registry update manager", func() error {
			return registry.UpdateManager(fund, old, manager)
		}, nil)
		op.emit(func() { emitParamChangedEvent(f.logger, "manager", old.Hex(), manager.Hex()) })
		return nil
	})
}

// SetDenominationToken switches the unit of account. The new token is approved on the way.
func (f *Fund) SetDenominationToken(caller, token sdk.Address) error {
	return f.update(caller, func(op *operation) error {
		if err := op.requireOwner(); err != nil {
			return err
		}
		if !sdk.IsValid(token) {
			return fmt.Errorf("%w: denomination token", ErrInvalidAddress)
		}
		old := op.params.DenominationToken
		op.params.DenominationToken = token
		op.saveParams()
		if err := f.approveTokens(op, []sdk.Address{token}); err != nil {
			return err
		}
		op.emit(func() { emitParamChangedEvent(f.logger, "denomination", old.Hex(), token.Hex()) })
		return nil
	})
}

func (f *Fund) setDuration(caller sdk.Address, field string, d uint64, apply func(p *Parameters) *uint64) error {
	return f.update(caller, func(op *operation) error {
		if err := op.requireOwner(); err != nil {
			return err
		}
		if d > MaxDuration {
			return ErrDurationTooLong
		}
		target := apply(op.params)
		old := *target
		*target = d
		op.saveParams()
		op.emit(func() {
			emitParamChangedEvent(f.logger, field, strconv.FormatUint(old, 10), strconv.FormatUint(d, 10))
		})
		return nil
	})
}

func (f *Fund) SetMinimumLockupDuration(caller sdk.Address, d uint64) error {
	return f.setDuration(caller, "minLockup", d, func(p *Parameters) *uint64 { return &p.MinimumLockupDuration })
}

func (f *Fund) SetMinimumPayoutDuration(caller sdk.Address, d uint64) error {
	return f.setDuration(caller, "minPayout", d, func(p *Parameters) *uint64 { return &p.MinimumPayoutDuration })
}

func (f *Fund) SetRecomputationDelay(caller sdk.Address, d uint64) error {
	return f.setDuration(caller, "recomputationDelay", d, func(p *Parameters) *uint64 { return &p.RecomputationDelay })
}

// SetTicker only accepts tickers the directory can resolve.
func (f *Fund) SetTicker(caller, ticker sdk.Address) error {
	return f.update(caller, func(op *operation) error {
		if err := op.requireOwner(); err != nil {
			return err
		}
		if _, err := f.directory.Ticker(ticker); err != nil {
			return collaborator("resolve ticker", err)
		}
		old := op.params.Ticker
		op.params.Ticker = ticker
		op.saveParams()
		op.emit(func() { emitParamChangedEvent(f.logger, "ticker", old.Hex(), ticker.Hex()) })
		return nil
	})
}

// SetRegistry moves the fund to another registry and registers it there.
func (f *Fund) SetRegistry(caller, registryAddr sdk.Address) error {
	return f.update(caller, func(op *operation) error {
		if err := op.requireOwner(); err != nil {
			return err
		}
		registry, err := f.directory.Registry(registryAddr)
		if err != nil {
			return collaborator("resolve registry", err)
		}
		old := op.params.Registry
		op.params.Registry = registryAddr
		op.saveParams()
		fund, manager := op.params.Address, op.params.Manager
		op.effect("registry add fund", func() error { return registry.AddFund(fund, manager) }, nil)
		op.emit(func() { emitParamChangedEvent(f.logger, "registry", old.Hex(), registryAddr.Hex()) })
		return nil
	})
}

// ResetMemberUnlockTime starts the member's payout window now. A member whose
// window already started keeps the earlier unlock time.
func (f *Fund) ResetMemberUnlockTime(caller, member sdk.Address) error {
	return f.update(caller, func(op *operation) error {
		if err := op.requireOwner(); err != nil {
			return err
		}
		d, err := f.requireMember(op, member)
		if err != nil {
			return err
		}
		old := d.UnlockTime
		d.UnlockTime = min(op.now(), d.UnlockTime)
		f.saveMember(op, member, d)
		op.emit(func() {
			emitParamChangedEvent(f.logger, "unlock:"+member.Hex(), strconv.FormatInt(old, 10), strconv.FormatInt(d.UnlockTime, 10))
		})
		return nil
	})
}

// SetFundOwner hands the fund to a new owner, usually a new board.
func (f *Fund) SetFundOwner(caller, owner sdk.Address) error {
	return f.update(caller, func(op *operation) error {
		if err := op.requireOwner(); err != nil {
			return err
		}
		if !sdk.IsValid(owner) {
			return fmt.Errorf("%w: owner", ErrInvalidAddress)
		}
		old := op.params.Owner
		op.params.Owner = owner
		op.saveParams()
		op.emit(func() { emitParamChangedEvent(f.logger, "owner", old.Hex(), owner.Hex()) })
		return nil
	})
}

func (f *Fund) ApproveTokens(caller sdk.Address, tokens []sdk.Address) error {
	return f.update(caller, func(op *operation) error {
		if err := op.requireOwner(); err != nil {
			return err
		}
		return f.approveTokens(op, tokens)
	})
}

// DisapproveTokens drops tokens from the approved set and the owned cache.
// The denomination token is refused.
func (f *Fund) DisapproveTokens(caller sdk.Address, tokens []sdk.Address) error {
	return f.update(caller, func(op *operation) error {
		if err := op.requireOwner(); err != nil {
			return err
		}
		return f.disapproveTokens(op, tokens)
	})
}

// RecordFundValue takes a valuation snapshot now. Rejected when one already
// exists at or after the current time.
func (f *Fund) RecordFundValue(caller sdk.Address) (*FundValue, error) {
	var fv *FundValue
	err := f.update(caller, func(op *operation) error {
		if err := op.requireManagerOrOwner(); err != nil {
			return err
		}
		last, ok, err := f.lastFundValue(op)
		if err != nil {
			return err
		}
		if ok && last.Timestamp >= op.now() {
			return ErrValueAlreadyRecorded
		}
		fv, err = f.recordValue(op)
		return err
	})
	return fv, err
}
