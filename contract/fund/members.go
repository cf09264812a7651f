package fund

import (
	"fmt"

	"github.com/holiman/uint256"

	"pooled_fund/contract/fixedpoint"
	"pooled_fund/sdk"
)

// LockedBenefitsAt is how many of the member's shares are still locked at now.
// Everything is locked until UnlockTime, nothing after FinalBenefitTime and
// in between the locked part decays linearly, computed at decimals precision.
func LockedBenefitsAt(d *MemberDetails, now int64, decimals uint8) (*uint256.Int, error) {
	total := d.TotalUnlockable
	if total == nil || total.IsZero() {
		return new(uint256.Int), nil
	}
	if now <= d.UnlockTime {
		return total.Clone(), nil
	}
	if now >= d.FinalBenefitTime {
		return new(uint256.Int), nil
	}
	elapsed := uint256.NewInt(uint64(now - d.UnlockTime))
	duration := uint256.NewInt(uint64(d.FinalBenefitTime - d.UnlockTime))
	fraction, err := fixedpoint.DivDec(elapsed, duration, decimals)
	if err != nil {
		return nil, err
	}
	unit, err := fixedpoint.Unit(decimals)
	if err != nil {
		return nil, err
	}
	if !fraction.Lt(unit) {
		return new(uint256.Int), nil
	}
	return fixedpoint.MulDec(total, new(uint256.Int).Sub(unit, fraction), decimals)
}

// ---------- member storage ----------

func (f *Fund) loadMember(op *operation, a sdk.Address) (*MemberDetails, bool, error) {
	data, ok, err := op.tx.Get(memberKey(a))
	if err != nil || !ok {
		return nil, false, err
	}
	d, err := decodeMember(data)
	if err != nil {
		return nil, false, err
	}
	return d, true, nil
}

func (f *Fund) saveMember(op *operation, a sdk.Address, d *MemberDetails) {
	op.tx.Set(memberKey(a), encodeMember(d))
}

func (f *Fund) requireMember(op *operation, a sdk.Address) (*MemberDetails, error) {
	d, ok, err := f.loadMember(op, a)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotMember, a.Hex())
	}
	return d, nil
}

func (f *Fund) loadRequest(op *operation, a sdk.Address) (*MembershipRequest, bool, error) {
	data, ok, err := op.tx.Get(requestKey(a))
	if err != nil || !ok {
		return nil, false, err
	}
	q, err := decodeRequest(data)
	if err != nil {
		return nil, false, err
	}
	return q, true, nil
}

func (f *Fund) lockedBenefits(op *operation, d *MemberDetails) (*uint256.Int, error) {
	return LockedBenefitsAt(d, op.now(), op.params.ShareDecimals)
}

// unlockedBenefits is the share balance minus what is still locked, floored at zero.
func (f *Fund) unlockedBenefits(op *operation, member sdk.Address, d *MemberDetails) (*uint256.Int, error) {
	locked, err := f.lockedBenefits(op, d)
	if err != nil {
		return nil, err
	}
	bal, err := f.shares.BalanceOf(op.tx, member)
	if err != nil {
		return nil, err
	}
	if !bal.Gt(locked) {
		return new(uint256.Int), nil
	}
	return new(uint256.Int).Sub(bal, locked), nil
}

// ---------- membership lifecycle ----------

func zeroIfNil(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}

// RequestMembership files a candidate's request. Only the registry may call it.
func (f *Fund) RequestMembership(caller, candidate sdk.Address, req MembershipRequest) error {
	return f.update(caller, func(op *operation) error {
		if err := op.requireRegistry(); err != nil {
			return err
		}
		if !sdk.IsValid(candidate) {
			return fmt.Errorf("%w: candidate", ErrInvalidAddress)
		}
		if _, ok, err := f.loadMember(op, candidate); err != nil {
			return err
		} else if ok {
			return ErrAlreadyMember
		}
		if _, ok, err := f.loadRequest(op, candidate); err != nil {
			return err
		} else if ok {
			return ErrRequestPending
		}
		if req.LockupDuration < op.params.MinimumLockupDuration {
			return fmt.Errorf("%w: lockup %d < %d", ErrDurationTooShort, req.LockupDuration, op.params.MinimumLockupDuration)
		}
		if req.PayoutDuration < op.params.MinimumPayoutDuration {
			return fmt.Errorf("%w: payout %d < %d", ErrDurationTooShort, req.PayoutDuration, op.params.MinimumPayoutDuration)
		}
		if req.LockupDuration > MaxDuration || req.PayoutDuration > MaxDuration {
			return ErrDurationTooLong
		}
		if err := f.requireApproved(op, req.Token); err != nil {
			return err
		}
		req.InitialContribution = zeroIfNil(req.InitialContribution).Clone()
		req.ExpectedShares = zeroIfNil(req.ExpectedShares).Clone()
		if rr := req.Recurring; rr != nil {
			if rr.Period == 0 || rr.Duration == 0 {
				return fmt.Errorf("%w: period and duration must be positive", ErrInvalidSchedule)
			}
			if rr.Duration > req.LockupDuration+req.PayoutDuration {
				return fmt.Errorf("%w: schedule outlasts the membership plan", ErrInvalidSchedule)
			}
			if err := f.requireApproved(op, rr.Token); err != nil {
				return err
			}
			cp := *rr
			cp.Quantity = zeroIfNil(rr.Quantity).Clone()
			req.Recurring = &cp
		}
		equivalent, err := f.equivalentShares(op, req.Token, req.InitialContribution)
		if err != nil {
			return err
		}
		if req.ExpectedShares.Gt(equivalent) {
			return fmt.Errorf("%w: %s > %s", ErrExcessiveShares, req.ExpectedShares.Dec(), equivalent.Dec())
		}
		op.tx.Set(requestKey(candidate), encodeRequest(&req))
		op.emit(func() {
			f.metrics.MembershipFlow.WithLabelValues("submitted").Inc()
			emitMembershipRequestEvent(f.logger, candidate, &req)
		})
		return nil
	})
}

// ApproveMembershipRequest admits the candidate: member details, self
// permission, optional recurring schedule, the initial contribution and the
// registry notification all land together or not at all.
func (f *Fund) ApproveMembershipRequest(caller, candidate sdk.Address) error {
	return f.update(caller, func(op *operation) error {
		if err := op.requireManager(); err != nil {
			return err
		}
		req, ok, err := f.loadRequest(op, candidate)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNoRequest
		}
		now := op.now()
		d := &MemberDetails{
			JoinTime:         now,
			UnlockTime:       now + int64(req.LockupDuration),
			FinalBenefitTime: now + int64(req.LockupDuration) + int64(req.PayoutDuration),
			TotalUnlockable:  new(uint256.Int),
		}
		f.saveMember(op, candidate, d)
		if _, err := f.members.Add(op.tx, candidate); err != nil {
			return err
		}
		op.tx.Set(contributorKey(candidate, candidate), []byte{1})
		if rr := req.Recurring; rr != nil {
			f.saveSchedule(op, candidate, candidate, &RecurringContribution{
				Token:           rr.Token,
				Quantity:        rr.Quantity,
				Period:          rr.Period,
				TerminationTime: now + int64(rr.Duration),
			})
		}
		// the expected shares were checked against the valuation at request time
		if err := f.contribute(op, candidate, candidate, req.Token, req.InitialContribution, req.ExpectedShares, "initial"); err != nil {
			return err
		}
		op.tx.Delete(requestKey(candidate))
		registry, err := op.registry()
		if err != nil {
			return err
		}
		fund := op.params.Address
		op.effect("registry approve membership", func() error {
			return registry.ApproveMembershipRequest(fund, candidate)
		}, nil)
		f.recordIfDue(op)
		n, err := f.members.Len(op.tx)
		if err != nil {
			return err
		}
		op.emit(func() {
			f.metrics.MembershipFlow.WithLabelValues("approved").Inc()
			f.metrics.Members.Set(float64(n))
			emitJoinedEvent(f.logger, candidate, d)
		})
		return nil
	})
}

// DenyMembershipRequest drops the request and tells the registry.
func (f *Fund) DenyMembershipRequest(caller, candidate sdk.Address) error {
	return f.update(caller, func(op *operation) error {
		if err := op.requireManager(); err != nil {
			return err
		}
		if _, ok, err := f.loadRequest(op, candidate); err != nil {
			return err
		} else if !ok {
			return ErrNoRequest
		}
		op.tx.Delete(requestKey(candidate))
		registry, err := op.registry()
		if err != nil {
			return err
		}
		fund := op.params.Address
		op.effect("registry deny membership", func() error {
			return registry.DenyMembershipRequest(fund, candidate)
		}, nil)
		op.emit(func() {
			f.metrics.MembershipFlow.WithLabelValues("denied").Inc()
			emitMembershipClosedEvent(f.logger, candidate, "denied")
		})
		return nil
	})
}

// CancelMembershipRequest is the registry withdrawing a candidate's request.
func (f *Fund) CancelMembershipRequest(caller, candidate sdk.Address) error {
	return f.update(caller, func(op *operation) error {
		if err := op.requireRegistry(); err != nil {
			return err
		}
		if _, ok, err := f.loadRequest(op, candidate); err != nil {
			return err
		} else if !ok {
			return ErrNoRequest
		}
		op.tx.Delete(requestKey(candidate))
		op.emit(func() {
			f.metrics.MembershipFlow.WithLabelValues("cancelled").Inc()
			emitMembershipClosedEvent(f.logger, candidate, "cancelled")
		})
		return nil
	})
}

// WithdrawBenefits burns shareQty unlocked shares of the caller and pays out
// their value at the last recorded fund value in the denomination token.
func (f *Fund) WithdrawBenefits(caller sdk.Address, shareQty *uint256.Int) (*uint256.Int, error) {
	var paid *uint256.Int
	err := f.update(caller, func(op *operation) error {
		d, err := f.requireMember(op, caller)
		if err != nil {
			return err
		}
		if shareQty == nil || shareQty.IsZero() {
			return ErrZeroQuantity
		}
		unlocked, err := f.unlockedBenefits(op, caller, d)
		if err != nil {
			return err
		}
		if shareQty.Gt(unlocked) {
			return fmt.Errorf("%w: asked %s, unlocked %s", ErrInsufficientUnlocked, shareQty.Dec(), unlocked.Dec())
		}
		value, err := f.shareValue(op, shareQty)
		if err != nil {
			return err
		}
		if err := f.shares.Burn(op.tx, caller, shareQty); err != nil {
			return err
		}
		denom := op.params.DenominationToken
		if err := op.push(denom, caller, value); err != nil {
			return err
		}
		if err := f.updateOwned(op, denom); err != nil {
			return err
		}
		f.recordIfDue(op)
		denomDec, err := op.denominationDecimals()
		if err != nil {
			return err
		}
		shareDec := op.params.ShareDecimals
		burned := shareQty.Clone()
		op.emit(func() {
			f.metrics.Withdrawals.Inc()
			f.metrics.SharesBurned.Add(fixedpoint.Float(burned, shareDec))
			emitWithdrawalEvent(f.logger, caller, burned, shareDec, value, denomDec)
		})
		paid = value
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}

// TransferShares moves shares from the caller to another holder. Fund shares
// are bound to the member, the ledger refuses every transfer.
func (f *Fund) TransferShares(caller, to sdk.Address, qty *uint256.Int) error {
	return f.update(caller, func(op *operation) error {
		if !sdk.IsValid(to) {
			return fmt.Errorf("%w: recipient must be set", ErrInvalidAddress)
		}
		return f.shares.Transfer(op.tx, caller, to, zeroIfNil(qty))
	})
}
