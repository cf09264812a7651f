package fund

import (
	"fmt"

	"github.com/holiman/uint256"

	"pooled_fund/contract/fixedpoint"
	"pooled_fund/contract/state"
	"pooled_fund/sdk"
)

func (f *Fund) contributions(member sdk.Address) state.Log {
	return state.NewLog(contributionsPrefix(member))
}

func (f *Fund) isContributor(op *operation, member, contributor sdk.Address) (bool, error) {
	_, ok, err := op.tx.Get(contributorKey(member, contributor))
	return ok, err
}

// contribute is the shared core of every contribution: mint shares to the
// beneficiary, lock them, log the contribution and queue the token pull.
// Callers do the expected share check themselves.
func (f *Fund) contribute(op *operation, contributor, beneficiary, token sdk.Address, qty, shareQty *uint256.Int, kind string) error {
	d, err := f.requireMember(op, beneficiary)
	if err != nil {
		return err
	}
	if err := f.requireApproved(op, token); err != nil {
		return err
	}
	if err := f.shares.Mint(op.tx, beneficiary, shareQty); err != nil {
		return err
	}
	if d.TotalUnlockable, err = fixedpoint.Add(d.TotalUnlockable, shareQty); err != nil {
		return err
	}
	f.saveMember(op, beneficiary, d)
	c := &Contribution{
		Contributor: contributor,
		Timestamp:   op.now(),
		Token:       token,
		Quantity:    qty.Clone(),
		Shares:      shareQty.Clone(),
	}
	if _, err := f.contributions(beneficiary).Append(op.tx, encodeContribution(c)); err != nil {
		return err
	}
	if err := op.pull(token, contributor, qty); err != nil {
		return err
	}
	if err := f.updateOwned(op, token); err != nil {
		return err
	}
	shareDec := op.params.ShareDecimals
	op.emit(func() {
		f.metrics.Contributions.WithLabelValues(kind).Inc()
		f.metrics.SharesMinted.Add(fixedpoint.Float(c.Shares, shareDec))
		emitContributionEvent(f.logger, beneficiary, c, kind, shareDec)
	})
	return nil
}

// checkedContribution validates expectedShares against the current valuation first.
func (f *Fund) checkedContribution(op *operation, contributor, beneficiary, token sdk.Address, qty, expectedShares *uint256.Int, kind string) error {
	if _, err := f.requireMember(op, beneficiary); err != nil {
		return err
	}
	if err := f.requireApproved(op, token); err != nil {
		return err
	}
	equivalent, err := f.equivalentShares(op, token, qty)
	if err != nil {
		return err
	}
	if expectedShares.Gt(equivalent) {
		return fmt.Errorf("%w: %s > %s", ErrExcessiveShares, expectedShares.Dec(), equivalent.Dec())
	}
	return f.contribute(op, contributor, beneficiary, token, qty, expectedShares, kind)
}

// MakeContribution pays qty of token into the fund for beneficiary. The
// caller has to be a permitted contributor of the beneficiary and must have
// approved the fund to pull the tokens.
func (f *Fund) MakeContribution(caller, beneficiary, token sdk.Address, qty, expectedShares *uint256.Int) error {
	qty, expectedShares = zeroIfNil(qty), zeroIfNil(expectedShares)
	return f.update(caller, func(op *operation) error {
		if _, err := f.requireMember(op, beneficiary); err != nil {
			return err
		}
		ok, err := f.isContributor(op, beneficiary, caller)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotContributor
		}
		if err := f.checkedContribution(op, caller, beneficiary, token, qty, expectedShares, "direct"); err != nil {
			return err
		}
		f.recordIfDue(op)
		return nil
	})
}

// PermitContributor lets a member allow someone else to pay in on their behalf.
func (f *Fund) PermitContributor(caller, contributor sdk.Address) error {
	return f.update(caller, func(op *operation) error {
		if _, err := f.requireMember(op, caller); err != nil {
			return err
		}
		if !sdk.IsValid(contributor) {
			return fmt.Errorf("%w: contributor", ErrInvalidAddress)
		}
		op.tx.Set(contributorKey(caller, contributor), []byte{1})
		return nil
	})
}

// RevokeContributor removes the permission. Any schedule of that contributor
// stays until removed, payments on it fail while revoked.
func (f *Fund) RevokeContributor(caller, contributor sdk.Address) error {
	return f.update(caller, func(op *operation) error {
		if _, err := f.requireMember(op, caller); err != nil {
			return err
		}
		op.tx.Delete(contributorKey(caller, contributor))
		return nil
	})
}

// ---------- recurring contributions ----------

func (f *Fund) loadSchedule(op *operation, beneficiary, contributor sdk.Address) (*RecurringContribution, bool, error) {
	data, ok, err := op.tx.Get(scheduleKey(beneficiary, contributor))
	if err != nil || !ok {
		return nil, false, err
	}
	s, err := decodeSchedule(data)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

func (f *Fund) saveSchedule(op *operation, beneficiary, contributor sdk.Address, s *RecurringContribution) {
	op.tx.Set(scheduleKey(beneficiary, contributor), encodeSchedule(s))
}

// CurrentPeriodStart anchors periods to the termination time: it counts the
// whole periods left until termination and steps back one more. Clamped at zero.
func CurrentPeriodStart(s *RecurringContribution, now int64) int64 {
	period := int64(s.Period)
	if period <= 0 {
		return s.TerminationTime
	}
	remaining := s.TerminationTime - now
	if remaining < 0 {
		remaining = 0
	}
	start := s.TerminationTime - (remaining/period+1)*period
	if start < 0 {
		return 0
	}
	return start
}

// SetRecurringContribution installs or replaces the caller's schedule for
// beneficiary. The termination has to be in the future and inside the
// beneficiary's benefit window.
func (f *Fund) SetRecurringContribution(caller, beneficiary, token sdk.Address, qty *uint256.Int, period uint64, terminationTime int64) error {
	qty = zeroIfNil(qty)
	return f.update(caller, func(op *operation) error {
		d, err := f.requireMember(op, beneficiary)
		if err != nil {
			return err
		}
		ok, err := f.isContributor(op, beneficiary, caller)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotContributor
		}
		if err := f.requireApproved(op, token); err != nil {
			return err
		}
		switch {
		case period == 0 || period > MaxDuration:
			return fmt.Errorf("%w: period %d", ErrInvalidSchedule, period)
		case terminationTime <= op.now():
			return fmt.Errorf("%w: termination must be in the future", ErrInvalidSchedule)
		case terminationTime > d.FinalBenefitTime:
			return fmt.Errorf("%w: termination after final benefit time", ErrInvalidSchedule)
		case qty.IsZero():
			return ErrZeroQuantity
		}
		f.saveSchedule(op, beneficiary, caller, &RecurringContribution{
			Token:           token,
			Quantity:        qty.Clone(),
			Period:          period,
			TerminationTime: terminationTime,
		})
		op.emit(func() { emitScheduleEvent(f.logger, beneficiary, caller, "set") })
		return nil
	})
}

// RemoveRecurringContribution deletes a schedule, either party may do it.
func (f *Fund) RemoveRecurringContribution(caller, beneficiary, contributor sdk.Address) error {
	return f.update(caller, func(op *operation) error {
		if caller != beneficiary && caller != contributor {
			return fmt.Errorf("%w: contributor or beneficiary only", ErrUnauthorized)
		}
		if _, ok, err := f.loadSchedule(op, beneficiary, contributor); err != nil {
			return err
		} else if !ok {
			return ErrNoSchedule
		}
		op.tx.Delete(scheduleKey(beneficiary, contributor))
		op.emit(func() { emitScheduleEvent(f.logger, beneficiary, contributor, "removed") })
		return nil
	})
}

// MakeRecurringPayment runs one period's payment of a schedule. At most one
// payment per period, nothing after the termination time.
func (f *Fund) MakeRecurringPayment(caller, beneficiary, contributor sdk.Address, expectedShares *uint256.Int) error {
	expectedShares = zeroIfNil(expectedShares)
	return f.update(caller, func(op *operation) error {
		if caller != contributor && caller != beneficiary && caller != op.params.Manager && caller != op.params.Owner {
			return fmt.Errorf("%w: contributor, beneficiary, manager or owner only", ErrUnauthorized)
		}
		s, ok, err := f.loadSchedule(op, beneficiary, contributor)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNoSchedule
		}
		now := op.now()
		if now > s.TerminationTime {
			return ErrScheduleTerminated
		}
		if s.PreviousContributionTime > CurrentPeriodStart(s, now) {
			return ErrAlreadyPaid
		}
		permitted, err := f.isContributor(op, beneficiary, contributor)
		if err != nil {
			return err
		}
		if !permitted {
			return ErrNotContributor
		}
		s.PreviousContributionTime = now
		f.saveSchedule(op, beneficiary, contributor, s)
		if err := f.checkedContribution(op, contributor, beneficiary, s.Token, s.Quantity, expectedShares, "recurring"); err != nil {
			return err
		}
		f.recordIfDue(op)
		return nil
	})
}
