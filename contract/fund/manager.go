package fund

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"pooled_fund/contract/fixedpoint"
	"pooled_fund/sdk"
)

// Manager token actions. A failed custody call is not an error here: the call
// completes, the audit log keeps a failure entry and ResultFailure comes back.

// ManagerWithdraw sends qty of token from the fund to recipient.
func (f *Fund) ManagerWithdraw(caller, token, recipient sdk.Address, qty *uint256.Int, annotation string) (ResultCode, error) {
	return f.managerAction(caller, LogWithdrawal, token, recipient, qty, annotation, func(op *operation) error {
		return f.custody.Transfer(token, op.params.Address, recipient, qty)
	})
}

// ManagerDeposit pulls qty of token from source into the fund using the
// allowance source granted the fund.
func (f *Fund) ManagerDeposit(caller, token, source sdk.Address, qty *uint256.Int, annotation string) (ResultCode, error) {
	return f.managerAction(caller, LogDeposit, token, source, qty, annotation, func(op *operation) error {
		fund := op.params.Address
		return f.custody.TransferFrom(token, fund, source, fund, qty)
	})
}

// ManagerApprove lets spender pull up to qty of the fund's token.
func (f *Fund) ManagerApprove(caller, token, spender sdk.Address, qty *uint256.Int, annotation string) (ResultCode, error) {
	return f.managerAction(caller, LogApproval, token, spender, qty, annotation, func(op *operation) error {
		return f.custody.Approve(token, op.params.Address, spender, qty)
	})
}

// managerAction stages the audit entry and balance changes for both outcomes
// before the custody call, so nothing can fail once tokens moved.
func (f *Fund) managerAction(caller sdk.Address, typ LogType, token, account sdk.Address, qty *uint256.Int, annotation string, call func(op *operation) error) (ResultCode, error) {
	qty = zeroIfNil(qty)
	result := ResultFailure
	err := f.update(caller, func(op *operation) error {
		if err := op.requireManager(); err != nil {
			return err
		}
		if strings.TrimSpace(annotation) == "" {
			return ErrAnnotationRequired
		}
		if !sdk.IsValid(token) || !sdk.IsValid(account) {
			return fmt.Errorf("%w: token and account must be set", ErrInvalidAddress)
		}
		// read the pre call balance so the owned cache can be adjusted without asking again
		if typ != LogApproval {
			if _, err := op.balanceOf(token); err != nil {
				return err
			}
		}
		entry := func(r ResultCode) *LogEntry {
			return &LogEntry{
				Type:       typ,
				Timestamp:  op.now(),
				Token:      token,
				Quantity:   qty.Clone(),
				Account:    account,
				Result:     r,
				Annotation: annotation,
			}
		}
		var id uint64
		failed, succeeded := entry(ResultFailure), entry(ResultSuccess)
		applyFailure, err := op.stage(func() error {
			var err error
			id, err = f.mgmtLog.Append(op.tx, encodeLogEntry(failed))
			return err
		})
		if err != nil {
			return err
		}
		applySuccess, err := op.stage(func() error {
			var err error
			switch typ {
			case LogWithdrawal:
				err = op.debit(token, qty)
			case LogDeposit:
				err = op.credit(token, qty)
			}
			if err != nil {
				return err
			}
			if err := f.updateOwned(op, token); err != nil {
				return err
			}
			_, err = f.mgmtLog.Append(op.tx, encodeLogEntry(succeeded))
			return err
		})

		logged, apply := failed, applyFailure
		switch {
		case typ == LogWithdrawal && errors.Is(err, fixedpoint.ErrUnderflow):
			// custody would refuse it anyway
			f.logger.Warn("manager withdrawal exceeds fund balance", "token", token.Hex(), "quantity", qty.Dec())
		case err != nil:
			return err
		default:
			if callErr := call(op); callErr != nil {
				f.logger.Warn("manager token call failed", "type", typ.String(), "token", token.Hex(), "error", callErr)
			} else {
				logged, apply = succeeded, applySuccess
				op.moved = true
			}
		}
		apply()
		result = logged.Result

		f.recordIfDue(op)
		op.emit(func() {
			f.metrics.Management.WithLabelValues(typ.String(), result.String()).Inc()
			emitManagementEvent(f.logger, id, logged)
		})
		return nil
	})
	if err != nil {
		return ResultFailure, err
	}
	return result, nil
}
