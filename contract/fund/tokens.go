package fund

import (
	"fmt"

	"github.com/holiman/uint256"

	"pooled_fund/contract/fixedpoint"
	"pooled_fund/sdk"
)

// ---------- approved / owned tokens ----------

func (f *Fund) approveTokens(op *operation, tokens []sdk.Address) error {
	for _, t := range tokens {
		if !sdk.IsValid(t) {
			return fmt.Errorf("%w: token", ErrInvalidAddress)
		}
		if _, err := f.approved.Add(op.tx, t); err != nil {
			return err
		}
		// the fund might already hold some of it
		if err := f.updateOwned(op, t); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fund) disapproveTokens(op *operation, tokens []sdk.Address) error {
	for _, t := range tokens {
		if t == op.params.DenominationToken {
			return ErrDenominationToken
		}
		if _, err := f.approved.Remove(op.tx, t); err != nil {
			return err
		}
		if _, err := f.owned.Remove(op.tx, t); err != nil {
			return err
		}
	}
	return nil
}

// updateOwned keeps the owned cache in line with the fund's balance. Only
// approved tokens are ever cached.
func (f *Fund) updateOwned(op *operation, token sdk.Address) error {
	approved, err := f.approved.Contains(op.tx, token)
	if err != nil {
		return err
	}
	if !approved {
		_, err := f.owned.Remove(op.tx, token)
		return err
	}
	bal, err := op.balanceOf(token)
	if err != nil {
		return err
	}
	if bal.IsZero() {
		_, err = f.owned.Remove(op.tx, token)
	} else {
		_, err = f.owned.Add(op.tx, token)
	}
	return err
}

func (f *Fund) requireApproved(op *operation, token sdk.Address) error {
	ok, err := f.approved.Contains(op.tx, token)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrTokenNotApproved, token.Hex())
	}
	return nil
}

// ---------- valuation ----------

// fundValue sums the ticker value of every owned token in the denomination.
func (f *Fund) fundValue(op *operation) (*uint256.Int, error) {
	tokens, err := f.owned.Items(op.tx)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return new(uint256.Int), nil
	}
	qtys := make([]*uint256.Int, len(tokens))
	for i, t := range tokens {
		if qtys[i], err = op.balanceOf(t); err != nil {
			return nil, err
		}
	}
	ticker, err := op.ticker()
	if err != nil {
		return nil, err
	}
	values, err := ticker.ValuesAtRate(tokens, qtys, op.params.DenominationToken)
	if err != nil {
		return nil, collaborator("ticker values", err)
	}
	if len(values) != len(tokens) {
		return nil, collaborator("ticker values", fmt.Errorf("got %d values for %d tokens", len(values), len(tokens)))
	}
	total := new(uint256.Int)
	for _, v := range values {
		if total, err = fixedpoint.Add(total, v); err != nil {
			return nil, err
		}
	}
	return total, nil
}

func (f *Fund) lastFundValue(op *operation) (*FundValue, bool, error) {
	data, ok, err := f.values.Last(op.tx)
	if err != nil || !ok {
		return nil, false, err
	}
	v, err := decodeFundValue(data)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (f *Fund) recordValue(op *operation) (*FundValue, error) {
	value, err := f.fundValue(op)
	if err != nil {
		return nil, err
	}
	// resolved before the append so a failed lookup leaves no silent snapshot
	dec, err := op.denominationDecimals()
	if err != nil {
		return nil, err
	}
	fv := &FundValue{Value: value, Timestamp: op.now()}
	if _, err := f.values.Append(op.tx, encodeFundValue(fv)); err != nil {
		return nil, err
	}
	op.emit(func() {
		f.metrics.ValueSnapshots.Inc()
		f.metrics.FundValue.Set(fixedpoint.Float(fv.Value, dec))
		emitFundValueEvent(f.logger, fv, dec)
	})
	return fv, nil
}

// recordIfDue takes a snapshot when none exists yet or the recomputation
// delay passed. A ticker hiccup only skips the snapshot, the next operation
// tries again.
func (f *Fund) recordIfDue(op *operation) {
	last, ok, err := f.lastFundValue(op)
	if err != nil {
		f.logger.Warn("reading last fund value failed", "error", err)
		return
	}
	if ok && op.now()-last.Timestamp < int64(op.params.RecomputationDelay) {
		return
	}
	if _, err := f.recordValue(op); err != nil {
		f.logger.Warn("fund value snapshot skipped", "error", err)
	}
}

// equivalentShares prices a contribution of qty token in shares using the
// last recorded fund value.
func (f *Fund) equivalentShares(op *operation, token sdk.Address, qty *uint256.Int) (*uint256.Int, error) {
	if qty.IsZero() {
		return new(uint256.Int), nil
	}
	ticker, err := op.ticker()
	if err != nil {
		return nil, err
	}
	value, err := ticker.ValueAtRate(token, qty, op.params.DenominationToken)
	if err != nil {
		return nil, collaborator("ticker value", err)
	}
	denomDec, err := op.denominationDecimals()
	if err != nil {
		return nil, err
	}
	shareDec := op.params.ShareDecimals
	supply, err := f.shares.TotalSupply(op.tx)
	if err != nil {
		return nil, err
	}
	if supply.IsZero() {
		// bootstrap, one share per unit of denomination value
		return fixedpoint.ConvertPrecision(value, denomDec, shareDec)
	}
	last, ok, err := f.lastFundValue(op)
	if err != nil {
		return nil, err
	}
	if !ok || last.Value.IsZero() {
		// worthless fund with outstanding shares, priced at zero
		return new(uint256.Int), nil
	}
	p := max(denomDec, shareDec)
	// both sides are denomination values, the ratio is taken at the wider precision
	fraction, err := fixedpoint.DivDec(value, last.Value, p)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulMPDec(supply, shareDec, fraction, p, shareDec)
}

// shareValue is the denomination value of qty shares at the last recorded fund value.
func (f *Fund) shareValue(op *operation, qty *uint256.Int) (*uint256.Int, error) {
	if qty.IsZero() {
		return new(uint256.Int), nil
	}
	supply, err := f.shares.TotalSupply(op.tx)
	if err != nil {
		return nil, err
	}
	last, ok, err := f.lastFundValue(op)
	if err != nil {
		return nil, err
	}
	if supply.IsZero() || !ok {
		return new(uint256.Int), nil
	}
	denomDec, err := op.denominationDecimals()
	if err != nil {
		return nil, err
	}
	shareDec := op.params.ShareDecimals
	p := max(denomDec, shareDec)
	fraction, err := fixedpoint.DivDec(qty, supply, p)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulMPDec(last.Value, denomDec, fraction, p, denomDec)
}
