// Package shares is the fund's share ledger: balances plus total supply.
package shares

import (
	"fmt"

	"github.com/holiman/uint256"

	"pooled_fund/contract/fixedpoint"
	"pooled_fund/contract/state"
	"pooled_fund/sdk"
)

var (
	ErrInsufficientShares = fmt.Errorf("%w: insufficient shares", sdk.ErrPrecondition)
	ErrNonTransferable    = fmt.Errorf("%w: shares are not transferable", sdk.ErrPrecondition)
)

// Ledger stores balances under prefix. Zero balances are deleted instead of stored.
type Ledger struct {
	prefix       string
	transferable bool
}

func New(prefix string, transferable bool) Ledger {
	return Ledger{prefix: prefix, transferable: transferable}
}

func (l Ledger) supplyKey() string { return l.prefix + "#" }

func (l Ledger) balanceKey(holder sdk.Address) string {
	return l.prefix + "$" + string(holder.Bytes())
}

func read(r state.Reader, key string) (*uint256.Int, error) {
	v, ok, err := r.Get(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return new(uint256.Int), nil
	}
	if len(v) != 32 {
		return nil, fmt.Errorf("shares: value under %x has %d bytes", key, len(v))
	}
	return new(uint256.Int).SetBytes32(v), nil
}

// write avoids unnecessary keys so a drained holder leaves nothing behind.
func write(kv state.KV, key string, v *uint256.Int) {
	if v.IsZero() {
		kv.Delete(key)
		return
	}
	b := v.Bytes32()
	kv.Set(key, b[:])
}

func (l Ledger) BalanceOf(r state.Reader, holder sdk.Address) (*uint256.Int, error) {
	return read(r, l.balanceKey(holder))
}

func (l Ledger) TotalSupply(r state.Reader) (*uint256.Int, error) {
	return read(r, l.supplyKey())
}

// Mint credits qty to holder and grows the supply.
func (l Ledger) Mint(kv state.KV, to sdk.Address, qty *uint256.Int) error {
	supply, err := l.TotalSupply(kv)
	if err != nil {
		return err
	}
	bal, err := l.BalanceOf(kv, to)
	if err != nil {
		return err
	}
	newSupply, err := fixedpoint.Add(supply, qty)
	if err != nil {
		return err
	}
	newBal, err := fixedpoint.Add(bal, qty)
	if err != nil {
		return err
	}
	write(kv, l.supplyKey(), newSupply)
	write(kv, l.balanceKey(to), newBal)
	return nil
}

// Burn debits qty from holder and shrinks the supply.
func (l Ledger) Burn(kv state.KV, from sdk.Address, qty *uint256.Int) error {
	bal, err := l.BalanceOf(kv, from)
	if err != nil {
		return err
	}
	if bal.Lt(qty) {
		return fmt.Errorf("%w: has %s, burning %s", ErrInsufficientShares, bal.Dec(), qty.Dec())
	}
	supply, err := l.TotalSupply(kv)
	if err != nil {
		return err
	}
	newSupply, err := fixedpoint.Sub(supply, qty)
	if err != nil {
		return err
	}
	write(kv, l.balanceKey(from), new(uint256.Int).Sub(bal, qty))
	write(kv, l.supplyKey(), newSupply)
	return nil
}

// Transfer moves shares between holders when the ledger allows it.
func (l Ledger) Transfer(kv state.KV, from, to sdk.Address, qty *uint256.Int) error {
	if !l.transferable {
		return ErrNonTransferable
	}
	if from == to {
		return nil
	}
	bal, err := l.BalanceOf(kv, from)
	if err != nil {
		return err
	}
	if bal.Lt(qty) {
		return ErrInsufficientShares
	}
	dest, err := l.BalanceOf(kv, to)
	if err != nil {
		return err
	}
	newDest, err := fixedpoint.Add(dest, qty)
	if err != nil {
		return err
	}
	write(kv, l.balanceKey(from), new(uint256.Int).Sub(bal, qty))
	write(kv, l.balanceKey(to), newDest)
	return nil
}
