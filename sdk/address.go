package sdk

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Address identifies every party the fund talks to: members, directors,
// tokens and the collaborator services. It is a plain 20 byte identity.
type Address = common.Address

// ZeroAddress is never accepted as a member, director, manager or token.
var ZeroAddress = Address{}

// AddressFromString parses a 0x prefixed hex identity.
// Example payload: sdk.AddressFromString("0x00000000000000000000000000000000000000aa")
func AddressFromString(s string) (Address, error) {
	if !common.IsHexAddress(s) {
		return ZeroAddress, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

// AddressesFromStrings parses a list, failing on the first bad entry.
func AddressesFromStrings(in []string) ([]Address, error) {
	out := make([]Address, 0, len(in))
	for _, s := range in {
		a, err := AddressFromString(s)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// MustAddress is AddressFromString for constants and tests.
func MustAddress(s string) Address {
	a, err := AddressFromString(s)
	if err != nil {
		panic(err)
	}
	return a
}

// IsValid returns false for the zero identity, used as a light sanity check.
func IsValid(a Address) bool {
	return a != ZeroAddress
}

// NumberedAddress builds a deterministic identity from a small number, handy for fixtures.
// Example payload: sdk.NumberedAddress(7) -> 0x0000...0007
func NumberedAddress(n uint64) Address {
	var b [8]byte
	for i := 7; i >= 0; i-- {
		b[i] = byte(n)
		n >>= 8
	}
	return common.BytesToAddress(b[:])
}
