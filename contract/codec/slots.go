package codec

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"pooled_fund/sdk"
)

// Motion payloads are a flat sequence of 32 byte slots. An address slot is
// 12 zero bytes followed by the 20 address bytes, an integer slot is a big
// endian unsigned 256 bit word.

const SlotSize = 32

var (
	ErrSlotAlignment = errors.New("codec: payload is not a whole number of slots")
	ErrDirtyPadding  = errors.New("codec: address slot has non-zero padding")
	ErrSlotRange     = errors.New("codec: integer slot out of range")
)

// AddressSlot left pads an address to a full slot.
func AddressSlot(a sdk.Address) [SlotSize]byte {
	var s [SlotSize]byte
	copy(s[SlotSize-20:], a.Bytes())
	return s
}

// IntSlot encodes an unsigned integer as a big endian slot.
func IntSlot(v *uint256.Int) [SlotSize]byte {
	return v.Bytes32()
}

// Uint64Slot is IntSlot for plain durations.
func Uint64Slot(v uint64) [SlotSize]byte {
	return IntSlot(uint256.NewInt(v))
}

// Slots splits a payload into its slots.
func Slots(payload []byte) ([][]byte, error) {
	if len(payload)%SlotSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrSlotAlignment, len(payload))
	}
	out := make([][]byte, 0, len(payload)/SlotSize)
	for i := 0; i < len(payload); i += SlotSize {
		out = append(out, payload[i:i+SlotSize])
	}
	return out, nil
}

// SlotAddress decodes an address slot, rejecting dirty padding.
func SlotAddress(slot []byte) (sdk.Address, error) {
	if len(slot) != SlotSize {
		return sdk.ZeroAddress, ErrSlotAlignment
	}
	for _, b := range slot[:SlotSize-20] {
		if b != 0 {
			return sdk.ZeroAddress, ErrDirtyPadding
		}
	}
	return sdk.Address(slot[SlotSize-20:]), nil
}

func SlotInt(slot []byte) (*uint256.Int, error) {
	if len(slot) != SlotSize {
		return nil, ErrSlotAlignment
	}
	return new(uint256.Int).SetBytes32(slot), nil
}

// SlotUint64 decodes an integer slot that has to fit 64 bits.
func SlotUint64(slot []byte) (uint64, error) {
	v, err := SlotInt(slot)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("%w: %s", ErrSlotRange, v.Dec())
	}
	return v.Uint64(), nil
}

// PackSlots concatenates slots into a payload.
func PackSlots(slots ...[SlotSize]byte) []byte {
	out := make([]byte, 0, len(slots)*SlotSize)
	for _, s := range slots {
		out = append(out, s[:]...)
	}
	return out
}

// PackAddresses encodes a list of addresses, one slot each.
func PackAddresses(list []sdk.Address) []byte {
	slots := make([][SlotSize]byte, len(list))
	for i, a := range list {
		slots[i] = AddressSlot(a)
	}
	return PackSlots(slots...)
}
