package board

import (
	"fmt"

	"pooled_fund/contract/codec"
	"pooled_fund/sdk"
)

// Command is a decoded motion payload. Each variant carries the typed
// arguments of exactly one administrative call.
type Command interface {
	Type() MotionType
	// Payload is the slot encoding DecodeCommand reads back.
	Payload() []byte
}

type SetManager struct{ Manager sdk.Address }

type SetDenominationToken struct{ Token sdk.Address }

type SetMinimumLockupDuration struct{ Seconds uint64 }

type SetMinimumPayoutDuration struct{ Seconds uint64 }

type SetRecomputationDelay struct{ Seconds uint64 }

type SetTicker struct{ Ticker sdk.Address }

type SetRegistry struct{ Registry sdk.Address }

type ResetMemberUnlockTime struct{ Member sdk.Address }

// SetFundOwner hands the fund over, usually to a new board.
type SetFundOwner struct{ Owner sdk.Address }

type ApproveTokens struct{ Tokens []sdk.Address }

type DisapproveTokens struct{ Tokens []sdk.Address }

type AddDirectors struct{ Directors []sdk.Address }

type RemoveDirectors struct{ Directors []sdk.Address }

func (SetManager) Type() MotionType               { return MotionSetManager }
func (SetDenominationToken) Type() MotionType     { return MotionSetDenominationToken }
func (SetMinimumLockupDuration) Type() MotionType { return MotionSetMinimumLockupDuration }
func (SetMinimumPayoutDuration) Type() MotionType { return MotionSetMinimumPayoutDuration }
func (SetRecomputationDelay) Type() MotionType    { return MotionSetRecomputationDelay }
func (SetTicker) Type() MotionType                { return MotionSetTicker }
func (SetRegistry) Type() MotionType              { return MotionSetRegistry }
func (ResetMemberUnlockTime) Type() MotionType    { return MotionResetMemberUnlockTime }
func (SetFundOwner) Type() MotionType             { return MotionSetFundOwner }
func (ApproveTokens) Type() MotionType            { return MotionApproveTokens }
func (DisapproveTokens) Type() MotionType         { return MotionDisapproveTokens }
func (AddDirectors) Type() MotionType             { return MotionAddDirectors }
func (RemoveDirectors) Type() MotionType          { return MotionRemoveDirectors }

func addressPayload(a sdk.Address) []byte { return codec.PackSlots(codec.AddressSlot(a)) }

func durationPayload(v uint64) []byte { return codec.PackSlots(codec.Uint64Slot(v)) }

func (c SetManager) Payload() []byte               { return addressPayload(c.Manager) }
func (c SetDenominationToken) Payload() []byte     { return addressPayload(c.Token) }
func (c SetMinimumLockupDuration) Payload() []byte { return durationPayload(c.Seconds) }
func (c SetMinimumPayoutDuration) Payload() []byte { return durationPayload(c.Seconds) }
func (c SetRecomputationDelay) Payload() []byte    { return durationPayload(c.Seconds) }
func (c SetTicker) Payload() []byte                { return addressPayload(c.Ticker) }
func (c SetRegistry) Payload() []byte              { return addressPayload(c.Registry) }
func (c ResetMemberUnlockTime) Payload() []byte    { return addressPayload(c.Member) }
func (c SetFundOwner) Payload() []byte             { return addressPayload(c.Owner) }
func (c ApproveTokens) Payload() []byte            { return codec.PackAddresses(c.Tokens) }
func (c DisapproveTokens) Payload() []byte         { return codec.PackAddresses(c.Tokens) }
func (c AddDirectors) Payload() []byte             { return codec.PackAddresses(c.Directors) }
func (c RemoveDirectors) Payload() []byte          { return codec.PackAddresses(c.Directors) }

// DecodeCommand parses payload according to t. Single argument kinds take
// exactly one slot, list kinds one or more.
func DecodeCommand(t MotionType, payload []byte) (Command, error) {
	var (
		cmd Command
		err error
	)
	switch t {
	case MotionSetManager:
		a, e := singleAddress(payload)
		cmd, err = SetManager{Manager: a}, e
	case MotionSetDenominationToken:
		a, e := singleAddress(payload)
		cmd, err = SetDenominationToken{Token: a}, e
	case MotionSetMinimumLockupDuration:
		v, e := singleUint64(payload)
		cmd, err = SetMinimumLockupDuration{Seconds: v}, e
	case MotionSetMinimumPayoutDuration:
		v, e := singleUint64(payload)
		cmd, err = SetMinimumPayoutDuration{Seconds: v}, e
	case MotionSetRecomputationDelay:
		v, e := singleUint64(payload)
		cmd, err = SetRecomputationDelay{Seconds: v}, e
	case MotionSetTicker:
		a, e := singleAddress(payload)
		cmd, err = SetTicker{Ticker: a}, e
	case MotionSetRegistry:
		a, e := singleAddress(payload)
		cmd, err = SetRegistry{Registry: a}, e
	case MotionResetMemberUnlockTime:
		a, e := singleAddress(payload)
		cmd, err = ResetMemberUnlockTime{Member: a}, e
	case MotionSetFundOwner:
		a, e := singleAddress(payload)
		cmd, err = SetFundOwner{Owner: a}, e
	case MotionApproveTokens:
		list, e := addressList(payload)
		cmd, err = ApproveTokens{Tokens: list}, e
	case MotionDisapproveTokens:
		list, e := addressList(payload)
		cmd, err = DisapproveTokens{Tokens: list}, e
	case MotionAddDirectors:
		list, e := addressList(payload)
		cmd, err = AddDirectors{Directors: list}, e
	case MotionRemoveDirectors:
		list, e := addressList(payload)
		cmd, err = RemoveDirectors{Directors: list}, e
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMotionType, t)
	}
	if err != nil {
		return nil, err
	}
	return cmd, nil
}

func singleSlot(payload []byte) ([]byte, error) {
	slots, err := codec.Slots(payload)
	if err != nil {
		return nil, malformed(err)
	}
	if len(slots) != 1 {
		return nil, fmt.Errorf("%w: want 1 slot, got %d", ErrMalformedPayload, len(slots))
	}
	return slots[0], nil
}

func singleAddress(payload []byte) (sdk.Address, error) {
	slot, err := singleSlot(payload)
	if err != nil {
		return sdk.ZeroAddress, err
	}
	a, err := codec.SlotAddress(slot)
	if err != nil {
		return sdk.ZeroAddress, malformed(err)
	}
	return a, nil
}

func singleUint64(payload []byte) (uint64, error) {
	slot, err := singleSlot(payload)
	if err != nil {
		return 0, err
	}
	v, err := codec.SlotUint64(slot)
	if err != nil {
		return 0, malformed(err)
	}
	return v, nil
}

func addressList(payload []byte) ([]sdk.Address, error) {
	slots, err := codec.Slots(payload)
	if err != nil {
		return nil, malformed(err)
	}
	if len(slots) == 0 {
		return nil, fmt.Errorf("%w: empty address list", ErrMalformedPayload)
	}
	out := make([]sdk.Address, len(slots))
	for i, s := range slots {
		if out[i], err = codec.SlotAddress(s); err != nil {
			return nil, malformed(err)
		}
	}
	return out, nil
}
