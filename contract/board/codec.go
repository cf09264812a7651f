package board

import (
	"fmt"

	"pooled_fund/contract/codec"
)

func encodeParams(p *Parameters) []byte {
	w := codec.NewWriter()
	w.WriteAddress(p.Address)
	w.WriteUint64(p.MotionDuration)
	return w.Bytes()
}

func decodeParams(data []byte) (*Parameters, error) {
	r := codec.NewReader(data)
	p := &Parameters{}
	var err error
	if p.Address, err = r.ReadAddress(); err != nil {
		return nil, fmt.Errorf("board params: %w", err)
	}
	if p.MotionDuration, err = r.ReadUint64(); err != nil {
		return nil, fmt.Errorf("board params: %w", err)
	}
	return p, r.Done()
}

func encodeMotion(m *Motion) []byte {
	w := codec.NewWriter()
	w.WriteUint64(m.ID)
	w.WriteUint8(uint8(m.Type))
	w.WriteUint8(uint8(m.Status))
	w.WriteAddress(m.Initiator)
	w.WriteInt64(m.CreatedAt)
	w.WriteInt64(m.ExpiresAt)
	w.WriteVarUint(m.VotesFor)
	w.WriteVarUint(m.VotesAgainst)
	w.WriteVarUint(m.Abstentions)
	w.WriteString(m.Description)
	w.WriteBytes(m.Payload)
	return w.Bytes()
}

func decodeMotion(data []byte) (*Motion, error) {
	r := codec.NewReader(data)
	m := &Motion{}
	fail := func(field string, err error) (*Motion, error) {
		return nil, fmt.Errorf("motion %s: %w", field, err)
	}
	var err error
	var b uint8
	if m.ID, err = r.ReadUint64(); err != nil {
		return fail("id", err)
	}
	if b, err = r.ReadUint8(); err != nil {
		return fail("type", err)
	}
	m.Type = MotionType(b)
	if b, err = r.ReadUint8(); err != nil {
		return fail("status", err)
	}
	m.Status = Status(b)
	if m.Initiator, err = r.ReadAddress(); err != nil {
		return fail("initiator", err)
	}
	if m.CreatedAt, err = r.ReadInt64(); err != nil {
		return fail("created", err)
	}
	if m.ExpiresAt, err = r.ReadInt64(); err != nil {
		return fail("expires", err)
	}
	if m.VotesFor, err = r.ReadVarUint(); err != nil {
		return fail("for", err)
	}
	if m.VotesAgainst, err = r.ReadVarUint(); err != nil {
		return fail("against", err)
	}
	if m.Abstentions, err = r.ReadVarUint(); err != nil {
		return fail("abstentions", err)
	}
	if m.Description, err = r.ReadString(); err != nil {
		return fail("description", err)
	}
	if m.Payload, err = r.ReadBytes(); err != nil {
		return fail("payload", err)
	}
	return m, r.Done()
}
