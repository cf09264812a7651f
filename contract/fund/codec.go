package fund

import (
	"pooled_fund/contract/codec"
)

// binary layouts of the stored records. Field order is the storage format, dont reorder.

func encodeParams(p *Parameters) []byte {
	w := codec.NewWriter()
	w.WriteAddress(p.Address)
	w.WriteAddress(p.Owner)
	w.WriteAddress(p.Manager)
	w.WriteString(p.Name)
	w.WriteString(p.Symbol)
	w.WriteUint8(p.ShareDecimals)
	w.WriteAddress(p.DenominationToken)
	w.WriteUint64(p.MinimumLockupDuration)
	w.WriteUint64(p.MinimumPayoutDuration)
	w.WriteUint64(p.RecomputationDelay)
	w.WriteAddress(p.Ticker)
	w.WriteAddress(p.Registry)
	return w.Bytes()
}

func decodeParams(data []byte) (*Parameters, error) {
	r := codec.NewReader(data)
	p := &Parameters{}
	var err error
	if p.Address, err = r.ReadAddress(); err != nil {
		return nil, err
	}
	if p.Owner, err = r.ReadAddress(); err != nil {
		return nil, err
	}
	if p.Manager, err = r.ReadAddress(); err != nil {
		return nil, err
	}
	if p.Name, err = r.ReadString(); err != nil {
		return nil, err
	}
	if p.Symbol, err = r.ReadString(); err != nil {
		return nil, err
	}
	if p.ShareDecimals, err = r.ReadUint8(); err != nil {
		return nil, err
	}
	if p.DenominationToken, err = r.ReadAddress(); err != nil {
		return nil, err
	}
	if p.MinimumLockupDuration, err = r.ReadUint64(); err != nil {
		return nil, err
	}
	if p.MinimumPayoutDuration, err = r.ReadUint64(); err != nil {
		return nil, err
	}
	if p.RecomputationDelay, err = r.ReadUint64(); err != nil {
		return nil, err
	}
	if p.Ticker, err = r.ReadAddress(); err != nil {
		return nil, err
	}
	if p.Registry, err = r.ReadAddress(); err != nil {
		return nil, err
	}
	return p, r.Done()
}

func encodeMember(m *MemberDetails) []byte {
	w := codec.NewWriter()
	w.WriteInt64(m.JoinTime)
	w.WriteInt64(m.UnlockTime)
	w.WriteInt64(m.FinalBenefitTime)
	w.WriteU256(m.TotalUnlockable)
	return w.Bytes()
}

func decodeMember(data []byte) (*MemberDetails, error) {
	r := codec.NewReader(data)
	m := &MemberDetails{}
	var err error
	if m.JoinTime, err = r.ReadInt64(); err != nil {
		return nil, err
	}
	if m.UnlockTime, err = r.ReadInt64(); err != nil {
		return nil, err
	}
	if m.FinalBenefitTime, err = r.ReadInt64(); err != nil {
		return nil, err
	}
	if m.TotalUnlockable, err = r.ReadU256(); err != nil {
		return nil, err
	}
	return m, r.Done()
}

// encodeRequest writes a presence bit before the optional schedule.
func encodeRequest(q *MembershipRequest) []byte {
	w := codec.NewWriter()
	w.WriteUint64(q.LockupDuration)
	w.WriteUint64(q.PayoutDuration)
	w.WriteAddress(q.Token)
	w.WriteU256(q.InitialContribution)
	w.WriteU256(q.ExpectedShares)
	if q.Recurring == nil {
		w.WriteBool(false)
		return w.Bytes()
	}
	w.WriteBool(true)
	w.WriteAddress(q.Recurring.Token)
	w.WriteU256(q.Recurring.Quantity)
	w.WriteUint64(q.Recurring.Period)
	w.WriteUint64(q.Recurring.Duration)
	return w.Bytes()
}

func decodeRequest(data []byte) (*MembershipRequest, error) {
	r := codec.NewReader(data)
	q := &MembershipRequest{}
	var err error
	if q.LockupDuration, err = r.ReadUint64(); err != nil {
		return nil, err
	}
	if q.PayoutDuration, err = r.ReadUint64(); err != nil {
		return nil, err
	}
	if q.Token, err = r.ReadAddress(); err != nil {
		return nil, err
	}
	if q.InitialContribution, err = r.ReadU256(); err != nil {
		return nil, err
	}
	if q.ExpectedShares, err = r.ReadU256(); err != nil {
		return nil, err
	}
	has, err := r.ReadBool()
	if err != nil {
		return nil, err
	}
	if has {
		rr := &RecurringRequest{}
		if rr.Token, err = r.ReadAddress(); err != nil {
			return nil, err
		}
		if rr.Quantity, err = r.ReadU256(); err != nil {
			return nil, err
		}
		if rr.Period, err = r.ReadUint64(); err != nil {
			return nil, err
		}
		if rr.Duration, err = r.ReadUint64(); err != nil {
			return nil, err
		}
		q.Recurring = rr
	}
	return q, r.Done()
}

func encodeContribution(c *Contribution) []byte {
	w := codec.NewWriter()
	w.WriteAddress(c.Contributor)
	w.WriteInt64(c.Timestamp)
	w.WriteAddress(c.Token)
	w.WriteU256(c.Quantity)
	w.WriteU256(c.Shares)
	return w.Bytes()
}

func decodeContribution(data []byte) (*Contribution, error) {
	r := codec.NewReader(data)
	c := &Contribution{}
	var err error
	if c.Contributor, err = r.ReadAddress(); err != nil {
		return nil, err
	}
	if c.Timestamp, err = r.ReadInt64(); err != nil {
		return nil, err
	}
	if c.Token, err = r.ReadAddress(); err != nil {
		return nil, err
	}
	if c.Quantity, err = r.ReadU256(); err != nil {
		return nil, err
	}
	if c.Shares, err = r.ReadU256(); err != nil {
		return nil, err
	}
	return c, r.Done()
}

func encodeSchedule(s *RecurringContribution) []byte {
	w := codec.NewWriter()
	w.WriteAddress(s.Token)
	w.WriteU256(s.Quantity)
	w.WriteUint64(s.Period)
	w.WriteInt64(s.TerminationTime)
	w.WriteInt64(s.PreviousContributionTime)
	return w.Bytes()
}

func decodeSchedule(data []byte) (*RecurringContribution, error) {
	r := codec.NewReader(data)
	s := &RecurringContribution{}
	var err error
	if s.Token, err = r.ReadAddress(); err != nil {
		return nil, err
	}
	if s.Quantity, err = r.ReadU256(); err != nil {
		return nil, err
	}
	if s.Period, err = r.ReadUint64(); err != nil {
		return nil, err
	}
	if s.TerminationTime, err = r.ReadInt64(); err != nil {
		return nil, err
	}
	if s.PreviousContributionTime, err = r.ReadInt64(); err != nil {
		return nil, err
	}
	return s, r.Done()
}

func encodeFundValue(v *FundValue) []byte {
	w := codec.NewWriter()
	w.WriteU256(v.Value)
	w.WriteInt64(v.Timestamp)
	return w.Bytes()
}

func decodeFundValue(data []byte) (*FundValue, error) {
	r := codec.NewReader(data)
	v := &FundValue{}
	var err error
	if v.Value, err = r.ReadU256(); err != nil {
		return nil, err
	}
	if v.Timestamp, err = r.ReadInt64(); err != nil {
		return nil, err
	}
	return v, r.Done()
}

func encodeLogEntry(e *LogEntry) []byte {
	w := codec.NewWriter()
	w.WriteUint8(uint8(e.Type))
	w.WriteInt64(e.Timestamp)
	w.WriteAddress(e.Token)
	w.WriteU256(e.Quantity)
	w.WriteAddress(e.Account)
	w.WriteUint8(uint8(e.Result))
	w.WriteString(e.Annotation)
	return w.Bytes()
}

func decodeLogEntry(data []byte) (*LogEntry, error) {
	r := codec.NewReader(data)
	e := &LogEntry{}
	t, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	e.Type = LogType(t)
	if e.Timestamp, err = r.ReadInt64(); err != nil {
		return nil, err
	}
	if e.Token, err = r.ReadAddress(); err != nil {
		return nil, err
	}
	if e.Quantity, err = r.ReadU256(); err != nil {
		return nil, err
	}
	if e.Account, err = r.ReadAddress(); err != nil {
		return nil, err
	}
	res, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	e.Result = ResultCode(res)
	if e.Annotation, err = r.ReadString(); err != nil {
		return nil, err
	}
	return e, r.Done()
}
