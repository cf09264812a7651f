package board

import (
	"encoding/binary"

	"pooled_fund/sdk"
)

// Board keys live above the fund's range so both engines can share one store.
const (
	// kParams stores the encoded Parameters, presence means initialized.
	kParams byte = 0x30
	// kDirectors is the iterable director set.
	kDirectors byte = 0x31
	// kMotions is the append only motion log, ids are log indexes.
	kMotions byte = 0x32
	// kVotes holds one vote byte per (motion, director).
	kVotes byte = 0x33
)

func prefix(k byte) string { return string([]byte{k}) }

func paramsKey() string { return prefix(kParams) }

func voteKey(id uint64, director sdk.Address) string {
	buf := make([]byte, 0, 1+8+20)
	buf = append(buf, kVotes)
	buf = binary.BigEndian.AppendUint64(buf, id)
	buf = append(buf, director.Bytes()...)
	return string(buf)
}
