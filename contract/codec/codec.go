// Package codec holds the deterministic binary encoding used for stored
// records and the 32 byte slot encoding used by board motion payloads.
package codec

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/holiman/uint256"

	"pooled_fund/sdk"
)

var (
	ErrUnexpectedEOF = errors.New("codec: unexpected EOF")
	ErrInvalidVarint = errors.New("codec: invalid varuint")
	ErrTrailingBytes = errors.New("codec: trailing bytes")
)

type Writer struct {
	buf bytes.Buffer
}

// NewWriter spins up a fresh writer so we dont leak old bytes between encodes.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

func (w *Writer) WriteUint8(v uint8) { w.buf.WriteByte(v) }

// WriteBool squashes bools into a single byte flag for deterministic payloads.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

// WriteUint64 writes big endian numbers so tooling can read them without guessing.
func (w *Writer) WriteUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

// WriteInt64 reuses the uint routine since casting keeps the sign bits intact.
func (w *Writer) WriteInt64(v int64) {
	w.WriteUint64(uint64(v))
}

// WriteVarUint uses varints to keep counts and lens compact.
func (w *Writer) WriteVarUint(v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	w.buf.Write(tmp[:n])
}

// WriteString prefixes its length then dumps UTF-8 directly.
func (w *Writer) WriteString(s string) {
	w.WriteVarUint(uint64(len(s)))
	w.buf.WriteString(s)
}

// WriteBytes is WriteString for raw blobs.
func (w *Writer) WriteBytes(b []byte) {
	w.WriteVarUint(uint64(len(b)))
	w.buf.Write(b)
}

// WriteAddress dumps the raw 20 bytes, no length prefix needed.
func (w *Writer) WriteAddress(a sdk.Address) {
	w.buf.Write(a.Bytes())
}

// WriteU256 writes a fixed 32 byte big endian word, nil counts as zero.
func (w *Writer) WriteU256(v *uint256.Int) {
	if v == nil {
		v = new(uint256.Int)
	}
	b := v.Bytes32()
	w.buf.Write(b[:])
}

// ------------------------------------------------------------------
// Decoder helpers
// ------------------------------------------------------------------

type Reader struct {
	data []byte
	pos  int
}

// NewReader wraps raw bytes so we can peek sequentially w/out copying.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, ErrUnexpectedEOF
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadBool restores bools stored via WriteBool above.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadUint8()
	if err != nil {
		return false, err
	}
	return b == 1, nil
}

// ReadUint64 decodes big endian integers for ids and totals.
func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// ReadInt64 simply casts the unsigned read, matching the writer logic.
func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}

// ReadVarUint undoes the compact varint encoding for lengths/counts.
func (r *Reader) ReadVarUint() (uint64, error) {
	val, n := binary.Uvarint(r.data[r.pos:])
	if n <= 0 {
		return 0, ErrInvalidVarint
	}
	r.pos += n
	return val, nil
}

func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadBytes returns a copy so callers can keep it after the buffer is reused.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadVarUint()
	if err != nil {
		return nil, err
	}
	if n > uint64(r.Remaining()) {
		return nil, ErrUnexpectedEOF
	}
	b, err := r.take(int(n))
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

func (r *Reader) ReadAddress() (sdk.Address, error) {
	b, err := r.take(20)
	if err != nil {
		return sdk.ZeroAddress, err
	}
	return sdk.Address(b), nil
}

func (r *Reader) ReadU256() (*uint256.Int, error) {
	b, err := r.take(32)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes32(b), nil
}

// Remaining is the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

// Done fails when bytes are left over, records should be consumed exactly.
func (r *Reader) Done() error {
	if r.Remaining() != 0 {
		return ErrTrailingBytes
	}
	return nil
}
