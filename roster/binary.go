package roster

import (
	"encoding/binary"
	"fmt"
	"math"

	"go.vocdoni.io/ledger/election"
)

// minCandidateSize is the encoded size of a candidate whose fields are all
// empty: four length prefixes, the tally and the flags byte.
const minCandidateSize = 4*4 + 8 + 1

// flagDerivedID marks a candidate whose identifier is the hash of its name.
const flagDerivedID = 1

// Marshal encodes a whole record with explicit length-prefixed fields. Every
// variable-length value is written as a 4-byte little-endian length followed
// by the raw bytes, so values may contain any byte, separators included.
//
//	displayName | deadline u64 | extra u8 | count u32 |
//	count * (id | name | party | metadata | votes u64 | flags u8)
func Marshal(r *election.Record) []byte {
	size := 4 + len(r.DisplayName) + 8 + 1 + 4
	for _, c := range r.Candidates {
		size += minCandidateSize + len(c.ID) + len(c.Name) + len(c.Party) + len(c.Metadata)
	}
	buf := make([]byte, 0, size)
	buf = appendField(buf, r.DisplayName)
	buf = binary.LittleEndian.AppendUint64(buf, r.Deadline)
	buf = append(buf, byte(r.Extra))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(r.Candidates)))
	for _, c := range r.Candidates {
		buf = appendField(buf, c.ID)
		buf = appendField(buf, c.Name)
		buf = appendField(buf, c.Party)
		buf = appendField(buf, c.Metadata)
		buf = binary.LittleEndian.AppendUint64(buf, c.Votes)
		var flags byte
		if c.DerivedID {
			flags |= flagDerivedID
		}
		buf = append(buf, flags)
	}
	return buf
}

// Unmarshal decodes a buffer produced by Marshal. The spent token count is
// not part of the format and is left at zero.
func Unmarshal(buf []byte) (*election.Record, error) {
	d := decoder{buf: buf}
	r := &election.Record{}
	r.DisplayName = d.field()
	r.Deadline = d.uint64()
	r.Extra = election.ExtraField(d.byte())
	count := d.uint32()
	if d.err != nil {
		return nil, d.err
	}
	if r.Extra > election.ExtraMetadata {
		return nil, fmt.Errorf("%w: unknown extra field kind %d", ErrMalformed, r.Extra)
	}
	if uint64(count)*minCandidateSize > uint64(len(d.buf)) {
		return nil, fmt.Errorf("%w: %d candidates do not fit in %d bytes", ErrMalformed, count, len(d.buf))
	}
	r.Candidates = make([]*election.Candidate, 0, count)
	for i := uint32(0); i < count; i++ {
		c := &election.Candidate{
			ID:       d.field(),
			Name:     d.field(),
			Party:    d.field(),
			Metadata: d.field(),
			Votes:    d.uint64(),
		}
		flags := d.byte()
		if d.err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, d.err)
		}
		if flags&^flagDerivedID != 0 {
			return nil, fmt.Errorf("%w: candidate %d has unknown flags %#x", ErrMalformed, i, flags)
		}
		c.DerivedID = flags&flagDerivedID != 0
		r.Candidates = append(r.Candidates, c)
	}
	if len(d.buf) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(d.buf))
	}
	return r, nil
}

func appendField(buf, v []byte) []byte {
	if uint64(len(v)) > math.MaxUint32 {
		panic("roster: field too large")
	}
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(v)))
	return append(buf, v...)
}

// decoder consumes buf from the front. After the first failure every read
// returns a zero value and err keeps the failure.
type decoder struct {
	buf []byte
	err error
}

func (d *decoder) take(n uint64, what string) []byte {
	if d.err != nil {
		return nil
	}
	if n > uint64(len(d.buf)) {
		d.err = fmt.Errorf("%w: truncated %s, need %d bytes, have %d", ErrMalformed, what, n, len(d.buf))
		return nil
	}
	b := d.buf[:n]
	d.buf = d.buf[n:]
	return b
}

func (d *decoder) field() []byte {
	n := d.uint32()
	b := d.take(uint64(n), "field")
	if len(b) == 0 {
		return nil
	}
	return append([]byte(nil), b...)
}

func (d *decoder) byte() byte {
	b := d.take(1, "byte")
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *decoder) uint32() uint32 {
	b := d.take(4, "length")
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *decoder) uint64() uint64 {
	b := d.take(8, "uint64")
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}
