package roster

import (
	"encoding/binary"
	"fmt"

	"go.vocdoni.io/ledger/election"
)

// TallySize is the encoded size of one tally.
const TallySize = 8

// EncodeTallies concatenates the tally of each candidate, in roster order,
// as little-endian unsigned 64-bit integers.
func EncodeTallies(candidates []*election.Candidate) []byte {
	buf := make([]byte, 0, len(candidates)*TallySize)
	for _, c := range candidates {
		buf = binary.LittleEndian.AppendUint64(buf, c.Votes)
	}
	return buf
}

// DecodeTallies splits a buffer produced by EncodeTallies.
func DecodeTallies(buf []byte) ([]uint64, error) {
	if len(buf)%TallySize != 0 {
		return nil, fmt.Errorf("%w: tallies length %d is not a multiple of %d", ErrMalformed, len(buf), TallySize)
	}
	tallies := make([]uint64, len(buf)/TallySize)
	for i := range tallies {
		tallies[i] = binary.LittleEndian.Uint64(buf[i*TallySize:])
	}
	return tallies, nil
}
