// Package election holds the data model of the ledger: an election record
// with its fixed candidate roster, and the rules every record must satisfy.
package election

import (
	"bytes"
	"fmt"

	"go.vocdoni.io/ledger/types"
)

var (
	// ErrDuplicateCandidate is returned when two candidates of the same
	// election share an identifier.
	ErrDuplicateCandidate = fmt.Errorf("duplicate candidate identifier")
	// ErrEmptyIdentifier is returned when a candidate has no identifier.
	ErrEmptyIdentifier = fmt.Errorf("empty candidate identifier")
)

// ID identifies one election. It is opaque and supplied by the creator.
type ID = types.HexBytes

// Token is an opaque voter token (BVN). A token can be spent once per
// election.
type Token = types.HexBytes

// ExtraField tells which optional third field a roster carries, besides the
// name and the party of each candidate.
type ExtraField uint8

const (
	// ExtraNone means only names and parties were supplied.
	ExtraNone ExtraField = iota
	// ExtraIdentifier means the third field is the candidate identifier.
	ExtraIdentifier
	// ExtraMetadata means the third field is auxiliary metadata, such as an
	// image reference.
	ExtraMetadata
)

func (e ExtraField) String() string {
	switch e {
	case ExtraNone:
		return "none"
	case ExtraIdentifier:
		return "identifier"
	case ExtraMetadata:
		return "metadata"
	default:
		return fmt.Sprintf("ExtraField(%d)", uint8(e))
	}
}

// Candidate is one ballot line item.
type Candidate struct {
	ID        types.HexBytes `json:"id"`
	Name      []byte         `json:"name"`
	Party     []byte         `json:"party,omitempty"`
	Metadata  []byte         `json:"metadata,omitempty"`
	Votes     uint64         `json:"votes"`
	// DerivedID is set when ID is the hash of the name because no identifier
	// was supplied for the candidate.
	DerivedID bool           `json:"derivedId,omitempty"`
}

// Extra returns the value of the third field as selected by e. A derived
// identifier was never part of the input, so it reads back as empty.
func (c *Candidate) Extra(e ExtraField) []byte {
	switch e {
	case ExtraIdentifier:
		if c.DerivedID {
			return nil
		}
		return c.ID
	case ExtraMetadata:
		return c.Metadata
	default:
		return nil
	}
}

// Clone returns a deep copy of the candidate.
func (c *Candidate) Clone() *Candidate {
	return &Candidate{
		ID:        bytes.Clone(c.ID),
		Name:      bytes.Clone(c.Name),
		Party:     bytes.Clone(c.Party),
		Metadata:  bytes.Clone(c.Metadata),
		Votes:     c.Votes,
		DerivedID: c.DerivedID,
	}
}

// Record is one election. The roster is fixed once the record is created;
// only the tallies and the spent token count change afterwards.
//
// The spent tokens themselves are kept by the store next to the record, see
// Registry.
type Record struct {
	DisplayName []byte       `json:"displayName,omitempty"`
	Deadline    uint64       `json:"deadline"`
	Extra       ExtraField   `json:"extra"`
	Candidates  []*Candidate `json:"candidates"`
	// Spent counts the tokens that cast a vote on this election, matched or
	// not.
	Spent uint64 `json:"spent"`
}

// Registry is the set of spent voter tokens of one election. It only grows.
type Registry interface {
	// Spent reports whether token already cast a vote.
	Spent(token Token) (bool, error)
	// Spend records token as spent. Spending a token twice is an error.
	Spend(token Token) error
}

// Validate checks that every candidate has a non-empty identifier and that
// identifiers are unique within the record.
func (r *Record) Validate() error {
	seen := make(map[string]int, len(r.Candidates))
	for i, c := range r.Candidates {
		if len(c.ID) == 0 {
			return fmt.Errorf("candidate %d (%q): %w", i, c.Name, ErrEmptyIdentifier)
		}
		if j, ok := seen[string(c.ID)]; ok {
			return fmt.Errorf("candidates %d and %d share id %x: %w", j, i, c.ID, ErrDuplicateCandidate)
		}
		seen[string(c.ID)] = i
	}
	return nil
}

// Candidate returns the first candidate, in roster order, whose identifier
// is id.
func (r *Record) Candidate(id []byte) (*Candidate, bool) {
	for _, c := range r.Candidates {
		if bytes.Equal(c.ID, id) {
			return c, true
		}
	}
	return nil, false
}

// TotalVotes returns the sum of all the tallies.
func (r *Record) TotalVotes() uint64 {
	var total uint64
	for _, c := range r.Candidates {
		total += c.Votes
	}
	return total
}

// Tallies returns the tally of each candidate in roster order.
func (r *Record) Tallies() []uint64 {
	tallies := make([]uint64, len(r.Candidates))
	for i, c := range r.Candidates {
		tallies[i] = c.Votes
	}
	return tallies
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	rc := &Record{
		DisplayName: bytes.Clone(r.DisplayName),
		Deadline:    r.Deadline,
		Extra:       r.Extra,
		Spent:       r.Spent,
	}
	if r.Candidates != nil {
		rc.Candidates = make([]*Candidate, len(r.Candidates))
		for i, c := range r.Candidates {
			rc.Candidates[i] = c.Clone()
		}
	}
	return rc
}
