// Package roster converts candidate rosters between the flat byte buffers
// used at the ledger boundary and election.Candidate lists.
//
// Three formats live here: the comma-separated input fields accepted when an
// election is created, the legacy separator-delimited output of
// EncodeLegacy, and the length-prefixed format of Marshal, which is the one
// to use for anything new since it is not affected by separator bytes inside
// field values.
package roster

import (
	"bytes"

	"go.vocdoni.io/ledger/election"
)

// InputSeparator splits the entries of each input field.
const InputSeparator = ','

// DecodeOptions tune how input fields become candidates.
type DecodeOptions struct {
	// Policy selects where identifiers come from.
	Policy election.IdentifierPolicy
	// Hash derives identifiers from names. Defaults to election.Blake2b256.
	Hash election.HashFunc
	// InitialVotes is the starting tally of every candidate.
	InitialVotes uint64
}

func (o DecodeOptions) hash() election.HashFunc {
	if o.Hash == nil {
		return election.Blake2b256{}
	}
	return o.Hash
}

// Decode builds the candidate list of an election from its comma-separated
// input fields. names decides the number of candidates; the i-th entry of
// parties and extra is paired with the i-th name. Empty names yields an empty
// roster. Decode never fails.
//
// Fields shorter than names are padded, see PadShortFields. Commas inside a
// value are not escaped, so they shift every following entry of that field.
//
// With no extra field, identifiers are always derived from names. Otherwise
// opts.Policy decides whether extra holds identifiers or metadata. A
// candidate left without a supplied identifier gets the hash of its name and
// is marked with DerivedID.
func Decode(names, parties, extra []byte, opts DecodeOptions) []*election.Candidate {
	nameTokens := split(names)
	partyTokens := split(parties)
	extraTokens := split(extra)
	fieldKind := ExtraFor(extra, opts.Policy)
	hash := opts.hash()

	candidates := make([]*election.Candidate, 0, len(nameTokens))
	for i, name := range nameTokens {
		c := &election.Candidate{
			Name:  bytes.Clone(name),
			Party: PadShortFields(partyTokens, i),
			Votes: opts.InitialVotes,
		}
		third := PadShortFields(extraTokens, i)
		switch fieldKind {
		case election.ExtraIdentifier:
			c.ID = third
		case election.ExtraMetadata:
			c.Metadata = third
		}
		if len(c.ID) == 0 {
			c.ID = hash.Hash(name)
			c.DerivedID = true
		}
		candidates = append(candidates, c)
	}
	return candidates
}

// ExtraFor returns the meaning of the extra input field under policy. An
// empty field is not modeled at all.
func ExtraFor(extra []byte, policy election.IdentifierPolicy) election.ExtraField {
	if len(extra) == 0 {
		return election.ExtraNone
	}
	return policy.ExtraField()
}

// PadShortFields returns a copy of the i-th token, or an empty value when the
// field has fewer than i+1 tokens. A short field is not an error: trailing
// candidates get no party, identifier or metadata.
func PadShortFields(tokens [][]byte, i int) []byte {
	if i >= len(tokens) {
		return nil
	}
	if len(tokens[i]) == 0 {
		return nil
	}
	return bytes.Clone(tokens[i])
}

func split(field []byte) [][]byte {
	if len(field) == 0 {
		return nil
	}
	return bytes.Split(field, []byte{InputSeparator})
}
