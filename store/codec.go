package store

import (
	"fmt"

	"git.sr.ht/~sircmpwn/go-bare"
	"go.vocdoni.io/ledger/election"
)

// recordVersion is bumped whenever storedRecord changes shape.
const recordVersion = 2

type storedCandidate struct {
	ID        []byte
	Name      []byte
	Party     []byte
	Metadata  []byte
	Votes     uint64
	DerivedID bool
}

type storedRecord struct {
	Version     uint8
	DisplayName []byte
	Deadline    uint64
	Extra       uint8
	Spent       uint64
	Candidates  []storedCandidate
}

func encodeRecord(r *election.Record) ([]byte, error) {
	sr := storedRecord{
		Version:     recordVersion,
		DisplayName: r.DisplayName,
		Deadline:    r.Deadline,
		Extra:       uint8(r.Extra),
		Spent:       r.Spent,
		Candidates:  make([]storedCandidate, len(r.Candidates)),
	}
	for i, c := range r.Candidates {
		sr.Candidates[i] = storedCandidate{
			ID:        c.ID,
			Name:      c.Name,
			Party:     c.Party,
			Metadata:  c.Metadata,
			Votes:     c.Votes,
			DerivedID: c.DerivedID,
		}
	}
	data, err := bare.Marshal(&sr)
	if err != nil {
		return nil, fmt.Errorf("cannot encode record: %w", err)
	}
	return data, nil
}

func decodeRecord(data []byte) (*election.Record, error) {
	var sr storedRecord
	if err := bare.Unmarshal(data, &sr); err != nil {
		return nil, err
	}
	if sr.Version != recordVersion {
		return nil, fmt.Errorf("unsupported record version %d", sr.Version)
	}
	r := &election.Record{
		DisplayName: nonEmpty(sr.DisplayName),
		Deadline:    sr.Deadline,
		Extra:       election.ExtraField(sr.Extra),
		Spent:       sr.Spent,
	}
	if len(sr.Candidates) > 0 {
		r.Candidates = make([]*election.Candidate, len(sr.Candidates))
	}
	for i, c := range sr.Candidates {
		r.Candidates[i] = &election.Candidate{
			ID:        nonEmpty(c.ID),
			Name:      nonEmpty(c.Name),
			Party:     nonEmpty(c.Party),
			Metadata:  nonEmpty(c.Metadata),
			Votes:     c.Votes,
			DerivedID: c.DerivedID,
		}
	}
	return r, nil
}

// nonEmpty normalizes empty byte fields to nil, as bare decodes them either
// way.
func nonEmpty(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
