package roster

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp"
	"go.vocdoni.io/ledger/election"
)

func TestDecode(t *testing.T) {
	c := qt.New(t)

	cands := Decode([]byte("Alice,Bob"), []byte("Red,Blue"), nil, DecodeOptions{})
	c.Assert(cands, qt.HasLen, 2)
	c.Assert(string(cands[0].Name), qt.Equals, "Alice")
	c.Assert(string(cands[0].Party), qt.Equals, "Red")
	c.Assert(string(cands[1].Name), qt.Equals, "Bob")
	c.Assert(string(cands[1].Party), qt.Equals, "Blue")
	c.Assert([]byte(cands[0].ID), qt.DeepEquals, election.Blake2b256{}.Hash([]byte("Alice")))
	c.Assert([]byte(cands[1].ID), qt.DeepEquals, election.Blake2b256{}.Hash([]byte("Bob")))
	c.Assert(cands[0].Votes, qt.Equals, uint64(0))
	c.Assert(cands[0].Metadata, qt.IsNil)
}

func TestDecodeEmpty(t *testing.T) {
	qt.Assert(t, Decode(nil, []byte("Red"), nil, DecodeOptions{}), qt.HasLen, 0)
	qt.Assert(t, Decode([]byte{}, nil, nil, DecodeOptions{}), qt.HasLen, 0)
}

func TestDecodePadsShortFields(t *testing.T) {
	c := qt.New(t)

	cands := Decode([]byte("Alice,Bob,Carol"), []byte("Red"), []byte("a.png,b.png"),
		DecodeOptions{InitialVotes: 5})
	c.Assert(cands, qt.HasLen, 3)
	c.Assert(string(cands[0].Party), qt.Equals, "Red")
	c.Assert(cands[1].Party, qt.IsNil)
	c.Assert(cands[2].Party, qt.IsNil)
	c.Assert(string(cands[0].Metadata), qt.Equals, "a.png")
	c.Assert(string(cands[1].Metadata), qt.Equals, "b.png")
	c.Assert(cands[2].Metadata, qt.IsNil)
	for _, cand := range cands {
		c.Assert(cand.Votes, qt.Equals, uint64(5))
	}
}

func TestDecodeEmbeddedCommaShiftsAlignment(t *testing.T) {
	// commas are never escaped: "Red,Green" is two party entries
	cands := Decode([]byte("Alice,Bob"), []byte("Red,Green,Blue"), nil, DecodeOptions{})
	qt.Assert(t, string(cands[1].Party), qt.Equals, "Green")
}

func TestDecodeSuppliedIdentifiers(t *testing.T) {
	c := qt.New(t)

	opts := DecodeOptions{Policy: election.Supplied, Hash: election.Keccak256{}}
	cands := Decode([]byte("Alice,Bob"), []byte("Red,Blue"), []byte("cand-1"), opts)
	c.Assert(string(cands[0].ID), qt.Equals, "cand-1")
	// Bob has no supplied identifier, so it falls back to the name hash
	c.Assert([]byte(cands[1].ID), qt.DeepEquals, election.Keccak256{}.Hash([]byte("Bob")))
	c.Assert(cands[0].DerivedID, qt.IsFalse)
	c.Assert(cands[1].DerivedID, qt.IsTrue)
	c.Assert(cands[1].Extra(election.ExtraIdentifier), qt.IsNil)
	c.Assert(cands[0].Metadata, qt.IsNil)
	c.Assert(ExtraFor([]byte("cand-1"), opts.Policy), qt.Equals, election.ExtraIdentifier)
	c.Assert(ExtraFor(nil, opts.Policy), qt.Equals, election.ExtraNone)
}

func TestDecodeCopiesInput(t *testing.T) {
	names := []byte("Alice")
	cands := Decode(names, nil, nil, DecodeOptions{})
	names[0] = 'X'
	qt.Assert(t, string(cands[0].Name), qt.Equals, "Alice")
}

func TestEncodeLegacy(t *testing.T) {
	c := qt.New(t)

	cands := Decode([]byte("Alice,Bob"), []byte("Red,Blue"), nil, DecodeOptions{})
	c.Assert(string(EncodeLegacy(cands, nil, election.ExtraNone)), qt.Equals,
		"Alice%%Red&&Bob%%Blue&&")
	c.Assert(string(EncodeLegacy(cands, []byte("General"), election.ExtraNone)), qt.Equals,
		"Alice%%Red&&Bob%%Blue&&***General")

	cands = Decode([]byte("Alice,Bob"), []byte("Red"), []byte("a.png,b.png"), DecodeOptions{})
	c.Assert(string(EncodeLegacy(cands, nil, election.ExtraMetadata)), qt.Equals,
		"Alice%%Red%%a.png&&Bob%%%%b.png&&")

	c.Assert(EncodeLegacy(nil, nil, election.ExtraNone), qt.HasLen, 0)
	c.Assert(string(EncodeLegacy(nil, []byte("Empty"), election.ExtraNone)), qt.Equals, "***Empty")
}

func TestLegacyRoundTrip(t *testing.T) {
	tests := []struct {
		name                  string
		names, parties, extra string
		policy                election.IdentifierPolicy
		displayName           string
	}{
		{name: "two fields", names: "Alice,Bob", parties: "Red,Blue"},
		{name: "metadata", names: "Alice,Bob,Carol", parties: "Red,Blue,Green", extra: "a.png,b.png,c.png"},
		{name: "identifiers", names: "Alice,Bob", parties: "Red,Blue", extra: "id-a,id-b",
			policy: election.Supplied},
		{name: "missing identifier", names: "Alice,Bob", parties: "Red,Blue", extra: "id-a,",
			policy: election.Supplied},
		// the blake2b hash of "nkea" holds a separator pair
		{name: "missing identifier with separator in hash", names: "Alice,nkea", parties: "Red,Blue",
			extra: "id-a,", policy: election.Supplied},
		{name: "display name", names: "Donald Trump", parties: "Republican", displayName: "2024 General"},
		{name: "single", names: "Alice", parties: "Red"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var extra []byte
			if test.extra != "" {
				extra = []byte(test.extra)
			}
			cands := Decode([]byte(test.names), []byte(test.parties), extra, DecodeOptions{Policy: test.policy})
			kind := ExtraFor(extra, test.policy)
			buf := EncodeLegacy(cands, []byte(test.displayName), kind)

			l, err := DecodeLegacy(buf)
			qt.Assert(t, err, qt.IsNil)
			qt.Assert(t, l.Entries, qt.HasLen, len(cands))
			qt.Assert(t, string(l.DisplayName), qt.Equals, test.displayName)
			qt.Assert(t, l.HasExtra, qt.Equals, kind != election.ExtraNone)

			names, parties, gotExtra := l.Fields()
			qt.Assert(t, string(names), qt.Equals, test.names)
			qt.Assert(t, string(parties), qt.Equals, test.parties)
			qt.Assert(t, string(gotExtra), qt.Equals, test.extra)
		})
	}
}

func TestDecodeLegacyMalformed(t *testing.T) {
	for _, buf := range []string{
		"Alice%%Red",                 // no record separator
		"Alice&&",                    // one field
		"Alice%%Red%%x%%y&&",         // four fields
		"Alice%%Red&&Bob%%Blue%%x&&", // mixed field counts
	} {
		_, err := DecodeLegacy([]byte(buf))
		qt.Assert(t, err, qt.ErrorIs, ErrMalformed, qt.Commentf("buffer %q", buf))
	}

	l, err := DecodeLegacy(nil)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, l.Entries, qt.HasLen, 0)
}

func TestMarshalRoundTrip(t *testing.T) {
	r := &election.Record{
		// separator bytes are only a problem for the legacy format
		DisplayName: []byte("A***B"),
		Deadline:    9498283920,
		Extra:       election.ExtraMetadata,
		Candidates: []*election.Candidate{
			{ID: []byte{0xaa}, Name: []byte("Al%%ice"), Party: []byte("Re&&d"), Metadata: []byte("x,y"), Votes: 7},
			{ID: []byte{0xbb}, Name: []byte("Bob"), Votes: 1 << 40, DerivedID: true},
			{ID: []byte{0xcc}},
		},
	}
	buf := Marshal(r)
	got, err := Unmarshal(buf)
	qt.Assert(t, err, qt.IsNil)
	if diff := cmp.Diff(r, got); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}

	empty, err := Unmarshal(Marshal(&election.Record{}))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, empty.Candidates, qt.HasLen, 0)
}

func TestUnmarshalMalformed(t *testing.T) {
	buf := Marshal(&election.Record{
		Candidates: []*election.Candidate{{ID: []byte{1}, Name: []byte("Alice")}},
	})
	for i := 0; i < len(buf); i++ {
		_, err := Unmarshal(buf[:i])
		qt.Assert(t, err, qt.ErrorIs, ErrMalformed, qt.Commentf("truncated at %d", i))
	}
	_, err := Unmarshal(append(buf, 0))
	qt.Assert(t, err, qt.ErrorMatches, `.*1 trailing bytes`)

	flagged := append([]byte{}, buf...)
	flagged[len(flagged)-1] = 0x80
	_, err = Unmarshal(flagged)
	qt.Assert(t, err, qt.ErrorMatches, `.*unknown flags 0x80`)

	// a huge candidate count must not allocate
	huge := Marshal(&election.Record{})
	huge[len(huge)-4], huge[len(huge)-3], huge[len(huge)-2], huge[len(huge)-1] = 0xff, 0xff, 0xff, 0xff
	_, err = Unmarshal(huge)
	qt.Assert(t, err, qt.ErrorIs, ErrMalformed)
}

func TestTallies(t *testing.T) {
	cands := []*election.Candidate{{Votes: 1}, {Votes: 0}, {Votes: 258}}
	buf := EncodeTallies(cands)
	qt.Assert(t, buf, qt.DeepEquals, []byte{
		1, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0,
		2, 1, 0, 0, 0, 0, 0, 0,
	})
	tallies, err := DecodeTallies(buf)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, tallies, qt.DeepEquals, []uint64{1, 0, 258})

	qt.Assert(t, EncodeTallies(nil), qt.HasLen, 0)
	_, err = DecodeTallies([]byte{1, 2, 3})
	qt.Assert(t, err, qt.ErrorIs, ErrMalformed)
}
