package ballot

import (
	"fmt"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.vocdoni.io/ledger/db/metadb"
	"go.vocdoni.io/ledger/election"
	"go.vocdoni.io/ledger/roster"
	"go.vocdoni.io/ledger/store"
)

var e1 = election.ID("E1")

func nameID(name string) []byte {
	return election.Blake2b256{}.Hash([]byte(name))
}

// newScenarioA returns an engine with election E1: Alice/Red and Bob/Blue,
// deadline 1000.
func newScenarioA(t *testing.T, opts Options) *Engine {
	st := store.New(metadb.NewTest(t), store.Options{})
	_, err := st.Create(e1, []byte("Alice,Bob"), []byte("Red,Blue"), nil, 1000, nil)
	qt.Assert(t, err, qt.IsNil)
	return New(st, opts)
}

func tallies(t *testing.T, e *Engine, id election.ID) []uint64 {
	buf, err := e.Store().Tallies(id)
	qt.Assert(t, err, qt.IsNil)
	tallies, err := roster.DecodeTallies(buf)
	qt.Assert(t, err, qt.IsNil)
	return tallies
}

func counter(outcome string) float64 {
	return testutil.ToFloat64(votes.WithLabelValues(outcome))
}

func TestScenarioA(t *testing.T) {
	c := qt.New(t)
	e := newScenarioA(t, Options{})

	deadline, err := e.Store().Deadline(e1)
	c.Assert(err, qt.IsNil)
	c.Assert(deadline, qt.Equals, uint64(1000))

	buf, err := e.Store().Roster(e1)
	c.Assert(err, qt.IsNil)
	l, err := roster.DecodeLegacy(buf)
	c.Assert(err, qt.IsNil)
	c.Assert(l.Entries, qt.DeepEquals, []roster.Entry{
		{Name: []byte("Alice"), Party: []byte("Red")},
		{Name: []byte("Bob"), Party: []byte("Blue")},
	})
}

func TestScenarioB(t *testing.T) {
	c := qt.New(t)
	e := newScenarioA(t, Options{})
	accepted, duplicate := counter(outcomeAccepted), counter(outcomeDuplicate)

	receipt, err := e.CastVote(e1, nameID("Alice"), election.Token("V1"))
	c.Assert(err, qt.IsNil)
	c.Assert(receipt.Burned, qt.IsFalse)
	c.Assert(receipt.Tally, qt.Equals, uint64(1))
	c.Assert(tallies(t, e, e1), qt.DeepEquals, []uint64{1, 0})

	for _, name := range []string{"Alice", "Bob", "Nobody"} {
		receipt, err = e.CastVote(e1, nameID(name), election.Token("V1"))
		c.Assert(err, qt.ErrorIs, ErrDuplicateToken)
		c.Assert(receipt, qt.IsNil)
	}
	c.Assert(tallies(t, e, e1), qt.DeepEquals, []uint64{1, 0})

	c.Assert(counter(outcomeAccepted)-accepted, qt.Equals, float64(1))
	c.Assert(counter(outcomeDuplicate)-duplicate, qt.Equals, float64(3))
}

func TestScenarioC(t *testing.T) {
	c := qt.New(t)
	e := New(store.New(metadb.NewTest(t), store.Options{}), Options{})
	missing := counter(outcomeMissing)

	// without materialization an unknown election is an error with no effect
	receipt, err := e.CastVote(e1, nameID("Alice"), election.Token("V1"))
	c.Assert(err, qt.ErrorIs, ErrElectionNotFound)
	c.Assert(receipt, qt.IsNil)
	_, err = e.Store().Roster(e1)
	c.Assert(err, qt.ErrorIs, store.ErrElectionNotFound)
	c.Assert(counter(outcomeMissing)-missing, qt.Equals, float64(1))

	// with it, an empty record appears at the id and the token is burned
	e = New(e.Store(), Options{MaterializeMissing: true})
	receipt, err = e.CastVote(e1, nameID("Alice"), election.Token("V1"))
	c.Assert(err, qt.ErrorIs, ErrCandidateNotFound)
	c.Assert(receipt.Burned, qt.IsTrue)
	c.Assert(counter(outcomeMissing)-missing, qt.Equals, float64(2))

	buf, err := e.Store().Roster(e1)
	c.Assert(err, qt.IsNil)
	c.Assert(buf, qt.HasLen, 0)
	deadline, err := e.Store().Deadline(e1)
	c.Assert(err, qt.IsNil)
	c.Assert(deadline, qt.Equals, uint64(0))
	spent, err := e.TokenIsSpent(e1, election.Token("V1"))
	c.Assert(err, qt.IsNil)
	c.Assert(spent, qt.IsTrue)

	// the materialized record is now an existing election
	_, err = e.CastVote(e1, nameID("Alice"), election.Token("V2"))
	c.Assert(err, qt.ErrorIs, ErrCandidateNotFound)
	c.Assert(counter(outcomeMissing)-missing, qt.Equals, float64(2))
}

func TestBurnOnMismatch(t *testing.T) {
	c := qt.New(t)
	e := newScenarioA(t, Options{})
	burned := counter(outcomeBurned)

	receipt, err := e.CastVote(e1, []byte("no such candidate"), election.Token("V1"))
	c.Assert(err, qt.ErrorIs, ErrCandidateNotFound)
	c.Assert(receipt.Burned, qt.IsTrue)
	c.Assert(receipt.Tally, qt.Equals, uint64(0))
	c.Assert(counter(outcomeBurned)-burned, qt.Equals, float64(1))

	// the burned token cannot be used again, even for a valid candidate
	_, err = e.CastVote(e1, nameID("Alice"), election.Token("V1"))
	c.Assert(err, qt.ErrorIs, ErrDuplicateToken)
	c.Assert(tallies(t, e, e1), qt.DeepEquals, []uint64{0, 0})

	rec, err := e.Store().Record(e1)
	c.Assert(err, qt.IsNil)
	c.Assert(rec.Spent, qt.Equals, uint64(1))
}

func TestEmptyToken(t *testing.T) {
	c := qt.New(t)
	e := newScenarioA(t, Options{})

	_, err := e.CastVote(e1, nameID("Alice"), nil)
	c.Assert(err, qt.ErrorIs, ErrEmptyToken)
	c.Assert(tallies(t, e, e1), qt.DeepEquals, []uint64{0, 0})
}

func TestTokenIsSpent(t *testing.T) {
	c := qt.New(t)
	e := newScenarioA(t, Options{})

	spent, err := e.TokenIsSpent(e1, election.Token("V1"))
	c.Assert(err, qt.IsNil)
	c.Assert(spent, qt.IsFalse)

	_, err = e.CastVote(e1, nameID("Bob"), election.Token("V1"))
	c.Assert(err, qt.IsNil)
	spent, err = e.TokenIsSpent(e1, election.Token("V1"))
	c.Assert(err, qt.IsNil)
	c.Assert(spent, qt.IsTrue)

	// tokens are scoped to one election
	_, err = e.Store().Create(election.ID("E2"), []byte("Alice"), nil, nil, 0, nil)
	c.Assert(err, qt.IsNil)
	spent, err = e.TokenIsSpent(election.ID("E2"), election.Token("V1"))
	c.Assert(err, qt.IsNil)
	c.Assert(spent, qt.IsFalse)

	_, err = e.TokenIsSpent(election.ID("E3"), election.Token("V1"))
	c.Assert(err, qt.ErrorIs, ErrElectionNotFound)
}

func TestFirstMatchWins(t *testing.T) {
	c := qt.New(t)
	st := store.New(metadb.NewTest(t), store.Options{})
	e := New(st, Options{})

	rec := &election.Record{Candidates: []*election.Candidate{
		{ID: []byte("a"), Name: []byte("Alice")},
		{ID: []byte("b"), Name: []byte("Bob")},
	}}
	c.Assert(st.Put(e1, rec), qt.IsNil)
	_, err := e.CastVote(e1, []byte("b"), election.Token("V1"))
	c.Assert(err, qt.IsNil)
	c.Assert(tallies(t, e, e1), qt.DeepEquals, []uint64{0, 1})
}

// TestAccounting casts a mixed sequence of ballots and checks the ledger
// properties after every one of them.
func TestAccounting(t *testing.T) {
	c := qt.New(t)
	e := newScenarioA(t, Options{})

	ballots := []struct {
		candidate string
		token     string
	}{
		{"Alice", "V1"},
		{"Bob", "V2"},
		{"Alice", "V1"},  // duplicate
		{"Nobody", "V3"}, // burned
		{"Bob", "V3"},    // duplicate of a burned token
		{"Bob", "V4"},
		{"Alice", "V2"}, // duplicate
		{"Alice", "V5"},
	}
	seen := make(map[string]bool)
	var accepted uint64
	for _, b := range ballots {
		before := tallies(t, e, e1)
		_, err := e.CastVote(e1, nameID(b.candidate), election.Token(b.token))
		after := tallies(t, e, e1)

		if seen[b.token] {
			c.Assert(err, qt.ErrorIs, ErrDuplicateToken)
			c.Assert(after, qt.DeepEquals, before)
		} else if err == nil {
			accepted++
		}
		seen[b.token] = true

		spent, err := e.TokenIsSpent(e1, election.Token(b.token))
		c.Assert(err, qt.IsNil)
		c.Assert(spent, qt.IsTrue)
	}

	rec, err := e.Store().Record(e1)
	c.Assert(err, qt.IsNil)
	c.Assert(accepted, qt.Equals, uint64(4))
	c.Assert(rec.TotalVotes(), qt.Equals, accepted)
	c.Assert(rec.Tallies(), qt.DeepEquals, []uint64{2, 2})
	c.Assert(rec.Spent, qt.Equals, uint64(len(seen)))
}

func TestInitialVotes(t *testing.T) {
	c := qt.New(t)
	st := store.New(metadb.NewTest(t), store.Options{
		Decode: roster.DecodeOptions{InitialVotes: 10},
	})
	_, err := st.Create(e1, []byte("Alice,Bob"), nil, nil, 0, nil)
	c.Assert(err, qt.IsNil)
	e := New(st, Options{})

	_, err = e.CastVote(e1, nameID("Bob"), election.Token("V1"))
	c.Assert(err, qt.IsNil)
	rec, err := st.Record(e1)
	c.Assert(err, qt.IsNil)
	c.Assert(rec.TotalVotes(), qt.Equals, uint64(21))
}

func TestConcurrentVotes(t *testing.T) {
	c := qt.New(t)
	e := newScenarioA(t, Options{})
	other := election.ID("E2")
	_, err := e.Store().Create(other, []byte("Alice,Bob"), nil, nil, 0, nil)
	c.Assert(err, qt.IsNil)

	const voters = 25
	var wg sync.WaitGroup
	for _, id := range []election.ID{e1, other} {
		for i := 0; i < voters; i++ {
			// three attempts per token, a single one may count
			for j := 0; j < 3; j++ {
				wg.Add(1)
				go func(id election.ID, token string, name string) {
					defer wg.Done()
					_, err := e.CastVote(id, nameID(name), election.Token(token))
					if err != nil {
						qt.Check(t, err, qt.ErrorIs, ErrDuplicateToken)
					}
				}(id, fmt.Sprintf("V%d", i), []string{"Alice", "Bob"}[j%2])
			}
		}
	}
	wg.Wait()

	for _, id := range []election.ID{e1, other} {
		rec, err := e.Store().Record(id)
		c.Assert(err, qt.IsNil)
		c.Assert(rec.TotalVotes(), qt.Equals, uint64(voters))
		c.Assert(rec.Spent, qt.Equals, uint64(voters))
	}
}
