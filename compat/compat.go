// Package compat exposes the ledger with the call surface of the original
// election contract: absent elections read as zero values, and voting never
// reports an error.
package compat

import (
	"errors"

	"go.vocdoni.io/ledger/ballot"
	"go.vocdoni.io/ledger/election"
	"go.vocdoni.io/ledger/log"
	"go.vocdoni.io/ledger/store"
)

// Ledger maps the explicit errors of the store and the engine back to the
// silent defaults of the legacy calls. Errors that are not one of the
// expected kinds are logged.
type Ledger struct {
	store  *store.Store
	engine *ballot.Engine
}

// New returns a Ledger on top of st. Voting on an unknown election
// materializes an empty record at its id, as the legacy calls did.
func New(st *store.Store) *Ledger {
	return &Ledger{
		store:  st,
		engine: ballot.New(st, ballot.Options{MaterializeMissing: true}),
	}
}

// Commence creates the election id, replacing any previous record and its
// spent tokens. A roster the store rejects, such as one where two names hash
// to the same identifier, is only logged: nothing is written and a previous
// record at id stays as it was.
func (l *Ledger) Commence(id election.ID, names, parties, extra []byte, deadline uint64, displayName []byte) {
	if _, err := l.store.Create(id, names, parties, extra, deadline, displayName); err != nil {
		log.Errorw(err, "cannot create election", "election", id.String())
	}
}

// FetchCandidates returns the legacy roster buffer of id, empty if absent.
func (l *Ledger) FetchCandidates(id election.ID) []byte {
	buf, err := l.store.Roster(id)
	if err != nil {
		logUnexpected(err, "cannot fetch candidates", id)
		return []byte{}
	}
	return buf
}

// FetchTime returns the deadline of id, zero if absent.
func (l *Ledger) FetchTime(id election.ID) uint64 {
	deadline, err := l.store.Deadline(id)
	if err != nil {
		logUnexpected(err, "cannot fetch deadline", id)
		return 0
	}
	return deadline
}

// FetchTallies returns the tallies of id, empty if absent.
func (l *Ledger) FetchTallies(id election.ID) []byte {
	buf, err := l.store.Tallies(id)
	if err != nil {
		logUnexpected(err, "cannot fetch tallies", id)
		return []byte{}
	}
	return buf
}

// HasVoted reports whether token already voted on id, false if absent.
func (l *Ledger) HasVoted(id election.ID, token election.Token) bool {
	spent, err := l.engine.TokenIsSpent(id, token)
	if err != nil {
		logUnexpected(err, "cannot check token", id)
		return false
	}
	return spent
}

// Vote casts a ballot for candidateID. Duplicate tokens are ignored, and a
// token voting for an unknown candidate is spent without counting. An empty
// token is dropped without touching the election: nothing is counted and
// nothing is spent.
func (l *Ledger) Vote(id election.ID, candidateID []byte, token election.Token) {
	_, err := l.engine.CastVote(id, candidateID, token)
	switch {
	case err == nil,
		errors.Is(err, ballot.ErrDuplicateToken),
		errors.Is(err, ballot.ErrCandidateNotFound),
		errors.Is(err, ballot.ErrEmptyToken):
	default:
		log.Errorw(err, "cannot cast vote", "election", id.String())
	}
}

func logUnexpected(err error, msg string, id election.ID) {
	if errors.Is(err, store.ErrElectionNotFound) {
		return
	}
	log.Errorw(err, msg, "election", id.String())
}
