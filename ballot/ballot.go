// Package ballot casts votes on the elections of a store, enforcing that each
// voter token is spent at most once per election.
package ballot

import (
	"errors"
	"fmt"

	"go.vocdoni.io/ledger/election"
	"go.vocdoni.io/ledger/log"
	"go.vocdoni.io/ledger/store"
)

var (
	// ErrElectionNotFound is returned when voting on an id with no record.
	ErrElectionNotFound = store.ErrElectionNotFound
	// ErrDuplicateToken is returned when the token already voted on the
	// election. Nothing changes.
	ErrDuplicateToken = store.ErrTokenSpent
	// ErrEmptyToken is returned when the token is empty.
	ErrEmptyToken = store.ErrEmptyToken
	// ErrCandidateNotFound is returned when no candidate of the election has
	// the voted identifier. The token is spent anyway.
	ErrCandidateNotFound = fmt.Errorf("candidate not found")
)

// Options configure an Engine.
type Options struct {
	// MaterializeMissing makes voting on an unknown election create an empty
	// record at its id and burn the token, instead of failing with
	// ErrElectionNotFound.
	MaterializeMissing bool
}

// Receipt describes a ballot that spent its token.
type Receipt struct {
	Election  election.ID    `json:"election"`
	Candidate election.ID    `json:"candidate"`
	Token     election.Token `json:"token"`
	// Burned is true when the token was spent without counting a vote.
	Burned bool `json:"burned"`
	// Tally is the new tally of the voted candidate. Zero if Burned.
	Tally uint64 `json:"tally"`
}

// Engine casts votes. It is safe for concurrent use; votes on the same
// election are serialized by the store.
type Engine struct {
	store *store.Store
	opts  Options
}

// New returns an Engine casting votes on the elections of st.
func New(st *store.Store, opts Options) *Engine {
	registerMetrics()
	return &Engine{store: st, opts: opts}
}

// Store returns the store the engine votes on.
func (e *Engine) Store() *store.Store {
	return e.store
}

// TokenIsSpent reports whether token already voted on the election.
// It returns ErrElectionNotFound if there is no such election.
func (e *Engine) TokenIsSpent(id election.ID, token election.Token) (bool, error) {
	return e.store.TokenSpent(id, token)
}

// CastVote spends token on the election and adds one vote to the first
// candidate whose identifier is candidateID.
//
// If the token already voted, ErrDuplicateToken is returned and nothing
// changes. If no candidate matches, the token is still spent, and both a
// receipt with Burned set and ErrCandidateNotFound are returned, so a token
// cannot be used to test identifiers for validity.
func (e *Engine) CastVote(id election.ID, candidateID []byte, token election.Token) (*Receipt, error) {
	if len(token) == 0 {
		votes.WithLabelValues(outcomeRejected).Inc()
		return nil, ErrEmptyToken
	}
	receipt := &Receipt{
		Election:  append(election.ID(nil), id...),
		Candidate: append(election.ID(nil), candidateID...),
		Token:     append(election.Token(nil), token...),
	}
	cast := func(rec *election.Record, reg election.Registry) error {
		if err := reg.Spend(token); err != nil {
			return err
		}
		c, ok := rec.Candidate(candidateID)
		if !ok {
			receipt.Burned = true
			return nil
		}
		c.Votes++
		receipt.Tally = c.Votes
		return nil
	}
	var (
		missing bool
		err     error
	)
	if e.opts.MaterializeMissing {
		missing, err = e.store.Upsert(id, cast)
	} else {
		err = e.store.Update(id, cast)
	}
	switch {
	case errors.Is(err, ErrElectionNotFound):
		votes.WithLabelValues(outcomeMissing).Inc()
		log.Debugw("vote on unknown election", "election", id.String())
		return nil, err
	case errors.Is(err, ErrDuplicateToken):
		votes.WithLabelValues(outcomeDuplicate).Inc()
		log.Warnw("duplicate vote rejected", "election", id.String(), "token", token.String())
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("cannot cast vote on election %x: %w", id, err)
	case receipt.Burned:
		if missing {
			votes.WithLabelValues(outcomeMissing).Inc()
		} else {
			votes.WithLabelValues(outcomeBurned).Inc()
		}
		log.Warnw("token burned on unknown candidate",
			"election", id.String(),
			"candidate", receipt.Candidate.String(),
		)
		return receipt, ErrCandidateNotFound
	}
	votes.WithLabelValues(outcomeAccepted).Inc()
	log.Debugw("vote accepted",
		"election", id.String(),
		"candidate", receipt.Candidate.String(),
		"tally", receipt.Tally,
	)
	return receipt, nil
}
