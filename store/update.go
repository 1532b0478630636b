package store

import (
	"errors"
	"fmt"

	"go.vocdoni.io/ledger/db"
	"go.vocdoni.io/ledger/db/prefixeddb"
	"go.vocdoni.io/ledger/election"
	"go.vocdoni.io/ledger/log"
)

// UpdateFunc modifies rec in place. Tokens spent through reg are written in
// the same transaction as rec. Returning an error discards every change.
type UpdateFunc func(rec *election.Record, reg election.Registry) error

// Update runs fn on the record stored at id and persists the result. It
// returns ErrElectionNotFound, without calling fn, if there is no record at
// id. Updates on the same id are serialized.
//
// fn must not change the roster: candidate identifiers are validated again
// before writing.
func (s *Store) Update(id election.ID, fn UpdateFunc) error {
	_, err := s.update(id, false, fn)
	return err
}

// Upsert is like Update, but an empty record is materialized at id when
// there is none, so fn always runs. The empty record is persisted even if it
// ends up with no candidates. created reports whether that happened.
func (s *Store) Upsert(id election.ID, fn UpdateFunc) (created bool, err error) {
	return s.update(id, true, fn)
}

func (s *Store) update(id election.ID, materialize bool, fn UpdateFunc) (bool, error) {
	if len(id) == 0 {
		return false, fmt.Errorf("empty election id")
	}
	unlock := s.lock(id)
	defer unlock()

	tx := s.db.WriteTx()
	defer tx.Discard()

	created := false
	current, err := s.load(tx, id)
	switch {
	case errors.Is(err, ErrElectionNotFound) && materialize:
		current, created = &election.Record{}, true
	case err != nil:
		return false, err
	}
	rec := current.Clone()
	reg := &registry{
		tx:  prefixeddb.NewPrefixedWriteTx(tx, tokenPrefix),
		id:  id,
		rec: rec,
	}
	if err := fn(rec, reg); err != nil {
		return false, err
	}
	if err := rec.Validate(); err != nil {
		return false, err
	}
	if err := writeRecord(tx, id, rec); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("cannot commit election %x: %w", id, err)
	}
	s.cache.Add(string(id), rec)
	if created {
		log.Warnw("empty election materialized", "election", id.String())
	}
	return created, nil
}

// registry is the election.Registry of one update. It reads and writes the
// token keys through the update transaction, and keeps rec.Spent in sync.
type registry struct {
	tx  db.WriteTx
	id  election.ID
	rec *election.Record
}

func (r *registry) Spent(token election.Token) (bool, error) {
	if len(token) == 0 {
		return false, nil
	}
	_, err := r.tx.Get(tokenKey(r.id, token))
	if errors.Is(err, db.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *registry) Spend(token election.Token) error {
	if len(token) == 0 {
		return ErrEmptyToken
	}
	spent, err := r.Spent(token)
	if err != nil {
		return err
	}
	if spent {
		return ErrTokenSpent
	}
	if err := r.tx.Set(tokenKey(r.id, token), []byte{}); err != nil {
		return err
	}
	r.rec.Spent++
	return nil
}
