// Package store keeps election records in a key-value database.
//
// Each record is stored BARE-encoded under its election id, and each spent
// voter token under its own key next to it, so checking a token never needs
// to decode the whole registry. A record and its tokens are always written in
// the same transaction.
package store

import (
	"errors"
	"fmt"
	"sync"

	"go.vocdoni.io/ledger/db"
	"go.vocdoni.io/ledger/db/lru"
	"go.vocdoni.io/ledger/db/prefixeddb"
	"go.vocdoni.io/ledger/election"
	"go.vocdoni.io/ledger/log"
	"go.vocdoni.io/ledger/roster"
	"golang.org/x/crypto/blake2b"
)

// DefaultCacheSize is the number of decoded records kept in memory.
const DefaultCacheSize = 1024

var (
	// ErrElectionNotFound is returned when no record exists for an id.
	ErrElectionNotFound = fmt.Errorf("election not found")
	// ErrTokenSpent is returned when spending a token that already voted.
	ErrTokenSpent = fmt.Errorf("token already spent")
	// ErrEmptyToken is returned when spending an empty token.
	ErrEmptyToken = fmt.Errorf("empty token")
)

var (
	recordPrefix = []byte("e/")
	tokenPrefix  = []byte("t/")
)

// Options configure a Store.
type Options struct {
	// Decode is used to build the candidates of new elections.
	Decode roster.DecodeOptions
	// CacheSize is the number of decoded records kept in memory. Zero means
	// DefaultCacheSize.
	CacheSize int
}

// Store maps election ids to election records. It is safe for concurrent use:
// all read-modify-write operations on one election are serialized, while
// different elections proceed in parallel.
type Store struct {
	db    db.Database
	opts  Options
	cache *lru.Cache

	locks sync.Map // string(id) -> *sync.Mutex
}

// New returns a Store on top of database. The store does not own database,
// closing it is up to the caller.
func New(database db.Database, opts Options) *Store {
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	RegisterMetrics()
	return &Store{
		db:    database,
		opts:  opts,
		cache: lru.New(size),
	}
}

func (s *Store) lock(id election.ID) func() {
	mu, _ := s.locks.LoadOrStore(string(id), new(sync.Mutex))
	mu.(*sync.Mutex).Lock()
	return mu.(*sync.Mutex).Unlock
}

// tokenBase returns the key prefix of the spent tokens of id. The id is
// hashed so that variable-length ids cannot collide with token bytes.
func tokenBase(id election.ID) []byte {
	h := blake2b.Sum256(id)
	return h[:]
}

func tokenKey(id election.ID, token election.Token) []byte {
	base := tokenBase(id)
	return append(base, token...)
}

// Create builds a new election from its comma-separated input fields and
// stores it at id. An existing record at id is replaced, together with its
// spent tokens.
func (s *Store) Create(id election.ID, names, parties, extra []byte, deadline uint64, displayName []byte) (*election.Record, error) {
	rec := &election.Record{
		DisplayName: append([]byte(nil), displayName...),
		Deadline:    deadline,
		Extra:       roster.ExtraFor(extra, s.opts.Decode.Policy),
		Candidates:  roster.Decode(names, parties, extra, s.opts.Decode),
	}
	if len(rec.DisplayName) == 0 {
		rec.DisplayName = nil
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if err := s.Put(id, rec); err != nil {
		return nil, err
	}
	log.Infow("election created",
		"election", id.String(),
		"candidates", len(rec.Candidates),
		"deadline", rec.Deadline,
		"displayName", string(rec.DisplayName),
	)
	electionsCreated.Inc()
	return rec.Clone(), nil
}

// Put stores rec at id, replacing any existing record and clearing the spent
// tokens of the previous one. rec.Spent is reset to zero.
func (s *Store) Put(id election.ID, rec *election.Record) error {
	if len(id) == 0 {
		return fmt.Errorf("empty election id")
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	unlock := s.lock(id)
	defer unlock()

	rec = rec.Clone()
	rec.Spent = 0
	tx := s.db.WriteTx()
	defer tx.Discard()

	tokens := prefixeddb.NewPrefixedWriteTx(tx, tokenPrefix)
	var stale [][]byte
	if err := tokens.Iterate(tokenBase(id), func(token, _ []byte) bool {
		stale = append(stale, append([]byte(nil), token...))
		return true
	}); err != nil {
		return err
	}
	for _, token := range stale {
		if err := tokens.Delete(tokenKey(id, token)); err != nil {
			return err
		}
	}
	if len(stale) > 0 {
		log.Warnw("election overwritten", "election", id.String(), "droppedTokens", len(stale))
	}
	if err := writeRecord(tx, id, rec); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cannot commit election %x: %w", id, err)
	}
	s.cache.Add(string(id), rec)
	return nil
}

func writeRecord(tx db.WriteTx, id election.ID, rec *election.Record) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return prefixeddb.NewPrefixedWriteTx(tx, recordPrefix).Set(id, data)
}

// load returns the cached record of id, reading it from the db on a miss.
// The caller must hold the lock of id, and must not modify the result.
func (s *Store) load(r db.Reader, id election.ID) (*election.Record, error) {
	if rec, ok := s.cache.Get(string(id)).(*election.Record); ok {
		return rec, nil
	}
	data, err := r.Get(append(append([]byte(nil), recordPrefix...), id...))
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, ErrElectionNotFound
	}
	if err != nil {
		return nil, err
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("cannot decode election %x: %w", id, err)
	}
	s.cache.Add(string(id), rec)
	return rec, nil
}

// view returns the record of id without copying it; callers must not keep or
// modify it.
func (s *Store) view(id election.ID) (*election.Record, error) {
	if rec, ok := s.cache.Get(string(id)).(*election.Record); ok {
		return rec, nil
	}
	unlock := s.lock(id)
	defer unlock()
	return s.load(s.db, id)
}

// Record returns a copy of the record stored at id, or ErrElectionNotFound.
func (s *Store) Record(id election.ID) (*election.Record, error) {
	rec, err := s.view(id)
	if err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

// Roster returns the candidates of id in the legacy separator format,
// followed by the display name trailer if the election has one.
func (s *Store) Roster(id election.ID) ([]byte, error) {
	rec, err := s.view(id)
	if err != nil {
		return nil, err
	}
	return roster.EncodeRecord(rec), nil
}

// Deadline returns the countdown value of id.
func (s *Store) Deadline(id election.ID) (uint64, error) {
	rec, err := s.view(id)
	if err != nil {
		return 0, err
	}
	return rec.Deadline, nil
}

// Tallies returns the tally of each candidate of id, in roster order, as
// 8-byte little-endian integers.
func (s *Store) Tallies(id election.ID) ([]byte, error) {
	rec, err := s.view(id)
	if err != nil {
		return nil, err
	}
	return roster.EncodeTallies(rec.Candidates), nil
}

// TokenSpent reports whether token already voted on id. It returns
// ErrElectionNotFound, not false, when the election does not exist.
func (s *Store) TokenSpent(id election.ID, token election.Token) (bool, error) {
	if _, err := s.view(id); err != nil {
		return false, err
	}
	return tokenSpent(s.db, id, token)
}

func tokenSpent(r db.Reader, id election.ID, token election.Token) (bool, error) {
	if len(token) == 0 {
		return false, nil
	}
	_, err := r.Get(append(append([]byte(nil), tokenPrefix...), tokenKey(id, token)...))
	if errors.Is(err, db.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SpentTokens returns every token spent on id, ordered by bytes.
func (s *Store) SpentTokens(id election.ID) ([]election.Token, error) {
	if _, err := s.view(id); err != nil {
		return nil, err
	}
	var tokens []election.Token
	err := prefixeddb.NewPrefixedDatabase(s.db, tokenPrefix).Iterate(tokenBase(id), func(token, _ []byte) bool {
		tokens = append(tokens, append(election.Token(nil), token...))
		return true
	})
	return tokens, err
}

// Elections returns the ids of all the stored elections, ordered by bytes.
func (s *Store) Elections() ([]election.ID, error) {
	var ids []election.ID
	err := prefixeddb.NewPrefixedDatabase(s.db, recordPrefix).Iterate(nil, func(id, _ []byte) bool {
		ids = append(ids, append(election.ID(nil), id...))
		return true
	})
	return ids, err
}
