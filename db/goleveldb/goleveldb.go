package goleveldb

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.vocdoni.io/ledger/db"
)

type LevelDB struct {
	db *leveldb.DB
}

// Ensure that LevelDB implements the db.Database interface
var _ db.Database = (*LevelDB)(nil)

// New returns a LevelDB which implements the db.Database interface
func New(opts db.Options) (*LevelDB, error) {
	var ldb *leveldb.DB
	var err error
	if opts.InMemory {
		ldb, err = leveldb.Open(storage.NewMemStorage(), &opt.Options{})
	} else {
		ldb, err = leveldb.OpenFile(opts.Path, &opt.Options{})
	}
	if err != nil {
		return nil, fmt.Errorf("could not open leveldb: %w", err)
	}
	return &LevelDB{
		db: ldb,
	}, nil
}

func (d *LevelDB) Close() error {
	return d.db.Close()
}

func (d *LevelDB) WriteTx() db.WriteTx {
	return &WriteTx{
		db:      d.db,
		batch:   new(leveldb.Batch),
		pending: make(map[string][]byte),
	}
}

func (d *LevelDB) Get(key []byte) ([]byte, error) {
	val, err := d.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (d *LevelDB) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	iter := d.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		if !callback(iter.Key()[len(prefix):], iter.Value()) {
			break
		}
	}
	return iter.Error()
}

// Compact implements the db.Database.Compact interface method.
func (d *LevelDB) Compact() error {
	return d.db.CompactRange(util.Range{})
}

// WriteTx implements the interface db.WriteTx for goleveldb. Pending writes
// are kept in memory so that reads through the tx observe them; a nil value
// in pending marks a deletion.
type WriteTx struct {
	mu      sync.RWMutex
	batch   *leveldb.Batch
	db      *leveldb.DB
	pending map[string][]byte
}

// check that WriteTx implements the db.WriteTx interface
var _ db.WriteTx = (*WriteTx)(nil)

func (tx *WriteTx) Get(k []byte) ([]byte, error) {
	tx.mu.RLock()
	val, ok := tx.pending[string(k)]
	tx.mu.RUnlock()
	if !ok {
		val, err := tx.db.Get(k, nil)
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, db.ErrKeyNotFound
		}
		return val, err
	}
	if val == nil {
		return nil, db.ErrKeyNotFound
	}
	return val, nil
}

func (tx *WriteTx) Iterate(prefix []byte, callback func(k, v []byte) bool) error {
	merged := make(map[string][]byte)
	iter := tx.db.NewIterator(util.BytesPrefix(prefix), nil)
	for iter.Next() {
		merged[string(iter.Key())] = append([]byte(nil), iter.Value()...)
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return err
	}

	tx.mu.RLock()
	for k, v := range tx.pending {
		if len(k) < len(prefix) || k[:len(prefix)] != string(prefix) {
			continue
		}
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	tx.mu.RUnlock()

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !callback([]byte(k)[len(prefix):], merged[k]) {
			break
		}
	}
	return nil
}

func (tx *WriteTx) Set(k, v []byte) error {
	if v == nil {
		v = []byte{}
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.batch.Put(k, v)
	tx.pending[string(k)] = append([]byte(nil), v...)
	return nil
}

func (tx *WriteTx) Delete(k []byte) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.batch.Delete(k)
	tx.pending[string(k)] = nil
	return nil
}

func (tx *WriteTx) Commit() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.batch == nil {
		return fmt.Errorf("cannot commit leveldb tx: already committed or discarded")
	}
	err := tx.db.Write(tx.batch, nil)
	tx.batch = nil
	tx.pending = nil
	return err
}

func (tx *WriteTx) Discard() {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.batch == nil {
		return
	}
	tx.batch.Reset()
	tx.batch = nil
	tx.pending = nil
}
