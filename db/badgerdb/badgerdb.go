package badgerdb

import (
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v3"
	"go.vocdoni.io/ledger/db"
)

// MemTableSize defines the BadgerDB maximum size in bytes for memtable table.
// The default is 64<<20 (64MB), this does not pre-allocate enough memory for
// big Txs, that's why we use 128<<20.
const MemTableSize = 128 << 20

// WriteTx implements the interface db.WriteTx
type WriteTx struct {
	tx *badger.Txn
}

// check that WriteTx implements the db.WriteTx interface
var _ db.WriteTx = (*WriteTx)(nil)

func get(tx *badger.Txn, k []byte) ([]byte, error) {
	item, err := tx.Get(k)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func iterate(tx *badger.Txn, prefix []byte, callback func(k, v []byte) bool) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := tx.NewIterator(opts)
	defer it.Close()
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		v, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if !callback(item.Key()[len(prefix):], v) {
			break
		}
	}
	return nil
}

// Get implements the db.WriteTx.Get interface method
func (tx *WriteTx) Get(k []byte) ([]byte, error) {
	if tx.tx == nil {
		return nil, fmt.Errorf("badger tx already committed or discarded")
	}
	return get(tx.tx, k)
}

// Iterate implements the db.WriteTx.Iterate interface method
func (tx *WriteTx) Iterate(prefix []byte, callback func(k, v []byte) bool) error {
	if tx.tx == nil {
		return fmt.Errorf("badger tx already committed or discarded")
	}
	return iterate(tx.tx, prefix, callback)
}

// Set implements the db.WriteTx.Set interface method
func (tx *WriteTx) Set(k, v []byte) error {
	if err := tx.tx.Set(k, v); errors.Is(err, badger.ErrTxnTooBig) {
		return db.ErrTxnTooBig
	} else {
		return err
	}
}

// Delete implements the db.WriteTx.Delete interface method
func (tx *WriteTx) Delete(k []byte) error {
	if err := tx.tx.Delete(k); errors.Is(err, badger.ErrTxnTooBig) {
		return db.ErrTxnTooBig
	} else {
		return err
	}
}

// Commit implements the db.WriteTx.Commit interface method
func (tx *WriteTx) Commit() error {
	if tx.tx == nil {
		return fmt.Errorf("cannot commit badger tx: already committed or discarded")
	}
	// badger's Txn.Commit will not call discard if the transaction
	// has zero pending writes, so always discard.
	defer func() {
		tx.tx.Discard()
		tx.tx = nil
	}()
	return tx.tx.Commit()
}

// Discard implements the db.WriteTx.Discard interface method
func (tx *WriteTx) Discard() {
	if tx.tx == nil {
		return
	}
	tx.tx.Discard()
	tx.tx = nil
}

// BadgerDB implements db.Database interface
type BadgerDB struct {
	db *badger.DB
}

// check that BadgerDB implements the db.Database interface
var _ db.Database = (*BadgerDB)(nil)

// New returns a BadgerDB using the given Options, which implements the
// db.Database interface
func New(opts db.Options) (*BadgerDB, error) {
	var badgerOpts badger.Options
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(opts.Path, os.ModePerm); err != nil {
			return nil, err
		}
		badgerOpts = badger.DefaultOptions(opts.Path)
	}
	badgerOpts = badgerOpts.
		WithLogger(nil).
		WithSyncWrites(false).
		WithCompression(0).
		WithBlockCacheSize(0).
		WithNumMemtables(1)
	badgerOpts.MemTableSize = MemTableSize

	bdb, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}
	return &BadgerDB{
		db: bdb,
	}, nil
}

// Get implements the db.Database.Get interface method
func (db *BadgerDB) Get(k []byte) ([]byte, error) {
	var v []byte
	err := db.db.View(func(txn *badger.Txn) error {
		var err error
		v, err = get(txn, k)
		return err
	})
	return v, err
}

// WriteTx returns a db.WriteTx
func (db *BadgerDB) WriteTx() db.WriteTx {
	return &WriteTx{tx: db.db.NewTransaction(true)}
}

// Close closes the BadgerDB
func (db *BadgerDB) Close() error {
	return db.db.Close()
}

// Iterate implements the db.Database.Iterate interface method
func (db *BadgerDB) Iterate(prefix []byte, callback func(k, v []byte) bool) error {
	return db.db.View(func(txn *badger.Txn) error {
		return iterate(txn, prefix, callback)
	})
}

// Compact implements the db.Database.Compact interface method
func (db *BadgerDB) Compact() error {
	if db.db.Opts().InMemory {
		return nil
	}
	err := db.db.Flatten(1)
	if err != nil {
		return err
	}
	// value log GC returns ErrNoRewrite when there is nothing to collect
	if err := db.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		return err
	}
	return nil
}
