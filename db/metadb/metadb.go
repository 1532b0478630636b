package metadb

import (
	"fmt"
	"os"
	"testing"

	"go.vocdoni.io/ledger/db"
	"go.vocdoni.io/ledger/db/badgerdb"
	"go.vocdoni.io/ledger/db/goleveldb"
	"go.vocdoni.io/ledger/db/pebbledb"
)

// New opens a database of the given type at dir.
func New(typ, dir string) (db.Database, error) {
	return open(typ, db.Options{Path: dir})
}

// NewInMemory opens a database of the given type which keeps all its data in
// memory.
func NewInMemory(typ string) (db.Database, error) {
	return open(typ, db.Options{InMemory: true})
}

func open(typ string, opts db.Options) (db.Database, error) {
	var database db.Database
	var err error
	switch typ {
	case db.TypePebble:
		database, err = pebbledb.New(opts)
	case db.TypeLevelDB:
		database, err = goleveldb.New(opts)
	case db.TypeBadger:
		database, err = badgerdb.New(opts)
	default:
		return nil, fmt.Errorf("invalid dbType: %q. Available types: %q %q %q",
			typ, db.TypePebble, db.TypeLevelDB, db.TypeBadger)
	}
	if err != nil {
		return nil, err
	}
	return database, nil
}

// ForTest returns the db type used by tests, LEDGER_DB_TYPE or pebble.
func ForTest() (typ string) {
	if typ := os.Getenv("LEDGER_DB_TYPE"); typ != "" {
		return typ
	}
	return db.TypePebble
}

// NewTest returns an in-memory database that is closed when the test ends.
func NewTest(tb testing.TB) db.Database {
	database, err := NewInMemory(ForTest())
	if err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(func() { database.Close() })
	return database
}
