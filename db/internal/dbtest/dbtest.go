package dbtest

import (
	"strconv"
	"testing"

	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/ledger/db"
)

func TestWriteTx(t *testing.T, database db.Database) {
	wTx := database.WriteTx()

	_, err := wTx.Get([]byte("a"))
	qt.Assert(t, err, qt.ErrorIs, db.ErrKeyNotFound)

	err = wTx.Set([]byte("a"), []byte("b"))
	qt.Assert(t, err, qt.IsNil)

	// pending writes are visible through the tx, not the database
	v, err := wTx.Get([]byte("a"))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, v, qt.DeepEquals, []byte("b"))

	_, err = database.Get([]byte("a"))
	qt.Assert(t, err, qt.ErrorIs, db.ErrKeyNotFound)

	err = wTx.Commit()
	qt.Assert(t, err, qt.IsNil)

	// Discard should not give any problem
	wTx.Discard()

	v, err = database.Get([]byte("a"))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, v, qt.DeepEquals, []byte("b"))

	// get value from a new tx after the previous commit
	wTx = database.WriteTx()
	defer wTx.Discard()
	useReader(t, wTx)

	qt.Assert(t, wTx.Delete([]byte("a")), qt.IsNil)
	_, err = wTx.Get([]byte("a"))
	qt.Assert(t, err, qt.ErrorIs, db.ErrKeyNotFound)
	qt.Assert(t, wTx.Commit(), qt.IsNil)

	_, err = database.Get([]byte("a"))
	qt.Assert(t, err, qt.ErrorIs, db.ErrKeyNotFound)
}

// ensure that WriteTx can be passed into a function that accepts a Reader
func useReader(t *testing.T, r db.Reader) {
	v, err := r.Get([]byte("a"))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, v, qt.DeepEquals, []byte("b"))
}

func TestDiscard(t *testing.T, database db.Database) {
	wTx := database.WriteTx()
	qt.Assert(t, wTx.Set([]byte("discarded"), []byte("x")), qt.IsNil)
	wTx.Discard()
	// discarding twice is allowed
	wTx.Discard()

	_, err := database.Get([]byte("discarded"))
	qt.Assert(t, err, qt.ErrorIs, db.ErrKeyNotFound)
}

func TestIterate(t *testing.T, d db.Database) {
	prefix0 := []byte("a")
	prefix0NumKeys := 20
	prefix1 := []byte("b")
	prefix1NumKeys := 30

	wTx := d.WriteTx()
	for i := 0; i < prefix0NumKeys; i++ {
		qt.Assert(t, wTx.Set(append(prefix0, []byte(strconv.Itoa(i))...), []byte(strconv.Itoa(i))), qt.IsNil)
	}
	for i := 0; i < prefix1NumKeys; i++ {
		qt.Assert(t, wTx.Set(append(prefix1, []byte(strconv.Itoa(i))...), []byte(strconv.Itoa(i))), qt.IsNil)
	}

	// the tx sees its own pending keys
	pendingFound := 0
	err := wTx.Iterate(prefix0, func(k, v []byte) bool {
		pendingFound++
		return true
	})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, pendingFound, qt.Equals, prefix0NumKeys)

	err = wTx.Commit()
	qt.Assert(t, err, qt.IsNil)

	noPrefixKeysFound := 0
	err = d.Iterate(nil, func(k, v []byte) bool {
		noPrefixKeysFound++
		return true
	})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, noPrefixKeysFound, qt.Equals, prefix0NumKeys+prefix1NumKeys)

	prefix0KeysFound := 0
	err = d.Iterate(prefix0, func(k, v []byte) bool {
		// keys are passed without the prefix, and match their value
		qt.Assert(t, string(k), qt.Equals, string(v))
		prefix0KeysFound++
		return true
	})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, prefix0KeysFound, qt.Equals, prefix0NumKeys)

	prefix1KeysFound := 0
	err = d.Iterate(prefix1, func(k, v []byte) bool {
		prefix1KeysFound++
		return true
	})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, prefix1KeysFound, qt.Equals, prefix1NumKeys)

	// stop early
	stopped := 0
	err = d.Iterate(prefix1, func(k, v []byte) bool {
		stopped++
		return stopped < 5
	})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, stopped, qt.Equals, 5)
}
