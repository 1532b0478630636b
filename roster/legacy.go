package roster

import (
	"bytes"
	"fmt"

	"go.vocdoni.io/ledger/election"
)

// Separators of the legacy output buffer. None of them is escaped, so a value
// containing one of these sequences cannot be told apart from the framing.
var (
	FieldSeparator  = []byte("%%")
	RecordSeparator = []byte("&&")
	NameSeparator   = []byte("***")
)

// ErrMalformed is returned when a buffer does not follow the expected format.
var ErrMalformed = fmt.Errorf("malformed roster buffer")

// Entry holds the textual fields of one candidate as carried by the legacy
// buffer. Tallies are not part of it.
type Entry struct {
	Name  []byte
	Party []byte
	// Extra is nil when the buffer carries only names and parties.
	Extra []byte
}

// Legacy is a parsed legacy buffer.
type Legacy struct {
	Entries     []Entry
	DisplayName []byte
	// HasExtra reports whether every entry carried a third field.
	HasExtra bool
}

// EncodeLegacy flattens candidates into the legacy format:
//
//	name %% party [%% third] && ... [*** displayName]
//
// The third field is written only when extra is not election.ExtraNone. The
// trailer is written only when displayName is not empty.
func EncodeLegacy(candidates []*election.Candidate, displayName []byte, extra election.ExtraField) []byte {
	var buf bytes.Buffer
	for _, c := range candidates {
		buf.Write(c.Name)
		buf.Write(FieldSeparator)
		buf.Write(c.Party)
		if extra != election.ExtraNone {
			buf.Write(FieldSeparator)
			buf.Write(c.Extra(extra))
		}
		buf.Write(RecordSeparator)
	}
	if len(displayName) > 0 {
		buf.Write(NameSeparator)
		buf.Write(displayName)
	}
	return buf.Bytes()
}

// EncodeRecord is EncodeLegacy applied to a whole record.
func EncodeRecord(r *election.Record) []byte {
	return EncodeLegacy(r.Candidates, r.DisplayName, r.Extra)
}

// DecodeLegacy parses a buffer produced by EncodeLegacy. Every entry must
// carry the same number of fields, two or three.
func DecodeLegacy(buf []byte) (*Legacy, error) {
	l := &Legacy{}
	body := buf
	if i := bytes.Index(buf, NameSeparator); i >= 0 {
		body = buf[:i]
		l.DisplayName = bytes.Clone(buf[i+len(NameSeparator):])
	}
	if len(body) == 0 {
		return l, nil
	}
	if !bytes.HasSuffix(body, RecordSeparator) {
		return nil, fmt.Errorf("%w: missing trailing record separator", ErrMalformed)
	}
	records := bytes.Split(body[:len(body)-len(RecordSeparator)], RecordSeparator)
	for i, rec := range records {
		fields := bytes.Split(rec, FieldSeparator)
		if len(fields) != 2 && len(fields) != 3 {
			return nil, fmt.Errorf("%w: entry %d has %d fields", ErrMalformed, i, len(fields))
		}
		hasExtra := len(fields) == 3
		if i == 0 {
			l.HasExtra = hasExtra
		} else if hasExtra != l.HasExtra {
			return nil, fmt.Errorf("%w: entry %d has %d fields, previous ones differ", ErrMalformed, i, len(fields))
		}
		e := Entry{
			Name:  bytes.Clone(fields[0]),
			Party: bytes.Clone(fields[1]),
		}
		if hasExtra {
			e.Extra = append([]byte{}, fields[2]...)
		}
		l.Entries = append(l.Entries, e)
	}
	return l, nil
}

// Fields joins the entries back into the comma-separated input fields that
// Decode accepts. extra is nil when the buffer has no third field.
func (l *Legacy) Fields() (names, parties, extra []byte) {
	sep := []byte{InputSeparator}
	nameTokens := make([][]byte, len(l.Entries))
	partyTokens := make([][]byte, len(l.Entries))
	extraTokens := make([][]byte, len(l.Entries))
	for i, e := range l.Entries {
		nameTokens[i] = e.Name
		partyTokens[i] = e.Party
		extraTokens[i] = e.Extra
	}
	names = bytes.Join(nameTokens, sep)
	parties = bytes.Join(partyTokens, sep)
	if l.HasExtra {
		extra = bytes.Join(extraTokens, sep)
	}
	return names, parties, extra
}
