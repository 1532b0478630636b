package election

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/blake2b"
)

// Names of the available hash functions
const (
	HashBlake2b256 = "blake2b256"
	HashKeccak256  = "keccak256"
)

// HashFunc derives fixed-length candidate identifiers.
type HashFunc interface {
	Type() string
	Len() int
	Hash(data []byte) []byte
}

// Blake2b256 implements HashFunc with BLAKE2b-256. It is the default.
type Blake2b256 struct{}

// Type implements HashFunc
func (Blake2b256) Type() string { return HashBlake2b256 }

// Len implements HashFunc
func (Blake2b256) Len() int { return blake2b.Size256 }

// Hash implements HashFunc
func (Blake2b256) Hash(data []byte) []byte {
	h := blake2b.Sum256(data)
	return h[:]
}

// Keccak256 implements HashFunc with the Ethereum flavour of Keccak-256.
type Keccak256 struct{}

// Type implements HashFunc
func (Keccak256) Type() string { return HashKeccak256 }

// Len implements HashFunc
func (Keccak256) Len() int { return 32 }

// Hash implements HashFunc
func (Keccak256) Hash(data []byte) []byte {
	return crypto.Keccak256(data)
}

// HashByName returns the HashFunc registered under name. An empty name
// selects Blake2b256.
func HashByName(name string) (HashFunc, error) {
	switch strings.ToLower(name) {
	case HashBlake2b256, "":
		return Blake2b256{}, nil
	case HashKeccak256:
		return Keccak256{}, nil
	default:
		return nil, fmt.Errorf("unknown hash function %q, available: %q %q",
			name, HashBlake2b256, HashKeccak256)
	}
}

// IdentifierPolicy decides where candidate identifiers come from.
type IdentifierPolicy uint8

const (
	// FromName derives the identifier by hashing the candidate name. The
	// optional third roster field is then metadata.
	FromName IdentifierPolicy = iota
	// Supplied takes the identifier from the third roster field. Candidates
	// without a supplied identifier fall back to the hash of their name.
	Supplied
)

func (p IdentifierPolicy) String() string {
	switch p {
	case FromName:
		return "name"
	case Supplied:
		return "supplied"
	default:
		return fmt.Sprintf("IdentifierPolicy(%d)", uint8(p))
	}
}

// ParseIdentifierPolicy parses "name" or "supplied".
func ParseIdentifierPolicy(s string) (IdentifierPolicy, error) {
	switch strings.ToLower(s) {
	case "name", "":
		return FromName, nil
	case "supplied":
		return Supplied, nil
	default:
		return FromName, fmt.Errorf("unknown identifier policy %q, available: \"name\" \"supplied\"", s)
	}
}

// ExtraField returns the meaning of the third roster field under p.
func (p IdentifierPolicy) ExtraField() ExtraField {
	if p == Supplied {
		return ExtraIdentifier
	}
	return ExtraMetadata
}
