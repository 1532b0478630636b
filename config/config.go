package config

import (
	"fmt"

	"go.vocdoni.io/ledger/db"
	"go.vocdoni.io/ledger/election"
	"go.vocdoni.io/ledger/log"
	"go.vocdoni.io/ledger/roster"
)

// Config stores the global configuration of the ledger
type Config struct {
	// DataDir is the path where the database and the config file are stored
	DataDir string
	// DBType is the key-value backend: pebble, leveldb or badger
	DBType string
	// LogLevel logging level
	LogLevel string
	// LogOutput logging output
	LogOutput string
	// LogFormat is the log encoding: console or json
	LogFormat string
	// LogErrorFile for logging warning, error and fatal messages
	LogErrorFile string
	// CacheSize is the number of decoded election records kept in memory
	CacheSize int
	// IdentifierPolicy selects where candidate identifiers come from: name or supplied
	IdentifierPolicy string
	// Hash is the function deriving candidate identifiers from names
	Hash string
	// InitialVotes is the starting tally of every new candidate
	InitialVotes uint64
	// MaterializeMissing makes votes on unknown elections create an empty record
	MaterializeMissing bool
	// Metrics prints the prometheus counters after each command
	Metrics bool
}

// Error is used by the config parser
type Error struct {
	// Critical indicates if the error encountered is critical and the app must be stopped
	Critical bool
	// Message error message
	Message string
}

func (e Error) Error() string {
	return e.Message
}

// NewConfig returns a Config with the default values set
func NewConfig() *Config {
	return &Config{
		DataDir:          DefaultDataDir(),
		DBType:           db.TypePebble,
		LogLevel:         DefaultLogLevel,
		LogOutput:        DefaultLogOutput,
		LogFormat:        log.FormatConsole,
		CacheSize:        DefaultCacheSize,
		IdentifierPolicy: election.FromName.String(),
		Hash:             election.HashBlake2b256,
	}
}

// Validate checks that every value of the config can be used
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("empty data directory")
	}
	switch c.DBType {
	case db.TypePebble, db.TypeLevelDB, db.TypeBadger:
	default:
		return fmt.Errorf("invalid dbType %q, available: %q %q %q",
			c.DBType, db.TypePebble, db.TypeLevelDB, db.TypeBadger)
	}
	switch c.LogFormat {
	case log.FormatConsole, log.FormatJSON:
	default:
		return fmt.Errorf("invalid logFormat %q, available: %q %q",
			c.LogFormat, log.FormatConsole, log.FormatJSON)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("invalid cacheSize %d", c.CacheSize)
	}
	_, err := c.DecodeOptions()
	return err
}

// DecodeOptions returns the roster options selected by the config
func (c *Config) DecodeOptions() (roster.DecodeOptions, error) {
	policy, err := election.ParseIdentifierPolicy(c.IdentifierPolicy)
	if err != nil {
		return roster.DecodeOptions{}, err
	}
	hash, err := election.HashByName(c.Hash)
	if err != nil {
		return roster.DecodeOptions{}, err
	}
	return roster.DecodeOptions{
		Policy:       policy,
		Hash:         hash,
		InitialVotes: c.InitialVotes,
	}, nil
}
