package config

import (
	"os"
	"path/filepath"
)

// These consts are defaults used in Config
const (
	DefaultLogLevel  = "info"
	DefaultLogOutput = "stderr"
	DefaultCacheSize = 1024
	// ConfigName is the name of the config file in the data directory,
	// without extension
	ConfigName = "ledger"
	ConfigType = "yml"
	// EnvPrefix prefixes the environment variables overriding the config
	EnvPrefix = "LEDGER"
)

// DefaultDataDir returns $HOME/.ledger, or .ledger in the working directory
// when the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ledger"
	}
	return filepath.Join(home, ".ledger")
}
