package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AddFlags registers the config flags in fs, with their defaults
func AddFlags(fs *flag.FlagSet) {
	def := NewConfig()
	fs.StringP("dataDir", "d", def.DataDir, "directory where data and config are stored")
	fs.StringP("dbType", "t", def.DBType, "key-value backend: pebble, leveldb or badger")
	fs.StringP("logLevel", "l", def.LogLevel, "log level (debug, info, warn, error, fatal)")
	fs.String("logOutput", def.LogOutput, "log output (stdout, stderr or filepath)")
	fs.String("logFormat", def.LogFormat, "log encoding: console or json")
	fs.String("logErrorFile", "", "log file for warning and error messages")
	fs.Int("cacheSize", def.CacheSize, "number of election records kept in memory")
	fs.String("identifierPolicy", def.IdentifierPolicy,
		"where candidate identifiers come from: name (hash of the name) or supplied (third roster field)")
	fs.String("hash", def.Hash, "hash deriving candidate identifiers from names: blake2b256 or keccak256")
	fs.Uint64("initialVotes", 0, "starting tally of every new candidate")
	fs.Bool("materializeMissing", false, "voting on an unknown election creates an empty record")
	fs.Bool("metrics", false, "print the prometheus counters after each command")
}

// Load builds the Config from, by priority, the flags that were set in fs,
// the LEDGER_ environment variables, the ledger.yml file of the data
// directory and the flag defaults. The flags must be registered with
// AddFlags and parsed.
func Load(fs *flag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigName(ConfigName)
	v.SetConfigType(ConfigType)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("cannot bind flags: %w", err)
	}

	// the data directory tells where the config file is
	dataDir := v.GetString("dataDir")
	v.AddConfigPath(dataDir)
	if _, err := os.Stat(filepath.Join(dataDir, ConfigName+"."+ConfigType)); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, Error{
				Critical: true,
				Message:  fmt.Sprintf("cannot read config file in %s: %s", dataDir, err),
			}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("cannot stat config file: %w", err)
	}

	cfg := NewConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, Error{
			Critical: true,
			Message:  fmt.Sprintf("cannot unmarshal config: %s", err),
		}
	}
	// the config file cannot move the data directory
	cfg.DataDir = dataDir
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as the ledger.yml file of its data directory, creating the
// directory if needed.
func Save(cfg *Config) error {
	if err := os.MkdirAll(cfg.DataDir, os.ModePerm); err != nil {
		return fmt.Errorf("cannot create data directory: %w", err)
	}
	v := viper.New()
	v.SetConfigType(ConfigType)
	v.Set("dbType", cfg.DBType)
	v.Set("logLevel", cfg.LogLevel)
	v.Set("logOutput", cfg.LogOutput)
	v.Set("logFormat", cfg.LogFormat)
	v.Set("logErrorFile", cfg.LogErrorFile)
	v.Set("cacheSize", cfg.CacheSize)
	v.Set("identifierPolicy", cfg.IdentifierPolicy)
	v.Set("hash", cfg.Hash)
	v.Set("initialVotes", cfg.InitialVotes)
	v.Set("materializeMissing", cfg.MaterializeMissing)
	v.Set("metrics", cfg.Metrics)
	return v.WriteConfigAs(filepath.Join(cfg.DataDir, ConfigName+"."+ConfigType))
}
