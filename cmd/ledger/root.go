package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.vocdoni.io/ledger/ballot"
	"go.vocdoni.io/ledger/config"
	"go.vocdoni.io/ledger/db"
	"go.vocdoni.io/ledger/db/metadb"
	"go.vocdoni.io/ledger/log"
	"go.vocdoni.io/ledger/metrics"
	"go.vocdoni.io/ledger/store"
	"go.vocdoni.io/ledger/types"
)

// app holds what the commands share once the config is loaded.
type app struct {
	cfg    *config.Config
	db     db.Database
	store  *store.Store
	engine *ballot.Engine
}

// run executes the command line args, writing results to out. The database
// is closed when the command returns, even if it failed.
func run(args []string, out, errOut io.Writer) error {
	a := &app{}
	root := newRootCmd(a, out, errOut)
	root.SetArgs(args)
	err := root.Execute()
	if cerr := a.close(errOut); err == nil {
		err = cerr
	}
	return err
}

func newRootCmd(a *app, out, errOut io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "ledger",
		Short: "keyed election ledger",
		Long: `ledger stores election rosters, casts votes and reads back tallies.

Election ids, candidate ids and voter tokens are taken as raw text, or as
hexadecimal bytes when prefixed with 0x.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	config.AddFlags(root.PersistentFlags())

	root.AddCommand(
		newInitCmd(a),
		newCommenceCmd(a),
		newRosterCmd(a),
		newDeadlineCmd(a),
		newTalliesCmd(a),
		newVoteCmd(a),
		newVotedCmd(a),
		newShowCmd(a),
		newListCmd(a),
		newCompactCmd(a),
	)
	return root
}

func (a *app) open(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg
	if err := log.Setup(log.Config{
		Level:     cfg.LogLevel,
		Output:    cfg.LogOutput,
		Format:    cfg.LogFormat,
		ErrorFile: cfg.LogErrorFile,
	}); err != nil {
		return err
	}
	decode, err := cfg.DecodeOptions()
	if err != nil {
		return err
	}
	a.db, err = metadb.New(cfg.DBType, filepath.Join(cfg.DataDir, "db"))
	if err != nil {
		return fmt.Errorf("cannot open database: %w", err)
	}
	log.Debugw("database opened", "type", cfg.DBType, "dataDir", cfg.DataDir)
	a.store = store.New(a.db, store.Options{
		Decode:    decode,
		CacheSize: cfg.CacheSize,
	})
	a.engine = ballot.New(a.store, ballot.Options{
		MaterializeMissing: cfg.MaterializeMissing,
	})
	return nil
}

func (a *app) close(errOut io.Writer) error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	if a.cfg.Metrics {
		if merr := metrics.WriteText(errOut); merr != nil {
			log.Warnf("cannot write metrics: %v", merr)
		}
	}
	return err
}

// parseBytes reads an id or token argument: hex when prefixed with 0x, the
// raw text otherwise.
func parseBytes(arg string) ([]byte, error) {
	if strings.HasPrefix(arg, "0x") || strings.HasPrefix(arg, "0X") {
		return types.ParseHexBytes(arg)
	}
	if arg == "" {
		return nil, fmt.Errorf("empty argument")
	}
	return []byte(arg), nil
}
