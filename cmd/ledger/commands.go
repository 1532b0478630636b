package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.vocdoni.io/ledger/ballot"
	"go.vocdoni.io/ledger/config"
	"go.vocdoni.io/ledger/election"
	"go.vocdoni.io/ledger/log"
	"go.vocdoni.io/ledger/roster"
	"go.vocdoni.io/ledger/types"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "write the current configuration to ledger.yml in the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(a.cfg); err != nil {
				return err
			}
			log.Infow("config saved", "dataDir", a.cfg.DataDir)
			return nil
		},
	}
}

func newCommenceCmd(a *app) *cobra.Command {
	var (
		deadline    uint64
		displayName string
		generateID  bool
	)
	cmd := &cobra.Command{
		Use:   "commence [id] [names] [parties] [extra]",
		Short: "create an election from comma-separated names, parties and an optional third field",
		Args:  cobra.RangeArgs(2, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id election.ID
			if generateID {
				u := uuid.New()
				id = u[:]
			} else {
				var err error
				if id, err = parseBytes(args[0]); err != nil {
					return fmt.Errorf("invalid election id: %w", err)
				}
				args = args[1:]
			}
			if len(args) < 2 {
				return fmt.Errorf("names and parties are required")
			}
			var extra []byte
			if len(args) > 2 {
				extra = []byte(args[2])
			}
			rec, err := a.store.Create(id, []byte(args[0]), []byte(args[1]), extra,
				deadline, []byte(displayName))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "0x%s %d\n", id, len(rec.Candidates))
			return nil
		},
	}
	cmd.Flags().Uint64Var(&deadline, "deadline", 0, "countdown value stored with the election")
	cmd.Flags().StringVar(&displayName, "displayName", "", "name of the election")
	cmd.Flags().BoolVar(&generateID, "new", false, "generate a random election id instead of taking it as first argument")
	return cmd
}

func newRosterCmd(a *app) *cobra.Command {
	var binary bool
	cmd := &cobra.Command{
		Use:   "roster [id]",
		Short: "print the candidates of an election in the %% && *** format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBytes(args[0])
			if err != nil {
				return err
			}
			if binary {
				rec, err := a.store.Record(id)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(roster.Marshal(rec))
				return err
			}
			buf, err := a.store.Roster(id)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(buf)
			return err
		},
	}
	cmd.Flags().BoolVar(&binary, "binary", false, "use the length-prefixed format")
	return cmd
}

func newDeadlineCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "deadline [id]",
		Short: "print the countdown value of an election",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBytes(args[0])
			if err != nil {
				return err
			}
			deadline, err := a.store.Deadline(id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), deadline)
			return nil
		},
	}
}

func newTalliesCmd(a *app) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "tallies [id]",
		Short: "print the tally of each candidate, in roster order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBytes(args[0])
			if err != nil {
				return err
			}
			buf, err := a.store.Tallies(id)
			if err != nil {
				return err
			}
			if raw {
				_, err = cmd.OutOrStdout().Write(buf)
				return err
			}
			tallies, err := roster.DecodeTallies(buf)
			if err != nil {
				return err
			}
			for _, t := range tallies {
				fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatUint(t, 10))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "write 8-byte little-endian tallies")
	return cmd
}

func newVoteCmd(a *app) *cobra.Command {
	var byName bool
	cmd := &cobra.Command{
		Use:   "vote [id] [candidate] [token]",
		Short: "cast a vote; a token voting for an unknown candidate is spent anyway",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBytes(args[0])
			if err != nil {
				return err
			}
			candidate, err := parseBytes(args[1])
			if err != nil {
				return err
			}
			if byName {
				decode, err := a.cfg.DecodeOptions()
				if err != nil {
					return err
				}
				candidate = decode.Hash.Hash(candidate)
			}
			token, err := parseBytes(args[2])
			if err != nil {
				return err
			}
			receipt, err := a.engine.CastVote(id, candidate, token)
			if err != nil && !errors.Is(err, ballot.ErrCandidateNotFound) {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			if jerr := enc.Encode(receipt); jerr != nil {
				return jerr
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&byName, "name", false, "the candidate is given by name, its id is the hash of the whole name")
	return cmd
}

func newVotedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "voted [id] [token]",
		Short: "print whether a token already voted",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBytes(args[0])
			if err != nil {
				return err
			}
			token, err := parseBytes(args[1])
			if err != nil {
				return err
			}
			spent, err := a.engine.TokenIsSpent(id, token)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), spent)
			return nil
		},
	}
}

// candidateView is the printable form of election.Candidate.
type candidateView struct {
	ID        types.HexBytes `json:"id"`
	DerivedID bool           `json:"derivedId,omitempty"`
	Name      string         `json:"name"`
	Party     string         `json:"party,omitempty"`
	Metadata  string         `json:"metadata,omitempty"`
	Votes     uint64         `json:"votes"`
}

type recordView struct {
	ID          types.HexBytes  `json:"id"`
	DisplayName string          `json:"displayName,omitempty"`
	Deadline    uint64          `json:"deadline"`
	Extra       string          `json:"extra"`
	Spent       uint64          `json:"spent"`
	Candidates  []candidateView `json:"candidates"`
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "print an election as json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBytes(args[0])
			if err != nil {
				return err
			}
			rec, err := a.store.Record(id)
			if err != nil {
				return err
			}
			view := recordView{
				ID:          id,
				DisplayName: string(rec.DisplayName),
				Deadline:    rec.Deadline,
				Extra:       rec.Extra.String(),
				Spent:       rec.Spent,
				Candidates:  make([]candidateView, len(rec.Candidates)),
			}
			for i, c := range rec.Candidates {
				view.Candidates[i] = candidateView{
					ID:        c.ID,
					DerivedID: c.DerivedID,
					Name:      string(c.Name),
					Party:     string(c.Party),
					Metadata:  string(c.Metadata),
					Votes:     c.Votes,
				}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "print the id of every stored election",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := a.store.Elections()
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintf(cmd.OutOrStdout(), "0x%s\n", id)
			}
			return nil
		},
	}
}

func newCompactCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "compact the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.db.Compact()
		},
	}
}
