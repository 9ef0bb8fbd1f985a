package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	cl "holdco/internal/cli"
	"holdco/internal/game"
	"holdco/internal/round"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type simulateOptions struct {
	seed      int64
	rounds    int
	scenario  string
	reserve   int64
	challenge bool
	out       string
	quiet     bool
}

func newSimulateCmd(apiBase *string, defaultRounds int) *cobra.Command {
	opts := simulateOptions{rounds: defaultRounds, reserve: 1000}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Autoplay a seeded game locally and queue the final score",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd.Context(), newClient(apiBase), opts, cmd.Flags().Changed("seed"))
		},
	}
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "game seed (random when unset)")
	cmd.Flags().IntVar(&opts.rounds, "rounds", opts.rounds, "rounds to play (10 or 20)")
	cmd.Flags().StringVar(&opts.scenario, "scenario", "", "scenario JSON file to start from")
	cmd.Flags().Int64Var(&opts.reserve, "reserve", opts.reserve, "cash reserve (thousands) the autoplay policy keeps")
	cmd.Flags().BoolVar(&opts.challenge, "challenge", false, "play today's challenge seed")
	cmd.Flags().StringVar(&opts.out, "out", "", "write the score snapshot to this file")
	cmd.Flags().BoolVar(&opts.quiet, "quiet", false, "only print the final score")
	return cmd
}

func runSimulate(ctx context.Context, client *cl.Client, opts simulateOptions, seedSet bool) error {
	var challengeID int64
	if opts.challenge {
		cctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		c, err := client.Challenge(cctx)
		cancel()
		if err != nil {
			return fmt.Errorf("fetch challenge: %w", err)
		}
		opts.seed, opts.rounds, challengeID = c.Seed, c.MaxRounds, c.ID
		seedSet = true
	}
	if !seedSet {
		opts.seed = time.Now().UnixNano()
	}

	state, err := startingState(opts)
	if err != nil {
		return err
	}
	if !opts.quiet {
		accent.Printf("\n== SEED %d, %d ROUNDS ==\n", state.Seed, state.MaxRounds)
		renderPortfolio(state)
	}

	final, results, err := round.Autoplay(state, game.NewRNG(state.Seed), round.CautiousPolicy{Reserve: opts.reserve})
	if err != nil {
		return err
	}
	if !opts.quiet {
		for _, r := range results {
			renderRound(r)
		}
		fmt.Println()
		renderPortfolio(final)
	}

	snap := round.Snapshot(final, uuid.NewString(), challengeID)
	m := game.CalculateMetrics(final)
	accent.Printf("\nFinal score %s  (equity %s + distributions %s, MOIC %s)\n",
		game.FormatMoney(snap.Score), game.FormatMoney(m.EquityValue),
		game.FormatMoney(final.TotalDistributions), game.FormatMultiple(m.Moic))

	if opts.out != "" {
		raw, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.out, raw, 0o600); err != nil {
			return err
		}
		printInfo("Snapshot written to " + opts.out)
	}

	sctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	sess, err := client.ActiveSession(sctx, time.Now())
	if err != nil {
		printInfo("Not logged in; score not submitted. Use --out and `holdco submit` later.")
		return nil
	}
	return submitSnapshot(sctx, client, sess, snap)
}

func startingState(opts simulateOptions) (game.GameState, error) {
	if opts.scenario == "" {
		return round.NewGame(opts.seed, opts.rounds), nil
	}
	f, err := os.Open(opts.scenario)
	if err != nil {
		return game.GameState{}, err
	}
	defer f.Close()
	state, err := round.LoadScenario(f)
	if err != nil {
		return game.GameState{}, err
	}
	if state.Seed == 0 {
		state.Seed = opts.seed
	}
	return state, nil
}
