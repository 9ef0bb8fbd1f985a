package main

import (
	"context"
	"fmt"
	"time"

	"holdco/internal/game"
	"holdco/internal/round"

	"github.com/spf13/cobra"
)

func newValueCmd(apiBase *string) *cobra.Command {
	var currentRound int
	var lastEvent string
	var remote bool
	cmd := &cobra.Command{
		Use:   "value <business.json>",
		Short: "Print the exit valuation breakdown for a business (use - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := readJSONFile[game.Business](args[0])
			if err != nil {
				return err
			}
			// Normalising through a one-business scenario fills the acquisition baseline
			// and derived fields a hand-written file usually omits.
			state, err := round.Scenario{Businesses: []game.Business{b}}.State()
			if err != nil {
				return err
			}
			state.Round = currentRound
			state.LastEventType = game.EventType(lastEvent)
			b = state.Businesses[0]

			if !remote {
				renderValuation(b, game.CalculateExitValuation(b, currentRound, state.LastEventType, nil, nil))
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			vals, err := newClient(apiBase).Valuations(ctx, state, b.ID)
			if err != nil {
				return err
			}
			if len(vals) != 1 {
				return fmt.Errorf("api returned %d valuations for %s", len(vals), b.ID)
			}
			renderValuation(b, vals[0])
			return nil
		},
	}
	cmd.Flags().IntVar(&currentRound, "round", 0, "current round, for years held and seasoning")
	cmd.Flags().StringVar(&lastEvent, "last-event", "", "last global event type, e.g. global_bull_market")
	cmd.Flags().BoolVar(&remote, "remote", false, "ask the API instead of valuing locally")
	return cmd
}
