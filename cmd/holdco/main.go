package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	cl "holdco/internal/cli"
	"holdco/internal/config"
	"holdco/internal/game"
	"holdco/internal/syncq"

	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLI()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "holdco",
		Short:        "Holdco: buy, grow and sell small businesses one year at a time",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&apiBase, "api", apiBase, "API base URL")

	root.AddCommand(
		newSimulateCmd(&apiBase, cfg.MaxRounds),
		newValueCmd(&apiBase),
		newWatchCmd(cfg.MaxRounds),
		newSignupCmd(&apiBase),
		newLoginCmd(&apiBase),
		newLogoutCmd(),
		newSubmitCmd(&apiBase),
		newSyncCmd(&apiBase),
		newLeaderboardCmd(&apiBase),
		newChallengeCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func newSignupCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create a holdco account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptPassword("Password")
			if err != nil {
				return err
			}
			username, err := promptOptional("Username (optional)")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			session, err := newClient(apiBase).Signup(ctx, email, password, username)
			if err != nil {
				return err
			}
			if strings.TrimSpace(session.AccessToken) == "" {
				printWarn("Signup created. Verify email, then run `holdco login`.")
				return nil
			}
			if err := cl.SaveSession(cl.NewSession(session, username, time.Now())); err != nil {
				return err
			}
			printSuccess("Signup complete. Session saved.")
			return nil
		},
	}
}

func newLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in and store a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptPassword("Password")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			session, err := newClient(apiBase).Login(ctx, email, password)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.NewSession(session, "", time.Now())); err != nil {
				return err
			}
			printSuccess("Login successful.")
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear local session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newSubmitCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <snapshot.json>",
		Short: "Submit a finished run to the leaderboard (use - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readJSONFile[game.ScoreSnapshot](args[0])
			if err != nil {
				return err
			}
			if err := game.ValidateSnapshot(snap); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			sess, err := client.ActiveSession(ctx, time.Now())
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			return submitSnapshot(ctx, client, sess, snap)
		},
	}
}

// submitSnapshot posts snap, queueing it for `holdco sync` when the API is unreachable.
func submitSnapshot(ctx context.Context, client *cl.Client, sess cl.Session, snap game.ScoreSnapshot) error {
	idem := scoreIdempotencyKey(snap)
	out, err := client.SubmitScore(ctx, sess.AccessToken, snap, idem)
	if err != nil {
		body, encErr := snapshotBody(snap)
		if encErr != nil {
			return encErr
		}
		return queueOnNetworkError(err, syncq.Command{
			Method:         http.MethodPost,
			Path:           "/v1/scores",
			Body:           body,
			IdempotencyKey: idem,
		})
	}
	printSuccess(fmt.Sprintf("Score %s submitted, rank #%d.", game.FormatMoney(out.Score), out.Rank))
	return nil
}

func scoreIdempotencyKey(snap game.ScoreSnapshot) string {
	return "score-" + snap.RunID
}

func snapshotBody(snap game.ScoreSnapshot) (map[string]any, error) {
	return decodeInto[map[string]any](snap)
}

func newSyncCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay locally queued offline writes",
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, err := syncq.Load()
			if err != nil {
				return err
			}
			if len(queue) == 0 {
				printInfo("Sync queue is empty.")
				return nil
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			sess, err := client.ActiveSession(ctx, time.Now())
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}

			remaining, replayed, dropped := replayQueue(ctx, client, sess.AccessToken, queue)
			if err := syncq.Save(remaining); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Sync complete: replayed=%d dropped=%d remaining=%d", replayed, dropped, len(remaining)))
			return nil
		},
	}
}

type replayer interface {
	Do(ctx context.Context, method, path, accessToken string, body map[string]any, idem string) (map[string]any, error)
}

// replayQueue sends every queued command. Commands the API rejected are dropped.
// Transport failures, throttling and expired tokens stay queued until they run out of
// attempts.
func replayQueue(ctx context.Context, client replayer, token string, queue []syncq.Command) (remaining []syncq.Command, replayed, dropped int) {
	remaining = make([]syncq.Command, 0, len(queue))
	for _, q := range queue {
		_, err := client.Do(ctx, q.Method, q.Path, token, q.Body, q.IdempotencyKey)
		var apiErr *cl.APIError
		switch {
		case err == nil:
			replayed++
		case errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict:
			replayed++
		case errors.As(err, &apiErr) && apiErr.Status < 500 && apiErr.Status != http.StatusTooManyRequests && apiErr.Status != http.StatusUnauthorized:
			dropped++
			printError(fmt.Sprintf("Dropped %s %s: %v", q.Method, q.Path, err))
		default:
			next, ok := q.Failed(err)
			if !ok {
				dropped++
				printError(fmt.Sprintf("Gave up on %s %s after %d attempts: %v", q.Method, q.Path, next.Attempts, err))
				continue
			}
			remaining = append(remaining, next)
			printError(fmt.Sprintf("Sync failed for %s %s: %v", q.Method, q.Path, err))
		}
	}
	return remaining, replayed, dropped
}

func newLeaderboardCmd(apiBase *string) *cobra.Command {
	var challengeID int64
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the global or a challenge leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			rows, err := newClient(apiBase).Leaderboard(ctx, challengeID, limit)
			if err != nil {
				return err
			}
			title := "Global Leaderboard"
			if challengeID > 0 {
				title = fmt.Sprintf("Challenge %d Leaderboard", challengeID)
			}
			renderLeaderboard(rows, title)
			return nil
		},
	}
	cmd.Flags().Int64Var(&challengeID, "challenge", 0, "challenge id")
	cmd.Flags().IntVar(&limit, "limit", 20, "rows to show")
	return cmd
}

func newChallengeCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "challenge",
		Short: "Show today's challenge seed and par score",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			c, err := newClient(apiBase).Challenge(ctx)
			if err != nil {
				return err
			}
			accent.Printf("\n== CHALLENGE %d (%s) ==\n", c.ID, c.Day.Format(time.DateOnly))
			fmt.Printf("Seed %d  Rounds %d  Par %s\n", c.Seed, c.MaxRounds, game.FormatMoney(c.ParScore))
			printInfo("Play it with: holdco simulate --challenge")
			return nil
		},
	}
}

func queueOnNetworkError(err error, cmd syncq.Command) error {
	if err == nil {
		return nil
	}
	var apiErr *cl.APIError
	if errors.As(err, &apiErr) {
		return err
	}
	if qerr := syncq.Push(cmd); qerr != nil {
		return fmt.Errorf("request failed (%v) and queueing failed: %w", err, qerr)
	}
	printWarn("API unreachable; queued for `holdco sync`.")
	return nil
}
