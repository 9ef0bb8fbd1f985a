package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"holdco/internal/config"
	"holdco/internal/db"
	"holdco/internal/game"
	"holdco/internal/round"

	"github.com/joho/godotenv"
)

// challengeStore is what the worker needs from *game.Service.
type challengeStore interface {
	CurrentChallenge(ctx context.Context) (game.Challenge, error)
	PublishChallenge(ctx context.Context, day time.Time, seed int64, maxRounds int, parScore int64) (game.Challenge, error)
	NewChallengeSeed() int64
}

func main() {
	configPath := flag.String("config", "", "path to a holdco.yaml config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()
	cfg, err := config.LoadWorker(*configPath)
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: config.SlogLevel(cfg.LogLevel)}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		ApplicationName: "holdco-worker",
		ConnectAttempts: cfg.DBAttempts,
	}, logger)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Error("migrate failed", "err", err)
		os.Exit(1)
	}
	svc := game.NewService(pool, logger)

	if cfg.RunOnce {
		if _, err := rotateChallenge(ctx, svc, cfg.ChallengeMaxRounds, time.Now()); err != nil {
			logger.Error("challenge rotation failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}

	ticker := time.NewTicker(cfg.ChallengeEvery)
	defer ticker.Stop()

	logger.Info("worker started", "challenge_every", cfg.ChallengeEvery.String(), "max_rounds", cfg.ChallengeMaxRounds)
	if _, err := rotateChallenge(ctx, svc, cfg.ChallengeMaxRounds, time.Now()); err != nil {
		logger.Error("challenge rotation failed", "err", err)
	}
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case now := <-ticker.C:
			c, err := rotateChallenge(ctx, svc, cfg.ChallengeMaxRounds, now)
			if err != nil {
				logger.Error("challenge rotation failed", "err", err)
				continue
			}
			logger.Info("challenge current", "challenge_id", c.ID, "day", c.Day.Format(time.DateOnly))
		}
	}
}

// rotateChallenge publishes today's challenge unless one already exists. The par score
// is the cautious autoplay result on the new seed.
func rotateChallenge(ctx context.Context, store challengeStore, maxRounds int, now time.Time) (game.Challenge, error) {
	today := now.UTC().Truncate(24 * time.Hour)
	current, err := store.CurrentChallenge(ctx)
	switch {
	case err == nil && !current.Day.UTC().Before(today):
		return current, nil
	case err != nil && !errors.Is(err, game.ErrChallengeNotFound):
		return game.Challenge{}, err
	}

	seed := store.NewChallengeSeed()
	final, err := round.ParRun(seed, maxRounds)
	if err != nil {
		return game.Challenge{}, err
	}
	par := round.Snapshot(final, "par", 0).Score
	return store.PublishChallenge(ctx, today, seed, maxRounds, par)
}
