package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var usernameRE = regexp.MustCompile(`^[a-zA-Z0-9_]{3,24}$`)

var blockedNameFragments = []string{
	"admin",
	"mod",
	"support",
	"shit",
	"fuck",
	"bitch",
	"nazi",
}

// Service persists players, submitted scores and daily challenges. Game rounds never touch it.
type Service struct {
	db   *pgxpool.Pool
	log  *slog.Logger
	mu   sync.Mutex
	rand *mathrand.Rand
}

func NewService(db *pgxpool.Pool, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:   db,
		log:  logger,
		rand: mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
}

// Ping reports whether the score database is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Service) EnsurePlayer(ctx context.Context, userID, email, username string) error {
	if strings.TrimSpace(username) == "" {
		username = usernameFromEmail(email)
	}
	username = strings.TrimSpace(username)
	if !usernameRE.MatchString(username) || blockedName(username) {
		username = sanitizeUsername(usernameFromEmail(email))
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO holdco.players (user_id, email, username)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, email, username)
	return err
}

// ValidateSnapshot rejects snapshots whose score does not follow from their own figures.
func ValidateSnapshot(snap ScoreSnapshot) error {
	switch {
	case strings.TrimSpace(snap.RunID) == "":
		return fmt.Errorf("%w: run id is required", ErrInvalidScore)
	case snap.MaxRounds <= 0 || snap.MaxRounds > 50:
		return fmt.Errorf("%w: max rounds %d out of range", ErrInvalidScore, snap.MaxRounds)
	case snap.Rounds <= 0 || snap.Rounds > snap.MaxRounds:
		return fmt.Errorf("%w: rounds %d out of range", ErrInvalidScore, snap.Rounds)
	case snap.EquityValue < 0 || snap.TotalDistributions < 0:
		return fmt.Errorf("%w: negative equity or distributions", ErrInvalidScore)
	case snap.Score != snap.EquityValue+snap.TotalDistributions:
		return fmt.Errorf("%w: score %d does not match equity plus distributions", ErrInvalidScore, snap.Score)
	}
	return nil
}

func (s *Service) SubmitScore(ctx context.Context, in ScoreInput) (ScoreResult, error) {
	var out ScoreResult
	if err := ValidateSnapshot(in.Snapshot); err != nil {
		return out, err
	}
	snap := in.Snapshot

	const maxAttempts = 8
	retryDelay := 75 * time.Millisecond
	for attempt := 0; attempt < maxAttempts; attempt++ {
		tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return out, err
		}
		err = func() error {
			defer tx.Rollback(ctx)

			if err := claimIdempotency(ctx, tx, in.UserID, in.IdempotencyKey, "submit_score"); err != nil {
				return err
			}

			var challengeID *int64
			if snap.ChallengeID != 0 {
				var seed int64
				var maxRounds int
				if err := tx.QueryRow(ctx, `
					SELECT seed, max_rounds
					FROM holdco.challenges
					WHERE id = $1
				`, snap.ChallengeID).Scan(&seed, &maxRounds); err != nil {
					if errors.Is(err, pgx.ErrNoRows) {
						return ErrChallengeNotFound
					}
					return err
				}
				if seed != snap.Seed || maxRounds != snap.MaxRounds {
					return fmt.Errorf("%w: run does not match challenge %d", ErrInvalidScore, snap.ChallengeID)
				}
				challengeID = &snap.ChallengeID
			}

			err := tx.QueryRow(ctx, `
				INSERT INTO holdco.scores (user_id, run_id, challenge_id, seed, rounds, max_rounds,
					equity_value, total_distributions, moic, roic, businesses, score)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
				RETURNING id
			`, in.UserID, snap.RunID, challengeID, snap.Seed, snap.Rounds, snap.MaxRounds,
				snap.EquityValue, snap.TotalDistributions, snap.Moic, snap.Roic, snap.Businesses, snap.Score).Scan(&out.ScoreID)
			if err != nil {
				return err
			}

			if err := tx.QueryRow(ctx, `
				SELECT COUNT(*) + 1
				FROM holdco.scores
				WHERE score > $1 AND challenge_id IS NOT DISTINCT FROM $2
			`, snap.Score, challengeID).Scan(&out.Rank); err != nil {
				return err
			}
			out.Score = snap.Score
			return tx.Commit(ctx)
		}()
		if err == nil {
			s.log.Info("score submitted", "user_id", in.UserID, "score", out.Score, "rank", out.Rank)
			return out, nil
		}
		if !isSerializationError(err) {
			return out, err
		}
		if attempt == maxAttempts-1 {
			return out, ErrTxConflict
		}
		if err := sleepWithContext(ctx, retryDelay); err != nil {
			return out, err
		}
		if retryDelay < 1200*time.Millisecond {
			retryDelay *= 2
		}
	}

	return out, ErrTxConflict
}

// GlobalLeaderboard ranks each player's best free-play score.
func (s *Service) GlobalLeaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT ON (sc.user_id) p.username, sc.score, sc.moic, sc.rounds, sc.created_at
		FROM holdco.scores sc
		JOIN holdco.players p ON p.user_id = sc.user_id
		WHERE sc.challenge_id IS NULL
		ORDER BY sc.user_id, sc.score DESC, sc.created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	return collectLeaderboard(rows, limit)
}

func (s *Service) ChallengeLeaderboard(ctx context.Context, challengeID int64, limit int) ([]LeaderboardRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT ON (sc.user_id) p.username, sc.score, sc.moic, sc.rounds, sc.created_at
		FROM holdco.scores sc
		JOIN holdco.players p ON p.user_id = sc.user_id
		WHERE sc.challenge_id = $1
		ORDER BY sc.user_id, sc.score DESC, sc.created_at ASC
	`, challengeID)
	if err != nil {
		return nil, err
	}
	return collectLeaderboard(rows, limit)
}

// collectLeaderboard orders per-player bests by score and assigns ranks while scanning.
func collectLeaderboard(rows pgx.Rows, limit int) ([]LeaderboardRow, error) {
	defer rows.Close()

	var best []LeaderboardRow
	for rows.Next() {
		var r LeaderboardRow
		if err := rows.Scan(&r.Username, &r.Score, &r.Moic, &r.Rounds, &r.SubmittedAt); err != nil {
			return nil, err
		}
		best = append(best, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return RankLeaderboard(best, limit), nil
}

// RankLeaderboard sorts by score descending, earliest submission first on ties.
func RankLeaderboard(rows []LeaderboardRow, limit int) []LeaderboardRow {
	out := append([]LeaderboardRow(nil), rows...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && leaderboardLess(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	var rank int64 = 1
	for i := range out {
		out[i].Rank = rank
		rank++
	}
	return out
}

func leaderboardLess(a, b LeaderboardRow) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.SubmittedAt.Before(b.SubmittedAt)
}

func (s *Service) CurrentChallenge(ctx context.Context) (Challenge, error) {
	var c Challenge
	err := s.db.QueryRow(ctx, `
		SELECT id, day, seed, max_rounds, par_score
		FROM holdco.challenges
		ORDER BY day DESC
		LIMIT 1
	`).Scan(&c.ID, &c.Day, &c.Seed, &c.MaxRounds, &c.ParScore)
	if errors.Is(err, pgx.ErrNoRows) {
		return c, ErrChallengeNotFound
	}
	return c, err
}

// PublishChallenge stores the challenge for day. Publishing the same day twice keeps
// the first seed.
func (s *Service) PublishChallenge(ctx context.Context, day time.Time, seed int64, maxRounds int, parScore int64) (Challenge, error) {
	day = day.UTC().Truncate(24 * time.Hour)
	c := Challenge{Day: day, Seed: seed, MaxRounds: maxRounds, ParScore: parScore}
	err := s.db.QueryRow(ctx, `
		INSERT INTO holdco.challenges (day, seed, max_rounds, par_score)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (day) DO UPDATE SET day = EXCLUDED.day
		RETURNING id, seed, max_rounds, par_score
	`, day, seed, maxRounds, parScore).Scan(&c.ID, &c.Seed, &c.MaxRounds, &c.ParScore)
	if err != nil {
		return Challenge{}, err
	}
	s.log.Info("challenge published", "day", day.Format(time.DateOnly), "seed", c.Seed, "par", c.ParScore)
	return c, nil
}

func (s *Service) NewChallengeSeed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Int63()
}

func isSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func claimIdempotency(ctx context.Context, tx pgx.Tx, userID, key, action string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("idempotency key is required")
	}
	cmd, err := tx.Exec(ctx, `
		INSERT INTO holdco.idempotency_keys (user_id, key, action, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, key) DO NOTHING
	`, userID, key, action)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrDuplicateIdempotency
	}
	return nil
}

func blockedName(name string) bool {
	lower := strings.ToLower(name)
	for _, frag := range blockedNameFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

func usernameFromEmail(email string) string {
	email = strings.TrimSpace(strings.ToLower(email))
	parts := strings.Split(email, "@")
	if len(parts) == 0 || parts[0] == "" {
		return "player"
	}
	return sanitizeUsername(parts[0])
}

func sanitizeUsername(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "player"
	}
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			out = append(out, r)
		} else {
			out = append(out, '_')
		}
	}
	res := strings.Trim(string(out), "_")
	if len(res) < 3 {
		res = "player_" + res
	}
	if len(res) > 24 {
		res = res[:24]
	}
	return res
}
