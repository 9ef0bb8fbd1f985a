package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"holdco/internal/auth"
	"holdco/internal/config"
	"holdco/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type contextKey string

const userContextKey contextKey = "user"

type UserContext struct {
	UserID string
	Email  string
	Token  string
}

// Authenticator is the subset of the Supabase client the server needs.
type Authenticator interface {
	SignUp(ctx context.Context, email, password, username string) (auth.Session, error)
	Login(ctx context.Context, email, password string) (auth.Session, error)
	Refresh(ctx context.Context, refreshToken string) (auth.Session, error)
	VerifyAccessToken(ctx context.Context, accessToken string) (auth.SupabaseUser, error)
}

// ScoreStore persists players, scores and challenges. *game.Service implements it.
type ScoreStore interface {
	EnsurePlayer(ctx context.Context, userID, email, username string) error
	SubmitScore(ctx context.Context, in game.ScoreInput) (game.ScoreResult, error)
	GlobalLeaderboard(ctx context.Context, limit int) ([]game.LeaderboardRow, error)
	ChallengeLeaderboard(ctx context.Context, challengeID int64, limit int) ([]game.LeaderboardRow, error)
	CurrentChallenge(ctx context.Context) (game.Challenge, error)
	Ping(ctx context.Context) error
}

type Server struct {
	cfg      config.APIConfig
	log      *slog.Logger
	auth     Authenticator
	store    ScoreStore
	metrics  *metrics
	limiters *limiterSet
	mux      *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, authClient Authenticator, store ScoreStore) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.LeaderboardSize <= 0 {
		cfg.LeaderboardSize = 50
	}
	s := &Server{
		cfg:      cfg,
		log:      logger,
		auth:     authClient,
		store:    store,
		metrics:  newMetrics(),
		limiters: newLimiterSet(cfg.ScoreRateLimit, cfg.ScoreRateBurst),
		mux:      chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(s.metrics.instrument)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			s.log.Warn("readiness check failed", "err", err)
			writeError(w, http.StatusServiceUnavailable, "score store unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)

		r.Post("/valuations", s.handleValuation)
		r.Post("/tax", s.handleTax)
		r.Post("/metrics", s.handleMetrics)
		r.Post("/events/generate", s.handleGenerateEvent)
		r.Post("/events/apply", s.handleApplyEvent)
		r.Post("/rounds/advance", s.handleAdvance)
		r.Post("/rounds/choice", s.handleChoice)
		r.Post("/turnarounds/eligible", s.handleEligibleTurnarounds)
		r.Post("/turnarounds/start", s.handleStartTurnaround)

		r.Get("/challenge", s.handleChallenge)
		r.Get("/leaderboard", s.handleLeaderboard)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/scores", s.handleSubmitScore)
		})
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		user, err := s.auth.VerifyAccessToken(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, fmt.Sprintf("invalid token: %v", err))
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, UserContext{
			UserID: user.ID,
			Email:  user.Email,
			Token:  token,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) (UserContext, error) {
	v := ctx.Value(userContextKey)
	user, ok := v.(UserContext)
	if !ok || user.UserID == "" {
		return UserContext{}, game.ErrUnauthorized
	}
	return user, nil
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Username string `json:"username"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.auth.SignUp(r.Context(), strings.TrimSpace(in.Email), strings.TrimSpace(in.Password), strings.TrimSpace(in.Username))
	if err != nil {
		writeAuthError(w, http.StatusBadRequest, err)
		return
	}
	if session.User.ID != "" {
		if err := s.store.EnsurePlayer(r.Context(), session.User.ID, session.User.Email, in.Username); err != nil {
			s.log.Error("ensure player", "user_id", session.User.ID, "err", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.auth.Login(r.Context(), strings.TrimSpace(in.Email), strings.TrimSpace(in.Password))
	if err != nil {
		writeAuthError(w, http.StatusUnauthorized, err)
		return
	}
	if err := s.store.EnsurePlayer(r.Context(), session.User.ID, session.User.Email, session.User.Metadata.Username); err != nil {
		s.log.Error("ensure player", "user_id", session.User.ID, "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(in.RefreshToken) == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}
	session, err := s.auth.Refresh(r.Context(), strings.TrimSpace(in.RefreshToken))
	if err != nil {
		writeAuthError(w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// writeAuthError passes through client-side GoTrue statuses and reports upstream
// outages as 502.
func writeAuthError(w http.ResponseWriter, fallback int, err error) {
	var upstream *auth.Error
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &upstream) && upstream.Status >= 400 && upstream.Status < 500:
		writeError(w, upstream.Status, upstream.Message)
	case errors.As(err, &upstream):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, fallback, err.Error())
	}
}

func (s *Server) handleSubmitScore(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if !s.limiters.allow(user.UserID) {
		writeError(w, http.StatusTooManyRequests, "score submissions are rate limited, try again shortly")
		return
	}
	var snap game.ScoreSnapshot
	if err := decodeJSON(r, &snap); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.store.SubmitScore(r.Context(), game.ScoreInput{
		UserID:         user.UserID,
		Snapshot:       snap,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.metrics.scores.Inc()
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.LeaderboardSize
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, s.cfg.LeaderboardSize)
	}

	var (
		rows []game.LeaderboardRow
		err  error
	)
	if raw := strings.TrimSpace(r.URL.Query().Get("challenge")); raw != "" {
		challengeID, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil || challengeID <= 0 {
			writeError(w, http.StatusBadRequest, "invalid challenge id")
			return
		}
		rows, err = s.store.ChallengeLeaderboard(r.Context(), challengeID, limit)
	} else {
		rows, err = s.store.GlobalLeaderboard(r.Context(), limit)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": rows})
}

func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.CurrentChallenge(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrDuplicateIdempotency), errors.Is(err, game.ErrTxConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrInsufficientFunds), errors.Is(err, game.ErrInvalidScore),
		errors.Is(err, game.ErrUnknownChoice), errors.Is(err, game.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrBusinessInactive), errors.Is(err, game.ErrTurnaroundActive),
		errors.Is(err, game.ErrProgramIneligible), errors.Is(err, game.ErrPendingChoice),
		errors.Is(err, game.ErrGameOver):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, game.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, game.ErrBusinessNotFound), errors.Is(err, game.ErrProgramNotFound),
		errors.Is(err, game.ErrChallengeNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func idempotencyKey(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		return key
	}
	return uuid.NewString()
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
