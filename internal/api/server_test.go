package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"holdco/internal/auth"
	"holdco/internal/config"
	"holdco/internal/game"
)

type fakeAuth struct{}

func (fakeAuth) SignUp(_ context.Context, email, _, username string) (auth.Session, error) {
	return auth.Session{AccessToken: "tok", User: auth.SupabaseUser{ID: "u-1", Email: email, Metadata: auth.UserMetadata{Username: username}}}, nil
}

func (fakeAuth) Login(_ context.Context, email, password string) (auth.Session, error) {
	if password != "secret" {
		return auth.Session{}, auth.ErrInvalidCredentials
	}
	return auth.Session{AccessToken: "tok", User: auth.SupabaseUser{ID: "u-1", Email: email}}, nil
}

func (fakeAuth) Refresh(_ context.Context, refreshToken string) (auth.Session, error) {
	if refreshToken != "r-1" {
		return auth.Session{}, auth.ErrInvalidToken
	}
	return auth.Session{AccessToken: "tok", RefreshToken: "r-2", ExpiresIn: 3600, User: auth.SupabaseUser{ID: "u-1"}}, nil
}

func (fakeAuth) VerifyAccessToken(_ context.Context, token string) (auth.SupabaseUser, error) {
	if token != "tok" {
		return auth.SupabaseUser{}, errors.New("bad token")
	}
	return auth.SupabaseUser{ID: "u-1", Email: "a@b.c"}, nil
}

type fakeStore struct {
	down    bool
	players []string
	scores  []game.ScoreInput
	seen    map[string]bool
}

func (f *fakeStore) Ping(context.Context) error {
	if f.down {
		return errors.New("connection refused")
	}
	return nil
}

func (f *fakeStore) EnsurePlayer(_ context.Context, userID, _, _ string) error {
	f.players = append(f.players, userID)
	return nil
}

func (f *fakeStore) SubmitScore(_ context.Context, in game.ScoreInput) (game.ScoreResult, error) {
	if err := game.ValidateSnapshot(in.Snapshot); err != nil {
		return game.ScoreResult{}, err
	}
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[in.IdempotencyKey] {
		return game.ScoreResult{}, game.ErrDuplicateIdempotency
	}
	f.seen[in.IdempotencyKey] = true
	f.scores = append(f.scores, in)
	return game.ScoreResult{ScoreID: int64(len(f.scores)), Score: in.Snapshot.Score, Rank: 1}, nil
}

func (f *fakeStore) GlobalLeaderboard(_ context.Context, limit int) ([]game.LeaderboardRow, error) {
	rows := []game.LeaderboardRow{{Username: "b", Score: 10}, {Username: "a", Score: 30}}
	return game.RankLeaderboard(rows, limit), nil
}

func (f *fakeStore) ChallengeLeaderboard(_ context.Context, challengeID int64, _ int) ([]game.LeaderboardRow, error) {
	if challengeID != 7 {
		return nil, game.ErrChallengeNotFound
	}
	return []game.LeaderboardRow{{Rank: 1, Username: "a", Score: 5}}, nil
}

func (f *fakeStore) CurrentChallenge(context.Context) (game.Challenge, error) {
	return game.Challenge{ID: 7, Day: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), Seed: 42, MaxRounds: 20, ParScore: 9000}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeStore) {
	t.Helper()
	store := &fakeStore{}
	cfg := config.APIConfig{ScoreRateLimit: 100, ScoreRateBurst: 100, LeaderboardSize: 50}
	srv := httptest.NewServer(New(cfg, nil, fakeAuth{}, store).Handler())
	t.Cleanup(srv.Close)
	return srv, store
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any, headers map[string]string) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func testState() game.GameState {
	b := game.RecomputeFinancials(game.Business{
		ID:                  "biz-1",
		Name:                "Northwind Agency",
		SectorID:            game.SectorAgency,
		AcquisitionRevenue:  5000,
		AcquisitionMargin:   0.20,
		AcquisitionEbitda:   1000,
		AcquisitionMultiple: 4.0,
		AcquisitionPrice:    4000,
		QualityRating:       2,
		Status:              game.StatusActive,
	}, 5000, 0.20)
	return game.GameState{
		Seed:           21,
		MaxRounds:      20,
		InterestRate:   game.DefaultInterestRate,
		Cash:           5000,
		InitialCapital: 5000,
		TurnaroundTier: 1,
		Businesses:     []game.Business{b},
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	if code, body := do(t, srv, http.MethodGet, "/healthz", nil, nil); code != http.StatusOK || body["ok"] != true {
		t.Fatalf("healthz: %d %v", code, body)
	}
	if code, _ := do(t, srv, http.MethodGet, "/readyz", nil, nil); code != http.StatusOK {
		t.Fatalf("readyz: %d", code)
	}

	do(t, srv, http.MethodPost, "/v1/valuations", map[string]any{"state": testState()}, nil)
	resp, err := srv.Client().Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	for _, name := range []string{"holdco_valuations_total", "holdco_http_request_duration_seconds"} {
		if !strings.Contains(string(raw), name) {
			t.Fatalf("metrics output missing %s", name)
		}
	}
}

func TestReadyzReportsStoreOutage(t *testing.T) {
	srv, store := newTestServer(t)
	store.down = true
	if code, body := do(t, srv, http.MethodGet, "/readyz", nil, nil); code != http.StatusServiceUnavailable {
		t.Fatalf("readyz: %d %v", code, body)
	}
}

func TestSignupAndLogin(t *testing.T) {
	srv, store := newTestServer(t)
	code, body := do(t, srv, http.MethodPost, "/v1/auth/signup", map[string]any{"email": "a@b.c", "password": "secret", "username": "ann"}, nil)
	if code != http.StatusCreated || body["access_token"] != "tok" {
		t.Fatalf("signup: %d %v", code, body)
	}
	if code, _ := do(t, srv, http.MethodPost, "/v1/auth/login", map[string]any{"email": "a@b.c", "password": "wrong"}, nil); code != http.StatusUnauthorized {
		t.Fatalf("bad login status=%d", code)
	}
	if code, _ := do(t, srv, http.MethodPost, "/v1/auth/login", map[string]any{"email": "a@b.c", "password": "secret"}, nil); code != http.StatusOK {
		t.Fatalf("login status=%d", code)
	}
	if len(store.players) != 2 {
		t.Fatalf("players ensured=%d want 2", len(store.players))
	}
	if code, _ := do(t, srv, http.MethodPost, "/v1/auth/login", map[string]any{"email": "a@b.c", "nope": 1}, nil); code != http.StatusBadRequest {
		t.Fatalf("unknown field status=%d", code)
	}
}

func TestRefresh(t *testing.T) {
	srv, _ := newTestServer(t)
	tests := []struct {
		body map[string]any
		want int
	}{
		{map[string]any{"refresh_token": "r-1"}, http.StatusOK},
		{map[string]any{"refresh_token": "stale"}, http.StatusUnauthorized},
		{map[string]any{"refresh_token": " "}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		code, body := do(t, srv, http.MethodPost, "/v1/auth/refresh", tt.body, nil)
		if code != tt.want {
			t.Fatalf("refresh %v: %d %v", tt.body, code, body)
		}
		if code == http.StatusOK && body["refresh_token"] != "r-2" {
			t.Fatalf("refresh body=%v", body)
		}
	}
}

func TestValuationEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	s := testState()
	code, body := do(t, srv, http.MethodPost, "/v1/valuations", map[string]any{"state": s}, nil)
	if code != http.StatusOK {
		t.Fatalf("status=%d body=%v", code, body)
	}
	if got := body["valuations"].([]any); len(got) != len(s.ActiveBusinesses()) {
		t.Fatalf("valuations=%d want %d", len(got), len(s.ActiveBusinesses()))
	}

	code, body = do(t, srv, http.MethodPost, "/v1/valuations", map[string]any{"state": s, "business_id": "missing"}, nil)
	if code != http.StatusNotFound {
		t.Fatalf("missing business status=%d body=%v", code, body)
	}
}

func TestTaxAndMetricsEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	s := testState()
	code, body := do(t, srv, http.MethodPost, "/v1/tax", map[string]any{"state": s}, nil)
	if code != http.StatusOK || body["tax"] == nil || body["fcf"] == nil {
		t.Fatalf("tax: %d %v", code, body)
	}
	want := game.CalculatePortfolioTax(s.Businesses, s.HoldcoDebt, s.InterestRate, 0).TaxAmount
	if got := body["tax"].(map[string]any)["tax_amount"].(float64); int64(got) != want {
		t.Fatalf("tax_amount=%v want %d", got, want)
	}

	code, body = do(t, srv, http.MethodPost, "/v1/metrics", map[string]any{"state": s}, nil)
	if code != http.StatusOK || body["metrics"] == nil {
		t.Fatalf("metrics: %d %v", code, body)
	}
}

func TestEventEndpointsDeterministic(t *testing.T) {
	srv, _ := newTestServer(t)
	s := testState()
	_, first := do(t, srv, http.MethodPost, "/v1/events/generate", map[string]any{"state": s, "seed": 5}, nil)
	_, second := do(t, srv, http.MethodPost, "/v1/events/generate", map[string]any{"state": s, "seed": 5}, nil)
	a, b := first["event"].(map[string]any), second["event"].(map[string]any)
	if a["id"] != b["id"] || a["type"] != b["type"] {
		t.Fatalf("same seed gave different events: %v vs %v", a, b)
	}

	ev := game.GameEvent{ID: "bull", Type: game.EventBullMarket}
	code, body := do(t, srv, http.MethodPost, "/v1/events/apply", map[string]any{"state": s, "event": ev}, nil)
	if code != http.StatusOK {
		t.Fatalf("apply: %d %v", code, body)
	}
	if code, _ := do(t, srv, http.MethodPost, "/v1/events/apply", map[string]any{"state": s}, nil); code != http.StatusBadRequest {
		t.Fatalf("missing event status=%d", code)
	}
}

func TestAdvanceEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	s := testState()
	code, body := do(t, srv, http.MethodPost, "/v1/rounds/advance", map[string]any{"state": s, "seed": 3}, nil)
	if code != http.StatusOK {
		t.Fatalf("advance: %d %v", code, body)
	}
	if got := body["state"].(map[string]any)["round"].(float64); got != 1 {
		t.Fatalf("round=%v want 1", got)
	}

	over := s.Clone()
	over.Round = over.MaxRounds
	if code, _ := do(t, srv, http.MethodPost, "/v1/rounds/advance", map[string]any{"state": over}, nil); code != http.StatusUnprocessableEntity {
		t.Fatalf("game over status=%d", code)
	}
	if code, _ := do(t, srv, http.MethodPost, "/v1/rounds/choice", map[string]any{"state": s, "action": "accept_offer"}, nil); code != http.StatusBadRequest {
		t.Fatalf("choice with nothing pending status=%d", code)
	}
}

func TestTurnaroundEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	s := testState()
	id := s.Businesses[0].ID
	code, body := do(t, srv, http.MethodPost, "/v1/turnarounds/eligible", map[string]any{"state": s, "business_id": id}, nil)
	if code != http.StatusOK || body["programs"] == nil {
		t.Fatalf("eligible: %d %v", code, body)
	}
	if code, _ := do(t, srv, http.MethodPost, "/v1/turnarounds/start", map[string]any{"state": s, "business_id": id, "program_id": "nope"}, nil); code != http.StatusNotFound {
		t.Fatalf("unknown program status=%d", code)
	}
}

func TestSubmitScore(t *testing.T) {
	srv, store := newTestServer(t)
	snap := game.ScoreSnapshot{RunID: "r1", Seed: 1, Rounds: 10, MaxRounds: 10, EquityValue: 900, TotalDistributions: 100, Score: 1000}
	headers := map[string]string{"Authorization": "Bearer tok", "Idempotency-Key": "k1"}

	if code, _ := do(t, srv, http.MethodPost, "/v1/scores", snap, nil); code != http.StatusUnauthorized {
		t.Fatalf("anonymous status=%d", code)
	}
	code, body := do(t, srv, http.MethodPost, "/v1/scores", snap, headers)
	if code != http.StatusCreated || body["score"].(float64) != 1000 {
		t.Fatalf("submit: %d %v", code, body)
	}
	if code, _ := do(t, srv, http.MethodPost, "/v1/scores", snap, headers); code != http.StatusConflict {
		t.Fatalf("replayed key status=%d", code)
	}
	bad := snap
	bad.Score = 5
	if code, _ := do(t, srv, http.MethodPost, "/v1/scores", bad, map[string]string{"Authorization": "Bearer tok"}); code != http.StatusBadRequest {
		t.Fatalf("inconsistent score status=%d", code)
	}
	if len(store.scores) != 1 || store.scores[0].UserID != "u-1" {
		t.Fatalf("stored=%+v", store.scores)
	}
}

func TestSubmitScoreRateLimited(t *testing.T) {
	store := &fakeStore{}
	cfg := config.APIConfig{ScoreRateLimit: 0.001, ScoreRateBurst: 1, LeaderboardSize: 50}
	srv := httptest.NewServer(New(cfg, nil, fakeAuth{}, store).Handler())
	defer srv.Close()

	snap := game.ScoreSnapshot{RunID: "r1", Seed: 1, Rounds: 10, MaxRounds: 10, EquityValue: 900, Score: 900}
	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		code, _ := do(t, srv, http.MethodPost, "/v1/scores", snap, map[string]string{
			"Authorization":   "Bearer tok",
			"Idempotency-Key": fmt.Sprintf("k%d", i),
		})
		codes = append(codes, code)
	}
	if codes[0] != http.StatusCreated || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes=%v", codes)
	}
}

func TestLeaderboardAndChallenge(t *testing.T) {
	srv, _ := newTestServer(t)
	code, body := do(t, srv, http.MethodGet, "/v1/leaderboard?limit=1", nil, nil)
	rows := body["leaderboard"].([]any)
	if code != http.StatusOK || len(rows) != 1 || rows[0].(map[string]any)["username"] != "a" {
		t.Fatalf("leaderboard: %d %v", code, body)
	}
	if code, _ := do(t, srv, http.MethodGet, "/v1/leaderboard?limit=abc", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("bad limit status=%d", code)
	}
	if code, _ := do(t, srv, http.MethodGet, "/v1/leaderboard?challenge=99", nil, nil); code != http.StatusNotFound {
		t.Fatalf("unknown challenge status=%d", code)
	}
	code, body = do(t, srv, http.MethodGet, "/v1/challenge", nil, nil)
	if code != http.StatusOK || body["seed"].(float64) != 42 {
		t.Fatalf("challenge: %d %v", code, body)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{header: "", want: ""},
		{header: "Bearer abc", want: "abc"},
		{header: "bearer  abc ", want: "abc"},
		{header: "Basic abc", want: ""},
		{header: "Bearer", want: ""},
	}
	for _, tc := range tests {
		if got := bearerToken(tc.header); got != tc.want {
			t.Fatalf("bearerToken(%q)=%q want %q", tc.header, got, tc.want)
		}
	}
}

func TestLimiterSetSweepsIdleBuckets(t *testing.T) {
	l := newLimiterSet(1, 1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	if !l.allow("a") || l.allow("a") {
		t.Fatalf("burst of one should allow exactly one call")
	}
	now = now.Add(time.Hour)
	l.allow("b")
	if _, ok := l.buckets["a"]; ok {
		t.Fatalf("idle bucket not swept")
	}
}
