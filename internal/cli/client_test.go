package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"holdco/internal/auth"
	"holdco/internal/game"
	"holdco/internal/syncq"
)

func TestSubmitScoreSendsHeaders(t *testing.T) {
	var gotAuth, gotIdem string
	var gotSnap game.ScoreSnapshot
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/scores" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotIdem = r.Header.Get("Idempotency-Key")
		_ = json.NewDecoder(r.Body).Decode(&gotSnap)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(game.ScoreResult{ScoreID: 3, Score: gotSnap.Score, Rank: 2})
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/")
	out, err := c.SubmitScore(context.Background(), "tok", game.ScoreSnapshot{RunID: "r", Score: 77}, "run-r")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if gotAuth != "Bearer tok" || gotIdem != "run-r" || gotSnap.RunID != "r" {
		t.Fatalf("auth=%q idem=%q snap=%+v", gotAuth, gotIdem, gotSnap)
	}
	if out.Rank != 2 || out.Score != 77 {
		t.Fatalf("result=%+v", out)
	}
}

func TestLeaderboardQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(map[string]any{"leaderboard": []game.LeaderboardRow{{Rank: 1, Username: "ann", Score: 10}}})
	}))
	defer srv.Close()

	rows, err := NewClient(srv.URL).Leaderboard(context.Background(), 4, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if gotQuery != "challenge=4&limit=10" || len(rows) != 1 || rows[0].Username != "ann" {
		t.Fatalf("query=%q rows=%+v", gotQuery, rows)
	}
}

func TestAPIErrorCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"duplicate"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Challenge(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict {
		t.Fatalf("err=%v", err)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	dir := t.TempDir()
	prev := syncq.Dir
	syncq.Dir = func() (string, error) { return dir, nil }
	t.Cleanup(func() { syncq.Dir = prev })

	if _, err := LoadSession(); err == nil {
		t.Fatalf("expected error before login")
	}
	want := Session{AccessToken: "a", RefreshToken: "r", Email: "e@x.io", UserID: "u", Username: "ann"}
	if err := SaveSession(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := LoadSession()
	if err != nil || got != want {
		t.Fatalf("load=%+v err=%v", got, err)
	}
	if err := ClearSession(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := ClearSession(); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	if _, err := LoadSession(); err == nil {
		t.Fatalf("session still present after clear")
	}
}

func TestActiveSessionRefreshesExpiredToken(t *testing.T) {
	dir := t.TempDir()
	prev := syncq.Dir
	syncq.Dir = func() (string, error) { return dir, nil }
	t.Cleanup(func() { syncq.Dir = prev })

	var refreshed int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if r.URL.Path != "/v1/auth/refresh" || in["refresh_token"] != "r1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid access token"}`))
			return
		}
		refreshed++
		_ = json.NewEncoder(w).Encode(auth.Session{AccessToken: "fresh", RefreshToken: "r2", ExpiresIn: 3600})
	}))
	defer srv.Close()
	c := NewClient(srv.URL)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	live := Session{AccessToken: "a", RefreshToken: "r1", ExpiresAt: now.Add(time.Hour), UserID: "u", Username: "ann"}
	if err := SaveSession(live); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := c.ActiveSession(context.Background(), now)
	if err != nil || got.AccessToken != "a" || refreshed != 0 {
		t.Fatalf("live session: %+v err=%v refreshed=%d", got, err, refreshed)
	}

	got, err = c.ActiveSession(context.Background(), now.Add(59*time.Minute+30*time.Second))
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got.AccessToken != "fresh" || got.RefreshToken != "r2" || got.UserID != "u" || got.Username != "ann" || refreshed != 1 {
		t.Fatalf("renewed session: %+v", got)
	}
	stored, _ := LoadSession()
	if stored.AccessToken != "fresh" {
		t.Fatalf("renewed session not saved: %+v", stored)
	}

	expired := Session{AccessToken: "a", RefreshToken: "gone", ExpiresAt: now}
	if err := SaveSession(expired); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := c.ActiveSession(context.Background(), now); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("rejected refresh err=%v", err)
	}
	if _, err := LoadSession(); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("session should be cleared, err=%v", err)
	}
}

func TestNewSessionExpiry(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewSession(auth.Session{AccessToken: "a", ExpiresIn: 600, User: auth.SupabaseUser{ID: "u", Metadata: auth.UserMetadata{Username: "meta"}}}, "", now)
	if !s.ExpiresAt.Equal(now.Add(10*time.Minute)) || s.Username != "meta" {
		t.Fatalf("session=%+v", s)
	}
	if s.Expired(now) || !s.Expired(now.Add(9*time.Minute)) {
		t.Fatalf("expiry window wrong for %v", s.ExpiresAt)
	}
	if (Session{AccessToken: "a"}).Expired(now.Add(1000 * time.Hour)) {
		t.Fatalf("session without expiry should never expire")
	}
}

func TestValuationsPostsState(t *testing.T) {
	var in struct {
		State      game.GameState `json:"state"`
		BusinessID string         `json:"business_id"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(map[string]any{"valuations": []game.ExitValuation{{ExitPrice: 900}}})
	}))
	defer srv.Close()

	state := game.GameState{Round: 4, Businesses: []game.Business{{ID: "b-1", Revenue: 1000}}}
	vals, err := NewClient(srv.URL).Valuations(context.Background(), state, "b-1")
	if err != nil {
		t.Fatalf("valuations: %v", err)
	}
	if in.BusinessID != "b-1" || in.State.Round != 4 || len(vals) != 1 || vals[0].ExitPrice != 900 {
		t.Fatalf("in=%+v vals=%+v", in, vals)
	}
}
