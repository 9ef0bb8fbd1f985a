package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"holdco/internal/auth"
	"holdco/internal/game"
)

// APIError is a response the server answered with a non-2xx status. Transport
// failures are returned as-is so callers can tell "offline" from "rejected".
type APIError struct {
	Status  int
	Body    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api status %d: %s", e.Status, e.Body)
}

func newAPIError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	out := &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		out.Message = payload.Error
	}
	return out
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Signup(ctx context.Context, email, password, username string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/signup", "", map[string]any{
		"email":    email,
		"password": password,
		"username": username,
	}, &out, "")
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out, "")
	return out, err
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/refresh", "", map[string]any{
		"refresh_token": refreshToken,
	}, &out, "")
	return out, err
}

// ActiveSession loads the stored session and refreshes it first when the access token
// is about to expire. A refresh the server rejects clears the stored session.
func (c *Client) ActiveSession(ctx context.Context, now time.Time) (Session, error) {
	sess, err := LoadSession()
	if err != nil || !sess.Expired(now) {
		return sess, err
	}
	if sess.RefreshToken == "" {
		return Session{}, ErrNotLoggedIn
	}
	fresh, err := c.Refresh(ctx, sess.RefreshToken)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		_ = ClearSession()
		return Session{}, ErrNotLoggedIn
	}
	if err != nil {
		return Session{}, fmt.Errorf("refresh session: %w", err)
	}
	sess = sess.Renew(fresh, now)
	if err := SaveSession(sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (c *Client) SubmitScore(ctx context.Context, accessToken string, snap game.ScoreSnapshot, idem string) (game.ScoreResult, error) {
	var out game.ScoreResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/scores", accessToken, snap, &out, idem)
	return out, err
}

// Leaderboard returns the global board, or one challenge's board when challengeID > 0.
func (c *Client) Leaderboard(ctx context.Context, challengeID int64, limit int) ([]game.LeaderboardRow, error) {
	q := url.Values{}
	if challengeID > 0 {
		q.Set("challenge", strconv.FormatInt(challengeID, 10))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/v1/leaderboard"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out struct {
		Leaderboard []game.LeaderboardRow `json:"leaderboard"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, path, "", nil, &out, "")
	return out.Leaderboard, err
}

func (c *Client) Challenge(ctx context.Context) (game.Challenge, error) {
	var out game.Challenge
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/challenge", "", nil, &out, "")
	return out, err
}

func (c *Client) Valuations(ctx context.Context, state game.GameState, businessID string) ([]game.ExitValuation, error) {
	var out struct {
		Valuations []game.ExitValuation `json:"valuations"`
	}
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/valuations", "", map[string]any{
		"state":       state,
		"business_id": businessID,
	}, &out, "")
	return out.Valuations, err
}

func (c *Client) Do(ctx context.Context, method, path, accessToken string, body map[string]any, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, method, path, accessToken, body, &out, idem)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path, accessToken string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return newAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
