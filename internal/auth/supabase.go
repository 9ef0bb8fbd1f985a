// Package auth talks to the Supabase GoTrue endpoints that back holdco accounts.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrInvalidToken is returned when Supabase rejects an access or refresh token.
	ErrInvalidToken = errors.New("invalid access token")
	// ErrInvalidCredentials is returned for a wrong email/password pair.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Error is a non-2xx GoTrue response.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase %d: %s", e.Status, e.Message)
}

type SupabaseClient struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// Session is the token pair GoTrue hands out on signup, login and refresh.
type Session struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"`
	TokenType    string       `json:"token_type"`
	User         SupabaseUser `json:"user"`
}

type SupabaseUser struct {
	ID       string       `json:"id"`
	Email    string       `json:"email"`
	Metadata UserMetadata `json:"user_metadata"`
}

// UserMetadata carries the leaderboard name so it survives a fresh login.
type UserMetadata struct {
	Username string `json:"username,omitempty"`
}

func NewSupabaseClient(baseURL, anonKey string) *SupabaseClient {
	return &SupabaseClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

func (c *SupabaseClient) SignUp(ctx context.Context, email, password, username string) (Session, error) {
	in := struct {
		Email    string        `json:"email"`
		Password string        `json:"password"`
		Data     *UserMetadata `json:"data,omitempty"`
	}{Email: email, Password: password}
	if username = strings.TrimSpace(username); username != "" {
		in.Data = &UserMetadata{Username: username}
	}
	var out Session
	if err := c.call(ctx, http.MethodPost, "/auth/v1/signup", "", in, &out); err != nil {
		return Session{}, fmt.Errorf("signup %s: %w", email, err)
	}
	return out, nil
}

func (c *SupabaseClient) Login(ctx context.Context, email, password string) (Session, error) {
	var out Session
	err := c.call(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "",
		map[string]string{"email": email, "password": password}, &out)
	var apiErr *Error
	if errors.As(err, &apiErr) && (apiErr.Status == http.StatusBadRequest || apiErr.Code == "invalid_grant") {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("login %s: %w", email, err)
	}
	return out, nil
}

// Refresh trades a refresh token for a new session. A rejected refresh token maps to
// ErrInvalidToken so callers know to ask for a fresh login.
func (c *SupabaseClient) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	var out Session
	err := c.call(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "",
		map[string]string{"refresh_token": refreshToken}, &out)
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
		return Session{}, ErrInvalidToken
	}
	return out, err
}

func (c *SupabaseClient) VerifyAccessToken(ctx context.Context, accessToken string) (SupabaseUser, error) {
	var user SupabaseUser
	err := c.call(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, &user)
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden):
		return SupabaseUser{}, ErrInvalidToken
	case err != nil:
		return SupabaseUser{}, fmt.Errorf("verify token: %w", err)
	case user.ID == "":
		return SupabaseUser{}, ErrInvalidToken
	}
	return user, nil
}

func (c *SupabaseClient) call(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.anonKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("supabase request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError reads whichever of GoTrue's error shapes the response uses.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	var payload struct {
		Error            string `json:"error"`
		ErrorCode        string `json:"error_code"`
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
	}
	_ = json.Unmarshal(raw, &payload)

	out := &Error{Status: resp.StatusCode, Code: payload.ErrorCode}
	if out.Code == "" {
		out.Code = payload.Error
	}
	for _, m := range []string{payload.ErrorDescription, payload.Msg, payload.Message} {
		if m != "" {
			out.Message = m
			break
		}
	}
	if out.Message == "" {
		out.Message = strings.TrimSpace(string(raw))
	}
	return out
}
