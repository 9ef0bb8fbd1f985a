package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"holdco/internal/auth"
	"holdco/internal/syncq"
)

// ErrNotLoggedIn is returned by LoadSession when no usable session is stored.
var ErrNotLoggedIn = errors.New("not logged in, run `holdco login`")

// refreshSkew treats a token as expired slightly early so a request started just
// before expiry is not rejected mid-flight.
const refreshSkew = time.Minute

type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	Email        string    `json:"email"`
	UserID       string    `json:"user_id"`
	Username     string    `json:"username,omitempty"`
}

// NewSession converts a GoTrue session. username wins over the stored metadata when set.
func NewSession(s auth.Session, username string, now time.Time) Session {
	out := Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		Email:        s.User.Email,
		UserID:       s.User.ID,
		Username:     strings.TrimSpace(username),
	}
	if out.Username == "" {
		out.Username = s.User.Metadata.Username
	}
	if s.ExpiresIn > 0 {
		out.ExpiresAt = now.Add(time.Duration(s.ExpiresIn) * time.Second).UTC()
	}
	return out
}

// Expired reports whether the access token should be refreshed before use. Sessions
// without a recorded expiry are never considered expired.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Add(refreshSkew).Before(s.ExpiresAt)
}

// Renew applies a refreshed token pair, keeping identity fields the refresh response
// may omit.
func (s Session) Renew(fresh auth.Session, now time.Time) Session {
	next := NewSession(fresh, s.Username, now)
	if next.Email == "" {
		next.Email = s.Email
	}
	if next.UserID == "" {
		next.UserID = s.UserID
	}
	if next.RefreshToken == "" {
		next.RefreshToken = s.RefreshToken
	}
	return next
}

func sessionPath() (string, error) {
	dir, err := syncq.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.json"), nil
}

func SaveSession(s Session) error {
	path, err := sessionPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	body, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, body, 0o600)
}

func LoadSession() (Session, error) {
	path, err := sessionPath()
	if err != nil {
		return Session{}, err
	}
	body, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, ErrNotLoggedIn
	}
	if err != nil {
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal(body, &s); err != nil {
		return Session{}, fmt.Errorf("read session %s: %w", path, err)
	}
	if strings.TrimSpace(s.AccessToken) == "" {
		return Session{}, ErrNotLoggedIn
	}
	return s, nil
}

func ClearSession() error {
	path, err := sessionPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
