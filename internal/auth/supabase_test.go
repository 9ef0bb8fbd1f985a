package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSignUpSendsUsernameMetadata(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/signup" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("apikey") != "anon" {
			t.Errorf("missing apikey header")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"access_token":"tok","user":{"id":"u1","email":"a@b.co"}}`))
	}))
	defer srv.Close()

	c := NewSupabaseClient(srv.URL+"/", "anon")
	s, err := c.SignUp(context.Background(), "a@b.co", "pw", "dealmaker")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.AccessToken != "tok" || s.User.ID != "u1" {
		t.Fatalf("unexpected session: %+v", s)
	}
	data, _ := got["data"].(map[string]any)
	if data["username"] != "dealmaker" {
		t.Fatalf("username metadata not sent: %+v", got)
	}
}

func TestVerifyAccessTokenRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewSupabaseClient(srv.URL, "anon").VerifyAccessToken(context.Background(), "bad")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("got %v want ErrInvalidToken", err)
	}
}

func TestVerifyAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"u1","email":"a@b.co","user_metadata":{"username":"dealmaker"}}`))
	}))
	defer srv.Close()

	u, err := NewSupabaseClient(srv.URL, "anon").VerifyAccessToken(context.Background(), "good")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != "u1" || u.Metadata.Username != "dealmaker" {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestLoginErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("grant_type") != "password" {
			t.Errorf("unexpected grant type %q", r.URL.RawQuery)
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	_, err := NewSupabaseClient(srv.URL, "anon").Login(context.Background(), "a@b.co", "nope")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("got %v want ErrInvalidCredentials", err)
	}
}

func TestRefresh(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantTok string
	}{
		{"ok", http.StatusOK, `{"access_token":"new","refresh_token":"r2","expires_in":3600}`, nil, "new"},
		{"revoked", http.StatusBadRequest, `{"error_code":"refresh_token_not_found","msg":"Invalid Refresh Token"}`, ErrInvalidToken, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("grant_type") != "refresh_token" {
					t.Errorf("unexpected grant type %q", r.URL.RawQuery)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			s, err := NewSupabaseClient(srv.URL, "anon").Refresh(context.Background(), "r1")
			if !errors.Is(err, tt.wantErr) || s.AccessToken != tt.wantTok {
				t.Fatalf("session=%+v err=%v", s, err)
			}
		})
	}
}

func TestErrorShapes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error_code":"weak_password","msg":"Password should be at least 6 characters"}`))
	}))
	defer srv.Close()

	_, err := NewSupabaseClient(srv.URL, "anon").SignUp(context.Background(), "a@b.co", "x", "")
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("got %v want *Error", err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity || apiErr.Code != "weak_password" || apiErr.Message == "" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}
