// Package auth manages the viewer's token session: login, disk
// persistence, and restore-with-validation on startup.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/margin-sh/margin/internal/api"
)

// ErrNotLoggedIn is returned by actions that need a live session.
var ErrNotLoggedIn = errors.New("not logged in")

// Session holds ResearchHub authentication state.
type Session struct {
	client *api.Client
	path   string

	Viewer   api.Viewer
	LoggedIn bool

	token string
}

// NewSession creates a session persisted at path.
func NewSession(client *api.Client, path string) *Session {
	return &Session{client: client, path: path}
}

// Login authenticates with email and password and installs the token.
func (s *Session) Login(ctx context.Context, email, password string) error {
	token, err := s.client.Login(ctx, email, password)
	if err != nil {
		return err
	}
	s.client.SetToken(token)

	viewer, err := s.client.FetchMe(ctx)
	if err != nil {
		s.client.SetToken("")
		return fmt.Errorf("login succeeded but profile fetch failed: %w", err)
	}

	s.token = token
	s.Viewer = *viewer
	s.Viewer.Email = email
	s.LoggedIn = true
	return nil
}

// savedSession is the JSON structure written to disk.
type savedSession struct {
	Token   string    `json:"token"`
	Email   string    `json:"email"`
	UserID  int64     `json:"user_id"`
	Name    string    `json:"name"`
	SavedAt time.Time `json:"saved_at"`
}

// Save persists the session token to disk.
func (s *Session) Save() error {
	if !s.LoggedIn {
		return nil
	}
	data, err := json.MarshalIndent(savedSession{
		Token:   s.token,
		Email:   s.Viewer.Email,
		UserID:  s.Viewer.ID,
		Name:    s.Viewer.Author.Name,
		SavedAt: time.Now(),
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Load restores a session from disk and validates it is still good.
// Returns true if the session was restored successfully.
func (s *Session) Load(ctx context.Context) bool {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return false
	}

	var saved savedSession
	if err := json.Unmarshal(data, &saved); err != nil {
		return false
	}
	if saved.Token == "" {
		return false
	}

	s.client.SetToken(saved.Token)
	viewer, err := s.client.FetchMe(ctx)
	if err != nil {
		// Stale session, clear it.
		s.client.SetToken("")
		os.Remove(s.path)
		return false
	}

	s.token = saved.Token
	s.Viewer = *viewer
	s.Viewer.Email = saved.Email
	s.LoggedIn = true
	return true
}

// Logout clears the token and removes the saved session.
func (s *Session) Logout() {
	s.token = ""
	s.Viewer = api.Viewer{}
	s.LoggedIn = false
	s.client.SetToken("")
	os.Remove(s.path)
}
