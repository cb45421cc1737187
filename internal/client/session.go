package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/joao-fontenele/courseshop/internal/domain"
)

// Session is the signed-in user of one client. It keeps the token and the
// user in a LocalStore so a later process can Restore them.
type Session struct {
	client *Client
	store  LocalStore
	logger *slog.Logger

	mu   sync.RWMutex
	user *domain.User
}

func NewSession(c *Client, store LocalStore, logger *slog.Logger) *Session {
	return &Session{client: c, store: store, logger: logger}
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

func (s *Session) Login(ctx context.Context, email, password string) (*domain.User, error) {
	if email == "" || password == "" {
		return nil, domain.Invalid("email and password are required")
	}

	var res loginResponse
	if _, err := s.client.call(ctx, http.MethodPost, "/api/auth/login", nil, map[string]string{
		"email": email, "password": password,
	}, &res); err != nil {
		return nil, err
	}
	if res.Token == "" || res.User == nil {
		return nil, fmt.Errorf("%w: login response without token", ErrRequestFailed)
	}

	s.client.SetToken(res.Token)
	if err := s.store.Save(ctx, KeyToken, []byte(res.Token)); err != nil {
		return nil, fmt.Errorf("save token: %w", err)
	}
	s.setUser(ctx, res.User)

	return res.User, nil
}

// Register validates the form locally before calling the API. It does not
// sign the new user in.
func (s *Session) Register(ctx context.Context, reg domain.Registration) (*domain.User, error) {
	reg = reg.Normalize()
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	var u domain.User
	if _, err := s.client.call(ctx, http.MethodPost, "/api/auth/register", nil, reg, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Logout always forgets the local session. The server call revokes the
// token; its error is returned after the local state is gone.
func (s *Session) Logout(ctx context.Context) error {
	var serverErr error
	if s.client.Token() != "" {
		_, serverErr = s.client.call(ctx, http.MethodPost, "/api/auth/logout", nil, nil, nil)
	}

	s.client.SetToken("")
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()

	return errors.Join(serverErr, s.store.Delete(ctx, KeyToken), s.store.Delete(ctx, KeyUser))
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (s *Session) CurrentUser() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Restore resumes a stored session. A stored token is checked against the
// API; without a valid token the legacy "user" entry is used as is. It
// returns nil when nobody is signed in.
func (s *Session) Restore(ctx context.Context) (*domain.User, error) {
	token, err := s.store.Load(ctx, KeyToken)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}

	if len(token) > 0 {
		s.client.SetToken(string(token))

		var u domain.User
		_, err := s.client.call(ctx, http.MethodGet, "/api/auth/me", nil, nil, &u)
		switch {
		case err == nil:
			s.setUser(ctx, &u)
			return s.CurrentUser(), nil
		case IsStatus(err, http.StatusUnauthorized):
			s.logger.Info("stored token rejected, dropping it")
			s.client.SetToken("")
			if err := s.store.Delete(ctx, KeyToken); err != nil {
				return nil, fmt.Errorf("delete token: %w", err)
			}
		default:
			return nil, err
		}
	}

	legacy, err := s.store.Load(ctx, KeyUser)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if len(legacy) == 0 {
		return nil, nil
	}

	var u domain.User
	if err := json.Unmarshal(legacy, &u); err != nil || u.ID == "" {
		s.logger.Warn("ignoring unreadable stored user")
		return nil, nil
	}

	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
	return s.CurrentUser(), nil
}

func (s *Session) setUser(ctx context.Context, u *domain.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()

	data, err := json.Marshal(u)
	if err != nil {
		s.logger.Error("failed to encode user", "error", err)
		return
	}
	if err := s.store.Save(ctx, KeyUser, data); err != nil {
		s.logger.Error("failed to save user", "error", err)
	}
}
