package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/joao-fontenele/courseshop/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type Session struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type Service struct {
	users   UserStore
	tokens  *TokenIssuer
	revoker Revoker
	cost    int
	logger  *slog.Logger
}

func NewService(users UserStore, tokens *TokenIssuer, revoker Revoker, logger *slog.Logger) *Service {
	return &Service{
		users:   users,
		tokens:  tokens,
		revoker: revoker,
		cost:    bcrypt.DefaultCost,
		logger:  logger,
	}
}

func (s *Service) Register(ctx context.Context, reg domain.Registration) (*domain.User, error) {
	reg = reg.Normalize()
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &domain.User{
		Email:        reg.Email,
		Name:         reg.Name,
		Phone:        reg.Phone,
		Role:         domain.RoleUser,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", u.ID)
	return u, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, _, err := s.tokens.Issue(*u)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", "user_id", u.ID)
	return &Session{Token: token, User: u}, nil
}

// Logout revokes the caller's token until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, id Identity) error {
	return s.revoker.Revoke(ctx, id.TokenID, id.ExpiresAt)
}

func (s *Service) Me(ctx context.Context, id Identity) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}
