package auth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"whatsapp-lite/internal/apperr"
	"whatsapp-lite/internal/models"
	"whatsapp-lite/internal/repositories"
)

// RegisterInput is a sign-up request that passed boundary validation.
type RegisterInput struct {
	Username string
	Email    string
	Phone    string
	Password string
}

// Session is what register and login hand back to the client.
type Session struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// Service implements registration, login and logout.
type Service struct {
	users  repositories.UserRepository
	tokens *TokenManager
	logger *zap.Logger
}

func NewService(users repositories.UserRepository, tokens *TokenManager, logger *zap.Logger) *Service {
	return &Service{users: users, tokens: tokens, logger: logger}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	hash, err := HashPassword(in.Password)
	if err != nil {
		return Session{}, apperr.Validation("password is required")
	}

	user, err := s.users.Create(ctx, models.NewUser{
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
	})
	if err != nil {
		var dup *repositories.DuplicateError
		if errors.As(err, &dup) {
			return Session{}, apperr.Conflict(capitalize(dup.Error()))
		}
		return Session{}, apperr.Infra("registration failed", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return Session{}, apperr.Infra("registration failed", err)
	}
	s.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return Session{User: user, Token: token}, nil
}

// Login accepts an email or username. Unknown accounts and wrong passwords fail the same way.
func (s *Service) Login(ctx context.Context, login, password string) (Session, error) {
	user, err := s.users.GetByLogin(ctx, strings.TrimSpace(login))
	if errors.Is(err, repositories.ErrUserNotFound) {
		return Session{}, apperr.Authentication("invalid credentials")
	}
	if err != nil {
		return Session{}, apperr.Infra("login failed", err)
	}
	if err := CheckPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return Session{}, apperr.Authentication("invalid credentials")
		}
		return Session{}, apperr.Infra("login failed", err)
	}

	if err := s.users.SetOnline(ctx, user.ID, true); err != nil {
		return Session{}, apperr.Infra("login failed", err)
	}
	user.IsOnline = true

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return Session{}, apperr.Infra("login failed", err)
	}
	s.logger.Info("user logged in", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return Session{User: user, Token: token}, nil
}

// Logout clears the durable online flag. Live sockets keep their own presence.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	if err := s.users.SetOnline(ctx, userID, false); err != nil {
		return apperr.Infra("logout failed", err)
	}
	s.logger.Info("user logged out", zap.Int64("user_id", userID))
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
