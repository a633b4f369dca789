package auth

import (
	"context"
	"errors"
	"strings"

	"whatsapp-lite/internal/apperr"
	"whatsapp-lite/internal/models"
	"whatsapp-lite/internal/repositories"
)

// UserLookup is the slice of the user store the authenticator needs.
type UserLookup interface {
	GetByID(ctx context.Context, userID int64) (models.User, error)
}

// Authenticator resolves a bearer credential to a live user.
type Authenticator struct {
	tokens *TokenManager
	users  UserLookup
}

func NewAuthenticator(tokens *TokenManager, users UserLookup) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Authenticate fails with an authentication error for a missing, malformed or
// expired token, and with a not-found error when the account no longer exists.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.User{}, apperr.Authentication("access token required")
	}
	claims, err := a.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return models.User{}, apperr.Authentication("token expired")
		}
		return models.User{}, apperr.Authentication("invalid token")
	}

	user, err := a.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return models.User{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return models.User{}, apperr.Infra("load user", err)
	}
	return user, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
