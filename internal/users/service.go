package users

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"whatsapp-lite/internal/apperr"
	"whatsapp-lite/internal/models"
	"whatsapp-lite/internal/repositories"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

type PresenceView interface {
	Online(userID int64) bool
}

// Service serves profiles, search and presence lookups.
type Service struct {
	users    repositories.UserRepository
	presence PresenceView
	logger   *zap.Logger
}

func NewService(users repositories.UserRepository, presence PresenceView, logger *zap.Logger) *Service {
	return &Service{users: users, presence: presence, logger: logger}
}

// Profile returns a user as seen by viewerID. Contact details are only shown to their owner.
func (s *Service) Profile(ctx context.Context, viewerID, userID int64) (models.User, error) {
	user, err := s.get(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	user = s.withLivePresence(user)
	if viewerID != userID {
		return user.Public(), nil
	}
	return user, nil
}

// Search pages through users other than viewerID. page starts at 1.
func (s *Service) Search(ctx context.Context, viewerID int64, term string, page, limit int) (models.UserPage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	found, total, err := s.users.Search(ctx, strings.TrimSpace(term), viewerID, limit, (page-1)*limit)
	if err != nil {
		return models.UserPage{}, apperr.Infra("failed to search users", err)
	}
	out := make([]models.User, 0, len(found))
	for _, u := range found {
		out = append(out, s.withLivePresence(u).Public())
	}
	return models.UserPage{
		Users: out,
		Pagination: models.Pagination{
			CurrentPage:  page,
			TotalPages:   (total + limit - 1) / limit,
			TotalItems:   total,
			ItemsPerPage: limit,
		},
	}, nil
}

// UpdateProfile applies the given fields and returns the fresh profile.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, update models.ProfileUpdate) (models.User, error) {
	if update.Username != nil {
		name := strings.TrimSpace(*update.Username)
		if name == "" {
			return models.User{}, apperr.Validation("username cannot be empty")
		}
		update.Username = &name
	}

	err := s.users.UpdateProfile(ctx, userID, update)
	var dup *repositories.DuplicateError
	if errors.As(err, &dup) {
		return models.User{}, apperr.Conflict("Username already taken")
	}
	if err != nil {
		return models.User{}, apperr.Infra("failed to update profile", err)
	}
	s.logger.Info("profile updated", zap.Int64("user_id", userID))
	return s.Profile(ctx, userID, userID)
}

// Presence reports the online state of a user. A live connection on this node wins over the stored flag.
func (s *Service) Presence(ctx context.Context, userID int64) (models.Presence, error) {
	user, err := s.get(ctx, userID)
	if err != nil {
		return models.Presence{}, err
	}
	user = s.withLivePresence(user)
	return models.Presence{UserID: user.ID, IsOnline: user.IsOnline, LastSeen: user.LastSeen}, nil
}

func (s *Service) get(ctx context.Context, userID int64) (models.User, error) {
	if userID <= 0 {
		return models.User{}, apperr.Validation("invalid user id")
	}
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return models.User{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return models.User{}, apperr.Infra("failed to load user", err)
	}
	return user, nil
}

func (s *Service) withLivePresence(u models.User) models.User {
	if s.presence != nil && s.presence.Online(u.ID) {
		u.IsOnline = true
	}
	return u
}
