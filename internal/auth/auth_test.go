package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"whatsapp-lite/internal/apperr"
	"whatsapp-lite/internal/mocks"
	"whatsapp-lite/internal/models"
	"whatsapp-lite/internal/repositories"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	token, err := tm.Issue(42)
	require.NoError(t, err)

	claims, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "access", claims.Type)
}

func TestTokenRejectsTamperingAndExpiry(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	token, err := tm.Issue(1)
	require.NoError(t, err)

	_, err = NewTokenManager("other", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokenManager("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Issue(1)
	require.NoError(t, err)
	_, err = tm.Parse(old)
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = tm.Parse("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NoError(t, CheckPassword("hunter22", hash))
	assert.ErrorIs(t, CheckPassword("wrong", hash), ErrInvalidCredentials)

	_, err = HashPassword("")
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Empty(t, BearerToken("Basic abc"))
	assert.Empty(t, BearerToken(""))
}

func TestAuthenticate(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	users := &mocks.UserRepositoryMock{}
	authn := NewAuthenticator(tm, users)

	users.On("GetByID", mock.Anything, int64(1)).Return(models.User{ID: 1, Username: "alice"}, nil)
	users.On("GetByID", mock.Anything, int64(2)).Return(nil, repositories.ErrUserNotFound)
	users.On("GetByID", mock.Anything, int64(3)).Return(nil, errors.New("db down"))

	good, _ := tm.Issue(1)
	user, err := authn.Authenticate(context.Background(), good)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	gone, _ := tm.Issue(2)
	_, err = authn.Authenticate(context.Background(), gone)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	broken, _ := tm.Issue(3)
	_, err = authn.Authenticate(context.Background(), broken)
	assert.True(t, apperr.Is(err, apperr.KindInfrastructure))

	_, err = authn.Authenticate(context.Background(), "")
	assert.True(t, apperr.Is(err, apperr.KindAuthentication))

	_, err = authn.Authenticate(context.Background(), "garbage")
	assert.True(t, apperr.Is(err, apperr.KindAuthentication))
}

func TestRegisterMapsDuplicates(t *testing.T) {
	users := &mocks.UserRepositoryMock{}
	svc := NewService(users, NewTokenManager("secret", time.Hour), zap.NewNop())

	users.On("Create", mock.Anything, mock.MatchedBy(func(nu models.NewUser) bool { return nu.Username == "taken" })).
		Return(nil, &repositories.DuplicateError{Field: "username"})
	users.On("Create", mock.Anything, mock.MatchedBy(func(nu models.NewUser) bool {
		return nu.Username == "alice" && nu.Email == "a@example.com" && CheckPassword("hunter22", nu.PasswordHash) == nil
	})).Return(models.User{ID: 5, Username: "alice"}, nil)

	_, err := svc.Register(context.Background(), RegisterInput{Username: "taken", Email: "t@example.com", Phone: "+15550001", Password: "hunter22"})
	require.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, "Username already exists", apperr.PublicMessage(err, ""))

	session, err := svc.Register(context.Background(), RegisterInput{Username: "alice", Email: " A@example.com", Phone: "+15550002", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), session.User.ID)
	assert.NotEmpty(t, session.Token)
}

func TestLoginMarksOnline(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)

	users := &mocks.UserRepositoryMock{}
	svc := NewService(users, NewTokenManager("secret", time.Hour), zap.NewNop())
	users.On("GetByLogin", mock.Anything, "alice").Return(models.User{ID: 1, Username: "alice", PasswordHash: hash}, nil)
	users.On("GetByLogin", mock.Anything, "ghost").Return(nil, repositories.ErrUserNotFound)
	users.On("SetOnline", mock.Anything, int64(1), true).Return(nil).Once()

	session, err := svc.Login(context.Background(), "alice", "hunter22")
	require.NoError(t, err)
	assert.True(t, session.User.IsOnline)
	assert.NotEmpty(t, session.Token)

	_, err = svc.Login(context.Background(), "alice", "nope")
	assert.True(t, apperr.Is(err, apperr.KindAuthentication))

	_, err = svc.Login(context.Background(), "ghost", "hunter22")
	assert.True(t, apperr.Is(err, apperr.KindAuthentication))
	users.AssertExpectations(t)
}

func TestLogout(t *testing.T) {
	users := &mocks.UserRepositoryMock{}
	svc := NewService(users, NewTokenManager("secret", time.Hour), zap.NewNop())
	users.On("SetOnline", mock.Anything, int64(1), false).Return(nil)

	require.NoError(t, svc.Logout(context.Background(), 1))
	users.AssertExpectations(t)
}
