package repositories

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-lite/internal/models"
)

var userCols = []string{"id", "username", "email", "phone", "password_hash", "profile_picture", "bio", "is_online", "last_seen", "created_at", "updated_at"}

func TestGetByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = ?`)).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := repo.GetByID(context.Background(), 9)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetByLoginMatchesEmailOrUsername(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE email = ? OR username = ?`)).
		WithArgs("alice", "alice").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(1, "alice", "a@example.com", "555", "hash", nil, nil, false, nil, ts(0), ts(0)))

	u, err := repo.GetByLogin(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, "hash", u.PasswordHash)
}

func TestCreateReportsDuplicateField(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs("alice", "a@example.com", "555", "hash").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@example.com' for key 'users.email'"})

	_, err := repo.Create(context.Background(), models.NewUser{Username: "alice", Email: "a@example.com", Phone: "555", PasswordHash: "hash"})
	require.ErrorIs(t, err, ErrDuplicateUser)
	assert.Contains(t, err.Error(), "email")
}

func TestSearchCountsAndPages(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users WHERE id <> ? AND (username LIKE ? OR email LIKE ?)`)).
		WithArgs(int64(1), "%bo%", "%bo%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY username ASC LIMIT ? OFFSET ?`)).
		WithArgs(int64(1), "%bo%", "%bo%", 10, 10).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(2, "bob", "b@example.com", "556", "h", nil, nil, true, nil, ts(0), ts(0)))

	users, total, err := repo.Search(context.Background(), "bo", 1, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Username)
}

func TestUpdateProfileWritesOnlyGivenFields(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)
	bio := "hello"

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET bio = ? WHERE id = ?`)).
		WithArgs("hello", int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateProfile(context.Background(), 4, models.ProfileUpdate{Bio: &bio}))
	require.NoError(t, repo.UpdateProfile(context.Background(), 4, models.ProfileUpdate{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetOnline(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET is_online = ?, last_seen = NOW(3) WHERE id = ?`)).
		WithArgs(true, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetOnline(context.Background(), 3, true))
}

func TestMarkOfflineExceptExpandsKeepList(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)
	cutoff := ts(0)

	mock.ExpectExec(regexp.QuoteMeta(`WHERE is_online = 1 AND (last_seen IS NULL OR last_seen < ?) AND id NOT IN (?, ?)`)).
		WithArgs(cutoff, int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	count, err := repo.MarkOfflineExcept(context.Background(), []int64{1, 2}, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	mock.ExpectExec(`last_seen < \?\)$`).WithArgs(cutoff).WillReturnResult(sqlmock.NewResult(0, 0))
	_, err = repo.MarkOfflineExcept(context.Background(), nil, cutoff)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
