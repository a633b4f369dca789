package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"whatsapp-lite/internal/models"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("user already exists")
)

const mysqlDuplicateEntry = 1062

// DuplicateError names the unique column a write collided with.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return e.Field + " already exists"
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicateUser
}

const userColumns = `id, username, email, phone, password_hash, profile_picture, bio, is_online, last_seen, created_at, updated_at`

// UserRepository abstracts user persistence.
type UserRepository interface {
	GetByID(ctx context.Context, userID int64) (models.User, error)
	GetByLogin(ctx context.Context, login string) (models.User, error)
	Create(ctx context.Context, u models.NewUser) (models.User, error)
	Search(ctx context.Context, term string, excludeID int64, limit, offset int) ([]models.User, int, error)
	UpdateProfile(ctx context.Context, userID int64, update models.ProfileUpdate) error
	SetOnline(ctx context.Context, userID int64, online bool) error
	MarkOfflineExcept(ctx context.Context, keep []int64, seenBefore time.Time) (int64, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, userID int64) (models.User, error) {
	var u models.User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetByLogin fetches a user by email or username.
func (r *UserRepo) GetByLogin(ctx context.Context, login string) (models.User, error) {
	var u models.User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email = ? OR username = ? LIMIT 1`, login, login)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user by login: %w", err)
	}
	return u, nil
}

// Create inserts a user. Unique violations surface as a *DuplicateError.
func (r *UserRepo) Create(ctx context.Context, nu models.NewUser) (models.User, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO users (username, email, phone, password_hash) VALUES (?, ?, ?, ?)`,
		nu.Username, nu.Email, nu.Phone, nu.PasswordHash)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return models.User{}, &DuplicateError{Field: duplicateField(myErr.Message)}
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, fmt.Errorf("insert user id: %w", err)
	}
	return r.GetByID(ctx, id)
}

func duplicateField(msg string) string {
	if i := strings.LastIndex(msg, "for key"); i >= 0 {
		msg = msg[i:]
	}
	for _, field := range []string{"username", "email", "phone"} {
		if strings.Contains(msg, field) {
			return field
		}
	}
	return "account"
}

// Search lists users other than excludeID whose username or email contains term.
// The second result is the total number of matches.
func (r *UserRepo) Search(ctx context.Context, term string, excludeID int64, limit, offset int) ([]models.User, int, error) {
	where := ` WHERE id <> ?`
	args := []interface{}{excludeID}
	if term != "" {
		pattern := "%" + term + "%"
		where += ` AND (username LIKE ? OR email LIKE ?)`
		args = append(args, pattern, pattern)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	var users []models.User
	query := `SELECT ` + userColumns + ` FROM users` + where + ` ORDER BY username ASC LIMIT ? OFFSET ?`
	if err := r.db.SelectContext(ctx, &users, query, append(args, limit, offset)...); err != nil {
		return nil, 0, fmt.Errorf("search users: %w", err)
	}
	return users, total, nil
}

// UpdateProfile writes only the fields present in update.
func (r *UserRepo) UpdateProfile(ctx context.Context, userID int64, update models.ProfileUpdate) error {
	if update.Empty() {
		return nil
	}
	var (
		fields []string
		args   []interface{}
	)
	if update.Username != nil {
		fields = append(fields, "username = ?")
		args = append(args, *update.Username)
	}
	if update.Bio != nil {
		fields = append(fields, "bio = ?")
		args = append(args, *update.Bio)
	}
	if update.ProfilePicture != nil {
		fields = append(fields, "profile_picture = ?")
		args = append(args, *update.ProfilePicture)
	}
	args = append(args, userID)

	_, err := r.db.ExecContext(ctx, `UPDATE users SET `+strings.Join(fields, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return &DuplicateError{Field: duplicateField(myErr.Message)}
		}
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// SetOnline mirrors a presence transition; last_seen is stamped on both edges.
func (r *UserRepo) SetOnline(ctx context.Context, userID int64, online bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET is_online = ?, last_seen = NOW(3) WHERE id = ?`, online, userID)
	if err != nil {
		return fmt.Errorf("set online: %w", err)
	}
	return nil
}

// MarkOfflineExcept flips online flags to offline for users not listed in keep
// and not seen since seenBefore.
func (r *UserRepo) MarkOfflineExcept(ctx context.Context, keep []int64, seenBefore time.Time) (int64, error) {
	query := `UPDATE users SET is_online = 0, last_seen = NOW(3) WHERE is_online = 1 AND (last_seen IS NULL OR last_seen < ?)`
	args := []interface{}{seenBefore}
	if len(keep) > 0 {
		var err error
		query, args, err = sqlx.In(query+` AND id NOT IN (?)`, seenBefore, keep)
		if err != nil {
			return 0, fmt.Errorf("build sweep query: %w", err)
		}
		query = r.db.Rebind(query)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("sweep presence: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep presence: %w", err)
	}
	return count, nil
}
