package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("admin user not found")

// AdminUser is a row of the admin_users table. PasswordHash is bcrypt.
type AdminUser struct {
	ID           int
	Email        string
	PasswordHash string
	Confirmed    bool
	CreatedAt    time.Time
}

type UsersRepo struct {
	db *pgxpool.Pool
}

func NewUsersRepo(db *pgxpool.Pool) *UsersRepo {
	return &UsersRepo{db: db}
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (*AdminUser, error) {
	var u AdminUser
	err := r.db.QueryRow(
		ctx,
		`SELECT id, email, password_hash, confirmed, created_at
			FROM admin_users
			WHERE lower(email) = $1;`,
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Confirmed, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get admin user: %w", err)
	}
	return &u, nil
}

func (r *UsersRepo) Add(ctx context.Context, email, passwordHash string, confirmed bool) (int, error) {
	var id int
	err := r.db.QueryRow(
		ctx,
		`INSERT INTO admin_users (email, password_hash, confirmed, created_at)
			VALUES ($1, $2, $3, now())
			RETURNING id;`,
		strings.ToLower(strings.TrimSpace(email)), passwordHash, confirmed,
	).Scan(&id)
	if err != nil {
		return -1, fmt.Errorf("add admin user: %w", err)
	}
	return id, nil
}
