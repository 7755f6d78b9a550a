package auth

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// User is a registered account (doctor or patient).
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}

// ErrNotFound is returned when no user matches the lookup.
var ErrNotFound = eris.New("auth: user not found")

// Repository stores user accounts.
type Repository interface {
	Create(ctx context.Context, u *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
}

type postgresRepo struct {
	db *sql.DB
}

// NewRepository creates a postgres-backed user repository.
func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	query := `INSERT INTO users (id, email, hashed_password, role, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query,
		u.ID, strings.ToLower(strings.TrimSpace(u.Email)), u.HashedPassword, u.Role, u.CreatedAt)
	if err != nil {
		return eris.Wrap(err, "auth: insert user")
	}
	return nil
}

func (r *postgresRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT id, email, hashed_password, role, created_at FROM users WHERE email = $1`
	row := r.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email)))

	var u User
	err := row.Scan(&u.ID, &u.Email, &u.HashedPassword, &u.Role, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "auth: find user by email")
	}
	return &u, nil
}
