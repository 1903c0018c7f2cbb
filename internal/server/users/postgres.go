package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vkulagin/authgate/internal/common"
	"github.com/vkulagin/authgate/internal/dbx"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint hit.
// The users table constraints on username and email are the sole enforcement
// point for uniqueness; there is no advisory pre-check.
const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *User) (*User, error) {

	query :=
		`INSERT INTO users (id, username, email, password_hash, salt)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Salt).
		Scan(&user.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const selectColumns = `id, username, email, password_hash, salt, created_at, last_login, failed_attempts, locked_until`

func (r *PostgresRepository) getByUsername(ctx context.Context, username string, forUpdate bool) (*User, error) {
	query := `SELECT ` + selectColumns + ` FROM users WHERE username = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	user := &User{}
	var lastLogin, lockedUntil sql.NullTime

	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Salt,
		&user.CreatedAt, &lastLogin, &user.FailedAttempts, &lockedUntil)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}
	if lockedUntil.Valid {
		user.LockedUntil = &lockedUntil.Time
	}

	return user, nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getByUsername(ctx, username, false)
}

// GetByUsernameForUpdate locks the credential row until the surrounding
// transaction commits.
func (r *PostgresRepository) GetByUsernameForUpdate(ctx context.Context, username string) (*User, error) {
	return r.getByUsername(ctx, username, true)
}

// RecordFailure increments the failure counter atomically and returns the
// new value.
func (r *PostgresRepository) RecordFailure(ctx context.Context, id string) (int, error) {

	query :=
		`UPDATE users
		 SET failed_attempts = failed_attempts + 1
		 WHERE id = $1
		 RETURNING failed_attempts
		 `

	var attempts int
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return attempts, nil
}

// SetLock suspends authentication for the account until the given time.
func (r *PostgresRepository) SetLock(ctx context.Context, id string, until time.Time) error {

	query :=
		`UPDATE users
		 SET locked_until = $2
		 WHERE id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, id, until); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// RecordSuccess resets the failure counter, clears any lock, and stamps the
// login time.
func (r *PostgresRepository) RecordSuccess(ctx context.Context, id string, at time.Time) error {

	query :=
		`UPDATE users
		 SET failed_attempts = 0, locked_until = NULL, last_login = $2
		 WHERE id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
