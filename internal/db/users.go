package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spendtrack/spendtrack/internal/auth"
	"github.com/spendtrack/spendtrack/internal/models"
)

const uniqueViolation = "23505"

// CreateUser inserts a user and populates its generated id. Uniqueness
// violations are translated into the auth package's sentinel errors.
func (p *Postgres) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (username, email, password_hash, created_at)
	          VALUES ($1, $2, $3, $4) RETURNING id`

	err := p.Pool.QueryRow(ctx, query, user.Username, user.Email, user.PasswordHash, user.CreatedAt).
		Scan(&user.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if strings.Contains(pgErr.ConstraintName, "username") {
				return auth.ErrUsernameTaken
			}
			return auth.ErrEmailTaken
		}
		return fmt.Errorf("postgres: create user: %w", err)
	}

	return nil
}

func (p *Postgres) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT id, username, email, password_hash, created_at
	          FROM users WHERE username = $1`

	var user models.User
	err := p.Pool.QueryRow(ctx, query, username).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get user: %w", err)
	}

	return &user, nil
}

// DeleteUser removes a user; the schema's ON DELETE CASCADE takes the owned
// expenses with it.
func (p *Postgres) DeleteUser(ctx context.Context, username string) error {
	tag, err := p.Pool.Exec(ctx, `DELETE FROM users WHERE username = $1`, username)
	if err != nil {
		return fmt.Errorf("postgres: delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
