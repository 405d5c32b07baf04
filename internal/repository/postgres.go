package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresTokenRepository stores the token as one row of the client_state
// table (see database.Schema). It uses pgx directly, no ORM.
type PostgresTokenRepository struct {
	db  *pgxpool.Pool
	key string
}

// NewPostgresTokenRepository stores the token under key (DefaultKey when empty).
func NewPostgresTokenRepository(db *pgxpool.Pool, key string) *PostgresTokenRepository {
	if key == "" {
		key = DefaultKey
	}
	return &PostgresTokenRepository{db: db, key: key}
}

func (r *PostgresTokenRepository) Load(ctx context.Context) (string, error) {
	var token string
	err := r.db.QueryRow(ctx,
		`SELECT value FROM client_state WHERE key = $1`,
		r.key,
	).Scan(&token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("load token: %w", err)
	}
	return token, nil
}

// Save upserts the row so the key stays single-valued.
func (r *PostgresTokenRepository) Save(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("save token: empty token")
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO client_state (key, value, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		r.key, token,
	)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (r *PostgresTokenRepository) Clear(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM client_state WHERE key = $1`, r.key); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}
