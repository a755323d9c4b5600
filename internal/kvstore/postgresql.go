package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	apperrors "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
)

// PostgreSQLStore implements Store on a PostgreSQL kv_entries table.
// Rows carry an optional expires_at column; reads filter out expired rows and
// DeleteExpired reclaims them.
type PostgreSQLStore struct {
	db *sql.DB
}

// NewPostgreSQLStore creates a new PostgreSQL-backed store.
func NewPostgreSQLStore(db *sql.DB) *PostgreSQLStore {
	return &PostgreSQLStore{db: db}
}

// Get retrieves the value stored under key, treating expired rows as absent.
func (p *PostgreSQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT v FROM kv_entries
			  WHERE k = $1 AND (expires_at IS NULL OR expires_at > $2)`

	var value []byte
	err := p.db.QueryRowContext(ctx, query, key, time.Now().UTC()).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get kv entry")
	}

	return value, nil
}

// Set stores value under key, replacing any existing row (last write wins).
func (p *PostgreSQLStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	query := `INSERT INTO kv_entries (k, v, expires_at)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v, expires_at = EXCLUDED.expires_at`

	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().UTC().Add(ttl)
		expiresAt = &t
	}

	if _, err := p.db.ExecContext(ctx, query, key, value, expiresAt); err != nil {
		return apperrors.Wrap(err, "failed to set kv entry")
	}
	return nil
}

// Delete removes the entry under key.
func (p *PostgreSQLStore) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM kv_entries WHERE k = $1`

	if _, err := p.db.ExecContext(ctx, query, key); err != nil {
		return apperrors.Wrap(err, "failed to delete kv entry")
	}
	return nil
}

// Keys returns all live keys with the given prefix, sorted ascending.
func (p *PostgreSQLStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	query := `SELECT k FROM kv_entries
			  WHERE k LIKE $1 ESCAPE '\' AND (expires_at IS NULL OR expires_at > $2)
			  ORDER BY k ASC`

	rows, err := p.db.QueryContext(ctx, query, likePattern(prefix), time.Now().UTC())
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list kv keys")
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan kv key")
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate kv keys")
	}

	return keys, nil
}

// DeleteExpired removes rows whose TTL elapsed and returns the count.
func (p *PostgreSQLStore) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM kv_entries WHERE expires_at IS NOT NULL AND expires_at <= $1`

	result, err := p.db.ExecContext(ctx, query, time.Now().UTC())
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired kv entries")
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count deleted kv entries")
	}
	return deleted, nil
}

// Ping verifies backend connectivity.
func (p *PostgreSQLStore) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return apperrors.Wrap(apperrors.ErrBackendUnavailable, err.Error())
	}
	return nil
}
