package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dtroode/dirsync/internal/model"
)

// CacheRepository keeps cached user records in the user_cache table. Expired
// rows read as misses until PurgeExpired removes them.
type CacheRepository struct {
	db     DB
	prefix string
}

var _ model.KVStore = (*CacheRepository)(nil)

// NewCacheRepository creates a repository. Clear only removes keys that start
// with prefix.
func NewCacheRepository(db DB, prefix string) *CacheRepository {
	return &CacheRepository{
		db:     db,
		prefix: prefix,
	}
}

func (r *CacheRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query := `
		SELECT value
		FROM user_cache
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())`

	var value []byte
	err := r.db.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get cache entry: %w", err)
	}

	return value, true, nil
}

// Set upserts the value. A non-positive ttl stores it without expiry.
func (r *CacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	query := `
		INSERT INTO user_cache (key, value, expires_at, updated_at)
		VALUES ($1, $2, now() + $3::bigint * interval '1 millisecond', now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = EXCLUDED.updated_at`

	var ttlMillis *int64
	if ttl > 0 {
		ms := ttl.Milliseconds()
		ttlMillis = &ms
	}

	if _, err := r.db.Exec(ctx, query, key, value, ttlMillis); err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	return nil
}

func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM user_cache WHERE key = $1`

	if _, err := r.db.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

func (r *CacheRepository) Clear(ctx context.Context) error {
	query := `DELETE FROM user_cache WHERE starts_with(key, $1)`

	if _, err := r.db.Exec(ctx, query, r.prefix); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// PurgeExpired deletes expired rows and returns how many were removed.
func (r *CacheRepository) PurgeExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM user_cache WHERE expires_at IS NOT NULL AND expires_at <= now()`

	tag, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired cache entries: %w", err)
	}
	return tag.RowsAffected(), nil
}
