package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/arborlore/arbor/internal/cache"
)

// CacheGet returns the cached value for key from the url_cache table.
func (s *SQLiteStorage) CacheGet(ctx context.Context, key string) (string, bool, error) {
	if err := validateContext(ctx); err != nil {
		return "", false, err
	}
	if err := validateString(key, "key"); err != nil {
		return "", false, err
	}
	return s.cacheGetTx(ctx, s.db, key)
}

func (s *SQLiteStorage) cacheGetTx(ctx context.Context, q queryable, key string) (string, bool, error) {
	var value string
	err := q.QueryRowContext(ctx, "SELECT value FROM url_cache WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get cache entry: %w", err)
	}
	return value, true, nil
}

// CacheSet stores value under key in the url_cache table.
func (s *SQLiteStorage) CacheSet(ctx context.Context, key, value string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(key, "key"); err != nil {
		return err
	}
	return s.cacheSetTx(ctx, s.db, key, value)
}

func (s *SQLiteStorage) cacheSetTx(ctx context.Context, q queryable, key, value string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO url_cache (key, value, created_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, created_at = excluded.created_at`,
		key, value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	return nil
}

// CacheDelete removes key from the url_cache table.
func (s *SQLiteStorage) CacheDelete(ctx context.Context, key string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(key, "key"); err != nil {
		return err
	}
	return s.cacheDeleteTx(ctx, s.db, key)
}

func (s *SQLiteStorage) cacheDeleteTx(ctx context.Context, q queryable, key string) error {
	_, err := q.ExecContext(ctx, "DELETE FROM url_cache WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// URLCache adapts the url_cache table to the cache.Cache interface.
func (s *SQLiteStorage) URLCache() cache.Cache {
	return &urlCache{storage: s}
}

type urlCache struct {
	storage *SQLiteStorage
}

func (c *urlCache) Get(ctx context.Context, key string) (string, bool, error) {
	return c.storage.CacheGet(ctx, key)
}

func (c *urlCache) Set(ctx context.Context, key, value string) error {
	return c.storage.CacheSet(ctx, key, value)
}

func (c *urlCache) Delete(ctx context.Context, key string) error {
	return c.storage.CacheDelete(ctx, key)
}
