// Package cache is the local durable store of the client: the latest
// snapshot of each kind plus a dirty bit, in an embedded SQLite file.
//
// Cache failures must never block editing, so every operation logs and
// swallows its error. Only Open reports failure.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/cloudesk/internal/logger"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	is_dirty   INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL
)`

// Record is one cached snapshot.
type Record struct {
	Key       string
	Value     []byte
	IsDirty   bool
	UpdatedAt time.Time
}

type Cache struct {
	db  *sql.DB
	log logger.Logger
	now func() time.Time

	// serializes writes so operations on the same key apply in call order
	mu sync.Mutex
}

// Open opens (or creates) the cache database at path.
func Open(path string, log logger.Logger) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	return &Cache{db: db, log: log.Named("cache"), now: time.Now}, nil
}

// Set stores value under key with the given dirty bit.
func (c *Cache) Set(ctx context.Context, key string, value []byte, dirty bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO records (key, value, is_dirty, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, is_dirty = excluded.is_dirty, updated_at = excluded.updated_at`,
		key, value, dirty, c.now().UnixMilli())
	if err != nil {
		c.log.Error("cache set failed", logger.String("key", key), logger.Error(err))
	}
}

// Get returns the cached value of key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	rec, ok := c.GetRecord(ctx, key)
	if !ok {
		return nil, false
	}
	return rec.Value, true
}

func (c *Cache) GetRecord(ctx context.Context, key string) (Record, bool) {
	var (
		rec   = Record{Key: key}
		dirty bool
		ts    int64
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT value, is_dirty, updated_at FROM records WHERE key = ?`, key).
		Scan(&rec.Value, &dirty, &ts)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			c.log.Error("cache get failed", logger.String("key", key), logger.Error(err))
		}
		return Record{}, false
	}
	rec.IsDirty = dirty
	rec.UpdatedAt = time.UnixMilli(ts)
	return rec, true
}

// MarkClean clears the dirty bit of key. A missing key is left missing.
func (c *Cache) MarkClean(ctx context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.ExecContext(ctx, `UPDATE records SET is_dirty = 0 WHERE key = ?`, key); err != nil {
		c.log.Error("cache mark clean failed", logger.String("key", key), logger.Error(err))
	}
}

// HasDirtyData reports whether any record is dirty.
func (c *Cache) HasDirtyData(ctx context.Context) bool {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE is_dirty = 1`).Scan(&n); err != nil {
		c.log.Error("cache dirty check failed", logger.Error(err))
		return false
	}
	return n > 0
}

// IsDirty reports whether key exists and is dirty.
func (c *Cache) IsDirty(ctx context.Context, key string) bool {
	var dirty bool
	err := c.db.QueryRowContext(ctx, `SELECT is_dirty FROM records WHERE key = ?`, key).Scan(&dirty)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			c.log.Error("cache dirty check failed", logger.String("key", key), logger.Error(err))
		}
		return false
	}
	return dirty
}

// DirtyKeys lists the keys with pending local changes.
func (c *Cache) DirtyKeys(ctx context.Context) []string {
	rows, err := c.db.QueryContext(ctx, `SELECT key FROM records WHERE is_dirty = 1 ORDER BY key`)
	if err != nil {
		c.log.Error("cache list dirty failed", logger.Error(err))
		return nil
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			c.log.Error("cache scan failed", logger.Error(err))
			return keys
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		c.log.Error("cache list dirty failed", logger.Error(err))
	}
	return keys
}

func (c *Cache) Delete(ctx context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.ExecContext(ctx, `DELETE FROM records WHERE key = ?`, key); err != nil {
		c.log.Error("cache delete failed", logger.String("key", key), logger.Error(err))
	}
}

// Clear removes every record.
func (c *Cache) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.ExecContext(ctx, `DELETE FROM records`); err != nil {
		c.log.Error("cache clear failed", logger.Error(err))
	}
}

func (c *Cache) Close() error {
	return c.db.Close()
}
