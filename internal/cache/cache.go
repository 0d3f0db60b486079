// Package cache is the local key-value persistence adapter. It backs
// autosave, the offline variant, and the resume hint; in the
// remote-authoritative deployment the server stays the source of truth and
// this is only a cache.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/aleksandrbar00/kulai-app/ent"
	"github.com/aleksandrbar00/kulai-app/ent/cacheentry"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Key namespaces.
const (
	KeyCurrent   = "session:current"
	KeyList      = "session:list"
	KeyBankTree  = "bank:tree"
	sessionKeyFm = "session:%s"
)

// SessionKey returns the cache key for a full session payload.
func SessionKey(id string) string {
	return fmt.Sprintf(sessionKeyFm, id)
}

// ErrNoEntry is returned by Get for a missing key.
var ErrNoEntry = errors.New("cache entry not found")

// Store holds the ent client over the cache database.
type Store struct {
	db     *sql.DB
	client *ent.Client
}

// Open creates a Store connected to the SQLite database at dsn. It applies
// recommended pragmas and runs auto-migration.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	drv := entsql.OpenDB(dialect.SQLite, db)
	client := ent.NewClient(ent.Driver(drv))

	if err := client.Schema.Create(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	return &Store{db: db, client: client}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// DB exposes the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// KV returns the raw key-value view of the cache.
func (s *Store) KV() *KV {
	return &KV{client: s.client}
}

// Sessions returns the typed session cache over the KV.
func (s *Store) Sessions() *Sessions {
	return &Sessions{kv: s.KV()}
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// KV reads and writes raw entries by namespaced string key.
type KV struct {
	client *ent.Client
}

// Get returns the value stored under key, or ErrNoEntry.
func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	e, err := k.client.CacheEntry.Query().
		Where(cacheentry.KeyEQ(key)).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNoEntry
		}
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return e.Value, nil
}

// Set writes value under key, replacing any prior value.
func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	n, err := k.client.CacheEntry.Update().
		Where(cacheentry.KeyEQ(key)).
		SetValue(value).
		Save(ctx)
	if err != nil {
		return fmt.Errorf("update %q: %w", key, err)
	}
	if n > 0 {
		return nil
	}

	_, err = k.client.CacheEntry.Create().
		SetKey(key).
		SetValue(value).
		Save(ctx)
	if err != nil {
		return fmt.Errorf("create %q: %w", key, err)
	}
	return nil
}

// Delete removes the entry under key. Missing keys are not an error.
func (k *KV) Delete(ctx context.Context, key string) error {
	_, err := k.client.CacheEntry.Delete().
		Where(cacheentry.KeyEQ(key)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}
