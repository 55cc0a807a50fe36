// Package sqlitekv stores device progress in a local SQLite file through libSQL.
package sqlitekv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/victornm/tweetle/internal/progress"
)

// Open opens the database at path (":memory:" for a throwaway one) and creates
// the progress table.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("libsql", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// An in-memory database lives in a single connection.
	db.SetMaxOpenConns(1)

	// libSQL rejects Exec for PRAGMAs that return rows.
	for _, p := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		rows, err := db.QueryContext(ctx, p)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("executing %s: %w", p, err)
		}
		rows.Close()
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS device_progress (
		device_id TEXT NOT NULL,
		key       TEXT NOT NULL,
		value     TEXT NOT NULL,
		PRIMARY KEY (device_id, key)
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating device_progress: %w", err)
	}

	return db, nil
}

type Backend struct {
	db *sql.DB
}

func New(db *sql.DB) *Backend {
	return &Backend{db: db}
}

func (b *Backend) Device(id string) progress.KV {
	return &kv{db: b.db, device: id}
}

type kv struct {
	db     *sql.DB
	device string
}

func (k *kv) Get(ctx context.Context, key string) ([]byte, error) {
	var v string
	err := k.db.QueryRowContext(ctx,
		`SELECT value FROM device_progress WHERE device_id = ? AND key = ?`,
		k.device, key,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, progress.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key, err)
	}

	return []byte(v), nil
}

func (k *kv) Set(ctx context.Context, key string, value []byte) error {
	_, err := k.db.ExecContext(ctx,
		`INSERT INTO device_progress (device_id, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(device_id, key) DO UPDATE SET value = excluded.value`,
		k.device, key, string(value),
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}

	return nil
}

func (k *kv) Delete(ctx context.Context, key string) error {
	_, err := k.db.ExecContext(ctx,
		`DELETE FROM device_progress WHERE device_id = ? AND key = ?`,
		k.device, key,
	)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}

	return nil
}
