// Package pgkv stores device progress in postgres as JSONB documents keyed by
// (device, key).
package pgkv

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/tweetle/internal/progress"
)

const schema = `CREATE TABLE IF NOT EXISTS device_progress (
	device_id  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (device_id, key)
);`

type Config struct {
	DB *pgxpool.Pool
}

type Backend struct {
	db *pgxpool.Pool
}

func New(c Config) *Backend {
	return &Backend{db: c.DB}
}

// Migrate creates the progress table if it does not exist yet.
func (b *Backend) Migrate(ctx context.Context) error {
	if _, err := b.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create device_progress: %w", err)
	}

	return nil
}

func (b *Backend) Device(id string) progress.KV {
	return &kv{db: b.db, device: id}
}

type kv struct {
	db     *pgxpool.Pool
	device string
}

func (k *kv) Get(ctx context.Context, key string) ([]byte, error) {
	const stmt = `SELECT value FROM device_progress WHERE device_id = $1 AND key = $2;`

	var v []byte
	err := k.db.QueryRow(ctx, stmt, k.device, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, progress.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key, err)
	}

	return v, nil
}

func (k *kv) Set(ctx context.Context, key string, value []byte) error {
	const stmt = `INSERT INTO device_progress (device_id, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (device_id, key) DO UPDATE SET value = excluded.value, updated_at = now();`

	if _, err := k.db.Exec(ctx, stmt, k.device, key, string(value)); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}

	return nil
}

func (k *kv) Delete(ctx context.Context, key string) error {
	const stmt = `DELETE FROM device_progress WHERE device_id = $1 AND key = $2;`

	if _, err := k.db.Exec(ctx, stmt, k.device, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}

	return nil
}
