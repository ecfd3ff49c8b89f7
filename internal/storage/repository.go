package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	createEntriesTableSQL = `CREATE TABLE IF NOT EXISTS kv_entries (
        key        TEXT PRIMARY KEY,
        value      BYTEA NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );`

	getEntrySQL = `SELECT value FROM kv_entries WHERE key = $1;`

	upsertEntrySQL = `INSERT INTO kv_entries (
        key,
        value,
        updated_at
    ) VALUES (
        $1,$2,now()
    )
    ON CONFLICT (key) DO UPDATE
    SET
        value      = EXCLUDED.value,
        updated_at = EXCLUDED.updated_at;`

	deleteEntriesSQL = `DELETE FROM kv_entries WHERE key = ANY($1);`

	listKeysSQL = `SELECT key
    FROM kv_entries
    WHERE left(key, length($1)) = $1
    ORDER BY key;`

	pingSQL = `SELECT 1;`
)

// PostgresKV keeps entries in a single kv_entries table.
type PostgresKV struct {
	pool *pgxpool.Pool
}

// NewPostgresKV wires a pgx pool into a PostgresKV.
func NewPostgresKV(pool *pgxpool.Pool) *PostgresKV {
	return &PostgresKV{pool: pool}
}

// EnsureSchema creates the kv_entries table when missing.
func (p *PostgresKV) EnsureSchema(ctx context.Context) error {
	pool, err := p.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, createEntriesTableSQL); err != nil {
		return unavailable("create kv_entries", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (p *PostgresKV) Close() error {
	if p == nil || p.pool == nil {
		return nil
	}
	p.pool.Close()
	return nil
}

func (p *PostgresKV) getPool() (*pgxpool.Pool, error) {
	if p == nil || p.pool == nil {
		return nil, ErrNotConfigured
	}
	return p.pool, nil
}

func (p *PostgresKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	pool, err := p.getPool()
	if err != nil {
		return nil, false, err
	}

	var value []byte
	if scanErr := pool.QueryRow(ctx, getEntrySQL, key).Scan(&value); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, unavailable("get entry", scanErr)
	}
	return value, true, nil
}

func (p *PostgresKV) Set(ctx context.Context, key string, value []byte) error {
	pool, err := p.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, upsertEntrySQL, key, value); execErr != nil {
		return unavailable("upsert entry", execErr)
	}
	return nil
}

func (p *PostgresKV) Delete(ctx context.Context, keys ...string) (int, error) {
	pool, err := p.getPool()
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	tag, execErr := pool.Exec(ctx, deleteEntriesSQL, keys)
	if execErr != nil {
		return 0, unavailable("delete entries", execErr)
	}
	return int(tag.RowsAffected()), nil
}

func (p *PostgresKV) Keys(ctx context.Context, prefix string) ([]string, error) {
	pool, err := p.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listKeysSQL, prefix)
	if queryErr != nil {
		return nil, unavailable("list keys", queryErr)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if scanErr := rows.Scan(&key); scanErr != nil {
			return nil, fmt.Errorf("scan key: %w", scanErr)
		}
		keys = append(keys, key)
	}
	if rows.Err() != nil {
		return nil, unavailable("list keys", rows.Err())
	}
	return keys, nil
}

func (p *PostgresKV) Ping(ctx context.Context) error {
	pool, err := p.getPool()
	if err != nil {
		return err
	}
	var one int
	if scanErr := pool.QueryRow(ctx, pingSQL).Scan(&one); scanErr != nil {
		return unavailable("ping", scanErr)
	}
	return nil
}

var _ KV = (*PostgresKV)(nil)
