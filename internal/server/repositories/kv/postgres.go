package kv

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dputra/mailroom/internal/common"
	"github.com/dputra/mailroom/internal/dbx"
)

// PostgresRepository implements the key-value store over a pgx-backed
// *sql.DB. Values are stored in a single kv_store table with a JSONB value
// column; writes go through upsert, shared between the single-key and the
// transactional batch path via the dbx.DBTX seam.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository constructs a repository bound to the given database.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func upsert(ctx context.Context, db dbx.DBTX, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}

	query := `
		INSERT INTO kv_store (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value;
	`
	if _, err := db.ExecContext(ctx, query, key, data); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Set upserts the JSON serialization of value under key.
func (r *PostgresRepository) Set(ctx context.Context, key string, value any) error {
	return upsert(ctx, r.db, key, value)
}

// SetAll upserts every entry inside one transaction.
func (r *PostgresRepository) SetAll(ctx context.Context, entries []Entry) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, e := range entries {
			if err := upsert(ctx, tx, e.Key, e.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get unmarshals the value stored under key into dest.
func (r *PostgresRepository) Get(ctx context.Context, key string, dest any) error {
	query := `SELECT value FROM kv_store WHERE key = $1`

	var data []byte
	err := r.db.QueryRowContext(ctx, query, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal value: %w", err)
	}
	return nil
}

// GetByPrefix returns the raw values of every key starting with prefix,
// ordered by key. The prefix is compared as a range bound, so no
// LIKE-pattern escaping is needed. The chr(255) upper bound assumes keys
// stay within the ASCII namespaces of this store (package:, history:,
// audit:); key bytes at or above U+00FF would escape the range.
func (r *PostgresRepository) GetByPrefix(ctx context.Context, prefix string) ([]json.RawMessage, error) {
	query := `
		SELECT value FROM kv_store
		WHERE key >= $1 AND key < $1 || chr(255)
		ORDER BY key
	`
	rows, err := r.db.QueryContext(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to select by prefix: %w", err)
	}
	defer rows.Close()

	var result []json.RawMessage
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		result = append(result, json.RawMessage(data))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes the key, ignoring absent keys.
func (r *PostgresRepository) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM kv_store WHERE key = $1`
	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
