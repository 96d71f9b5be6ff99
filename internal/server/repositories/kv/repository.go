// Package kv provides the generic key-value persistence layer backing the
// custody core. Keys are namespaced by a colon-delimited prefix convention
// (package:<id>, history:<id>, audit:<seq>), so a prefix scan implements
// "list all entities of type X".
package kv

import (
	"context"
	"encoding/json"
)

// Entry is one key-value pair of a batch write.
type Entry struct {
	Key   string
	Value any
}

// Repository is a persistent mapping from string key to JSON value.
//
// Single-key operations are atomic; SetAll writes its entries as one unit
// (a transaction on Postgres). Delete of an absent key is a no-op.
type Repository interface {
	// Set upserts the JSON serialization of value under key.
	Set(ctx context.Context, key string, value any) error

	// SetAll upserts every entry, all or nothing.
	SetAll(ctx context.Context, entries []Entry) error

	// Get unmarshals the value stored under key into dest.
	// Returns common.ErrorNotFound if the key is absent.
	Get(ctx context.Context, key string, dest any) error

	// GetByPrefix returns the raw values of every key starting with prefix,
	// ordered by key.
	GetByPrefix(ctx context.Context, prefix string) ([]json.RawMessage, error)

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
