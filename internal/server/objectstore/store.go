// Package objectstore provides private binary-evidence storage with
// time-limited signed read access. The production implementation targets
// any S3-compatible backend (MinIO in the reference deployment); an
// in-memory implementation backs tests.
package objectstore

import (
	"context"
	"time"
)

// Store holds binary objects under unique names. Objects are private by
// default: nothing is listable or readable without a signed URL.
type Store interface {
	// Upload stores data under name. Returns common.ErrorAlreadyExists if
	// the name is taken; the caller is responsible for unique naming.
	Upload(ctx context.Context, name string, data []byte, contentType string) error

	// SignedURL returns a URL granting time-limited read access to the
	// object, or common.ErrorNotFound if no such object exists.
	SignedURL(ctx context.Context, name string, ttl time.Duration) (string, error)
}
