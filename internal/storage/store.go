// Package storage abstracts where raw upload bytes live. The pipeline
// only needs write-then-read-back under an opaque key; durability is
// the backing store's concern.
package storage

import (
	"context"
	"io"
)

// ByteStore saves and retrieves raw upload payloads by key.
type ByteStore interface {
	Save(ctx context.Context, key string, r io.Reader, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
