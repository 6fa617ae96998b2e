// Package blob keeps the raw bytes of uploaded documents.
package blob

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("blob not found")

type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Name() string
}
