// Package storage is the content-addressable blob boundary used by the
// preservation engine. Hashes are recorded at write time by the caller for
// later integrity comparison.
package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("artifact_not_found")

type Storage interface {
	Write(ctx context.Context, key string, data []byte) error
	Read(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}
