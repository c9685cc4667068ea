// Package storage provides access to the blob store holding reference
// photo bytes.
package storage

import "context"

// ObjectGetter is the read side of the blob store; the detection pipeline
// only ever consumes this.
type ObjectGetter interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// ObjectStore is the full blob store surface used by the upload and delete
// handlers.
type ObjectStore interface {
	ObjectGetter
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	DeleteObject(ctx context.Context, key string) error
	// DeleteObjects removes a batch of objects, stopping at the first failure.
	DeleteObjects(ctx context.Context, keys []string) error
}
