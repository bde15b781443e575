// Package cache provides the chunk cache used by the RAG worker.
// Values are serialized chunk lists keyed by document id; the backend
// is chosen by configuration.
package cache

import "context"

// ChunkCache stores serialized chunk lists keyed by document id.
// Implementations must be safe for concurrent use. Get reports a miss
// with ok=false rather than an error.
type ChunkCache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Len() int
}
