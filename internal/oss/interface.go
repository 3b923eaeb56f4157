package oss

import (
	"context"
	"time"
)

// Client is the object-storage collaborator the upload stage depends on.
type Client interface {
	// Put uploads a local file under key, recording its content hash as
	// object metadata so later runs can detect identical uploads.
	Put(ctx context.Context, localPath, key, contentHash string) error

	// Exists reports whether an object is already stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// ContentHash returns the content hash recorded when the object was
	// uploaded, or "" if none is present.
	ContentHash(ctx context.Context, key string) (string, error)

	// SignURL returns a time-limited retrieval URL for key.
	SignURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
