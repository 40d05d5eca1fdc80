// Package cache provides artifact caching for rendered visualizations.
//
// Rendering a dump through a Graphviz layout engine is by far the slowest
// step of the pipeline, so the CLI and server cache rendered bytes keyed by
// the content hash of the dump plus the render options. Backends: a file
// cache for CLI usage, a redis cache for server deployments, and a null
// cache when caching is disabled.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long cached artifacts stay valid.
// Dumps are content-addressed, so entries never go stale; the TTL only
// bounds disk and memory growth.
const DefaultTTL = 7 * 24 * time.Hour

// Cache is the storage interface shared by all backends.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key was
	// present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL. A zero TTL means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// ArtifactKeyOpts are the render options that distinguish cached artifacts
// produced from the same dump.
type ArtifactKeyOpts struct {
	Engine          string
	Format          string
	IncludeIsolated bool
}

// ArtifactKey builds the cache key for a rendered artifact from the dump's
// content hash and the render options.
func ArtifactKey(dumpHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", dumpHash, opts)
}
