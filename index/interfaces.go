package index

import (
	"context"

	"github.com/poiesic/chronicler/core"
)

// Point is one embedding plus payload, ready for upsert. The vector index
// owns the persisted form; the pipeline only constructs and transmits it.
// IDs are deterministic per (source, episode, chunk index), so upserting
// the same chunk twice replaces rather than duplicates.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Filter restricts queries and counts to a slice of the collection.
// Zero values mean "any".
type Filter struct {
	SourceName    string
	EpisodeNumber string
	Season        int
}

// VectorIndex is the remote collection that stores chunk embeddings.
// Implementations must be thread-safe; the pipeline upserts from a worker
// pool.
type VectorIndex interface {
	// Upsert writes points into the collection, replacing any existing
	// points with the same IDs.
	Upsert(ctx context.Context, points []*Point) error

	// CountEpisodeChunks returns the exact number of points stored for
	// one episode.
	CountEpisodeChunks(ctx context.Context, sourceName, episodeNumber string) (int, error)

	// HasEpisode reports whether any point exists for the episode.
	HasEpisode(ctx context.Context, sourceName, episodeNumber string) (bool, error)

	// DeleteEpisode removes all points for one episode.
	DeleteEpisode(ctx context.Context, sourceName, episodeNumber string) error

	// Query runs a similarity search and returns scored chunks,
	// highest score first.
	Query(ctx context.Context, vector []float32, limit int, filter *Filter) ([]*core.ScoredChunk, error)

	// Healthy verifies the collection is reachable and exists.
	// A failure here is fatal at startup.
	Healthy(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}
