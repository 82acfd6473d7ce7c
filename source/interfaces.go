package source

import (
	"context"

	"github.com/poiesic/chronicler/core"
)

// TranscriptSource enumerates a transcript corpus and fetches episode text.
// Implementations must be thread-safe; the pipeline fetches from a worker
// pool.
type TranscriptSource interface {
	// Name returns the corpus name episodes are attributed to,
	// e.g. "revolutions".
	Name() string

	// ListEpisodes enumerates per-episode metadata, validated and sorted
	// numerically by (season, episode number). Entries with missing
	// required fields are skipped with a warning, not fatal.
	ListEpisodes(ctx context.Context) ([]*core.Episode, error)

	// FetchTranscript returns the full raw transcript text for one
	// episode, front matter included.
	FetchTranscript(ctx context.Context, episode *core.Episode) (string, error)
}
