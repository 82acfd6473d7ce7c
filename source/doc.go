// Package source defines where transcripts come from.
//
// A TranscriptSource lists the episodes a corpus contains and fetches their
// transcript text. Discovery reads metadata JSON documents; the shared
// ParseMetadata and SortEpisodes helpers keep every backend's episode
// ordering and validation identical. Concrete backends live in the gcs and
// fs subpackages.
package source
