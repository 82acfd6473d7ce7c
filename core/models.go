package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// ID is a unique identifier for domain entities.
// It is generated by content-based hashing so that rediscovering the same
// episode always yields the same ledger entry.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Status tracks where an episode is in the ingestion lifecycle.
type Status int

const (
	// StatusUnprocessed marks an episode that has been discovered but not ingested.
	StatusUnprocessed Status = iota + 1
	// StatusInProgress marks an episode currently being ingested.
	StatusInProgress
	// StatusDone marks an episode whose chunks are all present in the vector index.
	StatusDone
	// StatusFailed marks an episode whose last ingestion attempt failed.
	// Failed episodes may be moved back to unprocessed and retried.
	StatusFailed
)

// String returns the lowercase name used in logs and payloads.
func (s Status) String() string {
	switch s {
	case StatusUnprocessed:
		return "unprocessed"
	case StatusInProgress:
		return "in-progress"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// statusTransitions enumerates the legal status changes.
// done is terminal; failed may only go back to unprocessed.
var statusTransitions = map[Status][]Status{
	StatusUnprocessed: {StatusInProgress},
	StatusInProgress:  {StatusDone, StatusFailed, StatusUnprocessed},
	StatusFailed:      {StatusUnprocessed},
	StatusDone:        {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Episode is one ledger entry for a transcript in the source corpus.
// Episodes are created when discovered and never deleted, only status-updated.
type Episode struct {
	Id            ID
	SourceName    string // Corpus the episode belongs to, e.g. "revolutions"
	Season        int
	EpisodeNumber string // May carry a suffix like "3.12" or "003a"
	Title         string
	DocID         string // Transcript document identifier in the source
	ObjectPath    string // Metadata object path the episode was discovered from
	Published     string
	Status        Status
	ChunkCount    int    // Number of chunks upserted; set when status becomes done
	LastError     string // Message from the most recent failed attempt
	DiscoveredAt  time.Time
	UpdatedAt     time.Time
}

// Key returns the stable identity string the episode ID is hashed from.
func (e *Episode) Key() string {
	return e.SourceName + "/" + e.EpisodeNumber
}

// Chunk is a bounded span of transcript text processed as one embedding unit.
// Chunks exist only in memory; the vector index owns the persisted form.
type Chunk struct {
	EpisodeKey string
	Index      int
	Total      int
	Text       string
	TokenCount int
}

// pointNamespace anchors deterministic point IDs. Rerunning an episode
// produces the same IDs, so upserts replace rather than duplicate.
var pointNamespace = uuid.MustParse("12345678-1234-5678-1234-123456789abc")

// PointID derives the deterministic vector point ID for one chunk.
func PointID(sourceName, episodeNumber string, chunkIndex int) string {
	unique := fmt.Sprintf("%s_%s_%d", sourceName, episodeNumber, chunkIndex)
	return uuid.NewSHA1(pointNamespace, []byte(unique)).String()
}

// RunStats summarizes one ingestion run.
type RunStats struct {
	Total     int
	Succeeded int
	Failed    int
	Chunks    int
}

// ScoredChunk is one vector search hit with its payload fields.
type ScoredChunk struct {
	PointID       string
	Score         float32
	SourceName    string
	Season        int
	EpisodeNumber string
	EpisodeTitle  string
	ChunkIndex    int
	Snippet       string
}
