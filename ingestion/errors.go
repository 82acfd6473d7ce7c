package ingestion

import "errors"

var (
	// ErrLedgerRequired is returned when a ledger repository is not provided.
	ErrLedgerRequired = errors.New("ledger repository required")

	// ErrSourceRequired is returned when a transcript source is not provided.
	ErrSourceRequired = errors.New("transcript source required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrIndexRequired is returned when a vector index is not provided.
	ErrIndexRequired = errors.New("vector index required")

	// ErrTranscriptTooShort is returned when a transcript has too little
	// content to be worth indexing.
	ErrTranscriptTooShort = errors.New("transcript too short")

	// ErrTooManyChunks is returned when chunking exceeds the per-episode
	// chunk cap, which usually means a malformed transcript.
	ErrTooManyChunks = errors.New("too many chunks for one episode")

	// ErrInvalidMaxAttempts is returned when retry is configured with a
	// non-positive attempt count.
	ErrInvalidMaxAttempts = errors.New("max attempts must be greater than zero")

	// ErrEpisodeNotFound is returned when a requested episode selector
	// matches nothing in the ledger.
	ErrEpisodeNotFound = errors.New("episode not found in ledger")
)
