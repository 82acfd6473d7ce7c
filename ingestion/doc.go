// Package ingestion orchestrates moving transcripts into the vector index.
//
// The Pipeline type manages the full workflow per episode:
//   - Discovering episodes from a transcript source into the ledger
//   - Fetching and cleaning transcript text
//   - Chunking on sentence boundaries within a character budget
//   - Generating embeddings in batches with retry
//   - Upserting points with deterministic IDs
//   - Advancing the episode's ledger status
//
// Episodes are processed concurrently on a bounded worker pool. A failing
// episode is recorded as failed and skipped; it never aborts the run.
package ingestion
