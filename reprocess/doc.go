// Package reprocess rebuilds the vector index entries for episodes that are
// already done, typically after an embedding model change or a chunking
// revision.
//
// This package supports batch iteration over the ledger, progress tracking,
// and stale-point cleanup so an episode whose new chunking yields fewer
// chunks does not leave orphaned points behind.
package reprocess
