// Package mock provides an in-memory test double of index.VectorIndex
// with cosine-similarity queries. Because it keys points by ID, it
// reproduces the idempotent-upsert behavior of the real collection.
package mock
