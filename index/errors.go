package index

import "errors"

var (
	// ErrCollectionNotFound indicates the configured collection does not exist.
	// Collections are provisioned out of band; the pipeline never creates them.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrUnreachable indicates the index service could not be reached.
	ErrUnreachable = errors.New("vector index unreachable")

	// ErrInvalidPoint indicates a point is missing its ID or vector.
	ErrInvalidPoint = errors.New("invalid point")
)
