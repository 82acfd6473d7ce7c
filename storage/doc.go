// Package storage defines the persistence contracts for the ingestion ledger.
//
// The ledger records one entry per discovered episode and carries its
// processing status across restarts. The vector index is deliberately not
// behind this package: it is a remote service owned by the index package.
// Concrete ledger implementations live in subpackages (storage/badger).
package storage
