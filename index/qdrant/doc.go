// Package qdrant implements index.VectorIndex against a Qdrant collection
// over gRPC. It expects the collection to exist already (provisioned with
// 1536-dim cosine vectors) and bootstraps the keyword payload indexes it
// needs for per-episode filtering.
package qdrant
