// Package mock provides a test double implementation of ai.Embedder.
//
// The mock returns deterministic unit vectors derived from a hash of the
// input text, so tests are repeatable without an external embedding
// service. Failures can be injected via the Err field:
//
//	embedder := mock.NewMockEmbedder()
//	embedder.Err = errors.New("rate limited")
package mock
