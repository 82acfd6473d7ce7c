package search

import "github.com/poiesic/chronicler/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results.
type SearchMonitor interface {
	Start(query string)
	AfterEmbedding(dimensions int)
	AfterVectorSearch(hits []*core.ScoredChunk)
	KeywordBoostHit(chunk *core.ScoredChunk)
	Finish(results []*core.ScoredChunk)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                        {}
func (n *noopMonitor) AfterEmbedding(_ int)                  {}
func (n *noopMonitor) AfterVectorSearch(_ []*core.ScoredChunk) {}
func (n *noopMonitor) KeywordBoostHit(_ *core.ScoredChunk)   {}
func (n *noopMonitor) Finish(_ []*core.ScoredChunk)          {}
