package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/poiesic/chronicler/ai"
	"github.com/poiesic/chronicler/core"
	"github.com/poiesic/chronicler/index"
)

// keywordBoost is added to a hit's score when the chunk contains every
// non-stop-word from the query verbatim.
const keywordBoost = 0.3

// callTimeout bounds each embedding and index call so an interactive
// search never hangs on a stuck backend.
const callTimeout = 30 * time.Second

// Searcher runs similarity queries against the ingested corpus.
type Searcher struct {
	embedder    ai.Embedder
	vectorIndex index.VectorIndex
	logger      *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(embedder ai.Embedder, vectorIndex index.VectorIndex, opts ...Option) (*Searcher, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if vectorIndex == nil {
		return nil, ErrIndexRequired
	}

	s := &Searcher{
		embedder:    embedder,
		vectorIndex: vectorIndex,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search finds chunks similar to the query, optionally restricted by filter.
// Returns up to maxHits results, ranked by relevance score.
func (s *Searcher) Search(ctx context.Context, query string, maxHits int, filter *index.Filter) ([]*core.ScoredChunk, error) {
	return s.SearchWithMonitor(ctx, query, maxHits, filter, nil)
}

// SearchWithMonitor finds chunks similar to the query with monitoring.
// The monitor receives callbacks at each stage of the search process.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, maxHits int, filter *index.Filter, monitor SearchMonitor) ([]*core.ScoredChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if maxHits <= 0 {
		maxHits = 10
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query)

	embedCtx, cancel := context.WithTimeout(ctx, callTimeout)
	embedding, err := s.embedder.EmbedText(embedCtx, query)
	cancel()
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}
	monitor.AfterEmbedding(len(embedding))

	// Over-fetch so the keyword boost can promote hits that would fall
	// just outside maxHits on vector score alone.
	queryCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	hits, err := s.vectorIndex.Query(queryCtx, embedding, maxHits*2, filter)
	if err != nil {
		s.logger.Error("error querying index", "err", err)
		return nil, err
	}
	monitor.AfterVectorSearch(hits)

	for _, hit := range hits {
		if containsAllQueryWords(hit.Snippet, query) {
			hit.Score += keywordBoost
			monitor.KeywordBoostHit(hit)
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > maxHits {
		hits = hits[:maxHits]
	}
	monitor.Finish(hits)

	return hits, nil
}
