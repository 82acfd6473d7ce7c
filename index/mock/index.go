package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/poiesic/chronicler/core"
	"github.com/poiesic/chronicler/index"
)

// MockIndex is an in-memory test double for index.VectorIndex.
// It stores points keyed by ID, so deterministic point IDs make repeated
// upserts replace entries exactly like the real collection.
type MockIndex struct {
	// UpsertFunc is called by Upsert if set, instead of storing points.
	// Use it to inject failures.
	UpsertFunc func(ctx context.Context, points []*index.Point) error

	mu     sync.Mutex
	points map[string]*index.Point

	upsertCalls int
}

var _ index.VectorIndex = (*MockIndex)(nil)

// NewMockIndex creates an empty in-memory index.
// Note: Returns concrete type to allow test assertions.
func NewMockIndex() *MockIndex {
	return &MockIndex{points: make(map[string]*index.Point)}
}

// Upsert stores points, replacing entries with the same ID.
func (m *MockIndex) Upsert(ctx context.Context, points []*index.Point) error {
	m.mu.Lock()
	m.upsertCalls++
	m.mu.Unlock()

	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, points)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range points {
		cp := *p
		m.points[p.ID] = &cp
	}
	return nil
}

// CountEpisodeChunks returns the number of stored points for one episode.
func (m *MockIndex) CountEpisodeChunks(ctx context.Context, sourceName, episodeNumber string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, p := range m.points {
		if matchesEpisode(p, sourceName, episodeNumber) {
			count++
		}
	}
	return count, nil
}

// HasEpisode reports whether any point exists for the episode.
func (m *MockIndex) HasEpisode(ctx context.Context, sourceName, episodeNumber string) (bool, error) {
	count, err := m.CountEpisodeChunks(ctx, sourceName, episodeNumber)
	return count > 0, err
}

// DeleteEpisode removes all points for one episode.
func (m *MockIndex) DeleteEpisode(ctx context.Context, sourceName, episodeNumber string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, p := range m.points {
		if matchesEpisode(p, sourceName, episodeNumber) {
			delete(m.points, id)
		}
	}
	return nil
}

// Query scores stored points by cosine similarity.
func (m *MockIndex) Query(ctx context.Context, vector []float32, limit int, filter *index.Filter) ([]*core.ScoredChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	query := index.NormalizeVector(vector)
	var results []*core.ScoredChunk
	for _, p := range m.points {
		if !matchesFilter(p, filter) {
			continue
		}
		score := index.DotProduct(query, index.NormalizeVector(p.Vector))
		results = append(results, &core.ScoredChunk{
			PointID:       p.ID,
			Score:         score,
			SourceName:    payloadString(p, "source_name"),
			Season:        payloadInt(p, "season"),
			EpisodeNumber: payloadString(p, "episode_number"),
			EpisodeTitle:  payloadString(p, "episode_title"),
			ChunkIndex:    payloadInt(p, "chunk_index"),
			Snippet:       payloadString(p, "text"),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Healthy always succeeds.
func (m *MockIndex) Healthy(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (m *MockIndex) Close() error {
	return nil
}

// TotalPoints returns the number of stored points, for test assertions.
func (m *MockIndex) TotalPoints() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.points)
}

// UpsertCalls returns the number of Upsert invocations.
func (m *MockIndex) UpsertCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertCalls
}

func matchesEpisode(p *index.Point, sourceName, episodeNumber string) bool {
	return payloadString(p, "source_name") == sourceName &&
		payloadString(p, "episode_number") == episodeNumber
}

func matchesFilter(p *index.Point, f *index.Filter) bool {
	if f == nil {
		return true
	}
	if f.SourceName != "" && payloadString(p, "source_name") != f.SourceName {
		return false
	}
	if f.EpisodeNumber != "" && payloadString(p, "episode_number") != f.EpisodeNumber {
		return false
	}
	if f.Season != 0 && payloadInt(p, "season") != f.Season {
		return false
	}
	return true
}

func payloadString(p *index.Point, key string) string {
	if v, ok := p.Payload[key].(string); ok {
		return v
	}
	return ""
}

func payloadInt(p *index.Point, key string) int {
	switch v := p.Payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}
