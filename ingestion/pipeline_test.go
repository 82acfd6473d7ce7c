package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aimock "github.com/poiesic/chronicler/ai/mock"
	"github.com/poiesic/chronicler/core"
	"github.com/poiesic/chronicler/index"
	indexmock "github.com/poiesic/chronicler/index/mock"
	"github.com/poiesic/chronicler/storage"
	badgerstore "github.com/poiesic/chronicler/storage/badger"
)

// stubSource is an in-memory TranscriptSource for pipeline tests.
type stubSource struct {
	mu          sync.Mutex
	episodes    []*core.Episode
	transcripts map[string]string // keyed by doc ID
	fetchErr    map[string]error  // per-doc fetch failures
}

func newStubSource() *stubSource {
	return &stubSource{
		transcripts: make(map[string]string),
		fetchErr:    make(map[string]error),
	}
}

func (s *stubSource) addEpisode(number, transcript string) {
	docID := "doc-" + number
	s.episodes = append(s.episodes, &core.Episode{
		SourceName:    "revolutions",
		Season:        3,
		EpisodeNumber: number,
		Title:         "Episode " + number,
		DocID:         docID,
		Status:        core.StatusUnprocessed,
	})
	s.transcripts[docID] = transcript
}

func (s *stubSource) Name() string { return "revolutions" }

func (s *stubSource) ListEpisodes(ctx context.Context) ([]*core.Episode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*core.Episode, len(s.episodes))
	for i, episode := range s.episodes {
		clone := *episode
		out[i] = &clone
	}
	return out, nil
}

func (s *stubSource) FetchTranscript(ctx context.Context, episode *core.Episode) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fetchErr[episode.DocID]; err != nil {
		return "", err
	}
	text, ok := s.transcripts[episode.DocID]
	if !ok {
		return "", fmt.Errorf("no transcript for %s", episode.DocID)
	}
	return text, nil
}

// testTranscript builds a front-mattered transcript long enough to pass the
// minimum-length gate and produce several chunks.
func testTranscript(sentences int) string {
	var builder strings.Builder
	builder.WriteString("---\ntitle: test\n---\n")
	for i := 0; i < sentences; i++ {
		fmt.Fprintf(&builder, "Sentence number %d of the episode transcript. ", i)
	}
	return builder.String()
}

func newTestPipeline(t *testing.T, src *stubSource, opts ...Option) (*Pipeline, storage.LedgerRepository, *indexmock.MockIndex) {
	t.Helper()

	ledger, backend, err := badgerstore.NewMemoryLedger()
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close(); backend.Close() })

	idx := indexmock.NewMockIndex()
	opts = append([]Option{
		WithRetryDelay(time.Millisecond),
		WithPoolSize(2),
	}, opts...)
	pipeline, err := NewPipeline(ledger, src, aimock.NewMockEmbedder(), idx, opts...)
	require.NoError(t, err)
	t.Cleanup(pipeline.Release)

	return pipeline, ledger, idx
}

func TestNewPipelineValidatesDependencies(t *testing.T) {
	ledger, backend, err := badgerstore.NewMemoryLedger()
	require.NoError(t, err)
	defer func() { ledger.Close(); backend.Close() }()

	src := newStubSource()
	embedder := aimock.NewMockEmbedder()
	idx := indexmock.NewMockIndex()

	_, err = NewPipeline(nil, src, embedder, idx)
	assert.ErrorIs(t, err, ErrLedgerRequired)
	_, err = NewPipeline(ledger, nil, embedder, idx)
	assert.ErrorIs(t, err, ErrSourceRequired)
	_, err = NewPipeline(ledger, src, nil, idx)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
	_, err = NewPipeline(ledger, src, embedder, nil)
	assert.ErrorIs(t, err, ErrIndexRequired)
}

func TestDiscoverRecordsNewEpisodes(t *testing.T) {
	src := newStubSource()
	src.addEpisode("3.1", testTranscript(50))
	src.addEpisode("3.2", testTranscript(50))

	pipeline, ledger, _ := newTestPipeline(t, src)
	ctx := context.Background()

	inserted, err := pipeline.Discover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	// Rediscovery inserts nothing new.
	inserted, err = pipeline.Discover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	unprocessed, err := ledger.ListByStatus(ctx, core.StatusUnprocessed)
	require.NoError(t, err)
	assert.Len(t, unprocessed, 2)
}

func TestDiscoverBackfillsFromIndex(t *testing.T) {
	src := newStubSource()
	src.addEpisode("3.1", testTranscript(60))

	pipeline, ledger, idx := newTestPipeline(t, src)
	ctx := context.Background()

	// The index holds chunks from an earlier run but the ledger is fresh.
	var points []*index.Point
	for i := 0; i < 4; i++ {
		points = append(points, &index.Point{
			ID:     core.PointID("revolutions", "3.1", i),
			Vector: []float32{1, 0, 0},
			Payload: map[string]any{
				"source_name":    "revolutions",
				"episode_number": "3.1",
			},
		})
	}
	require.NoError(t, idx.Upsert(ctx, points))

	inserted, err := pipeline.Discover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	episode, err := ledger.GetEpisode(ctx, core.IDFromContent("revolutions/3.1"))
	require.NoError(t, err)
	assert.Equal(t, core.StatusDone, episode.Status)
	assert.Equal(t, 4, episode.ChunkCount)

	unprocessed, err := pipeline.ListUnprocessed(ctx)
	require.NoError(t, err)
	assert.Empty(t, unprocessed)
}

// hangingEmbedder blocks until its context expires, simulating a stuck
// embedding backend.
type hangingEmbedder struct{}

func (hangingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (hangingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestProcessEpisodeEmbeddingCallTimesOut(t *testing.T) {
	src := newStubSource()
	src.addEpisode("3.1", testTranscript(60))

	ledger, backend, err := badgerstore.NewMemoryLedger()
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close(); backend.Close() })

	pipeline, err := NewPipeline(ledger, src, hangingEmbedder{}, indexmock.NewMockIndex(),
		WithCallTimeout(10*time.Millisecond),
		WithMaxRetries(2),
		WithRetryDelay(time.Millisecond),
		WithPoolSize(1),
	)
	require.NoError(t, err)
	t.Cleanup(pipeline.Release)

	ctx := context.Background()
	_, err = pipeline.Discover(ctx)
	require.NoError(t, err)
	episodes, err := pipeline.ListUnprocessed(ctx)
	require.NoError(t, err)
	require.Len(t, episodes, 1)

	started := time.Now()
	err = pipeline.ProcessEpisode(ctx, episodes[0])
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(started), 2*time.Second,
		"a hung embedding call must time out, not block the worker")

	episode, err := ledger.GetEpisode(ctx, episodes[0].Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, episode.Status)
}

func TestBuildPayloadCarriesSeasonContext(t *testing.T) {
	pipeline, _, _ := newTestPipeline(t, newStubSource())

	episode := &core.Episode{
		SourceName:    "revolutions",
		Season:        3,
		EpisodeNumber: "3.1",
		Title:         "The Estates General",
	}
	chunk := &core.Chunk{Index: 0, Total: 2, Text: "some text", TokenCount: 3}

	payload := pipeline.buildPayload(episode, chunk, "2026-08-26T00:00:00Z")
	assert.Equal(t, "French Revolution", payload["revolution"])
	assert.Equal(t, "1789-1799", payload["historical_period"])

	episode.Season = 12
	payload = pipeline.buildPayload(episode, chunk, "2026-08-26T00:00:00Z")
	assert.Equal(t, "Unknown Revolution", payload["revolution"])
	assert.Equal(t, "Unknown", payload["historical_period"])
}

func TestProcessEpisodeMarksDone(t *testing.T) {
	src := newStubSource()
	src.addEpisode("3.1", testTranscript(100))

	pipeline, ledger, idx := newTestPipeline(t, src)
	ctx := context.Background()

	_, err := pipeline.Discover(ctx)
	require.NoError(t, err)

	episodes, err := pipeline.ListUnprocessed(ctx)
	require.NoError(t, err)
	require.Len(t, episodes, 1)

	require.NoError(t, pipeline.ProcessEpisode(ctx, episodes[0]))

	stored, err := ledger.GetEpisode(ctx, episodes[0].Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusDone, stored.Status)
	assert.Greater(t, stored.ChunkCount, 1)
	assert.Equal(t, stored.ChunkCount, idx.TotalPoints(),
		"every chunk should be a point in the index")
}

func TestProcessEpisodeIdempotentRerun(t *testing.T) {
	src := newStubSource()
	src.addEpisode("3.1", testTranscript(100))

	pipeline, ledger, idx := newTestPipeline(t, src)
	ctx := context.Background()

	_, err := pipeline.Discover(ctx)
	require.NoError(t, err)
	episodes, err := pipeline.ListUnprocessed(ctx)
	require.NoError(t, err)
	require.NoError(t, pipeline.ProcessEpisode(ctx, episodes[0]))

	pointsAfterFirst := idx.TotalPoints()

	// Requeue and rerun: deterministic IDs mean the upserts replace the
	// existing points instead of duplicating them.
	_, err = ledger.Requeue(ctx, episodes[0].Id)
	require.NoError(t, err)
	rerun, err := ledger.GetEpisode(ctx, episodes[0].Id)
	require.NoError(t, err)
	require.NoError(t, pipeline.ProcessEpisode(ctx, rerun))

	assert.Equal(t, pointsAfterFirst, idx.TotalPoints(),
		"rerun must not create duplicate points")
}

func TestProcessEpisodeShortTranscriptFails(t *testing.T) {
	src := newStubSource()
	src.addEpisode("3.1", "---\nheader\n---\ntoo short")

	pipeline, ledger, idx := newTestPipeline(t, src)
	ctx := context.Background()

	_, err := pipeline.Discover(ctx)
	require.NoError(t, err)
	episodes, err := pipeline.ListUnprocessed(ctx)
	require.NoError(t, err)

	err = pipeline.ProcessEpisode(ctx, episodes[0])
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTranscriptTooShort)

	stored, err := ledger.GetEpisode(ctx, episodes[0].Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, stored.Status)
	assert.NotEmpty(t, stored.LastError)
	assert.Equal(t, 0, idx.TotalPoints())
}

func TestProcessAllContinuesPastFailures(t *testing.T) {
	src := newStubSource()
	src.addEpisode("3.1", testTranscript(60))
	src.addEpisode("3.2", testTranscript(60))
	src.addEpisode("3.3", testTranscript(60))
	src.fetchErr["doc-3.2"] = errors.New("transient network failure")

	pipeline, ledger, _ := newTestPipeline(t, src, WithMaxRetries(1))
	ctx := context.Background()

	_, err := pipeline.Discover(ctx)
	require.NoError(t, err)

	stats, err := pipeline.ProcessAll(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)
	assert.Greater(t, stats.Chunks, 0)

	failed, err := ledger.ListByStatus(ctx, core.StatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "3.2", failed[0].EpisodeNumber)
	assert.Contains(t, failed[0].LastError, "transient network failure")
}

func TestProcessAllRespectsLimit(t *testing.T) {
	src := newStubSource()
	for i := 1; i <= 5; i++ {
		src.addEpisode(fmt.Sprintf("3.%d", i), testTranscript(60))
	}

	pipeline, ledger, _ := newTestPipeline(t, src)
	ctx := context.Background()

	_, err := pipeline.Discover(ctx)
	require.NoError(t, err)

	stats, err := pipeline.ProcessAll(ctx, RunOptions{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Succeeded)

	done, err := ledger.ListByStatus(ctx, core.StatusDone)
	require.NoError(t, err)
	assert.Len(t, done, 2)

	remaining, err := pipeline.ListUnprocessed(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, 3)
}

func TestProcessAllSingleEpisodeSelector(t *testing.T) {
	src := newStubSource()
	src.addEpisode("3.1", testTranscript(60))
	src.addEpisode("3.2", testTranscript(60))

	pipeline, ledger, _ := newTestPipeline(t, src)
	ctx := context.Background()

	_, err := pipeline.Discover(ctx)
	require.NoError(t, err)

	stats, err := pipeline.ProcessAll(ctx, RunOptions{Episode: "3.2"})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Succeeded)

	done, err := ledger.ListByStatus(ctx, core.StatusDone)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "3.2", done[0].EpisodeNumber)
}

func TestProcessAllUnknownSelector(t *testing.T) {
	src := newStubSource()
	src.addEpisode("3.1", testTranscript(60))

	pipeline, _, _ := newTestPipeline(t, src)
	ctx := context.Background()

	_, err := pipeline.Discover(ctx)
	require.NoError(t, err)

	_, err = pipeline.ProcessAll(ctx, RunOptions{Episode: "9.9"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEpisodeNotFound)
}

func TestProcessAllForceReprocessesDone(t *testing.T) {
	src := newStubSource()
	src.addEpisode("3.1", testTranscript(60))

	pipeline, _, idx := newTestPipeline(t, src)
	ctx := context.Background()

	_, err := pipeline.Discover(ctx)
	require.NoError(t, err)

	stats, err := pipeline.ProcessAll(ctx, RunOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Succeeded)

	// Without force, a second run has nothing to do.
	stats, err = pipeline.ProcessAll(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)

	pointsBefore := idx.TotalPoints()
	stats, err = pipeline.ProcessAll(ctx, RunOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, pointsBefore, idx.TotalPoints(),
		"forced rerun overwrites points in place")
}

func TestVerifyFlagsMismatch(t *testing.T) {
	src := newStubSource()
	src.addEpisode("3.1", testTranscript(60))

	pipeline, _, idx := newTestPipeline(t, src)
	ctx := context.Background()

	_, err := pipeline.Discover(ctx)
	require.NoError(t, err)
	_, err = pipeline.ProcessAll(ctx, RunOptions{})
	require.NoError(t, err)

	mismatched, err := pipeline.Verify(ctx)
	require.NoError(t, err)
	assert.Empty(t, mismatched, "fresh run should verify clean")

	// Losing the episode's points must surface as a mismatch.
	require.NoError(t, idx.DeleteEpisode(ctx, "revolutions", "3.1"))
	mismatched, err = pipeline.Verify(ctx)
	require.NoError(t, err)
	require.Len(t, mismatched, 1)
	assert.Equal(t, "3.1", mismatched[0].EpisodeNumber)
}

func TestNewPipelineResetsStaleInProgress(t *testing.T) {
	ledger, backend, err := badgerstore.NewMemoryLedger()
	require.NoError(t, err)
	defer func() { ledger.Close(); backend.Close() }()

	ctx := context.Background()
	inserted, err := ledger.AddEpisodes(ctx, &core.Episode{
		SourceName:    "revolutions",
		Season:        3,
		EpisodeNumber: "3.1",
		DocID:         "doc-3.1",
	})
	require.NoError(t, err)
	_, err = ledger.SetStatus(ctx, inserted[0].Id, core.StatusInProgress, 0, "")
	require.NoError(t, err)

	pipeline, err := NewPipeline(ledger, newStubSource(), aimock.NewMockEmbedder(), indexmock.NewMockIndex())
	require.NoError(t, err)
	defer pipeline.Release()

	unprocessed, err := ledger.ListByStatus(ctx, core.StatusUnprocessed)
	require.NoError(t, err)
	assert.Len(t, unprocessed, 1, "stale in-progress entry should be reset at startup")
}
