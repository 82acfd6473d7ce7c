package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/chronicler/ai"
	"github.com/poiesic/chronicler/core"
	"github.com/poiesic/chronicler/index"
	"github.com/poiesic/chronicler/source"
	"github.com/poiesic/chronicler/storage"
)

const (
	// defaultBatchSize is the number of chunks embedded and upserted per
	// request. Bounded so the pipeline runs on memory-capped instances.
	defaultBatchSize = 32
	// defaultMaxRetries is how many times a transient embedding or upsert
	// failure is attempted before the episode is marked failed.
	defaultMaxRetries = 3
	// defaultRetryDelay is the base backoff delay; it doubles per attempt.
	defaultRetryDelay = time.Second
	// defaultCallTimeout bounds one embedding or upsert attempt. A hung
	// call times out and is retried rather than blocking a worker.
	defaultCallTimeout = 60 * time.Second

	// processingVersion is stamped into each point payload so future
	// chunking or embedding revisions can find stale points.
	processingVersion = "v2.0"
)

// Pipeline orchestrates discovery and ingestion of transcript episodes.
// It ties a transcript source, the progress ledger, an embedder, and the
// vector index together and processes episodes on a bounded worker pool.
type Pipeline struct {
	ledger         storage.LedgerRepository
	source         source.TranscriptSource
	embedder       ai.Embedder
	index          index.VectorIndex
	chunker        *Chunker
	pool           *ants.Pool
	batcher        *embedBatcher
	embeddingModel string
	logger         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent episode processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithBatchSize sets the embedding/upsert batch size.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size > 0 {
			p.batcher.batchSize = size
		}
		return nil
	}
}

// WithMaxRetries sets the per-batch retry attempt count.
func WithMaxRetries(attempts int) Option {
	return func(p *Pipeline) error {
		if attempts > 0 {
			p.batcher.maxRetries = attempts
		}
		return nil
	}
}

// WithRetryDelay sets the base backoff delay between retry attempts.
func WithRetryDelay(delay time.Duration) Option {
	return func(p *Pipeline) error {
		if delay > 0 {
			p.batcher.retryDelay = delay
		}
		return nil
	}
}

// WithCallTimeout sets the deadline applied to each embedding or upsert
// attempt.
func WithCallTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) error {
		if timeout > 0 {
			p.batcher.callTimeout = timeout
		}
		return nil
	}
}

// WithChunker replaces the default chunker.
func WithChunker(chunker *Chunker) Option {
	return func(p *Pipeline) error {
		if chunker != nil {
			p.chunker = chunker
		}
		return nil
	}
}

// WithEmbeddingModel sets the model name recorded in point payloads.
// It does not change which embedder runs; wire a matching ai.Embedder.
func WithEmbeddingModel(model string) Option {
	return func(p *Pipeline) error {
		if model != "" {
			p.embeddingModel = model
		}
		return nil
	}
}

// NewPipeline creates an ingestion pipeline. Any in-progress ledger entries
// are reset to unprocessed: they can only be left over from a run that died
// mid-episode.
func NewPipeline(
	ledger storage.LedgerRepository,
	src source.TranscriptSource,
	embedder ai.Embedder,
	vectorIndex index.VectorIndex,
	opts ...Option,
) (*Pipeline, error) {
	if ledger == nil {
		return nil, ErrLedgerRequired
	}
	if src == nil {
		return nil, ErrSourceRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if vectorIndex == nil {
		return nil, ErrIndexRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	chunker, err := NewChunker()
	if err != nil {
		pool.Release()
		return nil, err
	}

	p := &Pipeline{
		ledger:   ledger,
		source:   src,
		embedder: embedder,
		index:    vectorIndex,
		chunker:  chunker,
		pool:     pool,
		batcher: &embedBatcher{
			embedder:    embedder,
			batchSize:   defaultBatchSize,
			maxRetries:  defaultMaxRetries,
			retryDelay:  defaultRetryDelay,
			callTimeout: defaultCallTimeout,
		},
		embeddingModel: ai.DefaultConfig().Model,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "pipeline")

	reset, err := ledger.ResetInProgress(context.Background())
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("failed to reset stale entries: %w", err)
	}
	if reset > 0 {
		p.logger.Warn("reset stale in-progress episodes", "count", reset)
	}

	return p, nil
}

// Discover lists the source's episodes and records unseen ones in the
// ledger as unprocessed. Episodes already in the ledger keep their status.
// Returns the number of newly recorded episodes.
func (p *Pipeline) Discover(ctx context.Context) (int, error) {
	episodes, err := p.source.ListEpisodes(ctx)
	if err != nil {
		return 0, fmt.Errorf("discovery failed: %w", err)
	}

	inserted, err := p.ledger.AddEpisodes(ctx, episodes...)
	if err != nil {
		return 0, fmt.Errorf("failed to record discovered episodes: %w", err)
	}
	backfilled := p.backfillFromIndex(ctx, inserted)

	p.logger.Info("discovery complete",
		"source", p.source.Name(),
		"listed", len(episodes),
		"new", len(inserted),
		"backfilled", backfilled)
	return len(inserted), nil
}

// backfillFromIndex marks newly discovered episodes done when their chunks
// already exist in the index, so a rebuilt ledger does not trigger a full
// re-ingestion. Lookup failures are logged and the episode stays unprocessed.
func (p *Pipeline) backfillFromIndex(ctx context.Context, episodes []*core.Episode) int {
	backfilled := 0
	for _, episode := range episodes {
		ok, err := p.index.HasEpisode(ctx, episode.SourceName, episode.EpisodeNumber)
		if err != nil {
			p.logger.Warn("index lookup failed", "episode", episode.Key(), "error", err)
			continue
		}
		if !ok {
			continue
		}
		count, err := p.index.CountEpisodeChunks(ctx, episode.SourceName, episode.EpisodeNumber)
		if err != nil {
			p.logger.Warn("index count failed", "episode", episode.Key(), "error", err)
			continue
		}
		if _, err := p.ledger.SetStatus(ctx, episode.Id, core.StatusInProgress, 0, ""); err != nil {
			p.logger.Warn("backfill failed", "episode", episode.Key(), "error", err)
			continue
		}
		updated, err := p.ledger.SetStatus(ctx, episode.Id, core.StatusDone, count, "")
		if err != nil {
			p.logger.Warn("backfill failed", "episode", episode.Key(), "error", err)
			continue
		}
		*episode = *updated
		backfilled++
	}
	return backfilled
}

// ListUnprocessed returns episodes awaiting ingestion, ordered by ID.
// Read-only.
func (p *Pipeline) ListUnprocessed(ctx context.Context) ([]*core.Episode, error) {
	return p.ledger.ListByStatus(ctx, core.StatusUnprocessed)
}

// ProcessEpisode ingests one episode end to end: transcript fetch, chunking,
// batched embedding, and upserting. The episode is marked done only after
// every chunk was upserted; any failure marks it failed with the error
// recorded, leaving it retryable.
func (p *Pipeline) ProcessEpisode(ctx context.Context, episode *core.Episode) error {
	logger := p.logger.With("episode", episode.Key())

	if _, err := p.ledger.SetStatus(ctx, episode.Id, core.StatusInProgress, 0, ""); err != nil {
		return fmt.Errorf("failed to mark %s in-progress: %w", episode.Key(), err)
	}

	chunkCount, err := p.ingest(ctx, episode, logger)
	if err != nil {
		logger.Error("episode failed", "error", err)
		if _, statusErr := p.ledger.SetStatus(ctx, episode.Id, core.StatusFailed, 0, err.Error()); statusErr != nil {
			logger.Error("failed to record failure", "error", statusErr)
		}
		return err
	}

	updated, err := p.ledger.SetStatus(ctx, episode.Id, core.StatusDone, chunkCount, "")
	if err != nil {
		return fmt.Errorf("failed to mark %s done: %w", episode.Key(), err)
	}
	*episode = *updated
	logger.Info("episode done", "chunks", chunkCount)
	return nil
}

// ingest performs the fallible middle of ProcessEpisode and returns the
// number of chunks upserted.
func (p *Pipeline) ingest(ctx context.Context, episode *core.Episode, logger *slog.Logger) (int, error) {
	raw, err := p.source.FetchTranscript(ctx, episode)
	if err != nil {
		return 0, fmt.Errorf("transcript fetch: %w", err)
	}

	transcript, err := PrepareTranscript(raw)
	if err != nil {
		return 0, err
	}

	chunks, err := p.chunker.Chunk(episode.Key(), transcript)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, ErrTranscriptTooShort
	}
	logger.Debug("chunked transcript", "chunks", len(chunks), "chars", len(transcript))

	processedDate := time.Now().UTC().Format(time.RFC3339)
	for _, batch := range p.batcher.batches(chunks) {
		vectors, err := p.batcher.embedBatch(ctx, batch)
		if err != nil {
			return 0, err
		}

		points := make([]*index.Point, len(batch))
		for i, chunk := range batch {
			points[i] = &index.Point{
				ID:      core.PointID(episode.SourceName, episode.EpisodeNumber, chunk.Index),
				Vector:  vectors[i],
				Payload: p.buildPayload(episode, chunk, processedDate),
			}
		}

		err = RetryWithBackoff(ctx, func() error {
			attemptCtx, cancel := context.WithTimeout(ctx, p.batcher.callTimeout)
			defer cancel()
			return p.index.Upsert(attemptCtx, points)
		}, p.batcher.maxRetries, p.batcher.retryDelay)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert batch: %w", err)
		}
	}

	return len(chunks), nil
}

// revolutionNames maps a revolutions season to the revolution it covers.
var revolutionNames = map[int]string{
	1: "English Civil War", 2: "American Revolution", 3: "French Revolution",
	4: "Haitian Revolution", 5: "Spanish American Wars of Independence",
	6: "July Revolution & Revolutions of 1830", 7: "German Revolution of 1848",
	8: "Paris Commune", 9: "Mexican Revolution", 10: "Russian Revolution",
}

// historicalPeriods maps a season to the years its revolution spans.
var historicalPeriods = map[int]string{
	1: "1640-1660", 2: "1765-1783", 3: "1789-1799", 4: "1791-1804",
	5: "1808-1833", 6: "1830-1831", 7: "1848-1849", 8: "1871",
	9: "1910-1920", 10: "1917-1923",
}

func revolutionName(season int) string {
	if name, ok := revolutionNames[season]; ok {
		return name
	}
	return "Unknown Revolution"
}

func historicalPeriod(season int) string {
	if period, ok := historicalPeriods[season]; ok {
		return period
	}
	return "Unknown"
}

// buildPayload assembles the point payload stored alongside each vector.
func (p *Pipeline) buildPayload(episode *core.Episode, chunk *core.Chunk, processedDate string) map[string]any {
	return map[string]any{
		"source_type":        "podcast",
		"source_name":        episode.SourceName,
		"season":             episode.Season,
		"episode_number":     episode.EpisodeNumber,
		"episode_title":      episode.Title,
		"revolution":         revolutionName(episode.Season),
		"historical_period":  historicalPeriod(episode.Season),
		"chunk_index":        chunk.Index,
		"total_chunks":       chunk.Total,
		"text":               chunk.Text,
		"content_length":     len(chunk.Text),
		"token_count":        chunk.TokenCount,
		"published":          episode.Published,
		"processed_date":     processedDate,
		"embedding_model":    p.embeddingModel,
		"processing_version": processingVersion,
	}
}

// RunOptions selects which episodes ProcessAll works on.
type RunOptions struct {
	// Limit caps how many episodes are processed this run. Zero means all.
	Limit int
	// Episode restricts the run to a single episode, matched by its
	// "source/number" key or bare episode number.
	Episode string
	// Force requeues already-done episodes before processing. Upserts
	// overwrite by deterministic point ID, so no duplicates result.
	Force bool
}

// ProcessAll ingests unprocessed episodes on the worker pool and returns
// per-run statistics. A failing episode is counted and skipped; it never
// aborts the run.
func (p *Pipeline) ProcessAll(ctx context.Context, opts RunOptions) (*core.RunStats, error) {
	episodes, err := p.selectEpisodes(ctx, opts)
	if err != nil {
		return nil, err
	}

	stats := &core.RunStats{Total: len(episodes)}
	if len(episodes) == 0 {
		p.logger.Info("nothing to process")
		return stats, nil
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, episode := range episodes {
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			err := p.ProcessEpisode(ctx, episode)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Failed++
				return
			}
			stats.Succeeded++
			stats.Chunks += episode.ChunkCount
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			stats.Failed++
			mu.Unlock()
			p.logger.Error("failed to submit episode", "episode", episode.Key(), "error", submitErr)
		}
	}
	wg.Wait()

	p.logger.Info("run complete",
		"total", stats.Total,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"chunks", stats.Chunks,
		"success_rate", fmt.Sprintf("%.1f%%", float64(stats.Succeeded)/float64(stats.Total)*100))
	return stats, nil
}

// selectEpisodes resolves RunOptions into the concrete work list.
func (p *Pipeline) selectEpisodes(ctx context.Context, opts RunOptions) ([]*core.Episode, error) {
	if opts.Episode != "" {
		episode, err := p.findEpisode(ctx, opts.Episode)
		if err != nil {
			return nil, err
		}
		if episode.Status == core.StatusDone && !opts.Force {
			p.logger.Info("episode already done, skipping", "episode", episode.Key())
			return nil, nil
		}
		if episode.Status != core.StatusUnprocessed {
			if _, err := p.ledger.Requeue(ctx, episode.Id); err != nil {
				return nil, err
			}
			episode.Status = core.StatusUnprocessed
		}
		return []*core.Episode{episode}, nil
	}

	if opts.Force {
		done, err := p.ledger.ListByStatus(ctx, core.StatusDone)
		if err != nil {
			return nil, err
		}
		for _, episode := range done {
			if _, err := p.ledger.Requeue(ctx, episode.Id); err != nil {
				return nil, err
			}
		}
		if len(done) > 0 {
			p.logger.Info("requeued done episodes for forced reprocessing", "count", len(done))
		}
	}

	episodes, err := p.ListUnprocessed(ctx)
	if err != nil {
		return nil, err
	}
	if opts.Limit > 0 && len(episodes) > opts.Limit {
		episodes = episodes[:opts.Limit]
	}
	return episodes, nil
}

// findEpisode matches a selector against ledger entries.
func (p *Pipeline) findEpisode(ctx context.Context, selector string) (*core.Episode, error) {
	if strings.Contains(selector, "/") {
		episode, err := p.ledger.GetEpisode(ctx, core.IDFromContent(selector))
		if err == nil {
			return episode, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrEpisodeNotFound, selector)
	}

	episodes, err := p.ledger.ListEpisodes(ctx)
	if err != nil {
		return nil, err
	}
	for _, episode := range episodes {
		if episode.EpisodeNumber == selector {
			return episode, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrEpisodeNotFound, selector)
}

// Verify compares the ledger's chunk counts for done episodes against the
// index's per-episode point counts and returns the episodes that disagree.
func (p *Pipeline) Verify(ctx context.Context) ([]*core.Episode, error) {
	done, err := p.ledger.ListByStatus(ctx, core.StatusDone)
	if err != nil {
		return nil, err
	}

	var mismatched []*core.Episode
	for _, episode := range done {
		stored, err := p.index.CountEpisodeChunks(ctx, episode.SourceName, episode.EpisodeNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to count points for %s: %w", episode.Key(), err)
		}
		if stored != episode.ChunkCount {
			p.logger.Warn("chunk count mismatch",
				"episode", episode.Key(),
				"ledger", episode.ChunkCount,
				"index", stored)
			mismatched = append(mismatched, episode)
		}
	}
	return mismatched, nil
}

// Release releases the worker pool. The pipeline should not be used after
// calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
