// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package chronicler wires the ingestion system together: a local progress
// ledger, a transcript source, an embedder, and a remote vector index.
package chronicler

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/chronicler/ai"
	aiopenai "github.com/poiesic/chronicler/ai/openai"
	"github.com/poiesic/chronicler/config"
	"github.com/poiesic/chronicler/index"
	indexqdrant "github.com/poiesic/chronicler/index/qdrant"
	"github.com/poiesic/chronicler/ingestion"
	"github.com/poiesic/chronicler/reprocess"
	"github.com/poiesic/chronicler/search"
	"github.com/poiesic/chronicler/source"
	"github.com/poiesic/chronicler/source/gcs"
	"github.com/poiesic/chronicler/storage"
	"github.com/poiesic/chronicler/storage/badger"
)

// healthCheckTimeout bounds the startup reachability check against the
// vector index. An unreachable index must fail fast, not hang.
const healthCheckTimeout = 10 * time.Second

// Chronicler aggregates the system's moving parts. Construct one per run;
// the ledger holds a file lock, so two instances cannot share a database.
type Chronicler struct {
	backend     *badger.Backend
	ledger      storage.LedgerRepository
	src         source.TranscriptSource
	embedder    ai.Embedder
	vectorIndex index.VectorIndex
	model       string
	logger      *slog.Logger
}

// Option configures a Chronicler.
type Option func(*options)

type options struct {
	src         source.TranscriptSource
	vectorIndex index.VectorIndex
	embedder    ai.Embedder
	logger      *slog.Logger
}

// WithSource substitutes the transcript source, e.g. a local filesystem
// corpus instead of GCS.
func WithSource(src source.TranscriptSource) Option {
	return func(o *options) { o.src = src }
}

// WithVectorIndex substitutes the vector index.
func WithVectorIndex(idx index.VectorIndex) Option {
	return func(o *options) { o.vectorIndex = idx }
}

// WithEmbedder substitutes the embedder.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(o *options) { o.embedder = embedder }
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New opens the ledger and connects the production components described by
// cfg. The vector collection must already exist; New fails fast when it is
// missing or unreachable.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Chronicler, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	backend, err := badger.OpenBackend(cfg.Ledger.Path, false)
	if err != nil {
		return nil, err
	}
	ledger := badger.NewLedgerRepository(backend)

	embedder := o.embedder
	if embedder == nil {
		embedder, err = aiopenai.NewEmbedder(ai.NewConfig(
			ai.WithAPIKey(cfg.OpenAI.APIKey),
			ai.WithModel(cfg.OpenAI.Model),
		))
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	vectorIndex := o.vectorIndex
	if vectorIndex == nil {
		vectorIndex, err = indexqdrant.NewIndex(indexqdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
		})
		if err != nil {
			backend.Close()
			return nil, err
		}
	}
	healthCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	err = vectorIndex.Healthy(healthCtx)
	cancel()
	if err != nil {
		vectorIndex.Close()
		backend.Close()
		return nil, err
	}

	src := o.src
	if src == nil {
		src, err = gcs.New(ctx, gcs.Config{
			SourceName:      cfg.GCS.SourceName,
			Bucket:          cfg.GCS.Bucket,
			MetadataPrefix:  cfg.GCS.MetadataPrefix,
			CredentialsFile: cfg.GCS.CredentialsFile,
		}, o.logger)
		if err != nil {
			vectorIndex.Close()
			backend.Close()
			return nil, err
		}
	}

	return &Chronicler{
		backend:     backend,
		ledger:      ledger,
		src:         src,
		embedder:    embedder,
		vectorIndex: vectorIndex,
		model:       cfg.OpenAI.Model,
		logger:      o.logger,
	}, nil
}

// Ledger exposes the progress ledger for status reporting.
func (c *Chronicler) Ledger() storage.LedgerRepository {
	return c.ledger
}

// VectorIndex exposes the vector index.
func (c *Chronicler) VectorIndex() index.VectorIndex {
	return c.vectorIndex
}

// NewPipeline creates an ingestion pipeline over this instance's components.
func (c *Chronicler) NewPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	opts = append([]ingestion.Option{
		ingestion.WithLogger(c.logger),
		ingestion.WithEmbeddingModel(c.model),
	}, opts...)
	return ingestion.NewPipeline(c.ledger, c.src, c.embedder, c.vectorIndex, opts...)
}

// NewSearcher creates a query-side searcher.
func (c *Chronicler) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	opts = append([]search.Option{search.WithLogger(c.logger)}, opts...)
	return search.NewSearcher(c.embedder, c.vectorIndex, opts...)
}

// NewReprocessor creates a reprocessor that rebuilds index entries for done
// episodes using the given pipeline. progress is typically os.Stderr.
func (c *Chronicler) NewReprocessor(pipeline *ingestion.Pipeline, rcfg *reprocess.Config, progress io.Writer) (*reprocess.Reprocessor, error) {
	return reprocess.NewReprocessor(c.ledger, pipeline, c.vectorIndex, rcfg, progress)
}

// Close releases every component.
func (c *Chronicler) Close() error {
	if closer, ok := c.src.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			c.logger.Error("error closing transcript source", "err", err)
		}
	}
	if err := c.vectorIndex.Close(); err != nil {
		c.logger.Error("error closing vector index", "err", err)
	}
	if err := c.ledger.Close(); err != nil {
		c.logger.Error("error closing ledger", "err", err)
		return err
	}
	if err := c.backend.Close(); err != nil {
		c.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
