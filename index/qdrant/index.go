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


package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/chronicler/core"
	"github.com/poiesic/chronicler/index"
	"github.com/qdrant/go-client/qdrant"
)

// Config holds connection parameters for a Qdrant collection.
type Config struct {
	// URL is the cluster URL, e.g. "https://xyz.cloud.qdrant.io:6333".
	URL string

	// APIKey authenticates against Qdrant Cloud. Empty for local instances.
	APIKey string

	// Collection is the collection name points are upserted into.
	Collection string
}

// Index implements index.VectorIndex over the Qdrant gRPC API.
type Index struct {
	client     *qdrant.Client
	collection string
	logger     *slog.Logger
}

var _ index.VectorIndex = (*Index)(nil)

// NewIndex connects to the cluster described by config.
//
// Returns index.VectorIndex interface to enforce abstraction.
func NewIndex(config Config) (index.VectorIndex, error) {
	if config.Collection == "" {
		return nil, fmt.Errorf("qdrant config: Collection is required")
	}

	ep, err := parseClusterURL(config.URL)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   ep.Host,
		Port:   ep.Port,
		APIKey: config.APIKey,
		UseTLS: ep.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", index.ErrUnreachable, err)
	}

	return &Index{
		client:     client,
		collection: config.Collection,
		logger:     slog.Default().With("component", "qdrant-index", "collection", config.Collection),
	}, nil
}

// Close releases the gRPC connection.
func (x *Index) Close() error {
	return x.client.Close()
}

// Healthy verifies the collection is reachable and exists, and makes sure
// the keyword payload indexes used for episode filtering are in place.
func (x *Index) Healthy(ctx context.Context) error {
	exists, err := x.client.CollectionExists(ctx, x.collection)
	if err != nil {
		return fmt.Errorf("%w: %w", index.ErrUnreachable, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", index.ErrCollectionNotFound, x.collection)
	}

	for _, field := range []string{"source_name", "episode_number"} {
		_, err := x.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: x.collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil && !strings.Contains(strings.ToLower(err.Error()), "already exists") {
			x.logger.Warn("could not create payload index", "field", field, "err", err)
		}
	}

	return nil
}

// Upsert writes points into the collection and waits for them to be applied.
func (x *Index) Upsert(ctx context.Context, points []*index.Point) error {
	if len(points) == 0 {
		return nil
	}

	qpoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		if p.ID == "" || len(p.Vector) == 0 {
			return fmt.Errorf("%w: point %d", index.ErrInvalidPoint, i)
		}
		qpoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(p.Payload),
		}
	}

	_, err := x.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: x.collection,
		Points:         qpoints,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("upsert of %d points failed: %w", len(points), err)
	}

	x.logger.Debug("upserted points", "count", len(points))
	return nil
}

// CountEpisodeChunks returns the exact number of points stored for one episode.
func (x *Index) CountEpisodeChunks(ctx context.Context, sourceName, episodeNumber string) (int, error) {
	count, err := x.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: x.collection,
		Filter:         episodeFilter(sourceName, episodeNumber),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// HasEpisode reports whether any point exists for the episode.
func (x *Index) HasEpisode(ctx context.Context, sourceName, episodeNumber string) (bool, error) {
	points, err := x.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: x.collection,
		Filter:         episodeFilter(sourceName, episodeNumber),
		Limit:          qdrant.PtrOf(uint32(1)),
	})
	if err != nil {
		return false, err
	}
	return len(points) > 0, nil
}

// DeleteEpisode removes all points for one episode.
func (x *Index) DeleteEpisode(ctx context.Context, sourceName, episodeNumber string) error {
	_, err := x.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: x.collection,
		Points:         qdrant.NewPointsSelectorFilter(episodeFilter(sourceName, episodeNumber)),
		Wait:           qdrant.PtrOf(true),
	})
	return err
}

// Query runs a similarity search and returns scored chunks, best first.
func (x *Index) Query(ctx context.Context, vector []float32, limit int, filter *index.Filter) ([]*core.ScoredChunk, error) {
	points, err := x.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: x.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		Filter:         queryFilter(filter),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}

	results := make([]*core.ScoredChunk, 0, len(points))
	for _, p := range points {
		results = append(results, scoredChunkFromPayload(p))
	}
	return results, nil
}

// episodeFilter matches all points belonging to one episode.
func episodeFilter(sourceName, episodeNumber string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("source_name", sourceName),
			qdrant.NewMatch("episode_number", episodeNumber),
		},
	}
}

// queryFilter converts the index-level filter. Nil when unrestricted.
func queryFilter(f *index.Filter) *qdrant.Filter {
	if f == nil {
		return nil
	}
	var must []*qdrant.Condition
	if f.SourceName != "" {
		must = append(must, qdrant.NewMatch("source_name", f.SourceName))
	}
	if f.EpisodeNumber != "" {
		must = append(must, qdrant.NewMatch("episode_number", f.EpisodeNumber))
	}
	if f.Season != 0 {
		must = append(must, qdrant.NewMatchInt("season", int64(f.Season)))
	}
	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}

func scoredChunkFromPayload(p *qdrant.ScoredPoint) *core.ScoredChunk {
	payload := p.GetPayload()
	return &core.ScoredChunk{
		PointID:       p.GetId().GetUuid(),
		Score:         p.GetScore(),
		SourceName:    payload["source_name"].GetStringValue(),
		Season:        int(payload["season"].GetIntegerValue()),
		EpisodeNumber: payload["episode_number"].GetStringValue(),
		EpisodeTitle:  payload["episode_title"].GetStringValue(),
		ChunkIndex:    int(payload["chunk_index"].GetIntegerValue()),
		Snippet:       payload["text"].GetStringValue(),
	}
}
