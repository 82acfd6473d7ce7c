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

package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/docs/v1"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/poiesic/chronicler/core"
	"github.com/poiesic/chronicler/source"
)

// Config describes where a corpus lives in Google Cloud.
type Config struct {
	// SourceName is the corpus name episodes are attributed to.
	SourceName string
	// Bucket is the GCS bucket holding metadata objects.
	Bucket string
	// MetadataPrefix is the object prefix under which per-episode
	// metadata JSON documents live, e.g. "podcasts/revolutions/metadata/".
	MetadataPrefix string
	// CredentialsFile is the path to a service-account JSON key.
	// Empty means application default credentials.
	CredentialsFile string
}

// Source reads episode metadata from a GCS bucket and transcript text from
// the Google Docs each metadata record points at.
type Source struct {
	config  Config
	storage *storage.Client
	docs    *docs.Service
	logger  *slog.Logger
}

var _ source.TranscriptSource = (*Source)(nil)

// New connects to Google Cloud Storage and the Docs API.
func New(ctx context.Context, config Config, logger *slog.Logger) (*Source, error) {
	if config.Bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}
	if config.SourceName == "" {
		return nil, errors.New("source name is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var opts []option.ClientOption
	if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}

	storageClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	docsOpts := append([]option.ClientOption{
		option.WithScopes(docs.DocumentsReadonlyScope),
	}, opts...)
	docsService, err := docs.NewService(ctx, docsOpts...)
	if err != nil {
		storageClient.Close()
		return nil, fmt.Errorf("failed to create docs service: %w", err)
	}

	return &Source{
		config:  config,
		storage: storageClient,
		docs:    docsService,
		logger:  logger.With("component", "gcs-source"),
	}, nil
}

// Name returns the corpus name.
func (s *Source) Name() string {
	return s.config.SourceName
}

// ListEpisodes walks the metadata prefix, parses every JSON object, and
// returns the valid episodes sorted by (season, episode number). Objects
// that fail to parse are logged and skipped so one bad record cannot block
// a corpus.
func (s *Source) ListEpisodes(ctx context.Context) ([]*core.Episode, error) {
	bucket := s.storage.Bucket(s.config.Bucket)
	objects := bucket.Objects(ctx, &storage.Query{Prefix: s.config.MetadataPrefix})

	var episodes []*core.Episode
	var skipped int
	for {
		attrs, err := objects.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", s.config.MetadataPrefix, err)
		}
		if !strings.HasSuffix(attrs.Name, ".json") {
			continue
		}

		data, err := s.readObject(ctx, attrs.Name)
		if err != nil {
			s.logger.Warn("failed to read metadata object", "object", attrs.Name, "error", err)
			skipped++
			continue
		}

		episode, err := source.ParseMetadata(data, s.config.SourceName, attrs.Name)
		if err != nil {
			s.logger.Warn("skipping invalid metadata", "object", attrs.Name, "error", err)
			skipped++
			continue
		}
		episodes = append(episodes, episode)
	}

	source.SortEpisodes(episodes)
	s.logger.Info("listed episodes",
		"source", s.config.SourceName,
		"count", len(episodes),
		"skipped", skipped)
	return episodes, nil
}

// FetchTranscript downloads the episode's Google Doc and flattens its
// paragraph text runs into one string.
func (s *Source) FetchTranscript(ctx context.Context, episode *core.Episode) (string, error) {
	doc, err := s.docs.Documents.Get(episode.DocID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to fetch doc %s: %w", episode.DocID, err)
	}

	var builder strings.Builder
	if doc.Body != nil {
		for _, element := range doc.Body.Content {
			if element.Paragraph == nil {
				continue
			}
			for _, textElement := range element.Paragraph.Elements {
				if textElement.TextRun != nil {
					builder.WriteString(textElement.TextRun.Content)
				}
			}
		}
	}
	return strings.TrimSpace(builder.String()), nil
}

// Close releases the storage client. The Docs service holds no connection
// state of its own.
func (s *Source) Close() error {
	return s.storage.Close()
}

func (s *Source) readObject(ctx context.Context, name string) ([]byte, error) {
	reader, err := s.storage.Bucket(s.config.Bucket).Object(name).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}
