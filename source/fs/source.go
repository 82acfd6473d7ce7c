package fs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/chronicler/core"
	"github.com/poiesic/chronicler/source"
)

// Source reads a corpus from a local directory tree:
//
//	<root>/metadata/*.json      per-episode metadata
//	<root>/transcripts/<doc>.txt transcript text, named by doc ID
//
// It exists for tests and seed corpora; production runs use the gcs backend.
type Source struct {
	name   string
	root   string
	logger *slog.Logger
}

var _ source.TranscriptSource = (*Source)(nil)

// New creates a filesystem-backed transcript source rooted at dir.
func New(name, dir string, logger *slog.Logger) (*Source, error) {
	if name == "" {
		return nil, fmt.Errorf("source name is required")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("corpus root %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus root %s is not a directory", dir)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		name:   name,
		root:   dir,
		logger: logger.With("component", "fs-source"),
	}, nil
}

// Name returns the corpus name.
func (s *Source) Name() string {
	return s.name
}

// ListEpisodes parses every metadata JSON under <root>/metadata, skipping
// invalid records, and returns episodes sorted by (season, episode number).
func (s *Source) ListEpisodes(ctx context.Context) ([]*core.Episode, error) {
	metadataDir := filepath.Join(s.root, "metadata")
	entries, err := os.ReadDir(metadataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", metadataDir, err)
	}

	var episodes []*core.Episode
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(metadataDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("failed to read metadata file", "path", path, "error", err)
			continue
		}

		episode, err := source.ParseMetadata(data, s.name, filepath.Join("metadata", entry.Name()))
		if err != nil {
			s.logger.Warn("skipping invalid metadata", "path", path, "error", err)
			continue
		}
		episodes = append(episodes, episode)
	}

	source.SortEpisodes(episodes)
	return episodes, nil
}

// FetchTranscript reads <root>/transcripts/<docID>.txt.
func (s *Source) FetchTranscript(ctx context.Context, episode *core.Episode) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(s.root, "transcripts", episode.DocID+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read transcript for %s: %w", episode.Key(), err)
	}
	return string(data), nil
}
