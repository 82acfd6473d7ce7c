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

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/chronicler/ai"
	aiopenai "github.com/poiesic/chronicler/ai/openai"
	"github.com/poiesic/chronicler/config"
	"github.com/poiesic/chronicler/index"
	indexqdrant "github.com/poiesic/chronicler/index/qdrant"
	"github.com/poiesic/chronicler/search"
)

var (
	sourceName = flag.String("source", "", "restrict hits to one source corpus")
	season     = flag.Int("season", 0, "restrict hits to one season")
	maxHits    = flag.Int("limit", 5, "maximum number of hits")
)

func init() {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})
	slog.SetDefault(slog.New(handler))
}

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: searcher [-source name] [-season n] [-limit n] query...")
		os.Exit(2)
	}
	query := strings.Join(flag.Args(), " ")

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := cfg.ValidateSearch(); err != nil {
		panic(err)
	}

	embedder, err := aiopenai.NewEmbedder(ai.NewConfig(
		ai.WithAPIKey(cfg.OpenAI.APIKey),
		ai.WithModel(cfg.OpenAI.Model),
	))
	if err != nil {
		panic(err)
	}

	vectorIndex, err := indexqdrant.NewIndex(indexqdrant.Config{
		URL:        cfg.Qdrant.URL,
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.Collection,
	})
	if err != nil {
		panic(err)
	}
	defer vectorIndex.Close()

	searcher, err := search.NewSearcher(embedder, vectorIndex)
	if err != nil {
		panic(err)
	}

	var filter *index.Filter
	if *sourceName != "" || *season != 0 {
		filter = &index.Filter{SourceName: *sourceName, Season: *season}
	}

	hits, err := searcher.Search(context.Background(), query, *maxHits, filter)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Found %d hits\n", len(hits))
	for i, hit := range hits {
		fmt.Printf("%d: %s s%d e%s chunk %d [%0.3f]\n   %s\n",
			i, hit.SourceName, hit.Season, hit.EpisodeNumber, hit.ChunkIndex, hit.Score,
			truncateSnippet(hit.Snippet, 160))
	}
}

// truncateSnippet shortens s to at most n characters for display. Cutting
// on a rune boundary keeps multi-byte text printable.
func truncateSnippet(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
