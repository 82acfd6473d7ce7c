package ingestion

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/poiesic/chronicler/core"
)

const (
	// defaultChunkSize is the target chunk length in characters. Sized so
	// a chunk stays well inside the embedding model's token window.
	defaultChunkSize = 800
	// defaultChunkOverlap is the character overlap carried between
	// consecutive chunks so sentences cut at a boundary keep context.
	defaultChunkOverlap = 150
	// defaultMaxChunks bounds one episode. A normal transcript produces
	// well under a hundred chunks; hitting this means malformed input.
	defaultMaxChunks = 400

	// tokenEncoding is the tokenizer matching text-embedding-3-small.
	tokenEncoding = "cl100k_base"
)

// sentenceBreaks are searched backward from the chunk end, in order of
// preference, to avoid splitting mid-sentence.
var sentenceBreaks = []string{". ", "! ", "? ", "\n\n"}

// Chunker splits transcript text into overlapping chunks on sentence
// boundaries and annotates each with its cl100k token count.
type Chunker struct {
	chunkSize int
	overlap   int
	maxChunks int
	encoder   *tiktoken.Tiktoken
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker)

// WithChunkSize overrides the target chunk length in characters.
func WithChunkSize(size int) ChunkerOption {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap overrides the character overlap between chunks.
func WithOverlap(overlap int) ChunkerOption {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithMaxChunks overrides the per-episode chunk cap.
func WithMaxChunks(max int) ChunkerOption {
	return func(c *Chunker) {
		if max > 0 {
			c.maxChunks = max
		}
	}
}

// NewChunker creates a chunker with the default 800/150 character budget.
func NewChunker(opts ...ChunkerOption) (*Chunker, error) {
	encoder, err := tiktoken.GetEncoding(tokenEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", tokenEncoding, err)
	}

	c := &Chunker{
		chunkSize: defaultChunkSize,
		overlap:   defaultChunkOverlap,
		maxChunks: defaultMaxChunks,
		encoder:   encoder,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.chunkSize {
		return nil, fmt.Errorf("overlap %d must be smaller than chunk size %d", c.overlap, c.chunkSize)
	}
	return c, nil
}

// Chunk splits text into chunks for the given episode key. Every chunk
// carries its index, the total count, and its token count. Chunk size and
// overlap count characters, not bytes, so multi-byte text is never split
// inside a rune.
func (c *Chunker) Chunk(episodeKey, text string) ([]*core.Chunk, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	runes := []rune(text)
	if len(runes) <= c.chunkSize {
		return []*core.Chunk{{
			EpisodeKey: episodeKey,
			Index:      0,
			Total:      1,
			Text:       text,
			TokenCount: c.countTokens(text),
		}}, nil
	}

	var chunks []*core.Chunk
	start := 0
	for start < len(runes) {
		if len(chunks) >= c.maxChunks {
			return nil, fmt.Errorf("%w: cap %d at offset %d", ErrTooManyChunks, c.maxChunks, start)
		}

		end := min(start+c.chunkSize, len(runes))
		if end < len(runes) {
			end = c.breakAt(runes, start, end)
		}

		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			chunks = append(chunks, &core.Chunk{
				EpisodeKey: episodeKey,
				Index:      len(chunks),
				Text:       piece,
				TokenCount: c.countTokens(piece),
			})
		}

		if end >= len(runes) {
			break
		}
		next := end - c.overlap
		if next <= start {
			// Overlap would revisit consumed text; force progress.
			next = end
		}
		start = next
	}

	for _, chunk := range chunks {
		chunk.Total = len(chunks)
	}
	return chunks, nil
}

// breakAt searches backward from end for the latest sentence boundary,
// never retreating past the midpoint of the chunk. Offsets are rune
// positions into runes.
func (c *Chunker) breakAt(runes []rune, start, end int) int {
	searchStart := max(end-c.overlap, start+c.chunkSize/2)
	window := string(runes[searchStart:end])
	for _, boundary := range sentenceBreaks {
		if pos := strings.LastIndex(window, boundary); pos >= 0 {
			// pos is a byte offset into window; count runes up to it. The
			// boundaries themselves are ASCII, so their byte and rune
			// lengths agree.
			return searchStart + utf8.RuneCountInString(window[:pos]) + len(boundary)
		}
	}
	return end
}

func (c *Chunker) countTokens(text string) int {
	return len(c.encoder.Encode(text, nil, nil))
}
