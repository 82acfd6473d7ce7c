package ingestion

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkShortTextSingleChunk(t *testing.T) {
	chunker, err := NewChunker()
	require.NoError(t, err)

	chunks, err := chunker.Chunk("revolutions/3.1", "A short transcript.")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 1, chunks[0].Total)
	assert.Equal(t, "A short transcript.", chunks[0].Text)
	assert.Greater(t, chunks[0].TokenCount, 0)
	assert.Equal(t, "revolutions/3.1", chunks[0].EpisodeKey)
}

func TestChunkEmptyText(t *testing.T) {
	chunker, err := NewChunker()
	require.NoError(t, err)

	chunks, err := chunker.Chunk("revolutions/3.1", "   ")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkLongTextOverlapsAndOrders(t *testing.T) {
	chunker, err := NewChunker()
	require.NoError(t, err)

	text := strings.Repeat("The assembly met in the morning. ", 200)
	chunks, err := chunker.Chunk("revolutions/3.1", text)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, len(chunks), chunk.Total)
		assert.LessOrEqual(t, len(chunk.Text), defaultChunkSize)
		assert.Greater(t, chunk.TokenCount, 0)
	}

	// Sentence-boundary breaks: every non-final chunk ends with a
	// complete sentence.
	for _, chunk := range chunks[:len(chunks)-1] {
		assert.True(t, strings.HasSuffix(chunk.Text, "."),
			"chunk should end at a sentence boundary: %q", chunk.Text[len(chunk.Text)-20:])
	}

	// Overlap: the start of each chunk repeats text from its predecessor.
	for i := 1; i < len(chunks); i++ {
		head := chunks[i].Text[:20]
		assert.Contains(t, chunks[i-1].Text, head,
			"chunk %d should overlap its predecessor", i)
	}
}

func TestChunkNoSentenceBoundary(t *testing.T) {
	chunker, err := NewChunker()
	require.NoError(t, err)

	// No ". " anywhere: chunker must still make progress on hard cuts.
	text := strings.Repeat("x", 3000)
	chunks, err := chunker.Chunk("revolutions/3.1", text)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk.Text), defaultChunkSize)
	}
}

func TestChunkMultiByteTextStaysValidUTF8(t *testing.T) {
	chunker, err := NewChunker()
	require.NoError(t, err)

	// Curly apostrophes, accents, and dashes land multi-byte runes at
	// arbitrary offsets, and no sentence boundary falls in the search
	// window. Hard cuts must still land between characters.
	text := strings.Repeat("l’armée suivait Robespierre à Varennes ", 120)
	chunks, err := chunker.Chunk("revolutions/3.1", text)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk.Text), "chunk %d splits a rune", i)
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk.Text), defaultChunkSize)
	}
}

func TestChunkBudgetCountsCharactersNotBytes(t *testing.T) {
	chunker, err := NewChunker()
	require.NoError(t, err)

	// 900 three-byte runes, no boundaries: the first hard cut is at
	// exactly the character budget, which is not a whole number of runes
	// when measured in bytes.
	text := strings.Repeat("…", 900)
	chunks, err := chunker.Chunk("revolutions/3.1", text)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, defaultChunkSize, utf8.RuneCountInString(chunks[0].Text))
	assert.True(t, utf8.ValidString(chunks[0].Text))
	assert.True(t, utf8.ValidString(chunks[1].Text))
}

func TestChunkMultiByteSentenceBoundaries(t *testing.T) {
	chunker, err := NewChunker()
	require.NoError(t, err)

	text := strings.Repeat("L’Assemblée vota la levée en masse en l’an 1793. ", 80)
	chunks, err := chunker.Chunk("revolutions/3.1", text)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk.Text), "chunk %d splits a rune", i)
	}
	for _, chunk := range chunks[:len(chunks)-1] {
		assert.True(t, strings.HasSuffix(chunk.Text, "."),
			"chunk should end at a sentence boundary")
	}
}

func TestChunkRespectsCap(t *testing.T) {
	chunker, err := NewChunker(WithMaxChunks(3))
	require.NoError(t, err)

	text := strings.Repeat("A sentence here. ", 1000)
	_, err = chunker.Chunk("revolutions/3.1", text)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooManyChunks))
}

func TestChunkDeterministic(t *testing.T) {
	chunker, err := NewChunker()
	require.NoError(t, err)

	text := strings.Repeat("The convention debated late into the night. ", 100)
	first, err := chunker.Chunk("revolutions/3.1", text)
	require.NoError(t, err)
	second, err := chunker.Chunk("revolutions/3.1", text)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Text, second[i].Text)
	}
}

func TestNewChunkerRejectsOverlapLargerThanSize(t *testing.T) {
	_, err := NewChunker(WithChunkSize(100), WithOverlap(100))
	require.Error(t, err)
}
