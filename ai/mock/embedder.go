package mock

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/poiesic/chronicler/ai"
)

var _ ai.Embedder = (*MockEmbedder)(nil)

// MockEmbedder implements ai.Embedder with deterministic vectors derived
// from the input text, so equal texts always embed to equal vectors and
// similarity assertions are reproducible.
type MockEmbedder struct {
	// Err, if set, is returned by every call. Use it to simulate a
	// failing embedding backend.
	Err error

	// Dimensions is the width of generated vectors. Defaults to 64;
	// tests never need production-width vectors.
	Dimensions int
}

// NewMockEmbedder creates an embedder producing 64-wide unit vectors.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{Dimensions: 64}
}

// EmbedText returns the deterministic vector for text.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.vectorFor(text), nil
}

// EmbedTexts returns deterministic vectors for each text, in input order.
func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = m.vectorFor(text)
	}
	return vectors, nil
}

// vectorFor expands an FNV hash of the text into a unit vector with an LCG.
func (m *MockEmbedder) vectorFor(text string) []float32 {
	dim := m.Dimensions
	if dim <= 0 {
		dim = 64
	}

	h := fnv.New32a()
	h.Write([]byte(text))
	state := h.Sum32()

	vector := make([]float32, dim)
	var sumSquares float64
	for i := range vector {
		state = state*1664525 + 1013904223
		vector[i] = float32(state%1000) / 1000.0
		sumSquares += float64(vector[i]) * float64(vector[i])
	}

	if sumSquares > 0 {
		norm := float32(1.0 / math.Sqrt(sumSquares))
		for i := range vector {
			vector[i] *= norm
		}
	}
	return vector
}
