package testutils

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"

	"github.com/papercomputeco/recall/pkg/vector"
)

// DefaultMockDimensions is the width of MockEmbedder's generated vectors.
const DefaultMockDimensions = 32

// MockEmbedder is a test embedder that returns predictable embeddings.
//
// Unless overridden in Embeddings, a text is embedded as a normalized
// bag of hashed lowercase words, so texts sharing words score closer.
type MockEmbedder struct {
	mu sync.Mutex

	Embeddings map[string][]float32

	// Dimensions is the width of generated embeddings.
	Dimensions int

	// FailOn causes Embed to return an error when the input text matches
	FailOn string

	// FailAll causes every call to fail.
	FailAll bool

	// Calls counts texts sent through Embed and EmbedBatch.
	Calls int

	// BatchCalls counts EmbedBatch invocations.
	BatchCalls int
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
		Dimensions: DefaultMockDimensions,
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.embed(text)
}

func (m *MockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.BatchCalls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		emb, err := m.embed(t)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}

func (m *MockEmbedder) Close() error {
	return nil
}

// CallCount returns Calls under the lock.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

func (m *MockEmbedder) embed(text string) ([]float32, error) {
	m.Calls++

	if m.FailAll || (m.FailOn != "" && text == m.FailOn) {
		return nil, fmt.Errorf("%w: mock embedding failure for: %s", vector.ErrEmbedding, text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return append([]float32(nil), emb...), nil
	}

	return BagOfWords(text, m.Dimensions), nil
}

// BagOfWords hashes each lowercase word of text into one of dims buckets and
// returns the L2-normalized counts.
func BagOfWords(text string, dims int) []float32 {
	if dims <= 0 {
		dims = DefaultMockDimensions
	}
	vec := make([]float32, dims)

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%uint32(dims)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
