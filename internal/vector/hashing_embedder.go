package vector

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/localrivet/neurogalaxy/internal/errortypes"
)

// trigramWeight scales character trigram features relative to whole words.
const trigramWeight = 0.5

// HashingEmbedder creates deterministic embeddings locally by feature hashing
// word unigrams and character trigrams into a fixed number of buckets.
// Similar wording produces nearby vectors, which is enough for topic layout
// without a network round trip.
type HashingEmbedder struct {
	dimensions int
	maxTokens  int
}

// NewHashingEmbedder creates a HashingEmbedder. Non-positive arguments fall
// back to DefaultEmbeddingDimensions and DefaultMaxInputTokens.
func NewHashingEmbedder(dimensions, maxTokens int) *HashingEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxInputTokens
	}
	return &HashingEmbedder{
		dimensions: dimensions,
		maxTokens:  maxTokens,
	}
}

// Initialize sets up the embedder with any required configuration.
func (e *HashingEmbedder) Initialize() error {
	if e.dimensions <= 0 {
		return errortypes.EmbeddingError(nil, "embedding dimensions must be positive")
	}
	return nil
}

// Dimensions reports the embedding size.
func (e *HashingEmbedder) Dimensions() int {
	return e.dimensions
}

// Embed hashes every text into a unit vector. Texts longer than the token
// limit are truncated. A text without any tokens maps to the zero vector.
func (e *HashingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, errortypes.EmbeddingError(err, "embedding cancelled")
		}
		out[i] = e.embedOne(text)
	}
	return out, nil
}

func (e *HashingEmbedder) embedOne(text string) []float32 {
	vec := make([]float64, e.dimensions)

	tokens := Tokenize(text)
	if len(tokens) > e.maxTokens {
		tokens = tokens[:e.maxTokens]
	}

	for _, tok := range tokens {
		e.add(vec, "w:"+tok, 1)

		padded := []rune("#" + tok + "#")
		for j := 0; j+3 <= len(padded); j++ {
			e.add(vec, "c:"+string(padded[j:j+3]), trigramWeight)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}

	embedding := make([]float32, e.dimensions)
	if norm == 0 {
		return embedding
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		embedding[i] = float32(v / norm)
	}
	return embedding
}

// add accumulates a signed feature into its hash bucket.
func (e *HashingEmbedder) add(vec []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()

	idx := int(sum % uint64(e.dimensions))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

// Tokenize lowercases text and splits it into letter/digit runs.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
