// Package vector provides the text embedding stage of NeuroGalaxy and
// small helpers for working with embedding vectors.
package vector

import "context"

const (
	// DefaultEmbeddingDimensions defines the standard size of embedding vectors.
	DefaultEmbeddingDimensions = 384

	// DefaultBatchSize defines how many notes are sent per remote embedding request.
	DefaultBatchSize = 32

	// DefaultMaxInputTokens bounds the tokens the local embedder reads per note.
	DefaultMaxInputTokens = 256

	// DefaultMaxInputChars bounds the characters sent per note to a remote model.
	DefaultMaxInputChars = 8000
)

// Embedder defines the interface for creating vector embeddings from text.
type Embedder interface {
	// Embed converts texts into vectors of a fixed dimension, preserving
	// order. An empty input yields an empty result and no error.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions reports the length of every vector produced by Embed.
	Dimensions() int

	// Initialize sets up the embedder with any required configuration.
	Initialize() error
}
