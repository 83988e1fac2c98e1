package vector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/localrivet/neurogalaxy/internal/errortypes"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIEmbedderConfig holds the settings for an OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	APIKey        string
	Model         string
	BaseURL       string
	Dimensions    int
	BatchSize     int
	MaxInputChars int
	Logger        *slog.Logger

	// RequestOptions are appended to the client options (tests, proxies).
	RequestOptions []option.RequestOption
}

// OpenAIEmbedder implements Embedder against any OpenAI-compatible
// /embeddings endpoint.
type OpenAIEmbedder struct {
	client    openai.Client
	model     openai.EmbeddingModel
	dims      int
	batchSize int
	maxChars  int
	logger    *slog.Logger
}

// NewOpenAIEmbedder creates an embedder backed by the embeddings API. A
// missing API key or model means the model cannot be loaded.
func NewOpenAIEmbedder(cfg OpenAIEmbedderConfig) (*OpenAIEmbedder, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errortypes.EmbeddingError(errors.New("api key is required"), "cannot load embedding model")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errortypes.EmbeddingError(errors.New("model is required"), "cannot load embedding model")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, cfg.RequestOptions...)

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	emb := &OpenAIEmbedder{
		client:    openai.NewClient(opts...),
		model:     openai.EmbeddingModel(cfg.Model),
		dims:      cfg.Dimensions,
		batchSize: cfg.BatchSize,
		maxChars:  cfg.MaxInputChars,
		logger:    logger,
	}
	if emb.dims <= 0 {
		emb.dims = DefaultEmbeddingDimensions
	}
	if emb.batchSize <= 0 {
		emb.batchSize = DefaultBatchSize
	}
	if emb.maxChars <= 0 {
		emb.maxChars = DefaultMaxInputChars
	}
	return emb, nil
}

// Initialize sets up the embedder with any required configuration.
func (e *OpenAIEmbedder) Initialize() error {
	return nil
}

// Dimensions reports the requested embedding size.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dims
}

// Embed converts the provided texts into vectors, batching requests.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, errortypes.EmbeddingError(err, "embedding cancelled")
		}
		end := min(start+e.batchSize, len(texts))

		chunk := make([]string, 0, end-start)
		for _, text := range texts[start:end] {
			chunk = append(chunk, truncateChars(text, e.maxChars))
		}

		resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Model:      e.model,
			Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: chunk},
			Dimensions: openai.Int(int64(e.dims)),
		})
		if err != nil {
			return nil, errortypes.EmbeddingError(err, "embedding request failed").
				WithField("batch_start", start)
		}
		if len(resp.Data) != len(chunk) {
			return nil, errortypes.EmbeddingError(
				fmt.Errorf("expected %d vectors got %d", len(chunk), len(resp.Data)),
				"embedding response size mismatch")
		}

		for i, data := range resp.Data {
			pos := i
			if idx := int(data.Index); idx >= 0 && idx < len(chunk) {
				pos = idx
			}
			if len(data.Embedding) != e.dims {
				return nil, errortypes.EmbeddingError(
					fmt.Errorf("expected dimension %d got %d", e.dims, len(data.Embedding)),
					"embedding dimension mismatch")
			}
			vec := make([]float32, len(data.Embedding))
			for j, v := range data.Embedding {
				vec[j] = float32(v)
			}
			result[start+pos] = vec
		}
		e.logger.Debug("Embedded batch", "start", start, "size", len(chunk))
	}
	return result, nil
}

// truncateChars cuts text to at most n runes.
func truncateChars(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n])
}
