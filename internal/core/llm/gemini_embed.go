package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/kira2406/Veritas/internal/core"
)

var _ core.EmbeddingProvider = (*GeminiEmbedder)(nil)

// GeminiEmbedder produces embeddings via the Gemini API. Every returned
// vector is checked against the configured dimension.
type GeminiEmbedder struct {
	client    *genai.Client
	modelName string
	dim       int
}

func NewGeminiEmbedder(ctx context.Context, apiKey, modelName string, dim int) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "text-embedding-004"
	}
	return &GeminiEmbedder{client: cl, modelName: modelName, dim: dim}, nil
}

func (g *GeminiEmbedder) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiEmbedder) Dimension() int { return g.dim }

func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &core.EmbeddingError{Err: errors.New("cannot embed empty text")}
	}

	em := g.client.EmbeddingModel(g.modelName)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, &core.EmbeddingError{Err: fmt.Errorf("gemini embed: %w", err)}
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, &core.EmbeddingError{Err: errors.New("no embedding values returned")}
	}

	vec := res.Embedding.Values
	if len(vec) != g.dim {
		return nil, &core.EmbeddingError{Err: fmt.Errorf("model returned %d dimensions, want %d", len(vec), g.dim)}
	}
	return vec, nil
}
