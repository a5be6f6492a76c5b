package core

import (
	"context"

	"github.com/kira2406/Veritas/internal/models"
)

// DocumentExtractor converts a binary document into plain text based on its
// declared media type.
type DocumentExtractor interface {
	Extract(ctx context.Context, data []byte, mediaType string) (string, error)
}

// StructuredExtractor produces a structured job-description record from
// normalized text via a schema-constrained generative-model call. It never
// sets job_id; that is the pipeline's job. Implementations do not retry
// internally — retry policy belongs to the orchestrator.
type StructuredExtractor interface {
	ExtractStructured(ctx context.Context, text string) (*models.JobDescription, error)
}

// EmbeddingProvider maps text to a fixed-dimension vector. Every vector it
// returns has exactly Dimension() components.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
