package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kira2406/Veritas/internal/core"
	"github.com/kira2406/Veritas/internal/core/extract"
	"github.com/kira2406/Veritas/internal/core/index"
	"github.com/kira2406/Veritas/internal/core/textutil"
	"github.com/kira2406/Veritas/internal/models"
)

// IngestInput is one ingestion request. Exactly one of Document/RawText must
// be supplied; Title and CompanyID are required and always win over anything
// the model infers.
type IngestInput struct {
	Title     string
	CompanyID string
	Document  []byte
	MediaType string
	RawText   string
}

// IngestService chains extraction, normalization, structured extraction,
// embedding and indexed storage into one ingestion pipeline.
type IngestService struct {
	extractor  core.DocumentExtractor
	structured core.StructuredExtractor
	embedder   core.EmbeddingProvider
	idx        index.VectorIndex
	retry      RetryPolicy
	logger     *zap.Logger
}

func NewIngestService(
	extractor core.DocumentExtractor,
	structured core.StructuredExtractor,
	embedder core.EmbeddingProvider,
	idx index.VectorIndex,
	retry RetryPolicy,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		extractor:  extractor,
		structured: structured,
		embedder:   embedder,
		idx:        idx,
		retry:      retry,
		logger:     logger,
	}
}

// Ingest runs the pipeline stages in order, short-circuiting on the first
// failure. The index is written exactly once, at the end, or not at all;
// earlier stages have no durable side effects.
func (s *IngestService) Ingest(ctx context.Context, in IngestInput) (*models.JobDescription, error) {
	// Stage 1: input contract.
	hasDoc := len(in.Document) > 0
	hasText := in.RawText != ""
	switch {
	case hasDoc && hasText:
		return nil, core.Fail(core.StageInput, "provide either a document or raw text, not both", core.ErrInvalidInput)
	case !hasDoc && !hasText:
		return nil, core.Fail(core.StageInput, "either a document or raw text is required", core.ErrInvalidInput)
	}
	if in.Title == "" {
		return nil, core.Fail(core.StageInput, "title is required", core.ErrInvalidInput)
	}
	if in.CompanyID == "" {
		return nil, core.Fail(core.StageInput, "company_id is required", core.ErrInvalidInput)
	}
	if hasDoc && !extract.Supported(in.MediaType) {
		return nil, core.Fail(core.StageInput, "unsupported media type "+in.MediaType, core.ErrUnsupportedMediaType)
	}

	// Stage 2: text extraction, bypassed for raw text.
	text := in.RawText
	if hasDoc {
		extracted, err := s.extractor.Extract(ctx, in.Document, in.MediaType)
		if err != nil {
			return nil, core.Fail(core.StageExtract, "text extraction failed", err)
		}
		text = extracted
	}

	// Stage 3: normalization.
	normalized := textutil.Normalize(text)
	if normalized == "" {
		return nil, core.Fail(core.StageNormalize, "empty_content", core.ErrEmptyContent)
	}

	// Stage 4: the pipeline, not the model, owns the identifier.
	jobID := uuid.NewString()

	// Stages 5 and 6 both depend only on the normalized text and share no
	// state, so they run concurrently; the first failure cancels the sibling.
	var (
		record    *models.JobDescription
		embedding []float32
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rec, err := withRetry(gctx, s.retry, func(ctx context.Context) (*models.JobDescription, error) {
			return s.structured.ExtractStructured(ctx, normalized)
		})
		if err != nil {
			return core.Fail(core.StageStructure, "structured extraction failed", err)
		}
		record = rec
		return nil
	})
	g.Go(func() error {
		vec, err := withRetry(gctx, s.retry, func(ctx context.Context) ([]float32, error) {
			return s.embedder.Embed(ctx, normalized)
		})
		if err != nil {
			return core.Fail(core.StageEmbed, "embedding generation failed", err)
		}
		embedding = vec
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Caller-supplied identity always wins over model inference.
	record.JobID = jobID
	record.CompanyID = in.CompanyID
	record.Title = in.Title
	record.EnsureDefaults()

	// Stage 7: flatten for filterable storage.
	meta := record.FlatMetadata()

	// Stage 8: the single durable write.
	err := s.idx.Add(ctx, index.Entry{
		ID:        jobID,
		Document:  normalized,
		Embedding: embedding,
		Metadata:  meta,
	})
	if err != nil {
		if errors.Is(err, core.ErrDuplicateID) {
			// Ids are freshly generated, so a collision is an invariant
			// violation worth shouting about.
			s.logger.Error("freshly generated job id collided in index",
				zap.String("job_id", jobID), zap.Error(err))
		}
		return nil, core.Fail(core.StageStore, "index write failed", err)
	}

	s.logger.Info("job description ingested",
		zap.String("job_id", jobID),
		zap.String("company_id", in.CompanyID),
		zap.Int("document_length", len(normalized)),
	)
	return record, nil
}

// Get returns the stored index entry for a job id.
func (s *IngestService) Get(ctx context.Context, jobID string) (*index.Entry, error) {
	return s.idx.Get(ctx, jobID)
}

// Search embeds the query text and runs a similarity query, optionally
// filtered to entries whose required skills contain requiredSkill.
func (s *IngestService) Search(ctx context.Context, queryText, requiredSkill string, limit int) ([]index.Entry, error) {
	vec, err := withRetry(ctx, s.retry, func(ctx context.Context) ([]float32, error) {
		return s.embedder.Embed(ctx, queryText)
	})
	if err != nil {
		return nil, err
	}

	var f index.Filter
	if requiredSkill != "" {
		f.Contains = map[string]string{"required_skills": requiredSkill}
	}
	return s.idx.Query(ctx, vec, f, limit)
}
