package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/kira2406/Veritas/internal/core"
	"github.com/kira2406/Veritas/internal/core/extract"
	"github.com/kira2406/Veritas/internal/core/index"
	"github.com/kira2406/Veritas/internal/core/llm"
	"github.com/kira2406/Veritas/internal/models"
)

const testDim = 8

// fakeStructured returns canned records and an optional scripted error
// sequence, counting calls so retry behavior is observable.
type fakeStructured struct {
	calls  int
	errs   []error
	record models.JobDescription
}

func (f *fakeStructured) ExtractStructured(_ context.Context, text string) (*models.JobDescription, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	rec := f.record
	rec.EnsureDefaults()
	return &rec, nil
}

// failingEmbedder wraps the deterministic embedder with a scripted error
// sequence.
type failingEmbedder struct {
	inner core.EmbeddingProvider
	errs  []error
}

func (f *failingEmbedder) Dimension() int { return f.inner.Dimension() }

func (f *failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.inner.Embed(ctx, text)
}

func newTestIndex(t *testing.T) index.VectorIndex {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	idx, err := index.NewSQLiteIndex(db, testDim)
	require.NoError(t, err)
	return idx
}

func newTestService(t *testing.T, structured core.StructuredExtractor, embedder core.EmbeddingProvider, idx index.VectorIndex) *IngestService {
	t.Helper()
	if structured == nil {
		structured = &fakeStructured{record: models.JobDescription{
			Title:          "Inferred Title",
			CompanyID:      "inferred-company",
			RequiredSkills: []string{"Go", "distributed systems"},
		}}
	}
	if embedder == nil {
		e, err := llm.NewDeterministicEmbedder(testDim)
		require.NoError(t, err)
		embedder = e
	}
	if idx == nil {
		idx = newTestIndex(t)
	}
	retry := RetryPolicy{MaxAttempts: 3, InitialBackoff: 0, Multiplier: 1}
	return NewIngestService(extract.New(), structured, embedder, idx, retry, zap.NewNop())
}

func TestIngestRawText(t *testing.T) {
	idx := newTestIndex(t)
	svc := newTestService(t, nil, nil, idx)

	rec, err := svc.Ingest(context.Background(), IngestInput{
		Title:     "Backend Engineer",
		CompanyID: "acme",
		RawText:   "Senior backend engineer. Required: Go, distributed systems.",
	})
	require.NoError(t, err)

	assert.Equal(t, "Backend Engineer", rec.Title)
	assert.Equal(t, "acme", rec.CompanyID)
	assert.NotEmpty(t, rec.JobID)
	assert.Contains(t, rec.RequiredSkills, "Go")

	entry, err := idx.Get(context.Background(), rec.JobID)
	require.NoError(t, err)
	assert.Equal(t, "Senior backend engineer. Required: Go, distributed systems.", entry.Document)
	assert.Len(t, entry.Embedding, testDim)
	assert.Equal(t, "Go\ndistributed systems", entry.Metadata["required_skills"])
}

func TestIngestOverridePrecedence(t *testing.T) {
	structured := &fakeStructured{record: models.JobDescription{
		JobID:     "model-made-this-up",
		Title:     "Model Inferred Title",
		CompanyID: "model-inferred-company",
	}}
	svc := newTestService(t, structured, nil, nil)

	rec, err := svc.Ingest(context.Background(), IngestInput{
		Title:     "Caller Title",
		CompanyID: "caller-co",
		RawText:   "some job description",
	})
	require.NoError(t, err)

	assert.Equal(t, "Caller Title", rec.Title)
	assert.Equal(t, "caller-co", rec.CompanyID)
	assert.NotEqual(t, "model-made-this-up", rec.JobID)
}

func TestIngestFreshIDPerCall(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)

	in := IngestInput{Title: "Engineer", CompanyID: "acme", RawText: "identical content"}
	first, err := svc.Ingest(context.Background(), in)
	require.NoError(t, err)
	second, err := svc.Ingest(context.Background(), in)
	require.NoError(t, err)

	assert.NotEqual(t, first.JobID, second.JobID, "retries of identical content produce distinct records")
}

func TestIngestEmptyRawText(t *testing.T) {
	idx := newTestIndex(t)
	svc := newTestService(t, nil, nil, idx)

	_, err := svc.Ingest(context.Background(), IngestInput{
		Title:     "Engineer",
		CompanyID: "acme",
		RawText:   " \n\t ",
	})
	require.Error(t, err)

	var ingestErr *core.IngestError
	require.ErrorAs(t, err, &ingestErr)
	assert.Equal(t, core.StageNormalize, ingestErr.Stage)
	require.ErrorIs(t, err, core.ErrEmptyContent)

	n, err := idx.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "no index entry on failure")
}

func TestIngestUnsupportedMediaType(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)

	_, err := svc.Ingest(context.Background(), IngestInput{
		Title:     "Engineer",
		CompanyID: "acme",
		Document:  []byte{0x89, 0x50, 0x4e, 0x47},
		MediaType: "image/png",
	})

	var ingestErr *core.IngestError
	require.ErrorAs(t, err, &ingestErr)
	assert.Equal(t, core.StageInput, ingestErr.Stage, "rejected before extraction is attempted")
	require.ErrorIs(t, err, core.ErrUnsupportedMediaType)
}

func TestIngestBothInputs(t *testing.T) {
	structured := &fakeStructured{record: models.JobDescription{Title: "x"}}
	svc := newTestService(t, structured, nil, nil)

	_, err := svc.Ingest(context.Background(), IngestInput{
		Title:     "Engineer",
		CompanyID: "acme",
		Document:  []byte("binary"),
		MediaType: extract.MediaTypePDF,
		RawText:   "also text",
	})

	var ingestErr *core.IngestError
	require.ErrorAs(t, err, &ingestErr)
	assert.Equal(t, core.StageInput, ingestErr.Stage)
	require.ErrorIs(t, err, core.ErrInvalidInput)
	assert.Zero(t, structured.calls, "no stage runs on input errors")
}

func TestIngestNeitherInput(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)

	_, err := svc.Ingest(context.Background(), IngestInput{Title: "Engineer", CompanyID: "acme"})
	require.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestIngestMissingTitleOrCompany(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)

	_, err := svc.Ingest(context.Background(), IngestInput{CompanyID: "acme", RawText: "text"})
	require.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = svc.Ingest(context.Background(), IngestInput{Title: "Engineer", RawText: "text"})
	require.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestIngestNoPartialWriteOnStructureFailure(t *testing.T) {
	idx := newTestIndex(t)
	structured := &fakeStructured{errs: []error{
		&core.ServiceError{Err: errors.New("unreachable")},
		&core.ServiceError{Err: errors.New("unreachable")},
		&core.ServiceError{Err: errors.New("unreachable")},
	}}
	svc := newTestService(t, structured, nil, idx)

	_, err := svc.Ingest(context.Background(), IngestInput{
		Title: "Engineer", CompanyID: "acme", RawText: "some text",
	})
	require.Error(t, err)

	var ingestErr *core.IngestError
	require.ErrorAs(t, err, &ingestErr)
	assert.Equal(t, core.StageStructure, ingestErr.Stage)
	assert.Equal(t, 3, structured.calls, "retried up to the attempt bound")

	var serviceErr *core.ServiceError
	assert.ErrorAs(t, err, &serviceErr, "last underlying error preserved")

	n, err := idx.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIngestStructureRetrySucceeds(t *testing.T) {
	structured := &fakeStructured{
		errs:   []error{&core.ServiceError{Err: errors.New("flaky")}, nil},
		record: models.JobDescription{Title: "Engineer"},
	}
	svc := newTestService(t, structured, nil, nil)

	_, err := svc.Ingest(context.Background(), IngestInput{
		Title: "Engineer", CompanyID: "acme", RawText: "some text",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, structured.calls)
}

func TestIngestSchemaFailureIsRetriedThenTerminal(t *testing.T) {
	schemaErr := &core.SchemaValidationError{Violations: []string{"title: must be a non-empty string"}}
	structured := &fakeStructured{errs: []error{schemaErr, schemaErr, schemaErr}}
	svc := newTestService(t, structured, nil, nil)

	_, err := svc.Ingest(context.Background(), IngestInput{
		Title: "Engineer", CompanyID: "acme", RawText: "some text",
	})
	require.Error(t, err)
	assert.Equal(t, 3, structured.calls)

	var got *core.SchemaValidationError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, schemaErr.Violations, got.Violations)
}

func TestIngestNoPartialWriteOnEmbedFailure(t *testing.T) {
	idx := newTestIndex(t)
	embedErr := &core.EmbeddingError{Err: errors.New("service down")}
	inner, err := llm.NewDeterministicEmbedder(testDim)
	require.NoError(t, err)
	embedder := &failingEmbedder{
		inner: inner,
		errs:  []error{embedErr, embedErr, embedErr},
	}
	svc := newTestService(t, nil, embedder, idx)

	_, err = svc.Ingest(context.Background(), IngestInput{
		Title: "Engineer", CompanyID: "acme", RawText: "some text",
	})
	require.Error(t, err)

	var ingestErr *core.IngestError
	require.ErrorAs(t, err, &ingestErr)
	assert.Equal(t, core.StageEmbed, ingestErr.Stage)

	n, err := idx.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIngestStoreFailure(t *testing.T) {
	// Mismatched index dimensionality forces the store stage to fail.
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	idx, err := index.NewSQLiteIndex(db, testDim+1)
	require.NoError(t, err)

	svc := newTestService(t, nil, nil, idx)

	_, err = svc.Ingest(context.Background(), IngestInput{
		Title: "Engineer", CompanyID: "acme", RawText: "some text",
	})
	require.Error(t, err)

	var ingestErr *core.IngestError
	require.ErrorAs(t, err, &ingestErr)
	assert.Equal(t, core.StageStore, ingestErr.Stage)

	n, err := idx.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSearchFiltersByRequiredSkill(t *testing.T) {
	idx := newTestIndex(t)
	svc := newTestService(t, &fakeStructured{record: models.JobDescription{
		Title:          "Platform Engineer",
		RequiredSkills: []string{"Go", "Kubernetes"},
	}}, nil, idx)

	withK8s, err := svc.Ingest(context.Background(), IngestInput{
		Title: "Platform Engineer", CompanyID: "acme",
		RawText: "Platform engineer. Required: Go, Kubernetes.",
	})
	require.NoError(t, err)

	svcNoK8s := newTestService(t, &fakeStructured{record: models.JobDescription{
		Title:          "Data Analyst",
		RequiredSkills: []string{"SQL", "Python"},
	}}, nil, idx)
	_, err = svcNoK8s.Ingest(context.Background(), IngestInput{
		Title: "Data Analyst", CompanyID: "acme",
		RawText: "Data analyst. Required: SQL, Python.",
	})
	require.NoError(t, err)

	results, err := svc.Search(context.Background(), "kubernetes platform work", "Kubernetes", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, withK8s.JobID, results[0].ID)
}

func TestSearchWithoutFilterReturnsAll(t *testing.T) {
	idx := newTestIndex(t)
	svc := newTestService(t, nil, nil, idx)

	for _, text := range []string{"first job description", "second job description"} {
		_, err := svc.Ingest(context.Background(), IngestInput{
			Title: "Engineer", CompanyID: "acme", RawText: text,
		})
		require.NoError(t, err)
	}

	results, err := svc.Search(context.Background(), "job description", "", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRetryDoesNotRetryTerminalErrors(t *testing.T) {
	calls := 0
	_, err := withRetry(context.Background(), RetryPolicy{MaxAttempts: 5}, func(context.Context) (int, error) {
		calls++
		return 0, core.ErrInvalidInput
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := withRetry(ctx, RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond, Multiplier: 2}, func(context.Context) (int, error) {
		calls++
		return 0, &core.ServiceError{Err: errors.New("flaky")}
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
