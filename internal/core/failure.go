package core

import (
	"errors"
	"fmt"
	"strings"
)

// Stage identifies where in the ingestion pipeline a failure occurred.
type Stage string

const (
	StageInput     Stage = "input"
	StageExtract   Stage = "extract"
	StageNormalize Stage = "normalize"
	StageStructure Stage = "structure"
	StageEmbed     Stage = "embed"
	StageStore     Stage = "store"
)

var (
	// ErrInvalidInput marks a caller-side violation of the ingestion contract.
	ErrInvalidInput = errors.New("invalid ingestion input")

	// ErrUnsupportedMediaType is returned for any media type other than the
	// recognized PDF and DOCX types.
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrEmptyContent means the document had no content left after normalization.
	ErrEmptyContent = errors.New("empty content after normalization")

	// ErrDuplicateID is returned when an index add collides with an existing id.
	// Ids are freshly generated per ingestion, so hitting this is an internal
	// invariant violation rather than a normal user-facing condition.
	ErrDuplicateID = errors.New("id already present in index")

	// ErrNotFound is returned by index point lookups for unknown ids.
	ErrNotFound = errors.New("index entry not found")

	// ErrDimensionMismatch is returned by the index when a vector does not have
	// the configured dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// ExtractionError wraps the underlying parse error from a binary document.
type ExtractionError struct {
	MediaType string
	Err       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s document: %v", e.MediaType, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// SchemaValidationError means the generative model returned output that could
// not be coerced into the job-description schema. It carries the field-level
// violations and is retryable a bounded number of times.
type SchemaValidationError struct {
	Violations []string
}

func (e *SchemaValidationError) Error() string {
	return "schema validation failed: " + strings.Join(e.Violations, "; ")
}

// ServiceError is a transport or service failure from the generative-text
// service (timeout, non-2xx, malformed response). Retryable with backoff.
type ServiceError struct {
	Err error
}

func (e *ServiceError) Error() string { return "generative service: " + e.Err.Error() }
func (e *ServiceError) Unwrap() error { return e.Err }

// EmbeddingError is a failure to produce an embedding vector. Retryable with
// backoff, except that empty input never reaches the external call.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string { return "embedding: " + e.Err.Error() }
func (e *EmbeddingError) Unwrap() error { return e.Err }

// Retryable reports whether the whole operation that produced err may be
// retried with the same input. Caller errors, extraction failures and store
// failures are terminal; model-side failures are transient.
func Retryable(err error) bool {
	var (
		schemaErr  *SchemaValidationError
		serviceErr *ServiceError
		embedErr   *EmbeddingError
	)
	return errors.As(err, &schemaErr) || errors.As(err, &serviceErr) || errors.As(err, &embedErr)
}

// IngestError tags a pipeline failure with the stage it occurred in and a
// human-readable reason, so callers can tell a fixable input problem from a
// transient service one.
type IngestError struct {
	Stage  Stage
	Reason string
	Err    error
}

func (e *IngestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ingest failed at %s stage: %s: %v", e.Stage, e.Reason, e.Err)
	}
	return fmt.Sprintf("ingest failed at %s stage: %s", e.Stage, e.Reason)
}

func (e *IngestError) Unwrap() error { return e.Err }

// Fail wraps err as an IngestError for the given stage.
func Fail(stage Stage, reason string, err error) *IngestError {
	return &IngestError{Stage: stage, Reason: reason, Err: err}
}
