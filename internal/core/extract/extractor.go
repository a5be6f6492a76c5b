package extract

import (
	"context"
	"fmt"

	"github.com/kira2406/Veritas/internal/core"
)

// Recognized media types. Anything else is rejected before extraction is
// attempted.
const (
	MediaTypePDF  = "application/pdf"
	MediaTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Supported reports whether mediaType has a registered extraction strategy.
func Supported(mediaType string) bool {
	return mediaType == MediaTypePDF || mediaTypeIsDOCX(mediaType)
}

func mediaTypeIsDOCX(mediaType string) bool {
	return mediaType == MediaTypeDOCX
}

var _ core.DocumentExtractor = (*Extractor)(nil)

// Extractor converts PDF and DOCX documents into plain text.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// Extract dispatches on the declared media type. Malformed input surfaces as
// a *core.ExtractionError, never as a panic.
func (e *Extractor) Extract(ctx context.Context, data []byte, mediaType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch {
	case mediaType == MediaTypePDF:
		return extractPDF(data)
	case mediaTypeIsDOCX(mediaType):
		return extractDOCX(data)
	default:
		return "", fmt.Errorf("%w: %q", core.ErrUnsupportedMediaType, mediaType)
	}
}
