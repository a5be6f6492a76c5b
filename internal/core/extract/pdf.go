package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kira2406/Veritas/internal/core"
)

// extractPDF decodes pages in order and concatenates their text with no added
// separators beyond what the source embeds.
func extractPDF(data []byte) (text string, err error) {
	// The pdf package panics on some corrupt inputs; fold those into the
	// same extraction error the caller already handles.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &core.ExtractionError{MediaType: MediaTypePDF, Err: fmt.Errorf("pdf parse panic: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &core.ExtractionError{MediaType: MediaTypePDF, Err: err}
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", &core.ExtractionError{MediaType: MediaTypePDF, Err: fmt.Errorf("page %d: %w", i, err)}
		}
		b.WriteString(pageText)
	}
	return b.String(), nil
}
