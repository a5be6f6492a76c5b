package extract

import (
	"bytes"
	"strings"

	"code.sajari.com/docconv"

	"github.com/kira2406/Veritas/internal/core"
)

// extractDOCX concatenates non-blank paragraph texts, one per line, in the
// original document order.
func extractDOCX(data []byte) (string, error) {
	body, _, err := docconv.ConvertDocx(bytes.NewReader(data))
	if err != nil {
		return "", &core.ExtractionError{MediaType: MediaTypeDOCX, Err: err}
	}

	var paragraphs []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		paragraphs = append(paragraphs, line)
	}
	return strings.Join(paragraphs, "\n"), nil
}
