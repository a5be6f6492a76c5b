package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kira2406/Veritas/internal/core"
	"github.com/kira2406/Veritas/internal/models"
)

// decodeRecord coerces raw model output into a JobDescription. Coercion
// failures come back as *core.SchemaValidationError with field-level
// violations; unknown fields are tolerated, wrong types are not.
func decodeRecord(raw []byte) (*models.JobDescription, error) {
	var rec models.JobDescription
	if err := json.Unmarshal(raw, &rec); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			field := typeErr.Field
			if field == "" {
				field = "(document)"
			}
			return nil, &core.SchemaValidationError{
				Violations: []string{fmt.Sprintf("%s: expected %s, got %s", field, typeErr.Type, typeErr.Value)},
			}
		}
		return nil, &core.SchemaValidationError{
			Violations: []string{"malformed JSON: " + err.Error()},
		}
	}

	var violations []string
	if strings.TrimSpace(rec.Title) == "" {
		violations = append(violations, "title: must be a non-empty string")
	}
	if len(violations) > 0 {
		return nil, &core.SchemaValidationError{Violations: violations}
	}

	rec.JobID = ""
	rec.EnsureDefaults()
	return &rec, nil
}
