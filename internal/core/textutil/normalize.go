package textutil

import "strings"

// Normalize collapses extracted text into its canonical form: blank lines are
// dropped, every run of whitespace (including newlines) becomes a single
// space, and leading/trailing whitespace is trimmed. Total and deterministic;
// empty input yields empty output.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	kept := make([]string, 0, strings.Count(text, "\n")+1)
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		kept = append(kept, line)
	}

	return strings.Join(strings.Fields(strings.Join(kept, "\n")), " ")
}
