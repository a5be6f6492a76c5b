package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", " \n\t\n   \n", ""},
		{"single line", "Senior Backend Engineer", "Senior Backend Engineer"},
		{"blank lines dropped", "Senior Engineer\n\n\nRemote", "Senior Engineer Remote"},
		{"runs collapsed", "Go,\t distributed   systems", "Go, distributed systems"},
		{"trimmed", "  padded text  ", "padded text"},
		{"windows newlines", "line one\r\nline two", "line one line two"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain text",
		"Multi\n\nline\n  document\twith   noise\n",
		"   lots\n \n of \n\n whitespace   ",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}
