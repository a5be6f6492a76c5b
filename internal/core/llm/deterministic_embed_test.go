package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kira2406/Veritas/internal/core"
)

func newTestEmbedder(t *testing.T, dim int) *DeterministicEmbedder {
	t.Helper()
	e, err := NewDeterministicEmbedder(dim)
	require.NoError(t, err)
	return e
}

func TestDeterministicEmbedderDimension(t *testing.T) {
	e := newTestEmbedder(t, 1536)
	require.Equal(t, 1536, e.Dimension())

	vec, err := e.Embed(context.Background(), "backend engineer role")
	require.NoError(t, err)
	assert.Len(t, vec, 1536)
}

func TestDeterministicEmbedderRejectsInvalidDimension(t *testing.T) {
	for _, dim := range []int{0, -1} {
		_, err := NewDeterministicEmbedder(dim)
		require.Error(t, err, "dim %d", dim)
	}
}

func TestDeterministicEmbedderReproducible(t *testing.T) {
	e := newTestEmbedder(t, 64)

	first, err := e.Embed(context.Background(), "identical input text")
	require.NoError(t, err)
	second, err := e.Embed(context.Background(), "identical input text")
	require.NoError(t, err)

	assert.Equal(t, first, second, "same text must produce bit-identical vectors")
}

func TestDeterministicEmbedderDistinguishesText(t *testing.T) {
	e := newTestEmbedder(t, 64)

	a, err := e.Embed(context.Background(), "text a")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "text b")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestDeterministicEmbedderRejectsEmptyText(t *testing.T) {
	e := newTestEmbedder(t, 64)

	for _, in := range []string{"", "   ", "\n\t"} {
		_, err := e.Embed(context.Background(), in)
		var embedErr *core.EmbeddingError
		require.ErrorAs(t, err, &embedErr, "input %q", in)
	}
}
