package llm

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/kira2406/Veritas/internal/core"
)

var _ core.EmbeddingProvider = (*DeterministicEmbedder)(nil)

// DeterministicEmbedder produces reproducible vectors seeded from the content
// hash of the input text. The same text always yields a bit-identical vector,
// which makes pipeline tests reproducible without a live model. Selecting it
// is an explicit configuration choice, never a fallback.
type DeterministicEmbedder struct {
	dim int
}

func NewDeterministicEmbedder(dim int) (*DeterministicEmbedder, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}
	return &DeterministicEmbedder{dim: dim}, nil
}

func (e *DeterministicEmbedder) Dimension() int { return e.dim }

func (e *DeterministicEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &core.EmbeddingError{Err: errors.New("cannot embed empty text")}
	}

	sum := sha256.Sum256([]byte(text))
	rng := rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(sum[0:8]),
		binary.LittleEndian.Uint64(sum[8:16]),
	))

	vec := make([]float32, e.dim)
	for i := range vec {
		vec[i] = rng.Float32()
	}
	return vec, nil
}
