package embed

import (
	"context"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/hupe1980/vecdb/distance"
)

// DefaultHashDimension is the default dimension of the Hash embedder.
const DefaultHashDimension = 256

// Hash embeds text by hashing lowercase word unigrams and bigrams into a
// fixed number of signed buckets. Texts sharing words land close together
// under cosine similarity. Output is L2-normalized and deterministic.
type Hash struct {
	dim int
}

var _ Embedder = (*Hash)(nil)

// NewHash creates a Hash embedder. Dimensions <= 0 use DefaultHashDimension.
func NewHash(dim int) *Hash {
	if dim <= 0 {
		dim = DefaultHashDimension
	}

	return &Hash{dim: dim}
}

// Dimension implements Embedder.
func (h *Hash) Dimension() int { return h.dim }

// Embed implements Embedder.
func (h *Hash) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	vec := make([]float32, h.dim)

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	for i, w := range words {
		h.add(vec, w, 1)

		if i > 0 {
			h.add(vec, words[i-1]+" "+w, 0.5)
		}
	}

	distance.NormalizeL2InPlace(vec)

	return vec, nil
}

// EmbedBatch implements Embedder.
func (h *Hash) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	out := make([][]float32, len(texts))

	for i, t := range texts {
		v, err := h.Embed(ctx, t)
		if err != nil {
			return nil, err
		}

		out[i] = v
	}

	return out, nil
}

func (h *Hash) add(vec []float32, token string, weight float32) {
	sum := xxhash.Sum64String(token)

	bucket := sum % uint64(h.dim)
	if sum>>63 == 1 {
		weight = -weight
	}

	vec[bucket] += weight
}
