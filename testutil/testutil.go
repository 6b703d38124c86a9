package testutil

import (
	"math"
	"math/rand"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call.
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// UniformVectors generates num vectors with values in [0, 1).
func (r *RNG) UniformVectors(num int, dimensions int) [][]float32 {
	vecs := make([][]float32, num)
	for i := range vecs {
		vecs[i] = make([]float32, dimensions)
		r.FillUniform(vecs[i])
	}
	return vecs
}

// UnitVector returns a random L2-normalized vector.
func (r *RNG) UnitVector(dimensions int) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		vec := make([]float32, dimensions)
		var norm float64
		for i := range vec {
			v := r.rand.NormFloat64()
			vec[i] = float32(v)
			norm += v * v
		}

		if norm == 0 {
			continue
		}

		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
		return vec
	}
}

// UnitVectors generates num random L2-normalized vectors.
func (r *RNG) UnitVectors(num int, dimensions int) [][]float32 {
	vecs := make([][]float32, num)
	for i := range vecs {
		vecs[i] = r.UnitVector(dimensions)
	}
	return vecs
}

var words = []string{
	"vector", "index", "graph", "layer", "query", "cosine", "chunk", "ledger",
	"archive", "record", "metadata", "filter", "neighbor", "embedding", "über",
	"naïve", "résumé", "collection", "search", "document",
}

// Sentence returns a random sentence of 3 to 12 words, capitalized and
// terminated by '.', '!' or '?'. Some words contain multi-byte runes.
func (r *RNG) Sentence() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.sentence()
}

func (r *RNG) sentence() string {
	n := 3 + r.rand.Intn(10)

	parts := make([]string, n)
	for i := range parts {
		parts[i] = words[r.rand.Intn(len(words))]
	}

	first, size := utf8.DecodeRuneInString(parts[0])
	parts[0] = string(unicode.ToUpper(first)) + parts[0][size:]

	return strings.Join(parts, " ") + string(".!?"[r.rand.Intn(3)])
}

// Text returns n random sentences separated by single spaces. When
// paragraphEvery > 0, a blank line follows every paragraphEvery sentences.
func (r *RNG) Text(n, paragraphEvery int) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder

	for i := range n {
		if i > 0 {
			if paragraphEvery > 0 && i%paragraphEvery == 0 {
				b.WriteString("\n\n")
			} else {
				b.WriteByte(' ')
			}
		}

		b.WriteString(r.sentence())
	}

	return b.String()
}

// Perturb returns an L2-normalized copy of v with uniform noise in
// [-eps, eps) added to every component.
func (r *RNG) Perturb(v []float32, eps float32) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]float32, len(v))

	var norm float64
	for i, x := range v {
		out[i] = x + (2*r.rand.Float32()-1)*eps
		norm += float64(out[i]) * float64(out[i])
	}

	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range out {
			out[i] *= inv
		}
	}

	return out
}

// ComputeRecall returns the fraction of groundTruth IDs present in approximate.
func ComputeRecall[T comparable](groundTruth, approximate []T) float64 {
	if len(groundTruth) == 0 {
		return 1
	}

	found := make(map[T]struct{}, len(approximate))
	for _, id := range approximate {
		found[id] = struct{}{}
	}

	hits := 0
	for _, id := range groundTruth {
		if _, ok := found[id]; ok {
			hits++
		}
	}

	return float64(hits) / float64(len(groundTruth))
}
