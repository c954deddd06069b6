package llm

import (
	"hash/fnv"
	"math"
)

// EmbeddingDim is the dimension of text-embedding-004 vectors. The fallback
// vector must match it so degraded queries still hit the same column.
const EmbeddingDim = 768

// FallbackVector derives a deterministic unit vector from the text. It is
// semantically weak, but it keeps retrieval alive when the embedding
// provider is down instead of failing the whole turn.
func FallbackVector(text string) []float32 {
	vec := make([]float32, EmbeddingDim)
	h := fnv.New64a()
	for i := 0; i < EmbeddingDim; i++ {
		h.Reset()
		_, _ = h.Write([]byte{byte(i), byte(i >> 8)})
		_, _ = h.Write([]byte(text))
		// Spread hash output over [-1, 1).
		vec[i] = float32(int64(h.Sum64())) / float32(math.MaxInt64)
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
