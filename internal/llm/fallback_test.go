package llm

import (
	"math"
	"testing"
)

func TestFallbackVectorDeterministic(t *testing.T) {
	a := FallbackVector("cake boxes wholesale price")
	b := FallbackVector("cake boxes wholesale price")

	if len(a) != EmbeddingDim {
		t.Fatalf("expected dim %d, got %d", EmbeddingDim, len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vectors differ at index %d", i)
		}
	}
}

func TestFallbackVectorUnitNorm(t *testing.T) {
	vec := FallbackVector("paper bags")

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if math.Abs(norm-1) > 1e-3 {
		t.Fatalf("expected unit norm, got %f", norm)
	}
}

func TestFallbackVectorDistinguishesInputs(t *testing.T) {
	a := FallbackVector("sweet boxes")
	b := FallbackVector("kraft bags")

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different inputs produced identical vectors")
	}
}
