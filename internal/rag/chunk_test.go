package rag

import (
	"strings"
	"testing"
)

func TestSplitTextShortInputSingleChunk(t *testing.T) {
	chunks := SplitText("kraft boxes come in three sizes", 1000, 100)
	if len(chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(chunks))
	}
}

func TestSplitTextEmptyInput(t *testing.T) {
	if chunks := SplitText("   \n ", 1000, 100); chunks != nil {
		t.Fatalf("chunks = %v, want nil", chunks)
	}
}

func TestSplitTextPrefersParagraphBreaks(t *testing.T) {
	para := strings.Repeat("a", 60) + "\n" + strings.Repeat("b", 60)
	chunks := SplitText(para, 100, 10)
	if len(chunks) < 2 {
		t.Fatalf("chunks = %d, want split", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], "a") {
		t.Fatalf("first chunk should end at the paragraph break, got %q", chunks[0])
	}
}

func TestSplitTextOverlapCarriesContext(t *testing.T) {
	text := strings.Repeat("word ", 500)
	chunks := SplitText(text, 200, 50)
	if len(chunks) < 2 {
		t.Fatalf("chunks = %d, want several", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		head := chunks[i][:20]
		if !strings.Contains(chunks[i-1], strings.TrimSpace(head)) {
			t.Fatalf("chunk %d does not overlap its predecessor", i)
		}
	}
}

func TestSplitTextCoversAllContent(t *testing.T) {
	text := strings.Repeat("alpha beta gamma. ", 200)
	chunks := SplitText(text, 300, 30)
	joined := strings.Join(chunks, " ")
	if !strings.Contains(joined, "alpha beta gamma.") {
		t.Fatal("content lost during split")
	}
	for _, c := range chunks {
		if len([]rune(c)) > 300 {
			t.Fatalf("chunk exceeds size: %d runes", len([]rune(c)))
		}
	}
}
