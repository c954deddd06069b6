package wa

import (
	"strings"
	"testing"
)

func TestSplitBodyShortPassthrough(t *testing.T) {
	chunks := SplitBody("hello")
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Fatalf("expected single chunk, got %v", chunks)
	}
}

func TestSplitBodyEmpty(t *testing.T) {
	if chunks := SplitBody("   "); chunks != nil {
		t.Fatalf("expected nil, got %v", chunks)
	}
}

func TestSplitBodyOnParagraphs(t *testing.T) {
	para := strings.Repeat("a", 900)
	text := para + "\n\n" + para + "\n\n" + para

	chunks := SplitBody(text)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > MaxBodyLen {
			t.Fatalf("chunk %d exceeds budget: %d", i, len(c))
		}
	}
}

func TestSplitBodyKeepsSmallParagraphsTogether(t *testing.T) {
	text := "first para\n\nsecond para"
	chunks := SplitBody(text)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0], "first para") || !strings.Contains(chunks[0], "second para") {
		t.Fatalf("paragraphs lost: %q", chunks[0])
	}
}

func TestSplitBodyOversizedParagraph(t *testing.T) {
	text := strings.Repeat("b", 2*MaxBodyLen+10)
	chunks := SplitBody(text)

	var total int
	for i, c := range chunks {
		if len(c) > MaxBodyLen {
			t.Fatalf("chunk %d exceeds budget: %d", i, len(c))
		}
		total += len(c)
	}
	if total != 2*MaxBodyLen+10 {
		t.Fatalf("content lost during split: got %d chars", total)
	}
}
