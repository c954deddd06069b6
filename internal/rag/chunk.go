package rag

import "strings"

// Chunking defaults for indexed documents.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
)

// SplitText cuts text into chunks of at most size runes with the given
// overlap, preferring paragraph and sentence boundaries so a chunk stays
// readable on its own. Overlap is clamped below size.
func SplitText(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 10
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = breakPoint(runes, start, end)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
		start = end - overlap
		if start < 0 {
			start = 0
		}
	}
	return chunks
}

// breakPoint walks back from end looking for a paragraph break, then a
// sentence end, then a space. Falls back to the hard cut.
func breakPoint(runes []rune, start, end int) int {
	minCut := start + (end-start)/2

	for i := end; i > minCut; i-- {
		if i < len(runes) && runes[i-1] == '\n' {
			return i
		}
	}
	for i := end; i > minCut; i-- {
		c := runes[i-1]
		if c == '.' || c == '!' || c == '?' {
			return i
		}
	}
	for i := end; i > minCut; i-- {
		if runes[i-1] == ' ' {
			return i
		}
	}
	return end
}
