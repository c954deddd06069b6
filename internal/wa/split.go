package wa

import "strings"

// MaxBodyLen is the per-message character budget. Longer bodies are split
// on paragraph boundaries into sequential sends, never truncated.
const MaxBodyLen = 1500

// SplitBody breaks text into chunks of at most MaxBodyLen characters,
// preferring paragraph boundaries, then line boundaries. A single
// oversized paragraph is hard-wrapped as a last resort.
func SplitBody(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= MaxBodyLen {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if len(para) > MaxBodyLen {
			flush()
			chunks = append(chunks, hardWrap(para)...)
			continue
		}

		// +2 for the paragraph separator being re-added.
		if current.Len()+len(para)+2 > MaxBodyLen {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()
	return chunks
}

func hardWrap(para string) []string {
	var chunks []string
	var current strings.Builder
	for _, line := range strings.Split(para, "\n") {
		for len(line) > MaxBodyLen {
			chunks = append(chunks, line[:MaxBodyLen])
			line = line[MaxBodyLen:]
		}
		if current.Len()+len(line)+1 > MaxBodyLen {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}
	return chunks
}
