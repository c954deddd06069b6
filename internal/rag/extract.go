package rag

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	mediaMarkerRe  = regexp.MustCompile(`\[IMAGE:\s*(\S+?)\s*\]`)
	contextBlockRe = regexp.MustCompile("(?s)```ORDER_CONTEXT\\s*(\\{.*?\\})\\s*```")
)

// ExtractMediaMarkers strips inline [IMAGE: url] markers from an answer and
// returns the cleaned text plus the collected URLs in order of appearance.
func ExtractMediaMarkers(answer string) (string, []string) {
	var urls []string
	clean := mediaMarkerRe.ReplaceAllStringFunc(answer, func(marker string) string {
		sub := mediaMarkerRe.FindStringSubmatch(marker)
		if len(sub) == 2 && sub[1] != "" {
			urls = append(urls, sub[1])
		}
		return ""
	})
	return strings.TrimSpace(clean), urls
}

// ExtractContextBlock pulls the fenced ORDER_CONTEXT JSON segment out of a
// generated answer. The block is untrusted model output: on any parse
// failure it returns ok=false and the answer unchanged, so the caller keeps
// its prior context instead of corrupting state.
func ExtractContextBlock(answer string) (clean string, fields map[string]any, ok bool) {
	sub := contextBlockRe.FindStringSubmatch(answer)
	if len(sub) != 2 {
		return answer, nil, false
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(sub[1]), &parsed); err != nil || parsed == nil {
		return answer, nil, false
	}

	clean = strings.TrimSpace(contextBlockRe.ReplaceAllString(answer, ""))
	return clean, parsed, true
}
