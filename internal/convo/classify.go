package convo

import (
	"strconv"
	"strings"
)

// Kind tags the classification of an inbound message body.
type Kind int

const (
	// KindGreeting is a greeting/reset keyword: jump to menu, clear context.
	KindGreeting Kind = iota
	// KindMenuReset is an explicit menu command: jump to menu, clear context.
	KindMenuReset
	// KindSelection is a numeric menu selection.
	KindSelection
	// KindFreeText is anything else.
	KindFreeText
)

// Classification is the tagged result of classifying one message body.
type Classification struct {
	Kind      Kind
	Selection int
	Text      string
}

var greetingWords = map[string]struct{}{
	"hi": {}, "hii": {}, "hiii": {}, "hello": {}, "hey": {},
	"namaste": {}, "good morning": {}, "good afternoon": {}, "good evening": {},
	"start": {}, "restart": {},
}

var menuWords = map[string]struct{}{
	"menu": {}, "main menu": {}, "home": {}, "back": {}, "0": {},
}

// Classify maps a raw body onto the single keyword grammar every stage
// handler consumes. Priority: greeting/reset, menu command, numeric
// selection, free text.
func Classify(body string) Classification {
	text := strings.TrimSpace(body)
	lower := strings.ToLower(strings.TrimRight(text, "!. "))

	if _, ok := greetingWords[lower]; ok {
		return Classification{Kind: KindGreeting, Text: text}
	}
	if _, ok := menuWords[lower]; ok {
		return Classification{Kind: KindMenuReset, Text: text}
	}
	if n, err := strconv.Atoi(lower); err == nil && n > 0 {
		return Classification{Kind: KindSelection, Selection: n, Text: text}
	}
	return Classification{Kind: KindFreeText, Text: text}
}

// LooksConversational reports whether free text in a multi-step flow should
// trigger the exit-flow interrupt rather than a re-prompt: not purely
// numeric and not a known short command.
func LooksConversational(c Classification) bool {
	if c.Kind != KindFreeText {
		return false
	}
	lower := strings.ToLower(c.Text)
	switch lower {
	case "yes", "no", "ok", "okay", "y", "n", "skip", "cancel":
		return false
	}
	return len(strings.Fields(lower)) >= 2 || len(lower) > 12
}

// IsAffirmative reports whether the text is a yes-like confirmation.
func IsAffirmative(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "yes", "y", "yeah", "yep", "ok", "okay", "confirm", "1", "haan", "ha":
		return true
	}
	return false
}

// IsNegative reports whether the text is a no-like rejection.
func IsNegative(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "no", "n", "nope", "cancel", "2", "nahi":
		return true
	}
	return false
}
