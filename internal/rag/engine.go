package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"packbot/internal/metrics"
	"packbot/internal/search"
	"packbot/internal/vector"
)

// Canned replies for degraded paths. Generation failures must never reach
// the user as errors.
const (
	NoInfoAnswer  = "I could not find that in our product knowledge. Please rephrase, or type *menu* to see what I can help with."
	ApologyAnswer = "Sorry, I am having trouble answering right now. Please try again in a moment."
)

const defaultSystemPrompt = `You are the WhatsApp assistant of a packaging manufacturer.
Answer only from the provided context. Be concise and friendly.
If the context does not contain the answer, say you do not have that information.
When a product image URL is relevant, include it inline as [IMAGE: <url>].`

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces an answer from a system prompt and user turn.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// VectorStore runs nearest-neighbour queries over indexed documents.
type VectorStore interface {
	Query(ctx context.Context, namespace string, vec []float32, topK int, filter map[string]string) ([]vector.Match, error)
}

// WebSearcher is the optional site-scoped fallback for non-strict queries.
type WebSearcher interface {
	Available() bool
	Search(ctx context.Context, query string, limit int) ([]search.Result, error)
}

// Fallback produces a deterministic stand-in vector when embedding fails.
type Fallback func(text string) []float32

// Request describes one retrieval-augmented query.
type Request struct {
	Query        string
	TopK         int
	Namespace    string
	Filter       map[string]string
	Strict       bool
	SystemPrompt string
}

// Result is the engine's answer plus supporting material.
type Result struct {
	Answer    string
	Context   string
	Matches   []vector.Match
	MediaURLs []string
}

// Engine orchestrates embedding, vector search, optional web-search
// fallback, context assembly and answer generation.
type Engine struct {
	embedder  Embedder
	generator Generator
	store     VectorStore
	web       WebSearcher
	fallback  Fallback
	logger    *slog.Logger
	metrics   *metrics.Metrics
	namespace string
	topK      int
}

// Config holds engine defaults.
type Config struct {
	DefaultNamespace string
	DefaultTopK      int
}

// New creates an Engine. web may be nil when no search fallback is wired.
func New(embedder Embedder, generator Generator, store VectorStore, web WebSearcher, fallback Fallback, logger *slog.Logger, metricRegistry *metrics.Metrics, cfg Config) *Engine {
	namespace := cfg.DefaultNamespace
	if namespace == "" {
		namespace = "knowledge"
	}
	topK := cfg.DefaultTopK
	if topK <= 0 {
		topK = 5
	}
	return &Engine{
		embedder:  embedder,
		generator: generator,
		store:     store,
		web:       web,
		fallback:  fallback,
		logger:    logger.With("component", "rag"),
		metrics:   metricRegistry,
		namespace: namespace,
		topK:      topK,
	}
}

// Query answers a question from indexed knowledge. Embedding failures
// degrade to the fallback vector; generation failures degrade to a canned
// apology. Vector-store failures propagate so the caller can show its own
// fallback message.
func (e *Engine) Query(ctx context.Context, req Request) (*Result, error) {
	mode := "open"
	if req.Strict {
		mode = "strict"
	}
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.RAGLatency.WithLabelValues(mode).Observe(time.Since(start).Seconds())
		}
	}()

	namespace := req.Namespace
	if namespace == "" {
		namespace = e.namespace
	}
	topK := req.TopK
	if topK <= 0 {
		topK = e.topK
	}

	vec, err := e.embedder.Embed(ctx, req.Query)
	if err != nil {
		e.logger.Warn("embedding failed, using fallback vector", "error", err)
		vec = e.fallback(req.Query)
	}

	matches, err := e.store.Query(ctx, namespace, vec, topK, req.Filter)
	if err != nil {
		e.countQuery(mode, "retrieval_error")
		return nil, fmt.Errorf("vector query: %w", err)
	}

	contextText, mediaURLs := assembleContext(matches)

	if req.Strict && contextText == "" {
		e.countQuery(mode, "no_match")
		return &Result{Answer: NoInfoAnswer, Matches: matches}, nil
	}

	if !req.Strict && contextText == "" && e.web != nil && e.web.Available() {
		results, err := e.web.Search(ctx, req.Query, 3)
		if err != nil {
			e.logger.Warn("web search fallback failed", "error", err)
		} else {
			contextText = assembleWebContext(results)
		}
	}

	system := req.SystemPrompt
	if system == "" {
		system = defaultSystemPrompt
	}
	user := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextText, req.Query)

	answer, err := e.generator.Generate(ctx, system, user)
	if err != nil {
		e.logger.Error("generation failed", "error", err)
		e.countQuery(mode, "generation_error")
		return &Result{Answer: ApologyAnswer, Context: contextText, Matches: matches, MediaURLs: mediaURLs}, nil
	}

	answer, inlineMedia := ExtractMediaMarkers(answer)
	mediaURLs = dedupe(append(mediaURLs, inlineMedia...))

	e.countQuery(mode, "ok")
	return &Result{
		Answer:    strings.TrimSpace(answer),
		Context:   contextText,
		Matches:   matches,
		MediaURLs: mediaURLs,
	}, nil
}

func (e *Engine) countQuery(mode, status string) {
	if e.metrics != nil {
		e.metrics.RAGQueries.WithLabelValues(mode, status).Inc()
	}
}

// assembleContext concatenates retrieved documents in descending similarity
// order and gathers imageUrl metadata values.
func assembleContext(matches []vector.Match) (string, []string) {
	var builder strings.Builder
	var media []string
	for _, m := range matches {
		text := strings.TrimSpace(m.Content)
		if text != "" {
			if builder.Len() > 0 {
				builder.WriteString("\n\n")
			}
			builder.WriteString(text)
		}
		if u := m.Metadata["imageUrl"]; u != "" {
			media = append(media, u)
		}
	}
	return builder.String(), dedupe(media)
}

// assembleWebContext prefixes each web result so the generator can tell
// curated knowledge from web-sourced content.
func assembleWebContext(results []search.Result) string {
	var builder strings.Builder
	for _, r := range results {
		if builder.Len() > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString("[web] ")
		builder.WriteString(r.Title)
		builder.WriteString(": ")
		builder.WriteString(r.Snippet)
	}
	return builder.String()
}

func dedupe(urls []string) []string {
	if len(urls) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
