package rag

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"packbot/internal/llm"
	"packbot/internal/search"
	"packbot/internal/vector"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vec, f.err
}

type fakeGenerator struct {
	answer string
	err    error
	system string
	user   string
}

func (f *fakeGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	f.system = system
	f.user = user
	return f.answer, f.err
}

type fakeStore struct {
	matches []vector.Match
	err     error
	lastVec []float32
}

func (f *fakeStore) Query(ctx context.Context, namespace string, vec []float32, topK int, filter map[string]string) ([]vector.Match, error) {
	f.lastVec = vec
	return f.matches, f.err
}

type fakeWeb struct {
	results []search.Result
	called  bool
}

func (f *fakeWeb) Available() bool { return true }

func (f *fakeWeb) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	f.called = true
	return f.results, nil
}

func newTestEngine(emb Embedder, gen Generator, store VectorStore, web WebSearcher) *Engine {
	logger := slog.Default()
	return New(emb, gen, store, web, llm.FallbackVector, logger, nil, Config{})
}

func TestQueryStrictNoMatches(t *testing.T) {
	web := &fakeWeb{results: []search.Result{{Title: "t", Snippet: "s"}}}
	gen := &fakeGenerator{answer: "should not be used"}
	engine := newTestEngine(&fakeEmbedder{vec: []float32{1}}, gen, &fakeStore{}, web)

	res, err := engine.Query(context.Background(), Request{
		Query:  "do you sell glass jars",
		Strict: true,
		Filter: map[string]string{"type": "Homebakers"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Answer != NoInfoAnswer {
		t.Fatalf("expected canned no-info answer, got %q", res.Answer)
	}
	if res.Context != "" {
		t.Fatalf("expected empty context, got %q", res.Context)
	}
	if web.called {
		t.Fatal("strict mode must not fall back to web search")
	}
}

func TestQueryAssemblesContextInScoreOrder(t *testing.T) {
	store := &fakeStore{matches: []vector.Match{
		{ID: "a", Score: 0.9, Content: "First doc.", Metadata: map[string]string{"imageUrl": "https://img/a.jpg"}},
		{ID: "b", Score: 0.5, Content: "Second doc.", Metadata: map[string]string{"imageUrl": "https://img/a.jpg"}},
	}}
	gen := &fakeGenerator{answer: "answer [IMAGE: https://img/c.jpg]"}
	engine := newTestEngine(&fakeEmbedder{vec: []float32{1}}, gen, store, nil)

	res, err := engine.Query(context.Background(), Request{Query: "boxes"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Context != "First doc.\n\nSecond doc." {
		t.Fatalf("unexpected context: %q", res.Context)
	}
	if res.Answer != "answer" {
		t.Fatalf("expected stripped answer, got %q", res.Answer)
	}
	// imageUrl metadata deduplicated, inline marker appended.
	if len(res.MediaURLs) != 2 || res.MediaURLs[0] != "https://img/a.jpg" || res.MediaURLs[1] != "https://img/c.jpg" {
		t.Fatalf("unexpected media urls: %v", res.MediaURLs)
	}
	if !strings.Contains(gen.user, "Question: boxes") {
		t.Fatalf("expected question in user turn, got %q", gen.user)
	}
}

func TestQueryEmbeddingFailureUsesFallbackVector(t *testing.T) {
	store := &fakeStore{matches: []vector.Match{{ID: "a", Content: "doc"}}}
	engine := newTestEngine(&fakeEmbedder{err: errors.New("quota")}, &fakeGenerator{answer: "ok"}, store, nil)

	if _, err := engine.Query(context.Background(), Request{Query: "anything"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.lastVec) != llm.EmbeddingDim {
		t.Fatalf("expected fallback vector of dim %d, got %d", llm.EmbeddingDim, len(store.lastVec))
	}
}

func TestQueryGenerationFailureDegradesToApology(t *testing.T) {
	store := &fakeStore{matches: []vector.Match{{ID: "a", Content: "doc"}}}
	engine := newTestEngine(&fakeEmbedder{vec: []float32{1}}, &fakeGenerator{err: errors.New("timeout")}, store, nil)

	res, err := engine.Query(context.Background(), Request{Query: "boxes"})
	if err != nil {
		t.Fatalf("generation failure must not propagate: %v", err)
	}
	if res.Answer != ApologyAnswer {
		t.Fatalf("expected apology, got %q", res.Answer)
	}
	if res.Context != "doc" {
		t.Fatalf("expected retrieved context preserved, got %q", res.Context)
	}
}

func TestQueryRetrievalErrorPropagates(t *testing.T) {
	engine := newTestEngine(&fakeEmbedder{vec: []float32{1}}, &fakeGenerator{answer: "x"}, &fakeStore{err: errors.New("down")}, nil)

	if _, err := engine.Query(context.Background(), Request{Query: "boxes"}); err == nil {
		t.Fatal("expected retrieval error to propagate")
	}
}

func TestQueryNonStrictUsesWebFallback(t *testing.T) {
	web := &fakeWeb{results: []search.Result{{Title: "Packbot FAQ", Snippet: "We ship pan India.", Link: "https://packbot.in/faq"}}}
	gen := &fakeGenerator{answer: "we ship pan india"}
	engine := newTestEngine(&fakeEmbedder{vec: []float32{1}}, gen, &fakeStore{}, web)

	res, err := engine.Query(context.Background(), Request{Query: "do you ship to Pune"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !web.called {
		t.Fatal("expected web fallback for empty non-strict retrieval")
	}
	if !strings.Contains(gen.user, "[web] Packbot FAQ") {
		t.Fatalf("expected web-prefixed context in user turn, got %q", gen.user)
	}
	if res.Answer != "we ship pan india" {
		t.Fatalf("unexpected answer: %q", res.Answer)
	}
}
