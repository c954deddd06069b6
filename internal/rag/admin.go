package rag

import (
	"context"
	"fmt"
	"log/slog"

	"packbot/internal/domain"
	"packbot/internal/vector"
)

// AdminStore is the vector-store surface needed for index maintenance.
type AdminStore interface {
	Upsert(ctx context.Context, namespace string, docs []vector.Document) error
	Delete(ctx context.Context, namespace, docID string) error
	Get(ctx context.Context, namespace, docID string) (*vector.Document, error)
}

// Admin maintains the knowledge index: manual texts, uploaded files and
// product documents added by operators.
type Admin struct {
	embedder Embedder
	store    AdminStore
	fallback Fallback
	logger   *slog.Logger
}

// NewAdmin creates the index maintenance service.
func NewAdmin(embedder Embedder, store AdminStore, fallback Fallback, logger *slog.Logger) *Admin {
	return &Admin{
		embedder: embedder,
		store:    store,
		fallback: fallback,
		logger:   logger.With("component", "rag_admin"),
	}
}

// IndexText chunks and indexes a text under docID. Multi-chunk texts get
// docID#0, docID#1 and so on, all carrying the same metadata. Returns the
// stored document ids.
func (a *Admin) IndexText(ctx context.Context, namespace, docID, text string, metadata map[string]string) ([]string, error) {
	chunks := SplitText(text, DefaultChunkSize, DefaultChunkOverlap)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: empty document text", domain.ErrValidation)
	}

	docs := make([]vector.Document, 0, len(chunks))
	ids := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		id := docID
		if len(chunks) > 1 {
			id = fmt.Sprintf("%s#%d", docID, i)
		}
		vec, err := a.embedder.Embed(ctx, chunk)
		if err != nil {
			a.logger.Warn("embedding failed, using deterministic fallback", "doc", id, "error", err)
			vec = a.fallback(chunk)
		}
		meta := make(map[string]string, len(metadata))
		for k, v := range metadata {
			meta[k] = v
		}
		docs = append(docs, vector.Document{ID: id, Content: chunk, Metadata: meta, Vector: vec})
		ids = append(ids, id)
	}

	if err := a.store.Upsert(ctx, namespace, docs); err != nil {
		return nil, fmt.Errorf("index document %q: %w", docID, err)
	}
	a.logger.Info("indexed document", "doc", docID, "chunks", len(ids))
	return ids, nil
}

// UpdateDocument replaces a single document's content and metadata.
func (a *Admin) UpdateDocument(ctx context.Context, namespace, docID, text string, metadata map[string]string) error {
	if _, err := a.store.Get(ctx, namespace, docID); err != nil {
		return fmt.Errorf("load document %q: %w", docID, err)
	}
	_, err := a.IndexText(ctx, namespace, docID, text, metadata)
	return err
}

// DeleteDocument removes a document and returns it so the caller can clean
// up any locally stored media the metadata points at.
func (a *Admin) DeleteDocument(ctx context.Context, namespace, docID string) (*vector.Document, error) {
	doc, err := a.store.Get(ctx, namespace, docID)
	if err != nil {
		return nil, fmt.Errorf("load document %q: %w", docID, err)
	}
	if err := a.store.Delete(ctx, namespace, docID); err != nil {
		return nil, fmt.Errorf("delete document %q: %w", docID, err)
	}
	a.logger.Info("deleted document", "doc", docID)
	return doc, nil
}
