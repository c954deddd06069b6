package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"packbot/internal/domain"
)

// Document is a unit of indexed knowledge.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
	Vector   []float32
}

// Match is a nearest-neighbour query result. Score is cosine similarity.
type Match struct {
	ID       string
	Score    float64
	Content  string
	Metadata map[string]string
}

// Store persists embedded documents in Postgres/pgvector, partitioned by
// namespace. Upserting an existing (namespace, id) fully replaces the row.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a Store over an existing connection pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	return &Store{
		pool:   pool,
		logger: logger.With("component", "vector"),
	}
}

// Upsert inserts or fully replaces documents in the namespace.
func (s *Store) Upsert(ctx context.Context, namespace string, docs []Document) error {
	if namespace == "" {
		namespace = "default"
	}
	const q = `
INSERT INTO rag_documents (namespace, doc_id, content, metadata, embedding, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (namespace, doc_id) DO UPDATE SET
    content = EXCLUDED.content,
    metadata = EXCLUDED.metadata,
    embedding = EXCLUDED.embedding,
    updated_at = NOW();
`
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, doc := range docs {
			meta, err := json.Marshal(metadataOrEmpty(doc.Metadata))
			if err != nil {
				return fmt.Errorf("marshal metadata for %s: %w", doc.ID, err)
			}
			if _, err := tx.Exec(ctx, q, namespace, doc.ID, doc.Content, meta, pgvector.NewVector(doc.Vector)); err != nil {
				return fmt.Errorf("upsert document %s: %w", doc.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRetrieval, err)
	}
	return nil
}

// Query returns the topK nearest documents by cosine similarity, restricted
// to rows whose metadata contains every filter pair. Ties on distance keep
// insertion order via the seq column.
func (s *Store) Query(ctx context.Context, namespace string, vec []float32, topK int, filter map[string]string) ([]Match, error) {
	if namespace == "" {
		namespace = "default"
	}
	if topK <= 0 {
		topK = 5
	}

	filterJSON, err := json.Marshal(metadataOrEmpty(filter))
	if err != nil {
		return nil, fmt.Errorf("marshal filter: %w", err)
	}

	const q = `
SELECT doc_id, content, metadata, embedding <=> $2 AS distance
FROM rag_documents
WHERE namespace = $1 AND metadata @> $3
ORDER BY distance ASC, seq ASC
LIMIT $4;
`
	rows, err := s.pool.Query(ctx, q, namespace, pgvector.NewVector(vec), filterJSON, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: query namespace %s: %v", domain.ErrRetrieval, namespace, err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var metaJSON []byte
		var distance float64
		if err := rows.Scan(&m.ID, &m.Content, &metaJSON, &distance); err != nil {
			return nil, fmt.Errorf("%w: scan match: %v", domain.ErrRetrieval, err)
		}
		// pgvector's <=> operator yields cosine distance in [0, 2].
		m.Score = 1 - distance
		m.Metadata = map[string]string{}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &m.Metadata); err != nil {
				s.logger.Warn("bad document metadata", "doc_id", m.ID, "error", err)
				m.Metadata = map[string]string{}
			}
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate matches: %v", domain.ErrRetrieval, err)
	}
	return matches, nil
}

// Delete removes a single document by id from a namespace. Deleting an
// unknown id is not an error.
func (s *Store) Delete(ctx context.Context, namespace, docID string) error {
	if namespace == "" {
		namespace = "default"
	}
	const q = `DELETE FROM rag_documents WHERE namespace = $1 AND doc_id = $2;`
	if _, err := s.pool.Exec(ctx, q, namespace, docID); err != nil {
		return fmt.Errorf("%w: delete document %s: %v", domain.ErrRetrieval, docID, err)
	}
	return nil
}

// Get returns one document's content and metadata, or nil if absent.
func (s *Store) Get(ctx context.Context, namespace, docID string) (*Document, error) {
	if namespace == "" {
		namespace = "default"
	}
	const q = `SELECT doc_id, content, metadata FROM rag_documents WHERE namespace = $1 AND doc_id = $2 LIMIT 1;`
	row := s.pool.QueryRow(ctx, q, namespace, docID)
	var d Document
	var metaJSON []byte
	if err := row.Scan(&d.ID, &d.Content, &metaJSON); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get document %s: %v", domain.ErrRetrieval, docID, err)
	}
	d.Metadata = map[string]string{}
	if len(metaJSON) > 0 {
		_ = json.Unmarshal(metaJSON, &d.Metadata)
	}
	return &d, nil
}

func metadataOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
