package evidence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/discoursa/debate-engine/internal/embeddings"
)

// Store holds uploaded documents as vectorized passages and answers
// nearest-neighbor retrieval queries.
type Store struct {
	documents DocumentRepository
	passages  PassageRepository
	embedder  embeddings.Embedder
}

// NewStore creates a Store over the given repositories and embedder
func NewStore(documents DocumentRepository, passages PassageRepository, embedder embeddings.Embedder) *Store {
	return &Store{
		documents: documents,
		passages:  passages,
		embedder:  embedder,
	}
}

// Ingest splits text into overlapping passages, embeds each one and persists
// document and passages. Re-ingesting byte-identical text returns the
// existing document. Embedding failure aborts the whole ingestion: nothing
// is persisted ungrounded.
func (s *Store) Ingest(ctx context.Context, text string) (*Document, error) {
	hash := sha256.Sum256([]byte(text))
	hashStr := hex.EncodeToString(hash[:])

	existing, err := s.documents.GetByHash(ctx, hashStr)
	if err != nil {
		return nil, fmt.Errorf("check existing document: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	chunks := SplitPassages(text)

	var vectors [][]float32
	if len(chunks) > 0 {
		vectors, err = s.embedder.EmbedTexts(ctx, chunks)
		if err != nil {
			return nil, fmt.Errorf("embed passages: %w", err)
		}
	}

	doc := &Document{
		Content:     text,
		ContentHash: hashStr,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	passages := make([]*Passage, len(chunks))
	for i, chunk := range chunks {
		passages[i] = &Passage{
			DocumentID: doc.ID,
			Text:       chunk,
			Position:   i,
			Embedding:  pgvector.NewVector(vectors[i]),
		}
	}

	if err := s.passages.CreateBatch(ctx, passages); err != nil {
		return nil, fmt.Errorf("create passages: %w", err)
	}

	return doc, nil
}

// Search embeds the query and returns the k nearest passages by cosine
// similarity, highest first, ties broken by earlier ingestion.
func (s *Store) Search(ctx context.Context, query string, k int) ([]*ScoredPassage, error) {
	if k <= 0 {
		return nil, nil
	}

	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.passages.FindNearest(ctx, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("nearest passages: %w", err)
	}

	return results, nil
}

// Count returns the number of ingested documents
func (s *Store) Count(ctx context.Context) (int, error) {
	return s.documents.Count(ctx)
}

// GetPassages resolves passage ids, silently skipping dangling references
func (s *Store) GetPassages(ctx context.Context, ids []uuid.UUID) ([]*Passage, error) {
	return s.passages.GetByIDs(ctx, ids)
}

// DeleteDocument removes a document and cascades to its passages
func (s *Store) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	if err := s.passages.DeleteByDocumentID(ctx, id); err != nil {
		return fmt.Errorf("delete passages: %w", err)
	}
	if err := s.documents.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
