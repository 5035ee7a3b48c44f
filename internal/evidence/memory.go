package evidence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/discoursa/debate-engine/internal/similarity"
)

// timeNow is swapped out by tests that need a controlled clock
var timeNow = time.Now

// MemoryDocumentRepository keeps documents in process memory. Used by tests
// and single-process deployments without Postgres.
type MemoryDocumentRepository struct {
	mu   sync.RWMutex
	docs map[uuid.UUID]*Document
}

// NewMemoryDocumentRepository creates an empty in-memory document repository
func NewMemoryDocumentRepository() *MemoryDocumentRepository {
	return &MemoryDocumentRepository{docs: make(map[uuid.UUID]*Document)}
}

func (r *MemoryDocumentRepository) Create(ctx context.Context, document *Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if document.ID == uuid.Nil {
		document.ID = uuid.New()
	}
	if document.CreatedAt.IsZero() {
		document.CreatedAt = timeNow()
	}
	r.docs[document.ID] = document
	return nil
}

func (r *MemoryDocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.docs[id], nil
}

func (r *MemoryDocumentRepository) GetByHash(ctx context.Context, hash string) (*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, doc := range r.docs {
		if doc.ContentHash == hash {
			return doc, nil
		}
	}
	return nil, nil
}

func (r *MemoryDocumentRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs), nil
}

func (r *MemoryDocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, id)
	return nil
}

// MemoryPassageRepository keeps passages in process memory and answers
// nearest-neighbor queries by exhaustive cosine scan.
type MemoryPassageRepository struct {
	mu       sync.RWMutex
	passages []*Passage
}

// NewMemoryPassageRepository creates an empty in-memory passage repository
func NewMemoryPassageRepository() *MemoryPassageRepository {
	return &MemoryPassageRepository{}
}

func (r *MemoryPassageRepository) CreateBatch(ctx context.Context, passages []*Passage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := timeNow()
	for _, p := range passages {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		r.passages = append(r.passages, p)
	}
	return nil
}

func (r *MemoryPassageRepository) GetByID(ctx context.Context, id uuid.UUID) (*Passage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.passages {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (r *MemoryPassageRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Passage, error) {
	var found []*Passage
	for _, id := range ids {
		p, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if p != nil {
			found = append(found, p)
		}
	}
	return found, nil
}

func (r *MemoryPassageRepository) GetByDocumentID(ctx context.Context, documentID uuid.UUID) ([]*Passage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found []*Passage
	for _, p := range r.passages {
		if p.DocumentID == documentID {
			found = append(found, p)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Position < found[j].Position })
	return found, nil
}

// FindNearest ranks all passages by cosine similarity to the query, highest
// first, ties broken by earlier ingestion then id.
func (r *MemoryPassageRepository) FindNearest(ctx context.Context, embedding pgvector.Vector, limit int) ([]*ScoredPassage, error) {
	if limit <= 0 {
		limit = 10
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	query := embedding.Slice()
	scored := make([]*ScoredPassage, 0, len(r.passages))
	for _, p := range r.passages {
		scored = append(scored, &ScoredPassage{
			Passage:    p,
			Similarity: similarity.CosineSimilarity(query, p.Embedding.Slice()),
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		if !scored[i].Passage.CreatedAt.Equal(scored[j].Passage.CreatedAt) {
			return scored[i].Passage.CreatedAt.Before(scored[j].Passage.CreatedAt)
		}
		return scored[i].Passage.ID.String() < scored[j].Passage.ID.String()
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (r *MemoryPassageRepository) DeleteByDocumentID(ctx context.Context, documentID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.passages[:0]
	for _, p := range r.passages {
		if p.DocumentID != documentID {
			kept = append(kept, p)
		}
	}
	r.passages = kept
	return nil
}
