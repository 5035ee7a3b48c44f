package evidence

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Passage represents an embedded chunk of an ingested document
type Passage struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	Text       string
	Position   int
	Embedding  pgvector.Vector
	CreatedAt  time.Time
}

// ScoredPassage represents a passage with its similarity score
type ScoredPassage struct {
	Passage    *Passage
	Similarity float64
}

// PassageRepository defines the interface for passage storage operations
type PassageRepository interface {
	CreateBatch(ctx context.Context, passages []*Passage) error
	GetByID(ctx context.Context, id uuid.UUID) (*Passage, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Passage, error)
	GetByDocumentID(ctx context.Context, documentID uuid.UUID) ([]*Passage, error)
	FindNearest(ctx context.Context, embedding pgvector.Vector, limit int) ([]*ScoredPassage, error)
	DeleteByDocumentID(ctx context.Context, documentID uuid.UUID) error
}

// PostgresPassageRepository implements PassageRepository using PostgreSQL with pgvector
type PostgresPassageRepository struct {
	db *sql.DB
}

// NewPostgresPassageRepository creates a new PostgresPassageRepository
func NewPostgresPassageRepository(db *sql.DB) *PostgresPassageRepository {
	return &PostgresPassageRepository{db: db}
}

// CreateBatch inserts multiple passages in a single transaction
func (r *PostgresPassageRepository) CreateBatch(ctx context.Context, passages []*Passage) error {
	if len(passages) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO passages (id, document_id, text, position, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, p := range passages {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}

		_, err := stmt.ExecContext(ctx,
			p.ID,
			p.DocumentID,
			p.Text,
			p.Position,
			p.Embedding,
			p.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByID retrieves a passage by its ID
func (r *PostgresPassageRepository) GetByID(ctx context.Context, id uuid.UUID) (*Passage, error) {
	query := `
		SELECT id, document_id, text, position, embedding, created_at
		FROM passages
		WHERE id = $1
	`

	passage := &Passage{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&passage.ID,
		&passage.DocumentID,
		&passage.Text,
		&passage.Position,
		&passage.Embedding,
		&passage.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return passage, nil
}

// GetByIDs retrieves passages by id, skipping ids that no longer exist.
// A dangling citation is "evidence unavailable", not an error.
func (r *PostgresPassageRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Passage, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var passages []*Passage
	for _, id := range ids {
		passage, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if passage != nil {
			passages = append(passages, passage)
		}
	}
	return passages, nil
}

// GetByDocumentID retrieves all passages for a specific document
func (r *PostgresPassageRepository) GetByDocumentID(ctx context.Context, documentID uuid.UUID) ([]*Passage, error) {
	query := `
		SELECT id, document_id, text, position, embedding, created_at
		FROM passages
		WHERE document_id = $1
		ORDER BY position ASC
	`

	rows, err := r.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var passages []*Passage
	for rows.Next() {
		passage := &Passage{}
		err := rows.Scan(
			&passage.ID,
			&passage.DocumentID,
			&passage.Text,
			&passage.Position,
			&passage.Embedding,
			&passage.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		passages = append(passages, passage)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return passages, nil
}

// FindNearest finds the passages nearest to the given embedding using pgvector
// cosine distance. Ties break toward earlier ingestion so results are
// reproducible.
func (r *PostgresPassageRepository) FindNearest(ctx context.Context, embedding pgvector.Vector, limit int) ([]*ScoredPassage, error) {
	if limit <= 0 {
		limit = 10
	}

	// Cosine distance: 1 - cosine_similarity
	query := `
		SELECT id, document_id, text, position, embedding, created_at,
			   1 - (embedding <=> $1) as similarity
		FROM passages
		ORDER BY embedding <=> $1, created_at ASC, id ASC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, embedding, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*ScoredPassage
	for rows.Next() {
		passage := &Passage{}
		var similarity float64
		err := rows.Scan(
			&passage.ID,
			&passage.DocumentID,
			&passage.Text,
			&passage.Position,
			&passage.Embedding,
			&passage.CreatedAt,
			&similarity,
		)
		if err != nil {
			return nil, err
		}
		results = append(results, &ScoredPassage{
			Passage:    passage,
			Similarity: similarity,
		})
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// DeleteByDocumentID removes all passages for a document
func (r *PostgresPassageRepository) DeleteByDocumentID(ctx context.Context, documentID uuid.UUID) error {
	query := `DELETE FROM passages WHERE document_id = $1`
	_, err := r.db.ExecContext(ctx, query, documentID)
	return err
}
