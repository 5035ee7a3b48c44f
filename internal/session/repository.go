package session

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Repository defines the interface for session persistence
type Repository interface {
	Create(ctx context.Context, sess *Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	AppendTurn(ctx context.Context, turn *Turn) error
	GetTurns(ctx context.Context, sessionID uuid.UUID) ([]*Turn, error)
	AppendScore(ctx context.Context, turnID uuid.UUID, score Score) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new session
func (r *PostgresRepository) Create(ctx context.Context, sess *Session) error {
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}

	now := time.Now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = now
	}

	query := `
		INSERT INTO sessions (id, topic, subtopics, stance, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		sess.ID,
		sess.Topic,
		pq.Array(sess.Subtopics),
		sess.Stance,
		sess.Status,
		sess.CreatedAt,
		sess.UpdatedAt,
	)

	return err
}

// GetByID retrieves a session with its ordered turns and scores
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	query := `
		SELECT id, topic, subtopics, stance, status, created_at, updated_at
		FROM sessions
		WHERE id = $1
	`

	sess := &Session{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&sess.ID,
		&sess.Topic,
		pq.Array(&sess.Subtopics),
		&sess.Stance,
		&sess.Status,
		&sess.CreatedAt,
		&sess.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	turns, err := r.GetTurns(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.Turns = turns

	return sess, nil
}

// UpdateStatus updates a session's lifecycle state
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	query := `UPDATE sessions SET status = $2, updated_at = $3 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	return err
}

// AppendTurn inserts a turn row. The unique (session_id, idx) constraint
// backs the contiguity invariant at the storage level.
func (r *PostgresRepository) AppendTurn(ctx context.Context, turn *Turn) error {
	if turn.ID == uuid.Nil {
		turn.ID = uuid.New()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	passageIDs := make([]string, len(turn.PassageIDs))
	for i, pid := range turn.PassageIDs {
		passageIDs[i] = pid.String()
	}

	query := `
		INSERT INTO turns (id, session_id, idx, speaker, text, passage_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		turn.ID,
		turn.SessionID,
		turn.Index,
		turn.Speaker,
		turn.Text,
		pq.Array(passageIDs),
		turn.CreatedAt,
	)

	return err
}

// GetTurns retrieves a session's turns in conversational order with their
// scores attached.
func (r *PostgresRepository) GetTurns(ctx context.Context, sessionID uuid.UUID) ([]*Turn, error) {
	query := `
		SELECT id, session_id, idx, speaker, text, passage_ids, created_at
		FROM turns
		WHERE session_id = $1
		ORDER BY idx ASC
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []*Turn
	for rows.Next() {
		turn := &Turn{}
		var passageIDs []string
		err := rows.Scan(
			&turn.ID,
			&turn.SessionID,
			&turn.Index,
			&turn.Speaker,
			&turn.Text,
			pq.Array(&passageIDs),
			&turn.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		for _, pid := range passageIDs {
			id, err := uuid.Parse(pid)
			if err != nil {
				continue
			}
			turn.PassageIDs = append(turn.PassageIDs, id)
		}

		turns = append(turns, turn)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	for _, turn := range turns {
		scores, err := r.getScores(ctx, turn.ID)
		if err != nil {
			return nil, err
		}
		turn.Scores = scores
	}

	return turns, nil
}

// AppendScore records one evaluation of a turn. Append-only: prior scores
// are never touched.
func (r *PostgresRepository) AppendScore(ctx context.Context, turnID uuid.UUID, score Score) error {
	if score.CreatedAt.IsZero() {
		score.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO turn_scores (id, turn_id, drift, hallucination, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		uuid.New(),
		turnID,
		score.Drift,
		score.Hallucination,
		score.CreatedAt,
	)

	return err
}

func (r *PostgresRepository) getScores(ctx context.Context, turnID uuid.UUID) ([]Score, error) {
	query := `
		SELECT drift, hallucination, created_at
		FROM turn_scores
		WHERE turn_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, turnID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []Score
	for rows.Next() {
		var score Score
		if err := rows.Scan(&score.Drift, &score.Hallucination, &score.CreatedAt); err != nil {
			return nil, err
		}
		scores = append(scores, score)
	}

	return scores, rows.Err()
}

// Delete removes a session and its turns
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM turn_scores WHERE turn_id IN (SELECT id FROM turns WHERE session_id = $1)`, id); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM turns WHERE session_id = $1`, id); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}
