package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps sessions in process memory. Used by tests and
// single-process deployments without Postgres.
type MemoryRepository struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewMemoryRepository creates an empty in-memory session repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[uuid.UUID]*Session)}
}

func (r *MemoryRepository) Create(ctx context.Context, sess *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *sess
	stored.Turns = append([]*Turn(nil), sess.Turns...)
	r.sessions[sess.ID] = &stored
	return nil
}

// GetByID returns a copy whose turn slice is detached from the stored one,
// so callers can append locally without mutating the repository.
func (r *MemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *stored
	clone.Turns = append([]*Turn(nil), stored.Turns...)
	return &clone, nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[id]
	if !ok {
		return ErrNotFound
	}
	stored.Status = status
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRepository) AppendTurn(ctx context.Context, turn *Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[turn.SessionID]
	if !ok {
		return ErrNotFound
	}
	stored.Turns = append(stored.Turns, turn)
	return nil
}

func (r *MemoryRepository) GetTurns(ctx context.Context, sessionID uuid.UUID) ([]*Turn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]*Turn(nil), stored.Turns...), nil
}

func (r *MemoryRepository) AppendScore(ctx context.Context, turnID uuid.UUID, score Score) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if score.CreatedAt.IsZero() {
		score.CreatedAt = time.Now()
	}
	for _, stored := range r.sessions {
		for _, turn := range stored.Turns {
			if turn.ID == turnID {
				turn.Scores = append(turn.Scores, score)
				return nil
			}
		}
	}
	return ErrNotFound
}

func (r *MemoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}
