package evaluator

import (
	"context"
	"errors"
	"fmt"

	"github.com/discoursa/debate-engine/internal/embeddings"
	"github.com/discoursa/debate-engine/internal/evidence"
	"github.com/discoursa/debate-engine/internal/session"
)

var (
	// ErrNoSuchTurn is returned when the turn index is out of range
	ErrNoSuchTurn = errors.New("no such turn")
	// ErrNotAssistantTurn is returned when scoring a user turn; only
	// assistant turns carry scores.
	ErrNotAssistantTurn = errors.New("not an assistant turn")
)

// Config holds evaluator thresholds
type Config struct {
	// DriftThreshold flags a turn for a UI warning when its drift score
	// exceeds it. The evaluator itself never intervenes.
	DriftThreshold float64
	// SupportThreshold is the minimum cosine similarity between a claim and
	// grounding text for the claim to count as supported.
	SupportThreshold float64
	// FallbackK is how many passages to consult per claim when the turn has
	// no citations.
	FallbackK int
}

// DefaultConfig returns default evaluator configuration
func DefaultConfig() Config {
	return Config{
		DriftThreshold:   0.6,
		SupportThreshold: 0.55,
		FallbackK:        3,
	}
}

// Scores is the result of evaluating one assistant turn. Both values are
// best-effort estimates in [0,1]; the contract is reproducibility for fixed
// inputs, not ground-truth correctness.
type Scores struct {
	Drift         float64
	Hallucination float64
	DriftFlagged  bool
}

// Service scores the growing transcript for stance collapse and factual
// fabrication.
type Service struct {
	embedder embeddings.Embedder
	store    *evidence.Store
	config   Config
}

// NewService creates an evaluator Service
func NewService(embedder embeddings.Embedder, store *evidence.Store, config Config) *Service {
	if config.DriftThreshold <= 0 {
		config.DriftThreshold = DefaultConfig().DriftThreshold
	}
	if config.SupportThreshold <= 0 {
		config.SupportThreshold = DefaultConfig().SupportThreshold
	}
	if config.FallbackK <= 0 {
		config.FallbackK = DefaultConfig().FallbackK
	}
	return &Service{embedder: embedder, store: store, config: config}
}

// ScoreTurn computes drift and hallucination scores for the assistant turn at
// turnIndex.
func (s *Service) ScoreTurn(ctx context.Context, sess *session.Session, turnIndex int) (*Scores, error) {
	if turnIndex < 0 || turnIndex >= len(sess.Turns) {
		return nil, ErrNoSuchTurn
	}

	turn := sess.Turns[turnIndex]
	if turn.Speaker != session.SpeakerAssistant {
		return nil, ErrNotAssistantTurn
	}

	drift, err := s.driftScore(ctx, sess, turn)
	if err != nil {
		return nil, fmt.Errorf("drift score: %w", err)
	}

	halluc, err := s.hallucinationScore(ctx, sess, turn)
	if err != nil {
		return nil, fmt.Errorf("hallucination score: %w", err)
	}

	return &Scores{
		Drift:         drift,
		Hallucination: halluc,
		DriftFlagged:  drift > s.config.DriftThreshold,
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
