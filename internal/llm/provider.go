package llm

import (
	"context"
	"errors"

	"github.com/discoursa/debate-engine/internal/stance"
)

var (
	// ErrRateLimited indicates the provider rejected the call for rate
	// limiting; transient, safe to retry with backoff.
	ErrRateLimited = errors.New("provider rate limited")
	// ErrTimeout indicates the provider did not answer in time; transient.
	ErrTimeout = errors.New("provider timeout")
	// ErrInvalidRequest indicates the provider rejected the request itself;
	// retrying the same request cannot succeed.
	ErrInvalidRequest = errors.New("invalid provider request")
	// ErrProviderUnavailable indicates retries are exhausted; the session
	// concludes and the failure is terminal for that session.
	ErrProviderUnavailable = errors.New("model provider unavailable")
)

// Provider is the model-provider contract the engine relies on
type Provider interface {
	// Complete generates the next assistant turn for the given prompt context
	Complete(ctx context.Context, pc *stance.PromptContext) (string, error)

	// DeriveStance produces the opposing position for a topic, phrased as a
	// standing directive. One-shot call at session creation.
	DeriveStance(ctx context.Context, topic string) (string, error)

	// GenerateSubtopics produces up to five subtopics broadening retrieval
	// beyond the literal topic string. One-shot call at session creation.
	GenerateSubtopics(ctx context.Context, topic string) ([]string, error)
}
