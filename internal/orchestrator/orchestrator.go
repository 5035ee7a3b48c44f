package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/discoursa/debate-engine/internal/evaluator"
	"github.com/discoursa/debate-engine/internal/evidence"
	"github.com/discoursa/debate-engine/internal/llm"
	"github.com/discoursa/debate-engine/internal/retrieval"
	"github.com/discoursa/debate-engine/internal/session"
	"github.com/discoursa/debate-engine/internal/stance"
)

// Config holds orchestrator tuning. Carried explicitly on the Engine so two
// engines with different provider keys can coexist in one process.
type Config struct {
	// RetrieveK is how many evidence passages to ground each turn on
	RetrieveK int
	// MaxRetries is how many times a transient provider failure is retried
	// beyond the first attempt.
	MaxRetries int
	// BaseDelay is the first backoff delay; it doubles per retry
	BaseDelay time.Duration
}

// DefaultConfig returns default orchestrator configuration
func DefaultConfig() Config {
	return Config{
		RetrieveK:  4,
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
	}
}

// Engine drives one conversational exchange per call: retrieve, build
// context, call the model provider, append the turn, schedule evaluation.
type Engine struct {
	repo      session.Repository
	registry  *session.Registry
	store     *evidence.Store
	retriever *retrieval.Retriever
	builder   *stance.Builder
	provider  llm.Provider
	worker    *evaluator.Worker
	config    Config
}

// NewEngine wires an Engine together
func NewEngine(
	repo session.Repository,
	registry *session.Registry,
	store *evidence.Store,
	retriever *retrieval.Retriever,
	builder *stance.Builder,
	provider llm.Provider,
	worker *evaluator.Worker,
	config Config,
) *Engine {
	if config.RetrieveK <= 0 {
		config.RetrieveK = DefaultConfig().RetrieveK
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = DefaultConfig().MaxRetries
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = DefaultConfig().BaseDelay
	}

	return &Engine{
		repo:      repo,
		registry:  registry,
		store:     store,
		retriever: retriever,
		builder:   builder,
		provider:  provider,
		worker:    worker,
		config:    config,
	}
}

// CreateSession derives the opposing stance and subtopics for a topic and
// persists a new session in setup state. Stance and subtopics are fixed for
// the session's lifetime.
func (e *Engine) CreateSession(ctx context.Context, topic string) (*session.Session, error) {
	derived, err := e.provider.DeriveStance(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("derive stance: %w", err)
	}

	subtopics, err := e.provider.GenerateSubtopics(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("generate subtopics: %w", err)
	}

	sess := session.New(topic, subtopics, derived)
	if err := e.repo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return sess, nil
}

// PostTurn processes one user turn and returns the assistant's rebuttal.
// A second concurrent call on the same session fails fast with
// ErrSessionBusy. On exhausted provider retries the session concludes and
// ErrProviderUnavailable is returned.
func (e *Engine) PostTurn(ctx context.Context, sessionID uuid.UUID, userText string) (*session.Turn, error) {
	release, err := e.registry.Acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := e.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if sess.Status == session.StatusConcluded {
		return nil, session.ErrInvalidSequence
	}

	userTurn := &session.Turn{
		Index:   sess.NextIndex(),
		Speaker: session.SpeakerUser,
		Text:    userText,
	}
	if err := sess.AppendTurn(userTurn); err != nil {
		return nil, err
	}
	if err := e.repo.AppendTurn(ctx, userTurn); err != nil {
		return nil, fmt.Errorf("persist user turn: %w", err)
	}
	if sess.Status == session.StatusActive && len(sess.Turns) == 1 {
		if err := e.repo.UpdateStatus(ctx, sess.ID, session.StatusActive); err != nil {
			return nil, fmt.Errorf("activate session: %w", err)
		}
	}

	passages, err := e.retriever.Retrieve(ctx, sess, userText, e.config.RetrieveK)
	if err != nil {
		return nil, fmt.Errorf("retrieve evidence: %w", err)
	}

	pc, err := e.builder.Build(sess, userText, passages)
	if err != nil {
		return nil, fmt.Errorf("build prompt context: %w", err)
	}

	reply, err := e.completeWithRetry(ctx, pc)
	if err != nil {
		if errors.Is(err, llm.ErrProviderUnavailable) {
			sess.Conclude()
			if updateErr := e.repo.UpdateStatus(ctx, sess.ID, session.StatusConcluded); updateErr != nil {
				return nil, fmt.Errorf("conclude session: %v: %w", updateErr, err)
			}
		}
		return nil, err
	}

	passageIDs := make([]uuid.UUID, len(passages))
	for i, p := range passages {
		passageIDs[i] = p.ID
	}

	assistantTurn := &session.Turn{
		Index:      sess.NextIndex(),
		Speaker:    session.SpeakerAssistant,
		Text:       reply,
		PassageIDs: passageIDs,
	}
	if err := sess.AppendTurn(assistantTurn); err != nil {
		return nil, err
	}
	if err := e.repo.AppendTurn(ctx, assistantTurn); err != nil {
		return nil, fmt.Errorf("persist assistant turn: %w", err)
	}

	// Evaluation runs in the background; turn latency is not gated on it
	e.worker.Enqueue(evaluator.Job{
		SessionID: sess.ID,
		TurnID:    assistantTurn.ID,
		TurnIndex: assistantTurn.Index,
	})

	return assistantTurn, nil
}

// completeWithRetry calls the provider with bounded exponential backoff.
// Only transient failures are retried; an invalid request fails immediately.
func (e *Engine) completeWithRetry(ctx context.Context, pc *stance.PromptContext) (string, error) {
	delay := e.config.BaseDelay
	var lastErr error

	for attempt := 0; attempt <= e.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", llm.ErrProviderUnavailable, ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}

		reply, err := e.provider.Complete(ctx, pc)
		if err == nil {
			return reply, nil
		}
		lastErr = err

		if !isTransient(err) {
			return "", err
		}
	}

	return "", fmt.Errorf("%w: %v", llm.ErrProviderUnavailable, lastErr)
}

func isTransient(err error) bool {
	return errors.Is(err, llm.ErrRateLimited) || errors.Is(err, llm.ErrTimeout)
}

// GetTranscript returns a session's turns in conversational order with the
// scores recorded so far.
func (e *Engine) GetTranscript(ctx context.Context, sessionID uuid.UUID) ([]*session.Turn, error) {
	sess, err := e.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Turns, nil
}

// GetSession returns a session by id
func (e *Engine) GetSession(ctx context.Context, sessionID uuid.UUID) (*session.Session, error) {
	return e.repo.GetByID(ctx, sessionID)
}

// ConcludeSession explicitly closes a session. Idempotent. Takes the
// session's turn lock so a turn in flight cannot land after the conclusion;
// callers racing an in-flight turn get ErrSessionBusy.
func (e *Engine) ConcludeSession(ctx context.Context, sessionID uuid.UUID) error {
	release, err := e.registry.Acquire(sessionID)
	if err != nil {
		return err
	}
	defer release()

	sess, err := e.repo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.Status == session.StatusConcluded {
		return nil
	}
	return e.repo.UpdateStatus(ctx, sessionID, session.StatusConcluded)
}

// DeleteSession removes a session and its turns. Each session's lifecycle is
// independent; deleting one never touches the evidence store.
func (e *Engine) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	release, err := e.registry.Acquire(sessionID)
	if err != nil {
		return err
	}
	defer release()

	if err := e.repo.Delete(ctx, sessionID); err != nil {
		return err
	}
	e.registry.Forget(sessionID)
	return nil
}

// IngestDocument adds a document to the evidence store
func (e *Engine) IngestDocument(ctx context.Context, text string) (*evidence.Document, error) {
	return e.store.Ingest(ctx, text)
}
