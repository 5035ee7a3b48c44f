package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/discoursa/debate-engine/internal/evaluator"
	"github.com/discoursa/debate-engine/internal/evidence"
	"github.com/discoursa/debate-engine/internal/llm"
	"github.com/discoursa/debate-engine/internal/orchestrator"
	"github.com/discoursa/debate-engine/internal/retrieval"
	"github.com/discoursa/debate-engine/internal/session"
	"github.com/discoursa/debate-engine/internal/stance"
)

type stubEmbedder struct{}

func (e *stubEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (e *stubEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0}
	}
	return vectors, nil
}

func (e *stubEmbedder) GetDimension() int { return 2 }

// failingProvider rejects every completion
type failingProvider struct{}

func (p *failingProvider) Complete(ctx context.Context, pc *stance.PromptContext) (string, error) {
	return "", llm.ErrInvalidRequest
}

func (p *failingProvider) DeriveStance(ctx context.Context, topic string) (string, error) {
	return "Argue that " + topic + " is harmful.", nil
}

func (p *failingProvider) GenerateSubtopics(ctx context.Context, topic string) ([]string, error) {
	return nil, nil
}

func newTurnTestServer(t *testing.T) (*Server, *session.Session) {
	t.Helper()

	repo := session.NewMemoryRepository()
	store := evidence.NewStore(
		evidence.NewMemoryDocumentRepository(),
		evidence.NewMemoryPassageRepository(),
		&stubEmbedder{},
	)
	builder, err := stance.NewBuilder(stance.DefaultWindow)
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}
	service := evaluator.NewService(&stubEmbedder{}, store, evaluator.DefaultConfig())
	worker := evaluator.NewWorker(service, repo, 1)

	engine := orchestrator.NewEngine(
		repo,
		session.NewRegistry(),
		store,
		retrieval.NewRetriever(store, 0),
		builder,
		&failingProvider{},
		worker,
		orchestrator.DefaultConfig(),
	)

	sess := session.New("remote work", nil, "Argue that remote work is harmful.")
	if err := repo.Create(context.Background(), sess); err != nil {
		t.Fatalf("create session: %v", err)
	}

	return NewServer(ServerConfig{Engine: engine}), sess
}

func TestHandlePostTurn_ProviderFailureReturnsFixedMessage(t *testing.T) {
	server, sess := newTurnTestServer(t)

	req := httptest.NewRequest("POST", "/api/v1/sessions/"+sess.ID.String()+"/turns",
		strings.NewReader(`{"text":"Remote work is better."}`))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("sessionID", sess.ID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	server.handlePostTurn(rec, req)

	if rec.Code == http.StatusCreated {
		t.Fatal("expected the turn to fail")
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["error"] != "failed to process turn" {
		t.Errorf("error message %q, want the fixed message", body["error"])
	}
	if strings.Contains(body["error"], llm.ErrInvalidRequest.Error()) {
		t.Error("response leaks internal error text")
	}
}
