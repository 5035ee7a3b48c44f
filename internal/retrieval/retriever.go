package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/discoursa/debate-engine/internal/evidence"
	"github.com/discoursa/debate-engine/internal/session"
)

// DefaultMaxCitations is how many prior turns may cite a passage before the
// retriever stops offering it again.
const DefaultMaxCitations = 2

// overfetchFactor over-fetches from the store so the anti-repetition filter
// still leaves k candidates.
const overfetchFactor = 3

// Retriever turns a debate turn into a ranked evidence subset for grounding
type Retriever struct {
	store        *evidence.Store
	maxCitations int
}

// NewRetriever creates a Retriever. maxCitations <= 0 selects the default.
func NewRetriever(store *evidence.Store, maxCitations int) *Retriever {
	if maxCitations <= 0 {
		maxCitations = DefaultMaxCitations
	}
	return &Retriever{store: store, maxCitations: maxCitations}
}

// Retrieve composes a query from the current turn plus the session's topic
// and subtopics, searches the evidence store, and drops passages the session
// has already leaned on too often. An empty store yields an empty result:
// grounding is optional and the debate degrades gracefully to un-grounded
// argumentation.
func (r *Retriever) Retrieve(ctx context.Context, sess *session.Session, turnText string, k int) ([]*evidence.Passage, error) {
	if k <= 0 {
		return nil, nil
	}

	count, err := r.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	query := composeQuery(sess, turnText)

	scored, err := r.store.Search(ctx, query, k*overfetchFactor)
	if err != nil {
		return nil, fmt.Errorf("search evidence: %w", err)
	}

	var passages []*evidence.Passage
	for _, sp := range scored {
		if sess.CitationCount(sp.Passage.ID) > r.maxCitations {
			continue
		}
		passages = append(passages, sp.Passage)
		if len(passages) == k {
			break
		}
	}

	return passages, nil
}

// composeQuery broadens recall beyond a literal match on the turn text
func composeQuery(sess *session.Session, turnText string) string {
	parts := []string{turnText, sess.Topic}
	parts = append(parts, sess.Subtopics...)
	return strings.Join(parts, " ")
}
