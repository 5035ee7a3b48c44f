package evaluator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/discoursa/debate-engine/internal/session"
	"github.com/discoursa/debate-engine/internal/similarity"
)

// factualCues mark a sentence as carrying a checkable factual claim
var factualCues = []string{
	"study", "studies", "research", "researchers", "survey", "report",
	"according to", "data", "evidence shows", "found that", "shows that",
	"percent", "percentage", "majority", "million", "billion", "average",
	"statistics", "measured", "demonstrated", "proven",
}

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]*`)

const minClaimLength = 20

// hallucinationScore checks whether each factual claim in the turn is
// supported by the cited passages, or by the evidence store as a whole when
// the turn carries no citations. The score is the unsupported fraction. A
// turn with zero extractable claims scores 0: no claims, no possible
// fabrication.
func (s *Service) hallucinationScore(ctx context.Context, sess *session.Session, turn *session.Turn) (float64, error) {
	claims := ExtractClaims(turn.Text)
	if len(claims) == 0 {
		return 0, nil
	}

	grounding, err := s.groundingVectors(ctx, turn)
	if err != nil {
		return 0, err
	}

	claimVectors, err := s.embedder.EmbedTexts(ctx, claims)
	if err != nil {
		return 0, fmt.Errorf("embed claims: %w", err)
	}

	unsupported := 0
	for i, claim := range claims {
		supported, err := s.claimSupported(ctx, claim, claimVectors[i], grounding)
		if err != nil {
			return 0, err
		}
		if !supported {
			unsupported++
		}
	}

	return float64(unsupported) / float64(len(claims)), nil
}

// groundingVectors returns the embeddings of the passages the turn cites.
// Dangling citation ids are skipped, not failed.
func (s *Service) groundingVectors(ctx context.Context, turn *session.Turn) ([][]float32, error) {
	if len(turn.PassageIDs) == 0 {
		return nil, nil
	}

	passages, err := s.store.GetPassages(ctx, turn.PassageIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve citations: %w", err)
	}

	vectors := make([][]float32, 0, len(passages))
	for _, p := range passages {
		vectors = append(vectors, p.Embedding.Slice())
	}
	return vectors, nil
}

func (s *Service) claimSupported(ctx context.Context, claim string, claimVector []float32, grounding [][]float32) (bool, error) {
	if len(grounding) > 0 {
		return similarity.MaxSimilarity(claimVector, grounding) >= s.config.SupportThreshold, nil
	}

	// No citations on the turn: consult the store directly
	count, err := s.store.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count documents: %w", err)
	}
	if count == 0 {
		return false, nil
	}

	results, err := s.store.Search(ctx, claim, s.config.FallbackK)
	if err != nil {
		return false, fmt.Errorf("search support: %w", err)
	}

	for _, sp := range results {
		if sp.Similarity >= s.config.SupportThreshold {
			return true, nil
		}
	}
	return false, nil
}

// ExtractClaims splits text into sentences and keeps the ones carrying
// factual cues: numbers, percentages, or reporting language. Questions are
// never claims.
func ExtractClaims(text string) []string {
	sentences := sentencePattern.FindAllString(text, -1)

	var claims []string
	for _, raw := range sentences {
		sentence := strings.TrimSpace(raw)
		if len(sentence) < minClaimLength {
			continue
		}
		if strings.HasSuffix(sentence, "?") {
			continue
		}
		if isFactualClaim(sentence) {
			claims = append(claims, strings.TrimRight(sentence, ".!"))
		}
	}
	return claims
}

func isFactualClaim(sentence string) bool {
	for _, r := range sentence {
		if unicode.IsDigit(r) {
			return true
		}
	}
	if strings.Contains(sentence, "%") {
		return true
	}

	lower := strings.ToLower(sentence)
	for _, cue := range factualCues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}
