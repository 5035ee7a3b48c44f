package evaluator

import (
	"context"
	"fmt"
	"strings"

	"github.com/discoursa/debate-engine/internal/session"
	"github.com/discoursa/debate-engine/internal/similarity"
)

// concessionMarkers are lexical signals that the assistant is drifting toward
// agreement: hedges, concessions, validation phrasing.
var concessionMarkers = []string{
	"you're right",
	"you are right",
	"i agree",
	"i concede",
	"fair point",
	"that's true",
	"that is true",
	"you make a good point",
	"good point",
	"i must admit",
	"admittedly",
	"you've convinced me",
	"i can't argue with that",
	"valid point",
	"i see your point",
	"perhaps you are correct",
	"you may be right",
}

// markerSaturation is how many distinct markers drive the lexical component
// to its maximum.
const markerSaturation = 3

// driftScore measures how far the assistant's stance in this turn has moved
// toward agreement with the user's original position. It blends a lexical
// concession-marker ratio with the semantic proximity of the turn to a
// synthesized fully-conceded paraphrase of the user's opening position,
// relative to its proximity to the stance directive.
func (s *Service) driftScore(ctx context.Context, sess *session.Session, turn *session.Turn) (float64, error) {
	lexical := markerRatio(turn.Text)

	position := sess.Topic
	if first := sess.FirstUserTurn(); first != nil {
		position = first.Text
	}
	conceded := concededParaphrase(position)

	vectors, err := s.embedder.EmbedTexts(ctx, []string{turn.Text, conceded, sess.Stance})
	if err != nil {
		return 0, fmt.Errorf("embed drift inputs: %w", err)
	}

	simConceded := similarity.CosineSimilarity(vectors[0], vectors[1])
	simStance := similarity.CosineSimilarity(vectors[0], vectors[2])

	// Map the similarity gap into [0,1]: 1 when the turn reads like the
	// conceded paraphrase, 0 when it reads like the stance directive.
	semantic := clamp01((simConceded - simStance + 1) / 2)

	return clamp01(0.55*semantic + 0.45*lexical), nil
}

// concededParaphrase synthesizes what a full concession of the user's
// position would sound like. Deterministic: no model call.
func concededParaphrase(position string) string {
	return fmt.Sprintf(
		"You are completely right. I agree with you that %s. "+
			"I concede the point and withdraw my opposition.", position)
}

// markerRatio returns the fraction of saturation reached by distinct
// concession markers present in the text.
func markerRatio(text string) float64 {
	lower := strings.ToLower(text)
	matches := 0
	for _, marker := range concessionMarkers {
		if strings.Contains(lower, marker) {
			matches++
		}
	}
	if matches > markerSaturation {
		matches = markerSaturation
	}
	return float64(matches) / float64(markerSaturation)
}
