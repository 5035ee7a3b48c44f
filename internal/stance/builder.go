package stance

import (
	"fmt"
	"strings"

	"github.com/discoursa/debate-engine/internal/evidence"
	"github.com/discoursa/debate-engine/internal/session"
)

// Builder constructs PromptContexts for a debate session. The builder is the
// component enforcing the product's core promise: the stance directive and
// the anti-sycophancy constraints appear in every prompt, and no instruction
// implying agreement with the user is ever emitted.
type Builder struct {
	window int
}

// NewBuilder creates a Builder with the given history window. The window is
// measured in whole turns; truncation drops oldest turns first and never
// splits a turn.
func NewBuilder(window int) (*Builder, error) {
	if window <= 0 {
		return nil, ErrBadWindow
	}
	return &Builder{window: window}, nil
}

// Build produces the prompt context for the next assistant turn
func (b *Builder) Build(sess *session.Session, userText string, passages []*evidence.Passage) (*PromptContext, error) {
	if strings.TrimSpace(sess.Stance) == "" {
		return nil, ErrEmptyStance
	}

	pc := &PromptContext{
		Stance:      sess.Stance,
		Topic:       sess.Topic,
		Constraints: AntiSycophancyConstraints,
		UserMessage: userText,
	}

	for i, p := range passages {
		pc.Evidence = append(pc.Evidence, EvidenceItem{
			CitationID: fmt.Sprintf("E%d", i+1),
			PassageID:  p.ID,
			Text:       p.Text,
		})
	}

	pc.History = windowHistory(sess.Turns, b.window)

	return pc, nil
}

// windowHistory keeps the most recent limit turns, dropping oldest first
func windowHistory(turns []*session.Turn, limit int) []Message {
	start := 0
	if len(turns) > limit {
		start = len(turns) - limit
	}

	var history []Message
	for _, t := range turns[start:] {
		role := "user"
		if t.Speaker == session.SpeakerAssistant {
			role = "assistant"
		}
		history = append(history, Message{Role: role, Content: t.Text})
	}
	return history
}

// Render flattens the context into the system instruction sent to providers
// that take plain text.
func (pc *PromptContext) Render() string {
	var sb strings.Builder

	sb.WriteString("You are a professional debater tasked with arguing against the user. ")
	fmt.Fprintf(&sb, "The topic is '%s'. ", pc.Topic)
	fmt.Fprintf(&sb, "Your assigned stance, which is fixed for the whole debate: %s\n\n", pc.Stance)

	sb.WriteString("Constraints:\n")
	for _, c := range pc.Constraints {
		sb.WriteString("- ")
		sb.WriteString(c)
		sb.WriteString("\n")
	}

	if len(pc.Evidence) > 0 {
		sb.WriteString("\nRetrieved evidence you can use:\n")
		for _, e := range pc.Evidence {
			fmt.Fprintf(&sb, "[%s] %s\n", e.CitationID, e.Text)
		}
	} else {
		sb.WriteString("\n")
		sb.WriteString(UngroundedNotice)
		sb.WriteString("\n")
	}

	return sb.String()
}
