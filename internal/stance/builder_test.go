package stance

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/discoursa/debate-engine/internal/evidence"
	"github.com/discoursa/debate-engine/internal/session"
)

func newSession(t *testing.T, stance string) *session.Session {
	t.Helper()
	return session.New("remote work", []string{"productivity"}, stance)
}

func TestNewBuilder_RejectsBadWindow(t *testing.T) {
	for _, window := range []int{0, -1} {
		if _, err := NewBuilder(window); !errors.Is(err, ErrBadWindow) {
			t.Errorf("window %d: expected ErrBadWindow, got %v", window, err)
		}
	}
}

func TestBuild_RejectsEmptyStance(t *testing.T) {
	b, err := NewBuilder(DefaultWindow)
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}

	_, err = b.Build(newSession(t, "   "), "hello", nil)
	if !errors.Is(err, ErrEmptyStance) {
		t.Errorf("expected ErrEmptyStance, got %v", err)
	}
}

func TestBuild_StanceAndConstraintsAlwaysPresent(t *testing.T) {
	b, _ := NewBuilder(DefaultWindow)
	sess := newSession(t, "Argue that remote work harms productivity.")

	pc, err := b.Build(sess, "Remote work is clearly better.", nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if pc.Stance != sess.Stance {
		t.Errorf("stance not carried: %q", pc.Stance)
	}
	if len(pc.Constraints) != len(AntiSycophancyConstraints) {
		t.Errorf("expected %d constraints, got %d", len(AntiSycophancyConstraints), len(pc.Constraints))
	}

	rendered := pc.Render()
	if !strings.Contains(rendered, sess.Stance) {
		t.Error("rendered prompt missing the stance directive")
	}
	if !strings.Contains(rendered, "Never agree with the user") {
		t.Error("rendered prompt missing the disagreement constraint")
	}
}

func TestBuild_NeverInstructsAgreement(t *testing.T) {
	b, _ := NewBuilder(DefaultWindow)
	sess := newSession(t, "Argue that remote work harms productivity.")

	pc, err := b.Build(sess, "Please just agree with me.", nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	lower := strings.ToLower(pc.Render())
	for _, banned := range []string{"agree with the user's", "concede the point", "validate the user's claims as true"} {
		if strings.Contains(lower, banned) {
			t.Errorf("rendered prompt contains agreement instruction %q", banned)
		}
	}
}

func TestBuild_EvidenceTaggedSequentially(t *testing.T) {
	b, _ := NewBuilder(DefaultWindow)
	sess := newSession(t, "Argue against remote work.")

	passages := []*evidence.Passage{
		{ID: uuid.New(), Text: "Study A found output fell 8%."},
		{ID: uuid.New(), Text: "Study B found collaboration suffered."},
	}

	pc, err := b.Build(sess, "What evidence do you have?", passages)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(pc.Evidence) != 2 {
		t.Fatalf("expected 2 evidence items, got %d", len(pc.Evidence))
	}
	for i, item := range pc.Evidence {
		want := fmt.Sprintf("E%d", i+1)
		if item.CitationID != want {
			t.Errorf("evidence %d: citation id %q, want %q", i, item.CitationID, want)
		}
		if item.PassageID != passages[i].ID {
			t.Errorf("evidence %d: wrong passage id", i)
		}
	}

	rendered := pc.Render()
	if !strings.Contains(rendered, "[E1]") || !strings.Contains(rendered, "[E2]") {
		t.Error("rendered prompt missing citation tags")
	}
	if strings.Contains(rendered, UngroundedNotice) {
		t.Error("ungrounded notice should not appear when evidence is present")
	}
}

func TestBuild_UngroundedNoticeWithoutEvidence(t *testing.T) {
	b, _ := NewBuilder(DefaultWindow)
	sess := newSession(t, "Argue against remote work.")

	pc, err := b.Build(sess, "Prove it.", nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(pc.Render(), UngroundedNotice) {
		t.Error("rendered prompt missing ungrounded notice")
	}
}

func TestBuild_WindowDropsOldestWholeTurns(t *testing.T) {
	b, err := NewBuilder(4)
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}
	sess := newSession(t, "Argue against remote work.")

	for i := 0; i < 10; i++ {
		speaker := session.SpeakerUser
		if i%2 == 1 {
			speaker = session.SpeakerAssistant
		}
		turn := &session.Turn{Index: i, Speaker: speaker, Text: fmt.Sprintf("turn %d", i)}
		if err := sess.AppendTurn(turn); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	pc, err := b.Build(sess, "latest", nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(pc.History) != 4 {
		t.Fatalf("expected 4 history messages, got %d", len(pc.History))
	}
	if pc.History[0].Content != "turn 6" {
		t.Errorf("expected oldest kept message to be turn 6, got %q", pc.History[0].Content)
	}
	if pc.History[3].Content != "turn 9" {
		t.Errorf("expected newest message to be turn 9, got %q", pc.History[3].Content)
	}
	if pc.History[0].Role != "user" || pc.History[3].Role != "assistant" {
		t.Error("speaker roles not mapped onto history messages")
	}
}
