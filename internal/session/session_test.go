package session

import (
	"testing"

	"github.com/google/uuid"
)

func TestNew_StartsInSetup(t *testing.T) {
	sess := New("remote work", []string{"productivity", "isolation"}, "Argue that remote work harms productivity.")

	if sess.Status != StatusSetup {
		t.Errorf("expected status %s, got %s", StatusSetup, sess.Status)
	}
	if sess.ID == uuid.Nil {
		t.Error("expected session ID to be generated")
	}
	if sess.NextIndex() != 0 {
		t.Errorf("expected next index 0, got %d", sess.NextIndex())
	}
}

func TestAppendTurn_ContiguousIndices(t *testing.T) {
	sess := New("remote work", nil, "Argue against remote work.")

	for i := 0; i < 6; i++ {
		speaker := SpeakerUser
		if i%2 == 1 {
			speaker = SpeakerAssistant
		}
		turn := &Turn{Index: i, Speaker: speaker, Text: "turn"}
		if err := sess.AppendTurn(turn); err != nil {
			t.Fatalf("append turn %d: %v", i, err)
		}
	}

	for i, turn := range sess.Turns {
		if turn.Index != i {
			t.Errorf("expected index %d at position %d, got %d", i, i, turn.Index)
		}
	}
}

func TestAppendTurn_FirstAppendActivates(t *testing.T) {
	sess := New("remote work", nil, "Argue against remote work.")

	turn := &Turn{Index: 0, Speaker: SpeakerUser, Text: "Remote work increases productivity."}
	if err := sess.AppendTurn(turn); err != nil {
		t.Fatalf("append: %v", err)
	}

	if sess.Status != StatusActive {
		t.Errorf("expected status %s, got %s", StatusActive, sess.Status)
	}
	if turn.SessionID != sess.ID {
		t.Error("expected turn to carry session id")
	}
}

func TestAppendTurn_RejectsGap(t *testing.T) {
	sess := New("remote work", nil, "Argue against remote work.")

	if err := sess.AppendTurn(&Turn{Index: 1, Speaker: SpeakerUser, Text: "x"}); err != ErrInvalidSequence {
		t.Errorf("expected ErrInvalidSequence, got %v", err)
	}
	if len(sess.Turns) != 0 {
		t.Error("expected no turn appended")
	}
}

func TestAppendTurn_RejectsConcluded(t *testing.T) {
	sess := New("remote work", nil, "Argue against remote work.")
	sess.Conclude()

	err := sess.AppendTurn(&Turn{Index: 0, Speaker: SpeakerUser, Text: "x"})
	if err != ErrInvalidSequence {
		t.Errorf("expected ErrInvalidSequence, got %v", err)
	}
}

func TestStance_UnchangedAcrossAppends(t *testing.T) {
	stance := "Argue that remote work harms productivity."
	sess := New("remote work", nil, stance)

	for i := 0; i < 4; i++ {
		_ = sess.AppendTurn(&Turn{Index: i, Speaker: SpeakerUser, Text: "x"})
		if sess.Stance != stance {
			t.Fatalf("stance changed after append %d: %q", i, sess.Stance)
		}
	}
	sess.Conclude()
	if sess.Stance != stance {
		t.Errorf("stance changed after conclude: %q", sess.Stance)
	}
}

func TestFirstUserTurn(t *testing.T) {
	sess := New("remote work", nil, "Argue against remote work.")
	if sess.FirstUserTurn() != nil {
		t.Error("expected nil first user turn on empty session")
	}

	_ = sess.AppendTurn(&Turn{Index: 0, Speaker: SpeakerUser, Text: "opening"})
	_ = sess.AppendTurn(&Turn{Index: 1, Speaker: SpeakerAssistant, Text: "rebuttal"})

	first := sess.FirstUserTurn()
	if first == nil || first.Text != "opening" {
		t.Errorf("expected opening user turn, got %+v", first)
	}
}

func TestCitationCount(t *testing.T) {
	sess := New("remote work", nil, "Argue against remote work.")
	pid := uuid.New()
	other := uuid.New()

	_ = sess.AppendTurn(&Turn{Index: 0, Speaker: SpeakerUser, Text: "x"})
	_ = sess.AppendTurn(&Turn{Index: 1, Speaker: SpeakerAssistant, Text: "y", PassageIDs: []uuid.UUID{pid, other}})
	_ = sess.AppendTurn(&Turn{Index: 2, Speaker: SpeakerUser, Text: "z"})
	_ = sess.AppendTurn(&Turn{Index: 3, Speaker: SpeakerAssistant, Text: "w", PassageIDs: []uuid.UUID{pid}})

	if got := sess.CitationCount(pid); got != 2 {
		t.Errorf("expected 2 citations, got %d", got)
	}
	if got := sess.CitationCount(other); got != 1 {
		t.Errorf("expected 1 citation, got %d", got)
	}
	if got := sess.CitationCount(uuid.New()); got != 0 {
		t.Errorf("expected 0 citations, got %d", got)
	}
}
