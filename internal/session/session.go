package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidSequence is returned when a turn append violates the
	// ordering invariant or targets a concluded session.
	ErrInvalidSequence = errors.New("invalid turn sequence")
	// ErrSessionBusy is returned when a session already has an in-flight turn
	ErrSessionBusy = errors.New("session busy")
	// ErrNotFound is returned when a session does not exist
	ErrNotFound = errors.New("session not found")
)

// Status represents the debate session lifecycle state
type Status string

const (
	StatusSetup     Status = "setup"
	StatusActive    Status = "active"
	StatusConcluded Status = "concluded"
)

// Speaker identifies who produced a turn
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Score is one evaluation of a turn. Scores are append-only: re-evaluation
// adds a new record, it never overwrites.
type Score struct {
	Drift         float64   `json:"drift"`
	Hallucination float64   `json:"hallucination"`
	CreatedAt     time.Time `json:"created_at"`
}

// Turn is one message in the debate
type Turn struct {
	ID         uuid.UUID   `json:"id"`
	SessionID  uuid.UUID   `json:"session_id"`
	Index      int         `json:"index"`
	Speaker    Speaker     `json:"speaker"`
	Text       string      `json:"text"`
	PassageIDs []uuid.UUID `json:"passage_ids,omitempty"`
	Scores     []Score     `json:"scores,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Session is the aggregate root of one debate. Topic, subtopics and stance
// are fixed at creation; turns are append-only in conversational order.
type Session struct {
	ID        uuid.UUID `json:"id"`
	Topic     string    `json:"topic"`
	Subtopics []string  `json:"subtopics"`
	Stance    string    `json:"stance"`
	Status    Status    `json:"status"`
	Turns     []*Turn   `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a session in setup state with its topic, subtopics and stance
// fixed for the session's lifetime.
func New(topic string, subtopics []string, stance string) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.New(),
		Topic:     topic,
		Subtopics: subtopics,
		Stance:    stance,
		Status:    StatusSetup,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NextIndex returns the sequence index the next turn must carry
func (s *Session) NextIndex() int {
	return len(s.Turns)
}

// LastTurn returns the most recent turn, or nil when there is none
func (s *Session) LastTurn() *Turn {
	if len(s.Turns) == 0 {
		return nil
	}
	return s.Turns[len(s.Turns)-1]
}

// FirstUserTurn returns the user's opening turn, or nil
func (s *Session) FirstUserTurn() *Turn {
	for _, t := range s.Turns {
		if t.Speaker == SpeakerUser {
			return t
		}
	}
	return nil
}

// AppendTurn validates and appends a turn. Indices must be contiguous from 0
// and a concluded session accepts no further turns. The first append moves
// the session from setup to active.
func (s *Session) AppendTurn(turn *Turn) error {
	if s.Status == StatusConcluded {
		return ErrInvalidSequence
	}
	if turn.Index != s.NextIndex() {
		return ErrInvalidSequence
	}

	if turn.ID == uuid.Nil {
		turn.ID = uuid.New()
	}
	turn.SessionID = s.ID
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	s.Turns = append(s.Turns, turn)
	if s.Status == StatusSetup {
		s.Status = StatusActive
	}
	s.UpdatedAt = time.Now()
	return nil
}

// Conclude moves the session to its terminal state
func (s *Session) Conclude() {
	s.Status = StatusConcluded
	s.UpdatedAt = time.Now()
}

// CitationCount returns how many prior turns cite the given passage
func (s *Session) CitationCount(passageID uuid.UUID) int {
	count := 0
	for _, t := range s.Turns {
		for _, id := range t.PassageIDs {
			if id == passageID {
				count++
				break
			}
		}
	}
	return count
}
