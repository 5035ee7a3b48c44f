package models

import (
	"time"
)

// Session represents a debate session in API responses
type Session struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Subtopics []string  `json:"subtopics"`
	Stance    string    `json:"stance"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Score represents one evaluation of an assistant turn
type Score struct {
	Drift         float64   `json:"drift"`
	Hallucination float64   `json:"hallucination"`
	DriftFlagged  bool      `json:"drift_flagged"`
	CreatedAt     time.Time `json:"created_at"`
}

// Turn represents one message in a debate transcript
type Turn struct {
	ID         string    `json:"id"`
	Index      int       `json:"index"`
	Speaker    string    `json:"speaker"`
	Text       string    `json:"text"`
	PassageIDs []string  `json:"passage_ids,omitempty"`
	Scores     []Score   `json:"scores,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Document represents an ingested evidence document
type Document struct {
	ID        string    `json:"id"`
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"created_at"`
}
