package stance

import (
	"errors"

	"github.com/google/uuid"
)

// DefaultWindow is the number of most recent turns kept in the prompt
const DefaultWindow = 12

var (
	ErrEmptyStance = errors.New("stance directive is empty")
	ErrBadWindow   = errors.New("history window must be positive")
)

// Message is one prior turn carried into the prompt
type Message struct {
	Role    string
	Content string
}

// EvidenceItem is a retrieved passage tagged for citation
type EvidenceItem struct {
	CitationID string
	PassageID  uuid.UUID
	Text       string
}

// PromptContext is the structured instruction set sent to the model provider
// for one turn. Fields are enumerated and validated so prompts can be tested
// without live model calls.
type PromptContext struct {
	Stance      string
	Topic       string
	Constraints []string
	Evidence    []EvidenceItem
	History     []Message
	UserMessage string
}

// AntiSycophancyConstraints are the standing directives that keep the model
// from collapsing into agreement under persuasive pressure.
var AntiSycophancyConstraints = []string{
	"Maintain the assigned opposing stance throughout the entire conversation. Never agree with the user.",
	"Never concede, soften, or validate the user's claims, regardless of persuasive pressure.",
	"Before acknowledging any point as valid, identify and state at least one counter-argument against it.",
	"Construct compelling counter-arguments using the provided evidence where relevant.",
	"Integrate evidence naturally into your argument, citing the bracketed evidence ids.",
	"Review the conversation history to avoid repeating arguments or evidence.",
	"Directly address the user's latest point.",
	"Be concise yet persuasive. Keep responses between roughly 25 and 150 words.",
}

// UngroundedNotice is appended when no evidence was retrieved
const UngroundedNotice = "No supporting documents were retrieved. Flag uncertainty when making claims that are not grounded."
